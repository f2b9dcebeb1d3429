package sync

import (
	"context"
	"fmt"

	"threegen/internal/domain/member"
)

// Push sends every dirty record to the remote store, then the pending
// deletes. Records are handled one by one and a failure only affects its
// own record. The status write after a confirmed put is a compare-and-set on
// the record version, so an edit made during the round trip stays dirty.
//
// The returned error wraps ErrRemoteUnavailable when at least one operation
// failed transiently; the result is still returned in that case.
func (s *Service) Push(ctx context.Context) (*PushResult, error) {
	ownerID, ok := s.identity.CurrentOwnerID(ctx)
	if !ok {
		return nil, ErrNotAuthenticated
	}

	records, err := s.local.ListUnsynced(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unsynced records: %w", err)
	}
	tombstones, err := s.local.ListTombstones(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tombstones: %w", err)
	}

	result := &PushResult{
		Outcomes: make([]RecordOutcome, 0, len(records)+len(tombstones)),
	}
	transient := 0

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		outcome := s.pushRecord(ctx, ownerID, record)
		if outcome.Status == OutcomeFailed && IsTransient(outcome.Err) {
			transient++
		}
		result.add(outcome)
	}

	for _, tombstone := range tombstones {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		outcome := s.pushDelete(ctx, tombstone)
		if outcome.Status == OutcomeFailed && IsTransient(outcome.Err) {
			transient++
		}
		result.add(outcome)
	}

	if transient > 0 {
		return result, fmt.Errorf("%w: %d of %d operations failed", ErrRemoteUnavailable, transient, len(result.Outcomes))
	}

	return result, nil
}

func (s *Service) pushRecord(ctx context.Context, ownerID string, record member.Record) RecordOutcome {
	outcome := RecordOutcome{
		RecordID:  record.ID,
		ShortName: record.ShortName,
	}

	fields := FieldsFromRecord(record)
	if fields.CreatedBy == "" {
		fields.CreatedBy = ownerID
	}

	if err := s.remote.Put(ctx, record.ID, fields); err != nil {
		outcome.Status = OutcomeFailed
		outcome.Err = err
		return outcome
	}

	marked, err := s.local.MarkSynced(ctx, record.ID, record.Version, fields.CreatedBy)
	if err != nil {
		outcome.Status = OutcomeFailed
		outcome.Err = fmt.Errorf("mark synced: %w", err)
		return outcome
	}
	if !marked {
		outcome.Status = OutcomeStillDirty
		return outcome
	}

	outcome.Status = OutcomePushed
	return outcome
}

func (s *Service) pushDelete(ctx context.Context, tombstone member.Tombstone) RecordOutcome {
	outcome := RecordOutcome{RecordID: tombstone.RecordID}

	if err := s.remote.Delete(ctx, tombstone.RecordID); err != nil {
		outcome.Status = OutcomeFailed
		outcome.Err = fmt.Errorf("delete: %w", err)
		return outcome
	}
	if err := s.local.RemoveTombstone(ctx, tombstone.RecordID); err != nil {
		outcome.Status = OutcomeFailed
		outcome.Err = fmt.Errorf("remove tombstone: %w", err)
		return outcome
	}

	outcome.Status = OutcomeDeleted
	return outcome
}
