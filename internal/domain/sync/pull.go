package sync

import (
	"context"
	"errors"
	"fmt"

	"threegen/internal/domain/member"
)

// Pull fetches remote documents changed since the watermark and merges them
// into the local store in a single transaction. The watermark is advanced
// only after that transaction committed.
//
// A full pull runs on first run, when the watermark is zero or when it was
// written for a different owner.
func (s *Service) Pull(ctx context.Context, input PullInput) (*PullResult, error) {
	ownerID, ok := s.identity.CurrentOwnerID(ctx)
	if !ok {
		return nil, ErrNotAuthenticated
	}

	previous, err := s.watermarks.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read watermark: %w", err)
	}

	base := previous.Timestamp
	if previous.OwnerID != ownerID {
		base = 0
	}
	full := input.IsFirstRun || base <= 0

	since := base
	if full {
		since = 0
	}

	docs, err := s.remote.QueryModifiedSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("query remote documents: %w", err)
	}

	result := &PullResult{
		FullPull: full,
		Fetched:  len(docs),
	}

	err = s.local.Transaction(ctx, func(tx member.Repository) error {
		batch := &mergeBatch{
			result:  result,
			removed: make(map[string]struct{}),
		}
		for _, doc := range docs {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := s.mergeDocument(ctx, tx, doc, batch); err != nil {
				return fmt.Errorf("merge %s: %w", doc.ID, err)
			}
		}
		return s.releaseDanglingLinks(ctx, tx, batch)
	})
	if err != nil {
		return nil, fmt.Errorf("merge remote documents: %w", err)
	}

	next := Watermark{
		Timestamp: nextWatermark(base, docs, s.now().UnixMilli()),
		OwnerID:   ownerID,
	}
	result.Watermark = next

	if next != previous {
		if err := s.watermarks.Write(ctx, next); err != nil {
			return result, fmt.Errorf("write watermark: %w", err)
		}
	}

	return result, nil
}

type mergeBatch struct {
	result  *PullResult
	merged  []string
	removed map[string]struct{}
}

// mergeDocument applies one remote document. Skipped documents are counted
// and noted in the batch result; only store failures are returned.
func (s *Service) mergeDocument(ctx context.Context, tx member.Repository, doc Document, batch *mergeBatch) error {
	result := batch.result

	pendingDelete, err := tx.HasTombstone(ctx, doc.ID)
	if err != nil {
		return err
	}
	if pendingDelete {
		result.Conflicts++
		result.note("skipped %s: local delete pending", doc.ID)
		return nil
	}

	local, err := tx.GetByID(ctx, doc.ID)
	if err != nil {
		if !errors.Is(err, member.ErrMemberNotFound) {
			return err
		}
		local = nil
	}

	if doc.Deleted {
		return s.mergeDelete(ctx, tx, doc, local, batch)
	}

	if local != nil && local.SyncStatus.Dirty() {
		result.Conflicts++
		result.note("kept local edit of %s (%s)", local.ShortName, doc.ID)
		return nil
	}

	if reason := invalidDocument(doc); reason != "" {
		result.Failed++
		result.note("skipped %s: %s", doc.ID, reason)
		return nil
	}

	if local != nil && sameContent(FieldsFromRecord(*local), doc.Fields) && !missingCreator(*local, doc) {
		return nil
	}

	holder, err := tx.FindByShortName(ctx, doc.Fields.ShortName)
	if err != nil && !errors.Is(err, member.ErrMemberNotFound) {
		return err
	}
	if holder != nil && holder.ID != doc.ID {
		renamed, err := s.yieldShortName(ctx, tx, holder, doc)
		if err != nil {
			return err
		}
		if !renamed {
			result.Failed++
			result.note("skipped %s: short name %s already used by %s", doc.ID, doc.Fields.ShortName, holder.ID)
			return nil
		}
		result.note("renamed %s (%s) to %s, short name taken by %s", doc.Fields.ShortName, holder.ID, holder.ShortName, doc.ID)
	}

	record := recordFromDocument(doc)
	if local == nil {
		record.Version = 1
		err = tx.Upsert(ctx, &record)
	} else {
		record.CreatedAt = local.CreatedAt
		if local.CreatedBy != "" {
			record.CreatedBy = local.CreatedBy
		}
		record.Version = local.Version + 1
		err = tx.Update(ctx, &record)
	}
	if err != nil {
		if errors.Is(err, member.ErrShortNameTaken) {
			result.Failed++
			result.note("skipped %s: short name %s already used", doc.ID, doc.Fields.ShortName)
			return nil
		}
		return err
	}

	if local == nil {
		result.Inserted++
	} else {
		result.Updated++
	}
	batch.merged = append(batch.merged, doc.ID)
	return nil
}

// yieldShortName moves the local holder of a short name the remote document
// claims to a fresh suffixed code. A never pushed holder always yields. Two
// documents that both reached the remote are ordered by id: the larger id
// yields, so every device resolves the clash the same way and converges once
// the rename is pushed. The renamed holder is marked for push.
func (s *Service) yieldShortName(ctx context.Context, tx member.Repository, holder *member.Record, doc Document) (bool, error) {
	if holder.SyncStatus != member.StatusNotSynced && holder.ID < doc.ID {
		return false, nil
	}

	shortName, err := member.GenerateShortName(ctx, tx, holder.FirstName, holder.MiddleName, holder.LastName, holder.Town)
	if err != nil {
		if errors.Is(err, member.ErrShortNameExhausted) || errors.Is(err, member.ErrFirstNameRequired) {
			return false, nil
		}
		return false, err
	}
	if shortName == doc.Fields.ShortName {
		return false, nil
	}

	holder.ShortName = shortName
	holder.SyncStatus = holder.SyncStatus.AfterLocalEdit()
	holder.Version++
	holder.ModifiedAt = s.now().UnixMilli()
	if err := tx.Update(ctx, holder); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) mergeDelete(ctx context.Context, tx member.Repository, doc Document, local *member.Record, batch *mergeBatch) error {
	if local == nil {
		return nil
	}
	if local.SyncStatus.Dirty() {
		batch.result.Conflicts++
		batch.result.note("kept local edit of %s (%s) deleted on remote", local.ShortName, doc.ID)
		return nil
	}

	if _, err := tx.ClearReferences(ctx, doc.ID, false); err != nil {
		return err
	}
	if err := tx.Delete(ctx, doc.ID); err != nil {
		return err
	}
	batch.removed[doc.ID] = struct{}{}
	batch.result.Deleted++
	return nil
}

// releaseDanglingLinks nulls parent/spouse links of merged records that point
// at records deleted locally or by this pull, and marks them for push.
func (s *Service) releaseDanglingLinks(ctx context.Context, tx member.Repository, batch *mergeBatch) error {
	for _, id := range batch.merged {
		record, err := tx.GetByID(ctx, id)
		if err != nil {
			return err
		}

		changed := false
		if record.ParentID != nil {
			gone, err := batch.gone(ctx, tx, *record.ParentID)
			if err != nil {
				return err
			}
			if gone {
				record.ParentID = nil
				changed = true
			}
		}
		if record.SpouseID != nil {
			gone, err := batch.gone(ctx, tx, *record.SpouseID)
			if err != nil {
				return err
			}
			if gone {
				record.SpouseID = nil
				changed = true
			}
		}
		if !changed {
			continue
		}

		record.SyncStatus = record.SyncStatus.AfterLocalEdit()
		record.Version++
		record.ModifiedAt = s.now().UnixMilli()
		if err := tx.Update(ctx, record); err != nil {
			return err
		}
		batch.result.note("cleared link of %s (%s) to a deleted record", record.ShortName, record.ID)
	}
	return nil
}

func (b *mergeBatch) gone(ctx context.Context, tx member.Repository, id string) (bool, error) {
	if _, ok := b.removed[id]; ok {
		return true, nil
	}
	return tx.HasTombstone(ctx, id)
}

func sameContent(a, b DocumentFields) bool {
	return a.FirstName == b.FirstName &&
		a.MiddleName == b.MiddleName &&
		a.LastName == b.LastName &&
		a.Town == b.Town &&
		a.ShortName == b.ShortName &&
		equalString(a.ImageURL, b.ImageURL) &&
		equalString(a.Comment, b.Comment) &&
		equalInt(a.ChildNumber, b.ChildNumber) &&
		equalString(nonEmpty(a.ParentID), nonEmpty(b.ParentID)) &&
		equalString(nonEmpty(a.SpouseID), nonEmpty(b.SpouseID))
}

// missingCreator reports a local copy that never learned its creator while
// the remote document knows it.
func missingCreator(local member.Record, doc Document) bool {
	return local.CreatedBy == "" && doc.Fields.CreatedBy != ""
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func invalidDocument(doc Document) string {
	switch {
	case doc.ID == "":
		return "missing id"
	case doc.Fields.ID != "" && doc.Fields.ID != doc.ID:
		return "id does not match document key"
	case doc.Fields.FirstName == "":
		return "missing first name"
	case doc.Fields.ShortName == "":
		return "missing short name"
	default:
		return ""
	}
}

// nextWatermark never moves backwards. Documents without a modification
// marker fall back to now.
func nextWatermark(base int64, docs []Document, now int64) int64 {
	next := base
	for _, doc := range docs {
		marker := doc.UpdatedAt
		if marker <= 0 {
			marker = now
		}
		if marker > next {
			next = marker
		}
	}
	return next
}
