package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"threegen/internal/domain/member"
)

type Service struct {
	local      member.Repository
	remote     RemoteStore
	watermarks WatermarkStore
	identity   IdentityProvider
	now        func() time.Time
}

func NewService(local member.Repository, remote RemoteStore, watermarks WatermarkStore, identity IdentityProvider) *Service {
	return &Service{
		local:      local,
		remote:     remote,
		watermarks: watermarks,
		identity:   identity,
		now:        time.Now,
	}
}

// Sync pushes local changes first so they reach the remote before remote
// versions are merged back. A push blocked by missing identity stops here.
func (s *Service) Sync(ctx context.Context, isFirstRun bool) (*Result, error) {
	result := &Result{}

	pushed, pushErr := s.Push(ctx)
	result.Push = pushed
	if errors.Is(pushErr, ErrNotAuthenticated) || ctx.Err() != nil {
		return result, pushErr
	}

	pulled, pullErr := s.Pull(ctx, PullInput{IsFirstRun: isFirstRun})
	result.Pull = pulled

	return result, errors.Join(pushErr, pullErr)
}

func (s *Service) Watermark(ctx context.Context) (Watermark, error) {
	return s.watermarks.Read(ctx)
}

func (s *Service) ResetWatermark(ctx context.Context) error {
	return s.watermarks.Reset(ctx)
}

// RequeueAll marks every SYNCED record UPDATED so the next push sends it
// again. Versions are left alone, so a push already in flight still confirms.
func (s *Service) RequeueAll(ctx context.Context) (int, error) {
	requeued := 0
	err := s.local.Transaction(ctx, func(tx member.Repository) error {
		records, err := tx.ListAll(ctx)
		if err != nil {
			return err
		}
		requeued = 0
		for _, record := range records {
			if record.SyncStatus != member.StatusSynced {
				continue
			}
			if err := tx.UpdateStatus(ctx, record.ID, member.StatusUpdated); err != nil {
				return fmt.Errorf("requeue %s: %w", record.ID, err)
			}
			requeued++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return requeued, nil
}

// PendingCounts returns the number of dirty records and pending remote deletes.
func (s *Service) PendingCounts(ctx context.Context) (int, int, error) {
	records, err := s.local.ListUnsynced(ctx)
	if err != nil {
		return 0, 0, err
	}
	tombstones, err := s.local.ListTombstones(ctx)
	if err != nil {
		return 0, 0, err
	}
	return len(records), len(tombstones), nil
}
