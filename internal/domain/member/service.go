package member

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OwnerResolver names the signed-in user. Records created while signed out
// get their creator when they are first pushed.
type OwnerResolver interface {
	CurrentOwnerID(ctx context.Context) (string, bool)
}

type Service struct {
	repo   Repository
	owners OwnerResolver
	now    func() time.Time
}

func NewService(repo Repository, owners OwnerResolver) *Service {
	return &Service{
		repo:   repo,
		owners: owners,
		now:    time.Now,
	}
}

func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByShortName(ctx context.Context, shortName string) (*Record, error) {
	return s.repo.FindByShortName(ctx, strings.ToUpper(strings.TrimSpace(shortName)))
}

func (s *Service) List(ctx context.Context) ([]Record, error) {
	return s.repo.ListAll(ctx)
}

func (s *Service) Create(ctx context.Context, input CreateInput) (*Record, error) {
	firstName := strings.TrimSpace(input.FirstName)
	if firstName == "" {
		return nil, ErrFirstNameRequired
	}
	if input.ChildNumber != nil && *input.ChildNumber <= 0 {
		return nil, ErrInvalidChildNumber
	}

	createdBy := strings.TrimSpace(input.CreatedBy)
	if createdBy == "" && s.owners != nil {
		if ownerID, ok := s.owners.CurrentOwnerID(ctx); ok {
			createdBy = ownerID
		}
	}

	now := s.now().UnixMilli()
	record := Record{
		ID:          uuid.NewString(),
		FirstName:   firstName,
		MiddleName:  strings.TrimSpace(input.MiddleName),
		LastName:    strings.TrimSpace(input.LastName),
		Town:        strings.TrimSpace(input.Town),
		ImageURL:    normalizeOptional(input.ImageURL),
		Comment:     normalizeOptional(input.Comment),
		ChildNumber: input.ChildNumber,
		ParentID:    normalizeOptional(input.ParentID),
		SpouseID:    normalizeOptional(input.SpouseID),
		CreatedAt:   now,
		CreatedBy:   createdBy,
		ModifiedAt:  now,
		SyncStatus:  StatusNotSynced,
		Version:     1,
	}

	err := s.repo.Transaction(ctx, func(tx Repository) error {
		if err := ensureLinks(ctx, tx, &record); err != nil {
			return err
		}

		shortName, err := GenerateShortName(ctx, tx, record.FirstName, record.MiddleName, record.LastName, record.Town)
		if err != nil {
			return err
		}
		record.ShortName = shortName

		return tx.Create(ctx, &record)
	})
	if err != nil {
		return nil, err
	}

	return &record, nil
}

func (s *Service) Update(ctx context.Context, input UpdateInput) (*Record, error) {
	var result Record
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		record, err := tx.GetByID(ctx, input.ID)
		if err != nil {
			return err
		}

		if input.FirstName != nil {
			firstName := strings.TrimSpace(*input.FirstName)
			if firstName == "" {
				return ErrFirstNameRequired
			}
			record.FirstName = firstName
		}
		if input.MiddleName != nil {
			record.MiddleName = strings.TrimSpace(*input.MiddleName)
		}
		if input.LastName != nil {
			record.LastName = strings.TrimSpace(*input.LastName)
		}
		if input.Town != nil {
			record.Town = strings.TrimSpace(*input.Town)
		}
		if input.ImageURL != nil {
			record.ImageURL = normalizeOptional(input.ImageURL)
		}
		if input.Comment != nil {
			record.Comment = normalizeOptional(input.Comment)
		}
		if input.ChildNumber != nil {
			if *input.ChildNumber <= 0 {
				return ErrInvalidChildNumber
			}
			childNumber := *input.ChildNumber
			record.ChildNumber = &childNumber
		}
		if input.ClearParent {
			record.ParentID = nil
		} else if input.ParentID != nil {
			record.ParentID = normalizeOptional(input.ParentID)
		}
		if input.ClearSpouse {
			record.SpouseID = nil
		} else if input.SpouseID != nil {
			record.SpouseID = normalizeOptional(input.SpouseID)
		}

		if err := ensureLinks(ctx, tx, record); err != nil {
			return err
		}

		record.SyncStatus = record.SyncStatus.AfterLocalEdit()
		record.Version++
		record.ModifiedAt = s.now().UnixMilli()

		if err := tx.Update(ctx, record); err != nil {
			return err
		}

		result = *record
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// Delete removes the record, nulls every parent/spouse link pointing at it
// and leaves a tombstone for the push reconciler, all in one transaction.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Transaction(ctx, func(tx Repository) error {
		if _, err := tx.GetByID(ctx, id); err != nil {
			return err
		}

		if _, err := tx.ClearReferences(ctx, id, true); err != nil {
			return err
		}
		if err := tx.Delete(ctx, id); err != nil {
			return err
		}

		return tx.AddTombstone(ctx, &Tombstone{
			RecordID:  id,
			DeletedAt: s.now().UnixMilli(),
		})
	})
}

func ensureLinks(ctx context.Context, repo Repository, record *Record) error {
	if record.ParentID != nil {
		if *record.ParentID == record.ID {
			return ErrSelfReference
		}
		if _, err := repo.GetByID(ctx, *record.ParentID); err != nil {
			if errors.Is(err, ErrMemberNotFound) {
				return ErrParentNotFound
			}
			return err
		}
	}
	if record.SpouseID != nil {
		if *record.SpouseID == record.ID {
			return ErrSelfReference
		}
		if _, err := repo.GetByID(ctx, *record.SpouseID); err != nil {
			if errors.Is(err, ErrMemberNotFound) {
				return ErrSpouseNotFound
			}
			return err
		}
	}
	return nil
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
