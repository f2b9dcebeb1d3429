package document

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// Put replaces the whole document. A soft-deleted document comes back to life.
func (s *Service) Put(ctx context.Context, ownerID, id string, fields json.RawMessage) (*Document, error) {
	id = strings.TrimSpace(id)
	if err := validateFields(id, fields); err != nil {
		return nil, err
	}

	var result Document
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		existing, err := tx.GetForUpdate(ctx, id)
		if err != nil && !errors.Is(err, ErrDocumentNotFound) {
			return err
		}

		var previous int64
		if existing != nil {
			if existing.OwnerID != ownerID {
				return ErrPermissionDenied
			}
			previous = existing.UpdatedAt
		}

		doc := Document{
			ID:        id,
			OwnerID:   ownerID,
			Fields:    datatypes.JSON(compact(fields)),
			UpdatedAt: s.nextMarker(previous),
			Deleted:   false,
		}
		if err := tx.Upsert(ctx, &doc); err != nil {
			return err
		}

		result = doc
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (s *Service) Get(ctx context.Context, ownerID, id string) (*Document, error) {
	doc, err := s.repo.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != ownerID {
		return nil, ErrPermissionDenied
	}
	if doc.Deleted {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

// Delete marks the document deleted and bumps its marker. Deleting a
// missing or already deleted document succeeds.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidDocument
	}

	return s.repo.Transaction(ctx, func(tx Repository) error {
		existing, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, ErrDocumentNotFound) {
				return nil
			}
			return err
		}
		if existing.OwnerID != ownerID {
			return ErrPermissionDenied
		}
		if existing.Deleted {
			return nil
		}

		existing.Deleted = true
		existing.UpdatedAt = s.nextMarker(existing.UpdatedAt)
		return tx.Upsert(ctx, existing)
	})
}

func (s *Service) ListModifiedSince(ctx context.Context, input ListInput) (*Page, error) {
	if input.Since < 0 {
		return nil, ErrInvalidCursor
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	docs, err := s.repo.ListModifiedSince(ctx, input.OwnerID, input.Since, strings.TrimSpace(input.AfterID), limit+1)
	if err != nil {
		return nil, err
	}

	page := &Page{
		Items:       docs,
		NextSince:   input.Since,
		NextAfterID: input.AfterID,
	}
	if len(docs) > limit {
		page.Items = docs[:limit]
		page.HasMore = true
	}
	if len(page.Items) > 0 {
		last := page.Items[len(page.Items)-1]
		page.NextSince = last.UpdatedAt
		page.NextAfterID = last.ID
	}
	return page, nil
}

// nextMarker keeps markers strictly increasing per document even when the
// clock stalls or goes backwards.
func (s *Service) nextMarker(previous int64) int64 {
	now := s.now().UnixMilli()
	if now <= previous {
		return previous + 1
	}
	return now
}

func validateFields(id string, fields json.RawMessage) error {
	if id == "" || len(id) > maxIDLength {
		return fmt.Errorf("%w: id must be 1-%d characters", ErrInvalidDocument, maxIDLength)
	}

	var object map[string]json.RawMessage
	if err := json.Unmarshal(fields, &object); err != nil || object == nil {
		return fmt.Errorf("%w: fields must be a json object", ErrInvalidDocument)
	}

	if raw, ok := object["id"]; ok && string(raw) != "null" {
		var embedded string
		if err := json.Unmarshal(raw, &embedded); err != nil || embedded != id {
			return fmt.Errorf("%w: fields.id does not match document id", ErrInvalidDocument)
		}
	}
	return nil
}

func compact(fields json.RawMessage) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, fields); err != nil {
		return fields
	}
	return buf.Bytes()
}
