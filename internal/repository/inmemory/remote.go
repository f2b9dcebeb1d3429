package inmemory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	documentdomain "threegen/internal/domain/document"
	syncdomain "threegen/internal/domain/sync"
)

// InMemoryRemoteStore serves a device from a shared document service, so
// several devices in one process see the same remote. Each device supplies
// its own identity.
type InMemoryRemoteStore struct {
	documents *documentdomain.Service
	identity  syncdomain.IdentityProvider
	offline   *atomic.Bool
	pageSize  int
}

func NewInMemoryRemoteStore(documents *documentdomain.Service, identity syncdomain.IdentityProvider) *InMemoryRemoteStore {
	return &InMemoryRemoteStore{
		documents: documents,
		identity:  identity,
		offline:   &atomic.Bool{},
		pageSize:  documentdomain.DefaultPageSize,
	}
}

// SetOffline makes every call fail with ErrRemoteUnavailable until cleared.
func (s *InMemoryRemoteStore) SetOffline(offline bool) {
	s.offline.Store(offline)
}

func (s *InMemoryRemoteStore) Ping(ctx context.Context) error {
	if s.offline.Load() {
		return syncdomain.ErrRemoteUnavailable
	}
	return ctx.Err()
}

func (s *InMemoryRemoteStore) Put(ctx context.Context, id string, fields syncdomain.DocumentFields) error {
	ownerID, err := s.begin(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("%w: %v", syncdomain.ErrInvalidDocument, err)
	}

	_, err = s.documents.Put(ctx, ownerID, id, payload)
	return translate(err)
}

func (s *InMemoryRemoteStore) Get(ctx context.Context, id string) (*syncdomain.Document, error) {
	ownerID, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := s.documents.Get(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, documentdomain.ErrDocumentNotFound) {
			return nil, nil
		}
		return nil, translate(err)
	}

	converted := toSyncDocument(*doc)
	return &converted, nil
}

func (s *InMemoryRemoteStore) QueryModifiedSince(ctx context.Context, since int64) ([]syncdomain.Document, error) {
	ownerID, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]syncdomain.Document, 0)
	input := documentdomain.ListInput{OwnerID: ownerID, Since: since, Limit: s.pageSize}
	for {
		page, err := s.documents.ListModifiedSince(ctx, input)
		if err != nil {
			return nil, translate(err)
		}
		for _, doc := range page.Items {
			result = append(result, toSyncDocument(doc))
		}
		if !page.HasMore {
			return result, nil
		}
		input.Since = page.NextSince
		input.AfterID = page.NextAfterID
	}
}

func (s *InMemoryRemoteStore) Delete(ctx context.Context, id string) error {
	ownerID, err := s.begin(ctx)
	if err != nil {
		return err
	}
	return translate(s.documents.Delete(ctx, ownerID, id))
}

func (s *InMemoryRemoteStore) begin(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.offline.Load() {
		return "", syncdomain.ErrRemoteUnavailable
	}
	ownerID, ok := s.identity.CurrentOwnerID(ctx)
	if !ok {
		return "", syncdomain.ErrNotAuthenticated
	}
	return ownerID, nil
}

// toSyncDocument leaves the fields empty when they cannot be decoded, so the
// pull reconciler reports the document as invalid instead of failing the page.
func toSyncDocument(doc documentdomain.Document) syncdomain.Document {
	converted := syncdomain.Document{
		ID:        doc.ID,
		UpdatedAt: doc.UpdatedAt,
		Deleted:   doc.Deleted,
	}
	var fields syncdomain.DocumentFields
	if err := json.Unmarshal(doc.Fields, &fields); err == nil {
		converted.Fields = fields
	}
	return converted
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, documentdomain.ErrPermissionDenied):
		return fmt.Errorf("%w: %v", syncdomain.ErrPermissionDenied, err)
	case errors.Is(err, documentdomain.ErrInvalidDocument), errors.Is(err, documentdomain.ErrInvalidCursor):
		return fmt.Errorf("%w: %v", syncdomain.ErrInvalidDocument, err)
	default:
		return err
	}
}
