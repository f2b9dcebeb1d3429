package inmemory

import (
	"context"
	"sort"
	"sync"

	documentdomain "threegen/internal/domain/document"
)

// InMemoryDocumentRepository keeps member documents in a map. Transactions
// are serialized and roll back on error.
type InMemoryDocumentRepository struct {
	txMu *sync.Mutex
	mu   *sync.RWMutex
	docs map[string]documentdomain.Document
}

func NewInMemoryDocumentRepository() *InMemoryDocumentRepository {
	return &InMemoryDocumentRepository{
		txMu: &sync.Mutex{},
		mu:   &sync.RWMutex{},
		docs: make(map[string]documentdomain.Document),
	}
}

func (r *InMemoryDocumentRepository) Transaction(ctx context.Context, fn func(documentdomain.Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.RLock()
	snapshot := make(map[string]documentdomain.Document, len(r.docs))
	for id, doc := range r.docs {
		snapshot[id] = doc
	}
	r.mu.RUnlock()

	if err := fn(r); err != nil {
		r.mu.Lock()
		r.docs = snapshot
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *InMemoryDocumentRepository) Get(ctx context.Context, id string) (*documentdomain.Document, error) {
	r.mu.RLock()
	doc, ok := r.docs[id]
	r.mu.RUnlock()
	if !ok {
		return nil, documentdomain.ErrDocumentNotFound
	}
	doc.Fields = append(doc.Fields[:0:0], doc.Fields...)
	return &doc, nil
}

func (r *InMemoryDocumentRepository) GetForUpdate(ctx context.Context, id string) (*documentdomain.Document, error) {
	return r.Get(ctx, id)
}

func (r *InMemoryDocumentRepository) Upsert(ctx context.Context, doc *documentdomain.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.docs[doc.ID]; ok {
		if existing.OwnerID != doc.OwnerID {
			return documentdomain.ErrPermissionDenied
		}
		doc.CreatedAt = existing.CreatedAt
	}

	stored := *doc
	stored.Fields = append(doc.Fields[:0:0], doc.Fields...)
	r.docs[doc.ID] = stored
	return nil
}

func (r *InMemoryDocumentRepository) ListModifiedSince(ctx context.Context, ownerID string, since int64, afterID string, limit int) ([]documentdomain.Document, error) {
	r.mu.RLock()
	result := make([]documentdomain.Document, 0)
	for _, doc := range r.docs {
		if doc.OwnerID != ownerID {
			continue
		}
		if doc.UpdatedAt < since {
			continue
		}
		if afterID != "" && doc.UpdatedAt == since && doc.ID <= afterID {
			continue
		}
		result = append(result, doc)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].UpdatedAt != result[j].UpdatedAt {
			return result[i].UpdatedAt < result[j].UpdatedAt
		}
		return result[i].ID < result[j].ID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
