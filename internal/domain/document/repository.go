package document

import "context"

type Repository interface {
	Transaction(ctx context.Context, fn func(Repository) error) error
	Get(ctx context.Context, id string) (*Document, error)
	GetForUpdate(ctx context.Context, id string) (*Document, error)
	Upsert(ctx context.Context, doc *Document) error
	ListModifiedSince(ctx context.Context, ownerID string, since int64, afterID string, limit int) ([]Document, error)
}
