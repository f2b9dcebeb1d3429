package sync

import "context"

type RemoteStore interface {
	Put(ctx context.Context, id string, fields DocumentFields) error
	Get(ctx context.Context, id string) (*Document, error)
	QueryModifiedSince(ctx context.Context, since int64) ([]Document, error)
	Delete(ctx context.Context, id string) error
}

// WatermarkStore is read and written outside any local transaction.
type WatermarkStore interface {
	Read(ctx context.Context) (Watermark, error)
	Write(ctx context.Context, watermark Watermark) error
	Reset(ctx context.Context) error
}

// IdentityProvider returns false when no user is signed in.
type IdentityProvider interface {
	CurrentOwnerID(ctx context.Context) (string, bool)
}
