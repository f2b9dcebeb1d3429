package member

import "context"

type Repository interface {
	Transaction(ctx context.Context, fn func(Repository) error) error
	ListAll(ctx context.Context) ([]Record, error)
	ListUnsynced(ctx context.Context) ([]Record, error)
	GetByID(ctx context.Context, id string) (*Record, error)
	FindByShortName(ctx context.Context, shortName string) (*Record, error)
	IsShortNameTaken(ctx context.Context, shortName string) (bool, error)
	Create(ctx context.Context, record *Record) error
	Update(ctx context.Context, record *Record) error
	Upsert(ctx context.Context, record *Record) error
	UpdateStatus(ctx context.Context, id string, status SyncStatus) error
	// MarkSynced sets SYNCED when the record is still at version and fills
	// an empty created_by with createdBy. It reports whether the row matched.
	MarkSynced(ctx context.Context, id string, version int64, createdBy string) (bool, error)
	Delete(ctx context.Context, id string) error
	ClearReferences(ctx context.Context, id string, markDirty bool) (int64, error)
	AddTombstone(ctx context.Context, tombstone *Tombstone) error
	ListTombstones(ctx context.Context) ([]Tombstone, error)
	HasTombstone(ctx context.Context, id string) (bool, error)
	RemoveTombstone(ctx context.Context, id string) error
}
