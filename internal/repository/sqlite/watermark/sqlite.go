package watermark

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	syncdomain "threegen/internal/domain/sync"
)

const stateRowID = 1

type SQLiteRepository struct {
	db *gorm.DB
}

func NewSQLite(db *gorm.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Read(ctx context.Context) (syncdomain.Watermark, error) {
	var state syncdomain.SyncState
	if err := r.db.WithContext(ctx).Where("id = ?", stateRowID).First(&state).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return syncdomain.Watermark{}, nil
		}
		return syncdomain.Watermark{}, err
	}
	return syncdomain.Watermark{
		Timestamp: state.LastSyncTimestamp,
		OwnerID:   state.OwnerID,
	}, nil
}

func (r *SQLiteRepository) Write(ctx context.Context, watermark syncdomain.Watermark) error {
	state := syncdomain.SyncState{
		ID:                stateRowID,
		LastSyncTimestamp: watermark.Timestamp,
		OwnerID:           watermark.OwnerID,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_sync_timestamp", "owner_id", "updated_at"}),
		}).
		Create(&state).Error
}

func (r *SQLiteRepository) Reset(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("id = ?", stateRowID).Delete(&syncdomain.SyncState{}).Error
}
