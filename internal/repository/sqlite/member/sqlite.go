package member

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	memberdomain "threegen/internal/domain/member"
)

type SQLiteRepository struct {
	db *gorm.DB
}

func NewSQLite(db *gorm.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Transaction(ctx context.Context, fn func(memberdomain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&SQLiteRepository{db: tx})
	})
}

func (r *SQLiteRepository) ListAll(ctx context.Context) ([]memberdomain.Record, error) {
	var records []memberdomain.Record
	if err := r.db.WithContext(ctx).
		Order("created_at asc, id asc").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *SQLiteRepository) ListUnsynced(ctx context.Context) ([]memberdomain.Record, error) {
	var records []memberdomain.Record
	if err := r.db.WithContext(ctx).
		Where("sync_status <> ?", memberdomain.StatusSynced).
		Order("created_at asc, id asc").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*memberdomain.Record, error) {
	var record memberdomain.Record
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, memberdomain.ErrMemberNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *SQLiteRepository) FindByShortName(ctx context.Context, shortName string) (*memberdomain.Record, error) {
	var record memberdomain.Record
	if err := r.db.WithContext(ctx).Where("short_name = ?", shortName).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, memberdomain.ErrMemberNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *SQLiteRepository) IsShortNameTaken(ctx context.Context, shortName string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&memberdomain.Record{}).
		Where("short_name = ?", shortName).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, record *memberdomain.Record) error {
	return translate(r.db.WithContext(ctx).Create(record).Error)
}

// Update writes every column of record, zero values included.
func (r *SQLiteRepository) Update(ctx context.Context, record *memberdomain.Record) error {
	result := r.db.WithContext(ctx).
		Model(&memberdomain.Record{}).
		Where("id = ?", record.ID).
		Select("*").
		Omit("id").
		Updates(record)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return memberdomain.ErrMemberNotFound
	}
	return nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, record *memberdomain.Record) error {
	return translate(r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(record).Error)
}

func (r *SQLiteRepository) UpdateStatus(ctx context.Context, id string, status memberdomain.SyncStatus) error {
	result := r.db.WithContext(ctx).
		Model(&memberdomain.Record{}).
		Where("id = ?", id).
		Update("sync_status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return memberdomain.ErrMemberNotFound
	}
	return nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, version int64, createdBy string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&memberdomain.Record{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]interface{}{
			"sync_status": memberdomain.StatusSynced,
			"created_by":  gorm.Expr("CASE WHEN created_by = '' THEN ? ELSE created_by END", createdBy),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&memberdomain.Record{}).Error
}

func (r *SQLiteRepository) ClearReferences(ctx context.Context, id string, markDirty bool) (int64, error) {
	var affected int64
	if err := r.db.WithContext(ctx).
		Model(&memberdomain.Record{}).
		Where("parent_id = ? OR spouse_id = ?", id, id).
		Count(&affected).Error; err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, nil
	}

	if markDirty {
		if err := r.db.WithContext(ctx).
			Model(&memberdomain.Record{}).
			Where("parent_id = ? OR spouse_id = ?", id, id).
			Updates(map[string]interface{}{
				"sync_status": gorm.Expr("CASE WHEN sync_status = ? THEN ? ELSE ? END",
					memberdomain.StatusNotSynced, memberdomain.StatusNotSynced, memberdomain.StatusUpdated),
				"version": gorm.Expr("version + 1"),
			}).Error; err != nil {
			return 0, err
		}
	}

	if err := r.db.WithContext(ctx).
		Model(&memberdomain.Record{}).
		Where("parent_id = ?", id).
		Update("parent_id", nil).Error; err != nil {
		return 0, err
	}
	if err := r.db.WithContext(ctx).
		Model(&memberdomain.Record{}).
		Where("spouse_id = ?", id).
		Update("spouse_id", nil).Error; err != nil {
		return 0, err
	}

	return affected, nil
}

func (r *SQLiteRepository) AddTombstone(ctx context.Context, tombstone *memberdomain.Tombstone) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "record_id"}},
			UpdateAll: true,
		}).
		Create(tombstone).Error
}

func (r *SQLiteRepository) ListTombstones(ctx context.Context) ([]memberdomain.Tombstone, error) {
	var tombstones []memberdomain.Tombstone
	if err := r.db.WithContext(ctx).
		Order("deleted_at asc, record_id asc").
		Find(&tombstones).Error; err != nil {
		return nil, err
	}
	return tombstones, nil
}

func (r *SQLiteRepository) HasTombstone(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&memberdomain.Tombstone{}).
		Where("record_id = ?", id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *SQLiteRepository) RemoveTombstone(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("record_id = ?", id).Delete(&memberdomain.Tombstone{}).Error
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return memberdomain.ErrShortNameTaken
	}
	return err
}
