package document

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	documentdomain "threegen/internal/domain/document"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Transaction(ctx context.Context, fn func(documentdomain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PostgresRepository{db: tx})
	})
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*documentdomain.Document, error) {
	var doc documentdomain.Document
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, documentdomain.ErrDocumentNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, id string) (*documentdomain.Document, error) {
	var doc documentdomain.Document
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, documentdomain.ErrDocumentNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// Upsert only overwrites a row owned by the same owner. A concurrent insert
// by another owner leaves zero affected rows.
func (r *PostgresRepository) Upsert(ctx context.Context, doc *documentdomain.Document) error {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "member_documents.owner_id = excluded.owner_id"},
			}},
			DoUpdates: clause.AssignmentColumns([]string{"fields", "updated_at", "deleted"}),
		}).
		Create(doc)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return documentdomain.ErrPermissionDenied
	}
	return nil
}

func (r *PostgresRepository) ListModifiedSince(ctx context.Context, ownerID string, since int64, afterID string, limit int) ([]documentdomain.Document, error) {
	query := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if afterID == "" {
		query = query.Where("updated_at >= ?", since)
	} else {
		query = query.Where("((updated_at > ?) OR (updated_at = ? AND id > ?))", since, since, afterID)
	}

	var docs []documentdomain.Document
	if err := query.
		Order("updated_at asc").
		Order("id asc").
		Limit(limit).
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return documentdomain.ErrPermissionDenied
	case pgCheckViolation:
		return documentdomain.ErrInvalidDocument
	default:
		return err
	}
}
