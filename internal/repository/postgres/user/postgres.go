package user

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	userdomain "threegen/internal/domain/user"
)

type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// UpsertProfile always moves last_seen_at; optional columns are only
// written when the new sign-in carries a value.
func (r *PostgresRepository) UpsertProfile(ctx context.Context, profile *userdomain.Profile) error {
	updates := map[string]interface{}{
		"last_seen_at": profile.LastSeenAt,
		"updated_at":   profile.LastSeenAt,
	}
	optional := map[string]*string{
		"email":        profile.Email,
		"display_name": profile.DisplayName,
		"avatar_url":   profile.AvatarURL,
	}
	for column, value := range optional {
		if value != nil {
			updates[column] = *value
		}
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(updates),
		}).
		Create(profile).Error
}
