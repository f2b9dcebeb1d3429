package user

import (
	"context"
	"strings"
	"time"
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

// RecordSignIn stores the caller of a freshly resolved session and stamps
// LastSeenAt. Blank values never clear what an earlier sign-in stored.
func (s *Service) RecordSignIn(ctx context.Context, session Session) error {
	userID := strings.TrimSpace(session.UserID)
	if userID == "" {
		return ErrUserIDRequired
	}

	return s.repo.UpsertProfile(ctx, &Profile{
		UserID:      userID,
		Email:       optional(session.Email),
		DisplayName: optional(session.Name),
		AvatarURL:   optional(session.AvatarURL),
		LastSeenAt:  s.now().UTC(),
	})
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
