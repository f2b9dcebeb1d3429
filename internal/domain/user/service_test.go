package user

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeProfileRepo struct {
	profiles []Profile
}

func (r *fakeProfileRepo) UpsertProfile(ctx context.Context, profile *Profile) error {
	r.profiles = append(r.profiles, *profile)
	return nil
}

func TestRecordSignInTrimsAndSkipsBlank(t *testing.T) {
	repo := &fakeProfileRepo{}
	service := NewService(repo)
	seen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	service.now = func() time.Time { return seen }

	err := service.RecordSignIn(context.Background(), Session{
		UserID: " user-1 ",
		Email:  " ann@example.com ",
		Name:   "  ",
	})
	if err != nil {
		t.Fatalf("record sign-in: %v", err)
	}

	if len(repo.profiles) != 1 {
		t.Fatalf("expected one profile, got %d", len(repo.profiles))
	}
	profile := repo.profiles[0]
	if profile.UserID != "user-1" {
		t.Fatalf("expected trimmed user id, got %q", profile.UserID)
	}
	if profile.Email == nil || *profile.Email != "ann@example.com" {
		t.Fatalf("expected trimmed email, got %v", profile.Email)
	}
	if profile.DisplayName != nil || profile.AvatarURL != nil {
		t.Fatalf("expected blank name and avatar to stay nil")
	}
	if !profile.LastSeenAt.Equal(seen) || profile.LastSeenAt.Location() != time.UTC {
		t.Fatalf("expected last seen in UTC, got %v", profile.LastSeenAt)
	}
}

func TestRecordSignInRequiresUserID(t *testing.T) {
	service := NewService(&fakeProfileRepo{})

	err := service.RecordSignIn(context.Background(), Session{UserID: "  "})
	if !errors.Is(err, ErrUserIDRequired) {
		t.Fatalf("expected ErrUserIDRequired, got %v", err)
	}
}
