package identity

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, subject string, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("device-test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestCurrentOwnerIDFromEnvToken(t *testing.T) {
	provider := NewTokenProvider(signedToken(t, "user-1", time.Now().Add(time.Hour)), "")

	owner, ok := provider.CurrentOwnerID(context.Background())
	if !ok || owner != "user-1" {
		t.Fatalf("expected user-1, got %q (%v)", owner, ok)
	}
}

func TestExpiredTokenIsAnonymous(t *testing.T) {
	provider := NewTokenProvider(signedToken(t, "user-1", time.Now().Add(-time.Minute)), "")

	if _, ok := provider.CurrentOwnerID(context.Background()); ok {
		t.Fatalf("expected expired token to be anonymous")
	}
}

func TestMalformedTokenIsAnonymous(t *testing.T) {
	provider := NewTokenProvider("not-a-jwt", "")

	if _, ok := provider.CurrentOwnerID(context.Background()); ok {
		t.Fatalf("expected malformed token to be anonymous")
	}
}

func TestTokenFileIsReread(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session")
	provider := NewTokenProvider("", path)

	if _, ok := provider.CurrentOwnerID(context.Background()); ok {
		t.Fatalf("expected anonymous without token file")
	}

	if err := os.WriteFile(path, []byte(signedToken(t, "user-2", time.Now().Add(time.Hour))+"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	owner, ok := provider.CurrentOwnerID(context.Background())
	if !ok || owner != "user-2" {
		t.Fatalf("expected user-2 after sign-in, got %q (%v)", owner, ok)
	}

	if err := os.WriteFile(path, []byte(""), 0o600); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	if _, ok := provider.CurrentOwnerID(context.Background()); ok {
		t.Fatalf("expected anonymous after sign-out")
	}
}
