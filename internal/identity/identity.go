package identity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoToken = errors.New("no session token")

// TokenProvider reads the session token issued by the auth service, either
// from the environment or from a token file that a login flow rewrites.
// The file is read on every call so a new sign-in is picked up without a
// restart. Signatures are checked by the server; the device only needs the
// subject and the expiry.
type TokenProvider struct {
	token     string
	tokenFile string
	now       func() time.Time
}

func NewTokenProvider(token, tokenFile string) *TokenProvider {
	return &TokenProvider{
		token:     strings.TrimSpace(token),
		tokenFile: strings.TrimSpace(tokenFile),
		now:       time.Now,
	}
}

func (p *TokenProvider) Token() (string, error) {
	if p.token != "" {
		return p.token, nil
	}
	if p.tokenFile == "" {
		return "", ErrNoToken
	}

	data, err := os.ReadFile(p.tokenFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("read token file: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// CurrentOwnerID returns the subject of a present, unexpired token.
func (p *TokenProvider) CurrentOwnerID(ctx context.Context) (string, bool) {
	token, err := p.Token()
	if err != nil {
		return "", false
	}

	subject, err := p.subject(token)
	if err != nil {
		return "", false
	}
	return subject, true
}

func (p *TokenProvider) subject(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}

	if claims.ExpiresAt != nil && !p.now().Before(claims.ExpiresAt.Time) {
		return "", errors.New("token expired")
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return "", errors.New("token has no subject")
	}
	return subject, nil
}

// Static always reports the same owner. An empty owner means signed out.
type Static struct {
	OwnerID string
	Bearer  string
}

func (s Static) CurrentOwnerID(ctx context.Context) (string, bool) {
	return s.OwnerID, s.OwnerID != ""
}

func (s Static) Token() (string, error) {
	if s.Bearer == "" {
		return "", ErrNoToken
	}
	return s.Bearer, nil
}
