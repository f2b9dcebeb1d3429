package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"threegen/internal/config"
	userdomain "threegen/internal/domain/user"
	"threegen/pkg/logger"
)

type SupabaseAuth struct {
	baseURL   string
	apiKey    string
	jwtSecret []byte
	client    *http.Client
	profiles  ProfileRecorder
	sessions  SessionCache
	cacheTTL  time.Duration
	skipAuth  bool
	mockUser  User
	log       logger.Logger
}

type contextKey int

const (
	userIDKey contextKey = iota
	userKey
)

var errInvalidToken = errors.New("invalid token")

type userResponse struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	Sub          string                 `json:"sub"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
	User         struct {
		ID  string `json:"id"`
		Sub string `json:"sub"`
	} `json:"user"`
}

type supabaseClaims struct {
	Email        string                 `json:"email"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
	jwt.RegisteredClaims
}

type User struct {
	ID        string
	Email     string
	Name      string
	AvatarURL string
}

// ProfileRecorder is told about every session resolved from the auth server
// or the token itself. Cached sessions are not reported again.
type ProfileRecorder interface {
	RecordSignIn(ctx context.Context, session userdomain.Session) error
}

// SessionCache remembers resolved tokens so the auth server is not called on
// every request. Keys are token digests.
type SessionCache interface {
	Get(key string) (userdomain.Session, bool)
	Set(key string, session userdomain.Session, ttl time.Duration)
}

func NewSupabaseAuth(cfg config.SupabaseConfig, profiles ProfileRecorder, sessions SessionCache, log logger.Logger) *SupabaseAuth {
	baseURL := strings.TrimRight(cfg.URL, "/")
	timeout := cfg.AuthTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	auth := &SupabaseAuth{
		baseURL: baseURL,
		apiKey:  cfg.PublishableKey,
		client: &http.Client{
			Timeout: timeout,
		},
		profiles: profiles,
		sessions: sessions,
		cacheTTL: cfg.SessionCacheTTL,
		skipAuth: cfg.SkipAuth,
		mockUser: User{
			ID:        strings.TrimSpace(cfg.MockUserID),
			Email:     strings.TrimSpace(cfg.MockUserEmail),
			Name:      strings.TrimSpace(cfg.MockUserName),
			AvatarURL: strings.TrimSpace(cfg.MockUserAvatar),
		},
		log: log,
	}
	if secret := strings.TrimSpace(cfg.JWTSecret); secret != "" {
		auth.jwtSecret = []byte(secret)
	}
	return auth
}

func (a *SupabaseAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.skipAuth {
			user := a.mockUser
			if user.ID == "" {
				writeError(w, http.StatusInternalServerError, "auth_not_configured", "auth mock user id not configured")
				return
			}
			a.saveProfile(r.Context(), user)
			ctx := WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if a.jwtSecret == nil && (a.baseURL == "" || a.apiKey == "") {
			writeError(w, http.StatusInternalServerError, "auth_not_configured", "auth not configured")
			return
		}

		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			unauthorized(w)
			return
		}

		key := tokenDigest(token)
		if a.sessions != nil {
			if session, ok := a.sessions.Get(key); ok {
				ctx := WithUser(r.Context(), userFromSession(session))
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}

		var (
			user User
			err  error
		)
		if a.jwtSecret != nil {
			user, err = a.verifyLocally(token)
		} else {
			user, err = a.lookupRemote(r.Context(), token)
		}
		if err != nil {
			a.log.BusinessError("auth.middleware: token rejected", err, "path", r.URL.Path)
			unauthorized(w)
			return
		}

		if a.sessions != nil && a.cacheTTL > 0 {
			a.sessions.Set(key, sessionFromUser(user), a.cacheTTL)
		}
		a.saveProfile(r.Context(), user)

		ctx := WithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *SupabaseAuth) verifyLocally(token string) (User, error) {
	var claims supabaseClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return a.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return User{}, err
	}
	if !parsed.Valid || claims.Subject == "" {
		return User{}, errInvalidToken
	}

	return User{
		ID:        claims.Subject,
		Email:     claims.Email,
		Name:      firstNonEmpty(stringFromMap(claims.UserMetadata, "name"), stringFromMap(claims.UserMetadata, "full_name")),
		AvatarURL: stringFromMap(claims.UserMetadata, "avatar_url"),
	}, nil
}

func (a *SupabaseAuth) lookupRemote(ctx context.Context, token string) (User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return User{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return User{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return User{}, fmt.Errorf("%w: auth server returned %d", errInvalidToken, resp.StatusCode)
	}

	var payload userResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return User{}, err
	}

	userID := firstNonEmpty(payload.ID, payload.Sub, payload.User.ID, payload.User.Sub)
	if userID == "" {
		return User{}, errInvalidToken
	}

	return User{
		ID:        userID,
		Email:     payload.Email,
		Name:      firstNonEmpty(stringFromMap(payload.UserMetadata, "name"), stringFromMap(payload.UserMetadata, "full_name")),
		AvatarURL: stringFromMap(payload.UserMetadata, "avatar_url"),
	}, nil
}

func (a *SupabaseAuth) saveProfile(ctx context.Context, user User) {
	if a.profiles == nil {
		return
	}
	err := a.profiles.RecordSignIn(ctx, userdomain.Session{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
	})
	if err != nil {
		a.log.InternalError("auth.middleware: record sign-in failed", err, "user_id", user.ID)
	}
}

func bearerToken(value string) (string, bool) {
	parts := strings.Fields(value)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func unauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
}

func WithUser(ctx context.Context, user User) context.Context {
	ctx = context.WithValue(ctx, userKey, user)
	return context.WithValue(ctx, userIDKey, user.ID)
}

func UserFromContext(ctx context.Context) (User, bool) {
	value := ctx.Value(userKey)
	user, ok := value.(User)
	if !ok || user.ID == "" {
		return User{}, false
	}
	return user, true
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	value := ctx.Value(userIDKey)
	userID, ok := value.(string)
	if !ok || userID == "" {
		return "", false
	}
	return userID, true
}

func userFromSession(session userdomain.Session) User {
	return User{
		ID:        session.UserID,
		Email:     session.Email,
		Name:      session.Name,
		AvatarURL: session.AvatarURL,
	}
}

func sessionFromUser(user User) userdomain.Session {
	return userdomain.Session{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func stringFromMap(values map[string]interface{}, key string) string {
	if values == nil {
		return ""
	}
	value, ok := values[key]
	if !ok {
		return ""
	}
	parsed, ok := value.(string)
	if !ok {
		return ""
	}
	return parsed
}
