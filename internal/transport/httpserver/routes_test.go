package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"threegen/internal/config"
	documentdomain "threegen/internal/domain/document"
	"threegen/internal/repository/inmemory"
	"threegen/internal/transport/httpserver/handler"
	"threegen/pkg/logger"
)

const routerSecret = "router-secret"

func newTestRouter() http.Handler {
	cfg := config.Config{
		Supabase: config.SupabaseConfig{JWTSecret: routerSecret},
	}
	documents := documentdomain.NewService(inmemory.NewInMemoryDocumentRepository())
	handlers := handler.New(documents, logger.NewNop())
	return NewRouter(cfg, handlers, nil, inmemory.NewInMemorySessionCache(), logger.NewNop())
}

func bearer(t *testing.T, subject string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(routerSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return "Bearer " + token
}

func do(t *testing.T, router http.Handler, method, path, subject, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if subject != "" {
		req.Header.Set("Authorization", bearer(t, subject))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthIsPublic(t *testing.T) {
	rec := do(t, newTestRouter(), http.MethodGet, "/api/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestMembersRequireAuth(t *testing.T) {
	rec := do(t, newTestRouter(), http.MethodGet, "/api/members", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestMemberDocumentLifecycle(t *testing.T) {
	router := newTestRouter()

	rec := do(t, router, http.MethodPut, "/api/members/m1", "alice", `{"fields":{"id":"m1","firstName":"Ann","shortName":"A"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var put struct {
		ID        string          `json:"id"`
		Fields    json.RawMessage `json:"fields"`
		UpdatedAt int64           `json:"updatedAt"`
		Deleted   bool            `json:"deleted"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &put); err != nil {
		t.Fatalf("decode put: %v", err)
	}
	if put.ID != "m1" || put.UpdatedAt == 0 || put.Deleted {
		t.Fatalf("unexpected put response: %+v", put)
	}

	rec = do(t, router, http.MethodGet, "/api/members/m1", "alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodGet, "/api/members/m1", "bob", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("get as other user: expected 403, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodPut, "/api/members/m1", "alice", `{"fields":{"id":"m2"}}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("mismatched id: expected 422, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodPut, "/api/members/m1", "alice", `{"fields":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("broken json: expected 400, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodDelete, "/api/members/m1", "alice", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodGet, "/api/members/m1", "alice", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get deleted: expected 404, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodGet, "/api/members?modified_since=0", "alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	var list struct {
		Items []struct {
			ID      string `json:"id"`
			Deleted bool   `json:"deleted"`
		} `json:"items"`
		HasMore bool `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Items) != 1 || !list.Items[0].Deleted || list.HasMore {
		t.Fatalf("expected one deleted item, got %+v", list)
	}

	rec = do(t, router, http.MethodGet, "/api/members?modified_since=abc", "alice", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad cursor: expected 400, got %d", rec.Code)
	}
}
