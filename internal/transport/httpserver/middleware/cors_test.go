package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	cases := []struct {
		name       string
		origins    []string
		origin     string
		preflight  bool
		wantOrigin string
		wantStatus int
	}{
		{name: "listed origin", origins: []string{"http://localhost:5173/"}, origin: "http://localhost:5173", wantOrigin: "http://localhost:5173", wantStatus: http.StatusOK},
		{name: "unlisted origin", origins: []string{"http://localhost:5173"}, origin: "http://evil.test", wantStatus: http.StatusOK},
		{name: "wildcard", origins: []string{"*"}, origin: "http://any.test", wantOrigin: "http://any.test", wantStatus: http.StatusOK},
		{name: "preflight", origins: []string{"*"}, origin: "http://any.test", preflight: true, wantOrigin: "http://any.test", wantStatus: http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			method := http.MethodGet
			if tc.preflight {
				method = http.MethodOptions
			}
			req := httptest.NewRequest(method, "/api/members", nil)
			req.Header.Set("Origin", tc.origin)
			if tc.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPut)
			}
			rec := httptest.NewRecorder()
			NewCORS(tc.origins)(next).ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rec.Code)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tc.wantOrigin {
				t.Fatalf("expected allow origin %q, got %q", tc.wantOrigin, got)
			}
		})
	}
}
