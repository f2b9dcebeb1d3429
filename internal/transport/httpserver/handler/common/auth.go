package common

import (
	"net/http"
	"time"

	"threegen/internal/transport/httpserver/middleware"
)

// authMeResponse also carries the server clock so devices can spot skew
// against the modification markers the server assigns.
type authMeResponse struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	AvatarURL    string `json:"avatar_url"`
	ServerTimeMs int64  `json:"server_time_ms"`
}

func (h *Handlers) AuthMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}

	writeJSON(w, http.StatusOK, authMeResponse{
		ID:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		AvatarURL:    user.AvatarURL,
		ServerTimeMs: time.Now().UnixMilli(),
	})
}
