package members

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	documentdomain "threegen/internal/domain/document"
	"threegen/internal/transport/httpserver/middleware"
)

const maxDocumentBodyBytes = 1 << 20

type putDocumentRequest struct {
	Fields json.RawMessage `json:"fields"`
}

type documentResponse struct {
	ID        string          `json:"id"`
	Fields    json.RawMessage `json:"fields"`
	UpdatedAt int64           `json:"updatedAt"`
	Deleted   bool            `json:"deleted"`
}

type listDocumentsResponse struct {
	Items             []documentResponse `json:"items"`
	NextModifiedSince int64              `json:"next_modified_since"`
	NextAfterID       string             `json:"next_after_id"`
	HasMore           bool               `json:"has_more"`
}

func (h *Handlers) PutMember(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}

	id := chi.URLParam(r, "id")

	r.Body = http.MaxBytesReader(w, r.Body, maxDocumentBodyBytes)
	var req putDocumentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}

	doc, err := h.Documents.Put(r.Context(), user.ID, id, req.Fields)
	if err != nil {
		h.writeDocumentError(w, "members.put", err, "user_id", user.ID, "member_id", id)
		return
	}

	writeJSON(w, http.StatusOK, toDocumentResponse(*doc))
}

func (h *Handlers) GetMember(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}

	id := chi.URLParam(r, "id")
	doc, err := h.Documents.Get(r.Context(), user.ID, id)
	if err != nil {
		h.writeDocumentError(w, "members.get", err, "user_id", user.ID, "member_id", id)
		return
	}

	writeJSON(w, http.StatusOK, toDocumentResponse(*doc))
}

func (h *Handlers) DeleteMember(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.Documents.Delete(r.Context(), user.ID, id); err != nil {
		h.writeDocumentError(w, "members.delete", err, "user_id", user.ID, "member_id", id)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ListMembers(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}

	query := r.URL.Query()
	since, err := parseInt64Param(query.Get("modified_since"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid modified_since")
		return
	}
	limit, err := parseIntParam(query.Get("limit"), documentdomain.DefaultPageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
		return
	}

	page, err := h.Documents.ListModifiedSince(r.Context(), documentdomain.ListInput{
		OwnerID: user.ID,
		Since:   since,
		AfterID: query.Get("after_id"),
		Limit:   limit,
	})
	if err != nil {
		h.writeDocumentError(w, "members.list", err, "user_id", user.ID, "modified_since", since)
		return
	}

	items := make([]documentResponse, 0, len(page.Items))
	for _, doc := range page.Items {
		items = append(items, toDocumentResponse(doc))
	}

	writeJSON(w, http.StatusOK, listDocumentsResponse{
		Items:             items,
		NextModifiedSince: page.NextSince,
		NextAfterID:       page.NextAfterID,
		HasMore:           page.HasMore,
	})
}

func (h *Handlers) writeDocumentError(w http.ResponseWriter, op string, err error, attrs ...any) {
	switch {
	case errors.Is(err, documentdomain.ErrInvalidDocument):
		h.log.BusinessError(op+": invalid document", err, attrs...)
		writeError(w, http.StatusUnprocessableEntity, "invalid_document", err.Error())
	case errors.Is(err, documentdomain.ErrInvalidCursor):
		h.log.BusinessError(op+": invalid cursor", err, attrs...)
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid cursor")
	case errors.Is(err, documentdomain.ErrPermissionDenied):
		h.log.BusinessError(op+": permission denied", err, attrs...)
		writeError(w, http.StatusForbidden, "forbidden", "document belongs to another user")
	case errors.Is(err, documentdomain.ErrDocumentNotFound):
		writeError(w, http.StatusNotFound, "member_not_found", "member not found")
	default:
		h.log.InternalError(op+": failed", err, attrs...)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func toDocumentResponse(doc documentdomain.Document) documentResponse {
	return documentResponse{
		ID:        doc.ID,
		Fields:    json.RawMessage(doc.Fields),
		UpdatedAt: doc.UpdatedAt,
		Deleted:   doc.Deleted,
	}
}
