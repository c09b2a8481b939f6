package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/wardenhq/warden/internal/admin/domain"
	"github.com/wardenhq/warden/internal/admin/service"
	"github.com/wardenhq/warden/internal/admin/store"
	"github.com/wardenhq/warden/pkg/httpx"
	"github.com/wardenhq/warden/pkg/slogx"
)

type DocumentsHandler struct {
	DocumentService *service.DocumentService
}

type documentResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Domain      string    `json:"domain"`
	UploadedBy  string    `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func toDocumentResponse(d *domain.Document) documentResponse {
	return documentResponse{
		ID:          d.ID.String(),
		Name:        d.Name,
		ContentType: d.ContentType,
		Size:        d.Size,
		Domain:      d.Domain,
		UploadedBy:  d.UploadedBy.String(),
		CreatedAt:   d.CreatedAt,
	}
}

// HandleUpload godoc
//
//	@Summary		Upload a document
//	@Description	Raw body upload; name and domain come from query parameters. The caller's domain scope must cover the target domain.
//	@Tags			Documents
//	@Security		BearerAuth
//	@Produce		json
//	@Param			name	query		string	true	"Document name"
//	@Param			domain	query		string	false	"Domain scope key"
//	@Success		201		{object}	documentResponse
//	@Failure		403		{object}	httpx.ErrorResponse	"Domain not in scope"
//	@Router			/v1/documents [post].
func (h *DocumentsHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	actor, _ := httpx.IdentityFromContext(r.Context())

	name := r.URL.Query().Get("name")
	if name == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "name query parameter is required")
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	doc, err := h.DocumentService.Upload(r.Context(), actor, service.UploadParams{
		Name:        name,
		ContentType: contentType,
		Domain:      r.URL.Query().Get("domain"),
		Body:        r.Body,
	})
	if err != nil {
		writeDocumentError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

// HandleList godoc
//
//	@Summary	List visible documents
//	@Tags		Documents
//	@Security	BearerAuth
//	@Produce	json
//	@Param		domain	query	string	false	"Filter by domain scope key"
//	@Success	200		{array}	documentResponse
//	@Router		/v1/documents [get].
func (h *DocumentsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	actor, _ := httpx.IdentityFromContext(r.Context())

	docs, err := h.DocumentService.List(r.Context(), actor, r.URL.Query().Get("domain"))
	if err != nil {
		writeDocumentError(w, r, err)
		return
	}

	out := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentResponse(d))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleDownload godoc
//
//	@Summary	Download document bytes
//	@Tags		Documents
//	@Security	BearerAuth
//	@Success	200	{file}		binary
//	@Failure	403	{object}	httpx.ErrorResponse	"Domain not in scope"
//	@Failure	404	{object}	httpx.ErrorResponse
//	@Router		/v1/documents/{id} [get].
func (h *DocumentsHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	actor, _ := httpx.IdentityFromContext(r.Context())

	doc, body, err := h.DocumentService.Download(r.Context(), actor, id)
	if err != nil {
		writeDocumentError(w, r, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(doc.Size, 10))
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Name+`"`)
	if _, err := io.Copy(w, body); err != nil {
		slogx.FromContext(r.Context()).Warn("document stream interrupted", "id", id, "err", err)
	}
}

// HandleDelete godoc
//
//	@Summary	Delete a document
//	@Tags		Documents
//	@Security	BearerAuth
//	@Success	204
//	@Failure	404	{object}	httpx.ErrorResponse
//	@Router		/v1/documents/{id} [delete].
func (h *DocumentsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	actor, _ := httpx.IdentityFromContext(r.Context())

	if err := h.DocumentService.Delete(r.Context(), actor, id); err != nil {
		writeDocumentError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeDocumentError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "no such document")
	case errors.Is(err, service.ErrDomainDenied):
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "domain not in scope")
	case errors.Is(err, service.ErrStorageDisabled):
		httpx.WriteError(w, http.StatusServiceUnavailable, "storage_disabled", "object storage not configured")
	default:
		slogx.FromContext(r.Context()).Error("document operation failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
	}
}
