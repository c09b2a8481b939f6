package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/wardenhq/warden/internal/admin/domain"
	"github.com/wardenhq/warden/internal/admin/service"
	"github.com/wardenhq/warden/pkg/httpx"
	"github.com/wardenhq/warden/pkg/slogx"
)

type AuditHandler struct {
	AuditService *service.AuditService
}

type activityLogResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	Detail    string    `json:"detail,omitempty"`
	IP        string    `json:"ip,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type errorLogResponse struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HandleListActivity godoc
//
//	@Summary	List recent activity records
//	@Tags		Audit
//	@Security	BearerAuth
//	@Produce	json
//	@Param		limit	query	int	false	"Page size (default 100, max 500)"
//	@Param		offset	query	int	false	"Page offset"
//	@Success	200		{array}	activityLogResponse
//	@Router		/v1/audit/activity [get].
func (h *AuditHandler) HandleListActivity(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)

	logs, err := h.AuditService.ListActivity(r.Context(), limit, offset)
	if err != nil {
		slogx.FromContext(r.Context()).Error("list activity failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	out := make([]activityLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, toActivityResponse(l))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleListErrors godoc
//
//	@Summary	List recent error records
//	@Tags		Audit
//	@Security	BearerAuth
//	@Produce	json
//	@Param		limit	query	int	false	"Page size (default 100, max 500)"
//	@Param		offset	query	int	false	"Page offset"
//	@Success	200		{array}	errorLogResponse
//	@Router		/v1/audit/errors [get].
func (h *AuditHandler) HandleListErrors(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)

	logs, err := h.AuditService.ListErrors(r.Context(), limit, offset)
	if err != nil {
		slogx.FromContext(r.Context()).Error("list errors failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	out := make([]errorLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, errorLogResponse{
			ID:        l.ID.String(),
			Source:    l.Source,
			Message:   l.Message,
			RequestID: l.RequestID,
			CreatedAt: l.CreatedAt,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func toActivityResponse(l *domain.ActivityLog) activityLogResponse {
	return activityLogResponse{
		ID:        l.ID.String(),
		UserID:    l.UserID,
		Action:    l.Action,
		Resource:  l.Resource,
		Detail:    l.Detail,
		IP:        l.IP,
		CreatedAt: l.CreatedAt,
	}
}

func pageParams(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
