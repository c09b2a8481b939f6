package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/wardenhq/warden/internal/admin/domain"
	"github.com/wardenhq/warden/internal/admin/service"
	"github.com/wardenhq/warden/pkg/httpx"
)

type GroupsHandler struct {
	GroupService *service.GroupService
}

type groupResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Permissions []string  `json:"permissions"`
	Domains     []string  `json:"domains"`
	Customers   []string  `json:"customers"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toGroupResponse(g *domain.Group) groupResponse {
	return groupResponse{
		ID:          g.ID.String(),
		Name:        g.Name,
		Description: g.Description,
		Permissions: g.Permissions,
		Domains:     g.Domains,
		Customers:   g.Customers,
		Active:      g.Active,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

type groupRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
	Domains     []string `json:"domains"`
	Customers   []string `json:"customers"`
	Active      bool     `json:"active"`
}

func (req groupRequest) params() service.GroupParams {
	return service.GroupParams{
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
		Domains:     req.Domains,
		Customers:   req.Customers,
		Active:      req.Active,
	}
}

// HandleCreate godoc
//
//	@Summary	Create a group
//	@Tags		Groups
//	@Security	BearerAuth
//	@Accept		json
//	@Produce	json
//	@Success	201	{object}	groupResponse
//	@Failure	409	{object}	httpx.ErrorResponse	"Name already in use"
//	@Router		/v1/groups [post].
func (h *GroupsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	actor, _ := httpx.IdentityFromContext(r.Context())
	g, err := h.GroupService.Create(r.Context(), actor.UserID, req.params())
	if err != nil {
		writeUserServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toGroupResponse(g))
}

// HandleList godoc
//
//	@Summary	List groups
//	@Tags		Groups
//	@Security	BearerAuth
//	@Produce	json
//	@Success	200	{array}	groupResponse
//	@Router		/v1/groups [get].
func (h *GroupsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	groups, err := h.GroupService.List(r.Context())
	if err != nil {
		writeUserServiceError(w, r, err)
		return
	}

	out := make([]groupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, toGroupResponse(g))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleGet godoc
//
//	@Summary	Fetch one group
//	@Tags		Groups
//	@Security	BearerAuth
//	@Produce	json
//	@Success	200	{object}	groupResponse
//	@Failure	404	{object}	httpx.ErrorResponse
//	@Router		/v1/groups/{id} [get].
func (h *GroupsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	g, err := h.GroupService.Get(r.Context(), id)
	if err != nil {
		writeUserServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toGroupResponse(g))
}

// HandleUpdate godoc
//
//	@Summary	Update a group
//	@Tags		Groups
//	@Security	BearerAuth
//	@Accept		json
//	@Produce	json
//	@Success	200	{object}	groupResponse
//	@Failure	404	{object}	httpx.ErrorResponse
//	@Router		/v1/groups/{id} [put].
func (h *GroupsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req groupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	actor, _ := httpx.IdentityFromContext(r.Context())
	g, err := h.GroupService.Update(r.Context(), actor.UserID, id, req.params())
	if err != nil {
		writeUserServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toGroupResponse(g))
}

// HandleDelete godoc
//
//	@Summary	Delete a group
//	@Tags		Groups
//	@Security	BearerAuth
//	@Success	204
//	@Failure	404	{object}	httpx.ErrorResponse
//	@Router		/v1/groups/{id} [delete].
func (h *GroupsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	actor, _ := httpx.IdentityFromContext(r.Context())
	if err := h.GroupService.Delete(r.Context(), actor.UserID, id); err != nil {
		writeUserServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
