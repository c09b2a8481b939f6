package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/wardenhq/warden/internal/admin/domain"
	"github.com/wardenhq/warden/internal/admin/service"
	"github.com/wardenhq/warden/pkg/httpx"
)

type RolesHandler struct {
	RoleService *service.RoleService
}

type roleResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Permissions []string  `json:"permissions"`
	Domains     []string  `json:"domains"`
	Priority    int       `json:"priority"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toRoleResponse(r *domain.Role) roleResponse {
	return roleResponse{
		ID:          r.ID.String(),
		Name:        r.Name,
		Description: r.Description,
		Permissions: r.Permissions,
		Domains:     r.Domains,
		Priority:    r.Priority,
		Active:      r.Active,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type roleRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
	Domains     []string `json:"domains"`
	Priority    int      `json:"priority"`
	Active      bool     `json:"active"`
}

func (req roleRequest) params() service.RoleParams {
	return service.RoleParams{
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
		Domains:     req.Domains,
		Priority:    req.Priority,
		Active:      req.Active,
	}
}

// HandleCreate godoc
//
//	@Summary	Create a role
//	@Tags		Roles
//	@Security	BearerAuth
//	@Accept		json
//	@Produce	json
//	@Success	201	{object}	roleResponse
//	@Failure	409	{object}	httpx.ErrorResponse	"Name already in use"
//	@Router		/v1/roles [post].
func (h *RolesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	actor, _ := httpx.IdentityFromContext(r.Context())
	role, err := h.RoleService.Create(r.Context(), actor.UserID, req.params())
	if err != nil {
		writeUserServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toRoleResponse(role))
}

// HandleList godoc
//
//	@Summary	List roles
//	@Tags		Roles
//	@Security	BearerAuth
//	@Produce	json
//	@Success	200	{array}	roleResponse
//	@Router		/v1/roles [get].
func (h *RolesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	roles, err := h.RoleService.List(r.Context())
	if err != nil {
		writeUserServiceError(w, r, err)
		return
	}

	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, toRoleResponse(role))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleGet godoc
//
//	@Summary	Fetch one role
//	@Tags		Roles
//	@Security	BearerAuth
//	@Produce	json
//	@Success	200	{object}	roleResponse
//	@Failure	404	{object}	httpx.ErrorResponse
//	@Router		/v1/roles/{id} [get].
func (h *RolesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	role, err := h.RoleService.Get(r.Context(), id)
	if err != nil {
		writeUserServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toRoleResponse(role))
}

// HandleUpdate godoc
//
//	@Summary	Update a role
//	@Tags		Roles
//	@Security	BearerAuth
//	@Accept		json
//	@Produce	json
//	@Success	200	{object}	roleResponse
//	@Failure	404	{object}	httpx.ErrorResponse
//	@Router		/v1/roles/{id} [put].
func (h *RolesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	actor, _ := httpx.IdentityFromContext(r.Context())
	role, err := h.RoleService.Update(r.Context(), actor.UserID, id, req.params())
	if err != nil {
		writeUserServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toRoleResponse(role))
}

// HandleDelete godoc
//
//	@Summary	Delete a role
//	@Tags		Roles
//	@Security	BearerAuth
//	@Success	204
//	@Failure	404	{object}	httpx.ErrorResponse
//	@Router		/v1/roles/{id} [delete].
func (h *RolesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	actor, _ := httpx.IdentityFromContext(r.Context())
	if err := h.RoleService.Delete(r.Context(), actor.UserID, id); err != nil {
		writeUserServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
