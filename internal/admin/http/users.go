package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/wardenhq/warden/internal/admin/domain"
	"github.com/wardenhq/warden/internal/admin/service"
	"github.com/wardenhq/warden/internal/admin/store"
	"github.com/wardenhq/warden/pkg/httpx"
	"github.com/wardenhq/warden/pkg/idx"
	"github.com/wardenhq/warden/pkg/slogx"
)

type UsersHandler struct {
	UserService *service.UserService
}

// userResponse is the wire shape of an account; the password hash never
// leaves the service.
type userResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Domains     []string   `json:"domains"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:          u.ID.String(),
		Email:       u.Email,
		Name:        u.Name,
		Domains:     u.Domains,
		Active:      u.Active,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}

type createUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// HandleCreate godoc
//
//	@Summary	Create a user account
//	@Tags		Users
//	@Security	BearerAuth
//	@Accept		json
//	@Produce	json
//	@Success	201	{object}	userResponse
//	@Failure	409	{object}	httpx.ErrorResponse	"Email already in use"
//	@Router		/v1/users [post].
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	actor, _ := httpx.IdentityFromContext(r.Context())
	u, err := h.UserService.Create(r.Context(), actor.UserID, service.CreateUserParams{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		writeUserServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(u))
}

// HandleList godoc
//
//	@Summary	List user accounts
//	@Tags		Users
//	@Security	BearerAuth
//	@Produce	json
//	@Success	200	{array}	userResponse
//	@Router		/v1/users [get].
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.UserService.List(r.Context())
	if err != nil {
		slogx.FromContext(r.Context()).Error("list users failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleGet godoc
//
//	@Summary	Fetch one user account
//	@Tags		Users
//	@Security	BearerAuth
//	@Produce	json
//	@Success	200	{object}	userResponse
//	@Failure	404	{object}	httpx.ErrorResponse
//	@Router		/v1/users/{id} [get].
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	u, err := h.UserService.Get(r.Context(), id)
	if err != nil {
		writeUserServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

type updateUserRequest struct {
	Email   *string   `json:"email"`
	Name    *string   `json:"name"`
	Domains *[]string `json:"domains"`
	Active  *bool     `json:"active"`
}

// HandleUpdate godoc
//
//	@Summary	Update a user account
//	@Tags		Users
//	@Security	BearerAuth
//	@Accept		json
//	@Produce	json
//	@Success	200	{object}	userResponse
//	@Failure	404	{object}	httpx.ErrorResponse
//	@Router		/v1/users/{id} [patch].
func (h *UsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	actor, _ := httpx.IdentityFromContext(r.Context())
	u, err := h.UserService.Update(r.Context(), actor.UserID, id, service.UpdateUserParams{
		Email:   req.Email,
		Name:    req.Name,
		Domains: req.Domains,
		Active:  req.Active,
	})
	if err != nil {
		writeUserServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

// HandleDelete godoc
//
//	@Summary	Delete a user account
//	@Tags		Users
//	@Security	BearerAuth
//	@Success	204
//	@Failure	404	{object}	httpx.ErrorResponse
//	@Router		/v1/users/{id} [delete].
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	actor, _ := httpx.IdentityFromContext(r.Context())
	if err := h.UserService.Delete(r.Context(), actor.UserID, id); err != nil {
		writeUserServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAssignRole godoc
//
//	@Summary	Assign a role to a user
//	@Tags		Users
//	@Security	BearerAuth
//	@Success	204
//	@Router		/v1/users/{id}/roles/{roleID} [put].
func (h *UsersHandler) HandleAssignRole(w http.ResponseWriter, r *http.Request) {
	h.membership(w, r, "roleID", h.UserService.AssignRole)
}

// HandleRemoveRole godoc
//
//	@Summary	Remove a role from a user
//	@Tags		Users
//	@Security	BearerAuth
//	@Success	204
//	@Router		/v1/users/{id}/roles/{roleID} [delete].
func (h *UsersHandler) HandleRemoveRole(w http.ResponseWriter, r *http.Request) {
	h.membership(w, r, "roleID", h.UserService.RemoveRole)
}

// HandleAssignGroup godoc
//
//	@Summary	Add a user to a group
//	@Tags		Users
//	@Security	BearerAuth
//	@Success	204
//	@Router		/v1/users/{id}/groups/{groupID} [put].
func (h *UsersHandler) HandleAssignGroup(w http.ResponseWriter, r *http.Request) {
	h.membership(w, r, "groupID", h.UserService.AssignGroup)
}

// HandleRemoveGroup godoc
//
//	@Summary	Remove a user from a group
//	@Tags		Users
//	@Security	BearerAuth
//	@Success	204
//	@Router		/v1/users/{id}/groups/{groupID} [delete].
func (h *UsersHandler) HandleRemoveGroup(w http.ResponseWriter, r *http.Request) {
	h.membership(w, r, "groupID", h.UserService.RemoveGroup)
}

func (h *UsersHandler) membership(w http.ResponseWriter, r *http.Request, param string,
	op func(ctx context.Context, actorID string, userID, targetID idx.ID) error) {

	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	targetID, ok := pathID(w, r, param)
	if !ok {
		return
	}

	actor, _ := httpx.IdentityFromContext(r.Context())
	if err := op(r.Context(), actor.UserID, userID, targetID); err != nil {
		writeUserServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PermissionsHandler exposes resolution results for inspection.
type PermissionsHandler struct {
	PermissionService *service.PermissionService
}

type resolvedPermissions struct {
	Domains     []string `json:"domains"`
	Permissions []string `json:"permissions"`
	Customers   []string `json:"customers"`
}

// HandleResolve godoc
//
//	@Summary		Resolve a user's effective permissions
//	@Description	Returns the union of domains, permissions and customers from the user's active roles and groups.
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	resolvedPermissions
//	@Router			/v1/users/{id}/permissions [get].
func (h *PermissionsHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ctx := r.Context()

	domains, err := h.PermissionService.ResolveDomains(ctx, id)
	if err != nil {
		slogx.FromContext(ctx).Error("resolve domains failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}
	perms, err := h.PermissionService.ResolvePermissions(ctx, id)
	if err != nil {
		slogx.FromContext(ctx).Error("resolve permissions failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}
	customers, err := h.PermissionService.ResolveCustomers(ctx, id)
	if err != nil {
		slogx.FromContext(ctx).Error("resolve customers failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, resolvedPermissions{
		Domains:     domains,
		Permissions: perms,
		Customers:   customers,
	})
}

// pathID parses the {param} path segment as an ID, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, param string) (idx.ID, bool) {
	id, err := idx.Parse(r.PathValue(param))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed id")
		return idx.Zero, false
	}
	return id, true
}

func writeUserServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "no such record")
	case errors.Is(err, service.ErrEmailTaken), errors.Is(err, service.ErrNameTaken):
		httpx.WriteError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrSelfDeactivate):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		slogx.FromContext(r.Context()).Error("user operation failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
	}
}
