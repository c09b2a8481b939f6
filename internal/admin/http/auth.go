package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wardenhq/warden/internal/admin/obs"
	"github.com/wardenhq/warden/internal/admin/service"
	"github.com/wardenhq/warden/pkg/httpx"
	"github.com/wardenhq/warden/pkg/idx"
	"github.com/wardenhq/warden/pkg/slogx"
)

type AuthHandler struct {
	TokenService *service.TokenService
	Metrics      *obs.Metrics
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin godoc
//
//	@Summary		Authenticate with email and password
//	@Description	Issues an access/refresh token pair on success. Unknown email and wrong password return the same error.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		loginRequest	true	"Credentials"
//	@Success		200		{object}	service.TokenPair
//	@Failure		401		{object}	httpx.ErrorResponse	"Invalid credentials"
//	@Failure		403		{object}	httpx.ErrorResponse	"Account disabled"
//	@Router			/v1/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	pair, err := h.TokenService.Login(r.Context(), req.Email, req.Password,
		r.UserAgent(), httpx.ClientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			h.Metrics.ObserveLogin("invalid_credentials")
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "email or password incorrect")
		case errors.Is(err, service.ErrAccountDisabled):
			h.Metrics.ObserveLogin("disabled")
			httpx.WriteError(w, http.StatusForbidden, "account_disabled", "account is deactivated")
		default:
			slogx.FromContext(r.Context()).Error("login failed", "err", err)
			h.Metrics.ObserveLogin("error")
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		}
		return
	}

	h.Metrics.ObserveLogin("success")
	httpx.WriteJSON(w, http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// HandleRefresh godoc
//
//	@Summary		Rotate a refresh token
//	@Description	Revokes the presented refresh token and issues a fresh pair. Each refresh token redeems at most once.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		refreshRequest	true	"Refresh token"
//	@Success		200		{object}	service.TokenPair
//	@Failure		401		{object}	httpx.ErrorResponse	"Unknown, revoked or expired token"
//	@Router			/v1/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "refresh_token is required")
		return
	}

	pair, err := h.TokenService.Refresh(r.Context(), req.RefreshToken,
		r.UserAgent(), httpx.ClientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRefreshToken),
			errors.Is(err, service.ErrAccountDisabled):
			h.Metrics.ObserveRefresh("rejected")
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_grant", "refresh token is not valid")
		default:
			slogx.FromContext(r.Context()).Error("refresh failed", "err", err)
			h.Metrics.ObserveRefresh("error")
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		}
		return
	}

	h.Metrics.ObserveRefresh("success")
	httpx.WriteJSON(w, http.StatusOK, pair)
}

// HandleLogout godoc
//
//	@Summary		Revoke a refresh token
//	@Description	Revokes the session behind the presented refresh token. Idempotent; unknown tokens also return 204.
//	@Tags			Auth
//	@Accept			json
//	@Success		204
//	@Router			/v1/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "refresh_token is required")
		return
	}

	if err := h.TokenService.Logout(r.Context(), req.RefreshToken); err != nil {
		slogx.FromContext(r.Context()).Error("logout failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type meResponse struct {
	httpx.Identity
	IsSuperAdmin bool `json:"is_super_admin"`
}

// HandleMe godoc
//
//	@Summary		Current identity
//	@Description	Returns the caller's resolved identity: roles, groups and domain scope, recomputed from the store.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	meResponse
//	@Failure		401	{object}	httpx.ErrorResponse
//	@Router			/v1/auth/me [get].
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "missing credentials")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, meResponse{
		Identity:     id,
		IsSuperAdmin: httpx.IsSuperAdmin(id.Roles),
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// HandleChangePassword godoc
//
//	@Summary		Change own password
//	@Description	Requires the current password. All other sessions are revoked on success.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Accept			json
//	@Success		204
//	@Failure		401	{object}	httpx.ErrorResponse	"Current password incorrect"
//	@Router			/v1/auth/change-password [post].
func (h *AuthHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "missing credentials")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if len(req.NewPassword) < 12 {
		httpx.WriteError(w, http.StatusBadRequest, "weak_password", "password must be at least 12 characters")
		return
	}

	userID, err := idx.Parse(id.UserID)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "bad subject")
		return
	}

	if err := h.TokenService.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "current password incorrect")
			return
		}
		slogx.FromContext(r.Context()).Error("change password failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type passwordResetRequest struct {
	Email string `json:"email"`
	// SendEmail defaults to true when omitted; false creates the reset
	// token without mailing the link.
	SendEmail *bool `json:"send_email"`
}

// HandleRequestPasswordReset godoc
//
//	@Summary		Request a password reset
//	@Description	Always returns 202 whether or not the email maps to an account. Set send_email to false to create the token without mailing the link.
//	@Tags			Auth
//	@Accept			json
//	@Success		202
//	@Router			/v1/auth/request-password-reset [post].
func (h *AuthHandler) HandleRequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}

	sendEmail := req.SendEmail == nil || *req.SendEmail
	if err := h.TokenService.RequestPasswordReset(r.Context(), req.Email, sendEmail); err != nil {
		slogx.FromContext(r.Context()).Error("password reset request failed", "err", err)
	}

	// Deliberately identical response for known and unknown emails.
	w.WriteHeader(http.StatusAccepted)
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// HandleResetPassword godoc
//
//	@Summary		Complete a password reset
//	@Description	Consumes a single-use reset token and installs the new password. All sessions are revoked.
//	@Tags			Auth
//	@Accept			json
//	@Success		204
//	@Failure		401	{object}	httpx.ErrorResponse	"Unknown, used or expired token"
//	@Router			/v1/auth/reset-password [post].
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "token is required")
		return
	}
	if len(req.NewPassword) < 12 {
		httpx.WriteError(w, http.StatusBadRequest, "weak_password", "password must be at least 12 characters")
		return
	}

	if err := h.TokenService.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrInvalidResetToken) {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "reset token is not valid")
			return
		}
		slogx.FromContext(r.Context()).Error("password reset failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
