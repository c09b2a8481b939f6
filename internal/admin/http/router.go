package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/wardenhq/warden/internal/admin/obs"
	"github.com/wardenhq/warden/internal/admin/service"
	"github.com/wardenhq/warden/internal/admin/store"
	"github.com/wardenhq/warden/pkg/httpx"
	"github.com/wardenhq/warden/pkg/jwtx"
	"github.com/wardenhq/warden/pkg/slogx"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "github.com/wardenhq/warden/api/admin" // Swagger docs
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store    store.Store
	dbHealth *service.DBHealth
	limiter  *httpx.SlidingWindowLimiter
	metrics  *obs.Metrics

	TokenService      *service.TokenService
	PermissionService *service.PermissionService
	UserService       *service.UserService
	RoleService       *service.RoleService
	GroupService      *service.GroupService
	DocumentService   *service.DocumentService
	AuditService      *service.AuditService
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	dbHealth *service.DBHealth,
	limiter *httpx.SlidingWindowLimiter,
	metrics *obs.Metrics,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		dbHealth:     dbHealth,
		limiter:      limiter,
		metrics:      metrics,
		logger:       logger,
	}

	// Global chain: request logging, metrics, db watchdog, rate limiting.
	// Authentication and policy checks are per route.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		metrics.Instrument(),
		dbHealth.Middleware(limiter.Exempt),
		httpx.RateLimitMiddleware(limiter, metrics.ObserveRateLimited),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerRoles()
	r.registerGroups()
	r.registerDocuments()
	r.registerAudit()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Warden Admin API
//	@version		0.1.0
//	@description	Role-based access control backend for administrative tooling.
//	@description	Access tokens are EdDSA-signed JWTs; refresh tokens are opaque and single-use.
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// authn builds the authenticated base chain for a handler.
func (r *Router) authn(h http.Handler, policies ...httpx.Middleware) http.Handler {
	mws := append([]httpx.Middleware{
		httpx.AuthnMiddleware(r.verifier, r.PermissionService),
	}, policies...)
	return httpx.Chain(h, mws...)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		TokenService: r.TokenService,
		Metrics:      r.metrics,
	}

	r.Mux.Handle("POST /v1/auth/login", http.HandlerFunc(h.HandleLogin))
	r.Mux.Handle("POST /v1/auth/refresh", http.HandlerFunc(h.HandleRefresh))
	r.Mux.Handle("POST /v1/auth/logout", http.HandlerFunc(h.HandleLogout))
	r.Mux.Handle("POST /v1/auth/request-password-reset", http.HandlerFunc(h.HandleRequestPasswordReset))
	r.Mux.Handle("POST /v1/auth/reset-password", http.HandlerFunc(h.HandleResetPassword))

	r.Mux.Handle("GET /v1/auth/me",
		r.authn(http.HandlerFunc(h.HandleMe)))
	r.Mux.Handle("POST /v1/auth/change-password",
		r.authn(http.HandlerFunc(h.HandleChangePassword)))
}

func (r *Router) registerUsers() {
	h := &UsersHandler{UserService: r.UserService}

	r.Mux.Handle("POST /v1/users",
		r.authn(http.HandlerFunc(h.HandleCreate), httpx.RequireAdmin()))
	r.Mux.Handle("GET /v1/users",
		r.authn(http.HandlerFunc(h.HandleList), httpx.RequireAdmin()))
	r.Mux.Handle("GET /v1/users/{id}",
		r.authn(http.HandlerFunc(h.HandleGet), httpx.RequireAdmin()))
	r.Mux.Handle("PATCH /v1/users/{id}",
		r.authn(http.HandlerFunc(h.HandleUpdate), httpx.RequireAdmin()))
	r.Mux.Handle("DELETE /v1/users/{id}",
		r.authn(http.HandlerFunc(h.HandleDelete), httpx.RequireSuperAdmin()))

	r.Mux.Handle("PUT /v1/users/{id}/roles/{roleID}",
		r.authn(http.HandlerFunc(h.HandleAssignRole), httpx.RequireSuperAdmin()))
	r.Mux.Handle("DELETE /v1/users/{id}/roles/{roleID}",
		r.authn(http.HandlerFunc(h.HandleRemoveRole), httpx.RequireSuperAdmin()))
	r.Mux.Handle("PUT /v1/users/{id}/groups/{groupID}",
		r.authn(http.HandlerFunc(h.HandleAssignGroup), httpx.RequireGroupAdmin()))
	r.Mux.Handle("DELETE /v1/users/{id}/groups/{groupID}",
		r.authn(http.HandlerFunc(h.HandleRemoveGroup), httpx.RequireGroupAdmin()))

	ph := &PermissionsHandler{PermissionService: r.PermissionService}
	r.Mux.Handle("GET /v1/users/{id}/permissions",
		r.authn(http.HandlerFunc(ph.HandleResolve), httpx.RequireAdmin()))
}

func (r *Router) registerRoles() {
	h := &RolesHandler{RoleService: r.RoleService}

	r.Mux.Handle("POST /v1/roles",
		r.authn(http.HandlerFunc(h.HandleCreate), httpx.RequireSuperAdmin()))
	r.Mux.Handle("GET /v1/roles",
		r.authn(http.HandlerFunc(h.HandleList), httpx.RequireAdmin()))
	r.Mux.Handle("GET /v1/roles/{id}",
		r.authn(http.HandlerFunc(h.HandleGet), httpx.RequireAdmin()))
	r.Mux.Handle("PUT /v1/roles/{id}",
		r.authn(http.HandlerFunc(h.HandleUpdate), httpx.RequireSuperAdmin()))
	r.Mux.Handle("DELETE /v1/roles/{id}",
		r.authn(http.HandlerFunc(h.HandleDelete), httpx.RequireSuperAdmin()))
}

func (r *Router) registerGroups() {
	h := &GroupsHandler{GroupService: r.GroupService}

	r.Mux.Handle("POST /v1/groups",
		r.authn(http.HandlerFunc(h.HandleCreate), httpx.RequireAdmin()))
	r.Mux.Handle("GET /v1/groups",
		r.authn(http.HandlerFunc(h.HandleList), httpx.RequireGroupAdmin()))
	r.Mux.Handle("GET /v1/groups/{id}",
		r.authn(http.HandlerFunc(h.HandleGet), httpx.RequireGroupAdmin()))
	r.Mux.Handle("PUT /v1/groups/{id}",
		r.authn(http.HandlerFunc(h.HandleUpdate), httpx.RequireGroupAdmin()))
	r.Mux.Handle("DELETE /v1/groups/{id}",
		r.authn(http.HandlerFunc(h.HandleDelete), httpx.RequireAdmin()))
}

func (r *Router) registerDocuments() {
	h := &DocumentsHandler{DocumentService: r.DocumentService}

	r.Mux.Handle("POST /v1/documents",
		r.authn(http.HandlerFunc(h.HandleUpload), httpx.RequireAdminOrEditor()))
	r.Mux.Handle("GET /v1/documents",
		r.authn(http.HandlerFunc(h.HandleList), httpx.RequireAdminOrEditor()))
	r.Mux.Handle("GET /v1/documents/{id}",
		r.authn(http.HandlerFunc(h.HandleDownload)))
	r.Mux.Handle("DELETE /v1/documents/{id}",
		r.authn(http.HandlerFunc(h.HandleDelete), httpx.RequireAdminOrEditor()))
}

func (r *Router) registerAudit() {
	h := &AuditHandler{AuditService: r.AuditService}

	r.Mux.Handle("GET /v1/audit/activity",
		r.authn(http.HandlerFunc(h.HandleListActivity), httpx.RequireAdmin()))
	r.Mux.Handle("GET /v1/audit/errors",
		r.authn(http.HandlerFunc(h.HandleListErrors), httpx.RequireSuperAdmin()))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
	r.Mux.Handle("GET /metrics", r.metrics.Handler())
}
