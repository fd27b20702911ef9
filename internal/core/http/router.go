// Package http is the thin transport over the core services: request
// decoding, token carriage, response mapping. No authorization logic
// lives here.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/antistereov/singularity-core/internal/core/service"
	"github.com/antistereov/singularity-core/internal/core/store"
	"github.com/antistereov/singularity-core/pkg/httpx"
	"github.com/antistereov/singularity-core/pkg/slogx"
)

// Router holds shared dependencies for the HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	logger    *slog.Logger
	startTime time.Time
	version   string

	store store.Store

	CookieName string
	Carriage   httpx.CarriagePreference
	// CookieSecure marks issued cookies Secure; disable only for local
	// development over plain HTTP.
	CookieSecure bool

	Access     *service.AccessTokenService
	Session    *service.SessionTokenService
	StepUp     *service.StepUpService
	Account    *service.AccountService
	Content    *service.ContentAuthorizationService
	Invitation *service.InvitationService
	Rotation   *service.SecretRotationService
}

func NewRouter(st store.Store, logger *slog.Logger, version string) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		logger:       logger,
		startTime:    time.Now(),
		version:      version,
		store:        st,
		CookieName:   httpx.DefaultAccessCookie,
		Carriage:     httpx.CarriageCookie,
		CookieSecure: true,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(logger),
	}
	return r
}

// ApplyRoutes registers all endpoints. Call after the service fields
// are populated.
func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerAccount()
	r.registerContent()
	r.registerInvitations()
	r.registerAdmin()
	r.registerSystem()
}

// ServeHTTP applies the global middleware chain around the mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) authn() httpx.Middleware {
	return httpx.AuthnMiddleware(r.Access, r.CookieName, r.Carriage)
}

func (r *Router) optionalAuthn() httpx.Middleware {
	return httpx.OptionalAuthnMiddleware(r.Access, r.CookieName, r.Carriage)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{Router: r}

	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.Login),
			httpx.RateLimitMiddleware(httpx.StrictLimit, httpx.IPKeyExtractor)))

	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.Refresh),
			httpx.RateLimitMiddleware(httpx.StrictLimit, httpx.IPKeyExtractor)))

	r.Mux.Handle("POST /v1/auth/session",
		httpx.Chain(http.HandlerFunc(h.SessionToken),
			httpx.RateLimitMiddleware(httpx.ModerateLimit, httpx.IPKeyExtractor)))

	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.Logout), r.authn()))

	r.Mux.Handle("POST /v1/auth/logout-all",
		httpx.Chain(http.HandlerFunc(h.LogoutAll), r.authn()))

	r.Mux.Handle("GET /v1/auth/sessions",
		httpx.Chain(http.HandlerFunc(h.ListSessions), r.authn()))

	r.Mux.Handle("POST /v1/auth/step-up",
		httpx.Chain(http.HandlerFunc(h.StepUp),
			r.authn(),
			httpx.RateLimitMiddleware(httpx.StrictLimit, httpx.IPKeyExtractor)))
}

func (r *Router) registerAccount() {
	h := &AccountHandler{Router: r}

	r.Mux.Handle("POST /v1/account/register",
		httpx.Chain(http.HandlerFunc(h.Register),
			httpx.RateLimitMiddleware(httpx.StrictLimit, httpx.IPKeyExtractor)))

	r.Mux.Handle("POST /v1/account/email/verify",
		httpx.Chain(http.HandlerFunc(h.VerifyEmail),
			httpx.RateLimitMiddleware(httpx.ModerateLimit, httpx.IPKeyExtractor)))

	r.Mux.Handle("POST /v1/account/email/resend",
		httpx.Chain(http.HandlerFunc(h.ResendVerification), r.authn()))

	r.Mux.Handle("POST /v1/account/password",
		httpx.Chain(http.HandlerFunc(h.ChangePassword), r.authn()))

	r.Mux.Handle("DELETE /v1/account",
		httpx.Chain(http.HandlerFunc(h.Delete), r.authn()))
}

func (r *Router) registerContent() {
	h := &ContentHandler{Router: r}

	// Optional authn: PUBLIC content is viewable with no token at all.
	r.Mux.Handle("GET /v1/contents/{key}",
		httpx.Chain(http.HandlerFunc(h.Get),
			r.optionalAuthn(),
			httpx.RateLimitMiddleware(httpx.PublicLimit, httpx.IPKeyExtractor)))

	r.Mux.Handle("POST /v1/contents",
		httpx.Chain(http.HandlerFunc(h.Create), r.authn()))

	r.Mux.Handle("POST /v1/contents/{key}/share",
		httpx.Chain(http.HandlerFunc(h.Share), r.authn()))

	r.Mux.Handle("POST /v1/contents/{key}/unshare",
		httpx.Chain(http.HandlerFunc(h.Unshare), r.authn()))

	r.Mux.Handle("PUT /v1/contents/{key}/access",
		httpx.Chain(http.HandlerFunc(h.UpdateAccess), r.authn()))

	r.Mux.Handle("POST /v1/contents/{key}/private",
		httpx.Chain(http.HandlerFunc(h.MakePrivate), r.authn()))

	r.Mux.Handle("POST /v1/contents/{key}/transfer",
		httpx.Chain(http.HandlerFunc(h.TransferOwnership), r.authn()))

	r.Mux.Handle("DELETE /v1/contents/{key}",
		httpx.Chain(http.HandlerFunc(h.Delete), r.authn()))
}

func (r *Router) registerInvitations() {
	h := &InvitationHandler{Router: r}

	r.Mux.Handle("POST /v1/contents/{key}/invitations",
		httpx.Chain(http.HandlerFunc(h.Invite), r.authn()))

	// Acceptance authenticates via the invitation token itself, not a
	// session token.
	r.Mux.Handle("POST /v1/invitations/accept",
		httpx.Chain(http.HandlerFunc(h.Accept),
			httpx.RateLimitMiddleware(httpx.ModerateLimit, httpx.IPKeyExtractor)))

	r.Mux.Handle("DELETE /v1/invitations/{id}",
		httpx.Chain(http.HandlerFunc(h.Revoke), r.authn()))
}

func (r *Router) registerAdmin() {
	r.Mux.Handle("POST /v1/admin/secrets/rotate",
		httpx.Chain(http.HandlerFunc(r.rotateSecrets),
			r.authn(),
			httpx.RateLimitMiddleware(httpx.StrictLimit, httpx.IPKeyExtractor)))
}

// rotateSecrets installs a fresh signing secret. With revoke_all set,
// every cached access token is invalidated as well; clients must
// re-authenticate via their refresh tokens.
func (r *Router) rotateSecrets(w http.ResponseWriter, req *http.Request) {
	p, ok := httpx.PrincipalFromContext(req.Context())
	if !ok {
		httpx.WriteUnauthorized(w)
		return
	}
	if !p.Admin {
		httpx.WriteError(w, http.StatusForbidden, "admin access required")
		return
	}

	var body struct {
		RevokeAll bool `json:"revoke_all"`
	}
	if req.Body != nil {
		_ = json.NewDecoder(req.Body).Decode(&body)
	}

	if err := r.Rotation.Rotate(req.Context(), body.RevokeAll); err != nil {
		writeServiceError(req.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) registerSystem() {
	r.Mux.HandleFunc("GET /livez", func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"uptime":  time.Since(r.startTime).String(),
			"version": r.version,
		})
	})

	r.Mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, req *http.Request) {
		if err := r.store.Ping(req.Context()); err != nil {
			httpx.WriteError(w, http.StatusServiceUnavailable, "storage unavailable")
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}
