package httpx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/antistereov/singularity-core/internal/core/domain"
	"github.com/antistereov/singularity-core/pkg/slogx"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares left to right (the first listed runs
// outermost).
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Authenticator turns a raw access token into a principal.
type Authenticator interface {
	Extract(ctx context.Context, raw string) (domain.Principal, error)
}

// AuthnMiddleware authenticates requests via the configured token
// carriage and injects the principal into the context. Requests without
// a usable token, or with a token that fails validation, get the
// uniform 401.
func AuthnMiddleware(auth Authenticator, cookieName string, pref CarriagePreference) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, source := TokenFromRequest(r, cookieName, pref)
			if source == SourceNone {
				WriteUnauthorized(w)
				return
			}

			p, err := auth.Extract(ctx, raw)
			if err != nil {
				slogx.FromContext(ctx).Info("authentication failed",
					slog.String("source", string(source)),
					slog.String("error", err.Error()))
				WriteUnauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(ctx, p)))
		})
	}
}

// OptionalAuthnMiddleware authenticates when a token is present but
// lets unauthenticated requests through without a principal, for
// endpoints serving public content. A present-but-invalid token is
// still a hard 401: it is never silently downgraded to anonymous.
func OptionalAuthnMiddleware(auth Authenticator, cookieName string, pref CarriagePreference) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, source := TokenFromRequest(r, cookieName, pref)
			if source == SourceNone {
				next.ServeHTTP(w, r)
				return
			}

			p, err := auth.Extract(ctx, raw)
			if err != nil {
				slogx.FromContext(ctx).Info("authentication failed",
					slog.String("source", string(source)),
					slog.String("error", err.Error()))
				WriteUnauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(ctx, p)))
		})
	}
}
