package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/antistereov/singularity-core/internal/core/service"
	"github.com/antistereov/singularity-core/internal/core/store"
	"github.com/antistereov/singularity-core/pkg/httpx"
	"github.com/antistereov/singularity-core/pkg/slogx"
)

// writeServiceError maps the service taxonomy onto HTTP. Every token
// and credential failure collapses to the same 401 body; the specific
// kind is logged, never returned.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	l := slogx.FromContext(ctx)

	switch {
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrSessionMismatch),
		errors.Is(err, service.ErrNotAuthenticated):
		l.Info("request rejected", slog.String("reason", err.Error()))
		httpx.WriteUnauthorized(w)

	case errors.Is(err, service.ErrNotAuthorized):
		httpx.WriteError(w, http.StatusForbidden, "insufficient permissions")

	case errors.Is(err, service.ErrContentNotFound), errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not found")

	case errors.Is(err, service.ErrInvalidInvitation):
		httpx.WriteError(w, http.StatusBadRequest, "invalid invitation")

	case errors.Is(err, service.ErrVersionConflict):
		httpx.WriteError(w, http.StatusConflict, "concurrent modification, retry")

	case errors.Is(err, store.ErrAlreadyExists):
		httpx.WriteError(w, http.StatusConflict, "already exists")

	default:
		l.Error("request failed", slog.String("error", err.Error()))
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
