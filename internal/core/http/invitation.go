package http

import (
	"encoding/json"
	"net/http"

	"github.com/antistereov/singularity-core/internal/core/domain"
	"github.com/antistereov/singularity-core/pkg/httpx"
)

// InvitationHandler serves invitation minting and acceptance.
type InvitationHandler struct {
	Router *Router
}

type inviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (h *InvitationHandler) Invite(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteUnauthorized(w)
		return
	}

	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "email and role required")
		return
	}
	role, err := domain.ParseContentRole(req.Role)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "unknown role")
		return
	}

	tok, err := h.Router.Invitation.Invite(r.Context(), p, r.PathValue("key"), req.Email, role)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"invitation_id": tok.ID,
		"expires_at":    tok.ExpiresAt.Unix(),
	})
}

type acceptRequest struct {
	Token string `json:"token"`
}

// Accept consumes an invitation token. The token itself is the proof of
// email; no session token is required.
func (h *InvitationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	var req acceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		httpx.WriteError(w, http.StatusBadRequest, "token required")
		return
	}

	c, err := h.Router.Invitation.Accept(r.Context(), req.Token)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toContentResponse(c))
}

func (h *InvitationHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteUnauthorized(w)
		return
	}

	if err := h.Router.Invitation.Revoke(r.Context(), p, r.PathValue("id")); err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
