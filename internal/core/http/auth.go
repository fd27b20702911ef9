package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/antistereov/singularity-core/internal/core/domain"
	"github.com/antistereov/singularity-core/internal/core/service"
	"github.com/antistereov/singularity-core/pkg/httpx"
)

// AuthHandler serves the token lifecycle endpoints.
type AuthHandler struct {
	Router *Router
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Browser  string `json:"browser,omitempty"`
	OS       string `json:"os,omitempty"`
}

type tokenPairResponse struct {
	SessionID        string `json:"session_id"`
	AccessToken      string `json:"access_token"`
	AccessExpiresAt  int64  `json:"access_expires_at"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresAt int64  `json:"refresh_expires_at"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "email and password required")
		return
	}

	pair, err := h.Router.Account.Login(r.Context(), req.Email, req.Password, domain.ClientInfo{
		Browser:   req.Browser,
		OS:        req.OS,
		IPAddress: httpx.IPKeyExtractor(r),
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	h.writePair(w, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
	Browser      string `json:"browser,omitempty"`
	OS           string `json:"os,omitempty"`
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "refresh_token required")
		return
	}

	pair, err := h.Router.Account.RefreshTokens(r.Context(), req.RefreshToken, domain.ClientInfo{
		Browser:   req.Browser,
		OS:        req.OS,
		IPAddress: httpx.IPKeyExtractor(r),
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	h.writePair(w, pair)
}

type sessionTokenRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Browser   string `json:"browser,omitempty"`
	OS        string `json:"os,omitempty"`
}

// SessionToken mints a pre-authentication correlation token.
func (h *AuthHandler) SessionToken(w http.ResponseWriter, r *http.Request) {
	var req sessionTokenRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	tok, sessionID, err := h.Router.Session.Create(r.Context(), req.SessionID, req.Browser, req.OS)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"session_id":    sessionID,
		"session_token": tok.Raw,
		"expires_at":    tok.ExpiresAt.Unix(),
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteUnauthorized(w)
		return
	}

	if err := h.Router.Account.Logout(r.Context(), p); err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	h.clearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteUnauthorized(w)
		return
	}

	if err := h.Router.Account.LogoutAll(r.Context(), p.UserID); err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	h.clearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

type sessionResponse struct {
	SessionID  string `json:"session_id"`
	Browser    string `json:"browser,omitempty"`
	OS         string `json:"os,omitempty"`
	City       string `json:"city,omitempty"`
	Country    string `json:"country,omitempty"`
	LastActive int64  `json:"last_active"`
	Current    bool   `json:"current"`
}

func (h *AuthHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteUnauthorized(w)
		return
	}

	sessions, err := h.Router.Account.ListSessions(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionResponse{
			SessionID:  s.ID,
			Browser:    s.Browser,
			OS:         s.OS,
			City:       s.City,
			Country:    s.Country,
			LastActive: s.LastActive.Unix(),
			Current:    s.ID == p.SessionID,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

type stepUpRequest struct {
	Password string `json:"password,omitempty"`
	TOTPCode string `json:"totp_code,omitempty"`
}

func (h *AuthHandler) StepUp(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteUnauthorized(w)
		return
	}

	var req stepUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "password or totp_code required")
		return
	}

	tok, err := h.Router.StepUp.Create(r.Context(), p.UserID, p.SessionID, service.StepUpProof{
		Password: req.Password,
		TOTPCode: req.TOTPCode,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"step_up_token": tok.Raw,
		"expires_at":    tok.ExpiresAt.Unix(),
	})
}

// writePair returns the pair in the body and mirrors the access token
// into the HTTP-only cookie when cookie carriage is configured.
func (h *AuthHandler) writePair(w http.ResponseWriter, pair domain.TokenPair) {
	if h.Router.Carriage == httpx.CarriageCookie {
		http.SetCookie(w, &http.Cookie{
			Name:     h.Router.CookieName,
			Value:    pair.Access.Raw,
			Path:     "/",
			Expires:  pair.Access.ExpiresAt,
			HttpOnly: true,
			Secure:   h.Router.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
	}

	httpx.WriteJSON(w, http.StatusOK, tokenPairResponse{
		SessionID:        pair.SessionID,
		AccessToken:      pair.Access.Raw,
		AccessExpiresAt:  pair.Access.ExpiresAt.Unix(),
		RefreshToken:     pair.Refresh.Raw,
		RefreshExpiresAt: pair.Refresh.ExpiresAt.Unix(),
	})
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.Router.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Router.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
