package http

import (
	"encoding/json"
	"net/http"

	"github.com/antistereov/singularity-core/pkg/httpx"
)

// AccountHandler serves registration, email verification and account
// mutation endpoints.
type AccountHandler struct {
	Router *Router
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "email and password required")
		return
	}

	user, err := h.Router.Account.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]string{
		"user_id": user.ID,
		"email":   user.Email,
	})
}

type verifyEmailRequest struct {
	Token string `json:"token"`
}

func (h *AccountHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		httpx.WriteError(w, http.StatusBadRequest, "token required")
		return
	}

	if err := h.Router.Account.VerifyEmail(r.Context(), req.Token); err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteUnauthorized(w)
		return
	}

	if err := h.Router.Account.RequestEmailVerification(r.Context(), p.UserID); err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type changePasswordRequest struct {
	StepUpToken string `json:"step_up_token"`
	NewPassword string `json:"new_password"`
}

// ChangePassword requires a fresh step-up proof on top of the access
// token.
func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteUnauthorized(w)
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.StepUpToken == "" || req.NewPassword == "" {
		httpx.WriteError(w, http.StatusBadRequest, "step_up_token and new_password required")
		return
	}

	if _, err := h.Router.StepUp.Extract(r.Context(), req.StepUpToken, p.UserID, p.SessionID); err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	if err := h.Router.Account.ChangePassword(r.Context(), p.UserID, req.NewPassword); err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type deleteAccountRequest struct {
	StepUpToken string `json:"step_up_token"`
}

func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteUnauthorized(w)
		return
	}

	var req deleteAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.StepUpToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "step_up_token required")
		return
	}

	if _, err := h.Router.StepUp.Extract(r.Context(), req.StepUpToken, p.UserID, p.SessionID); err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	if err := h.Router.Account.DeleteAccount(r.Context(), p.UserID); err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
