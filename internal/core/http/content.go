package http

import (
	"encoding/json"
	"net/http"

	"github.com/antistereov/singularity-core/internal/core/domain"
	"github.com/antistereov/singularity-core/pkg/httpx"
)

// ContentHandler serves the content authorization endpoints.
type ContentHandler struct {
	Router *Router
}

type contentResponse struct {
	Key        string            `json:"key"`
	Name       string            `json:"name"`
	OwnerID    string            `json:"owner_id"`
	Visibility domain.Visibility `json:"visibility"`
	Version    int64             `json:"version"`
}

func toContentResponse(c domain.Content) contentResponse {
	return contentResponse{
		Key:        c.Key,
		Name:       c.Name,
		OwnerID:    c.Access.OwnerID,
		Visibility: c.Access.Visibility,
		Version:    c.Version,
	}
}

type createContentRequest struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

func (h *ContentHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteUnauthorized(w)
		return
	}

	var req createContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		httpx.WriteError(w, http.StatusBadRequest, "key required")
		return
	}

	c, err := h.Router.Content.CreateContent(r.Context(), p, req.Key, req.Name)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toContentResponse(c))
}

// Get serves a content item with a VIEWER check. PUBLIC content needs
// no principal; the optional-authn middleware leaves the context empty
// for anonymous requests.
func (h *ContentHandler) Get(w http.ResponseWriter, r *http.Request) {
	var principal *domain.Principal
	if p, ok := httpx.PrincipalFromContext(r.Context()); ok {
		principal = &p
	}

	c, err := h.Router.Content.FindAuthorizedByKey(r.Context(), principal, r.PathValue("key"), domain.RoleViewer)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toContentResponse(c))
}

type shareRequest struct {
	SubjectType domain.SubjectType `json:"subject_type"`
	SubjectID   string             `json:"subject_id"`
	Role        string             `json:"role"`
}

func (h *ContentHandler) Share(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteUnauthorized(w)
		return
	}

	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SubjectID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "subject_type, subject_id and role required")
		return
	}
	role, err := domain.ParseContentRole(req.Role)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "unknown role")
		return
	}
	if req.SubjectType != domain.SubjectUser && req.SubjectType != domain.SubjectGroup {
		httpx.WriteError(w, http.StatusBadRequest, "unknown subject type")
		return
	}

	c, err := h.Router.Content.Share(r.Context(), p, r.PathValue("key"), req.SubjectType, req.SubjectID, role)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toContentResponse(c))
}

type unshareRequest struct {
	SubjectType domain.SubjectType `json:"subject_type"`
	SubjectID   string             `json:"subject_id"`
}

func (h *ContentHandler) Unshare(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteUnauthorized(w)
		return
	}

	var req unshareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SubjectID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "subject_type and subject_id required")
		return
	}

	c, err := h.Router.Content.Unshare(r.Context(), p, r.PathValue("key"), req.SubjectType, req.SubjectID)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toContentResponse(c))
}

type updateAccessRequest struct {
	Visibility domain.Visibility `json:"visibility"`
	UserRoles  map[string]string `json:"user_roles,omitempty"`
	GroupRoles map[string]string `json:"group_roles,omitempty"`
}

func (h *ContentHandler) UpdateAccess(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteUnauthorized(w)
		return
	}

	var req updateAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "visibility required")
		return
	}

	switch req.Visibility {
	case domain.VisibilityPrivate, domain.VisibilityShared, domain.VisibilityPublic:
	default:
		httpx.WriteError(w, http.StatusBadRequest, "unknown visibility")
		return
	}

	update := domain.AccessUpdate{
		Visibility: req.Visibility,
		UserRoles:  map[string]domain.ContentRole{},
		GroupRoles: map[string]domain.ContentRole{},
	}
	for id, raw := range req.UserRoles {
		role, err := domain.ParseContentRole(raw)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "unknown role")
			return
		}
		update.UserRoles[id] = role
	}
	for id, raw := range req.GroupRoles {
		role, err := domain.ParseContentRole(raw)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "unknown role")
			return
		}
		update.GroupRoles[id] = role
	}

	c, err := h.Router.Content.UpdateAccess(r.Context(), p, r.PathValue("key"), update)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toContentResponse(c))
}

func (h *ContentHandler) MakePrivate(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteUnauthorized(w)
		return
	}

	c, err := h.Router.Content.MakePrivate(r.Context(), p, r.PathValue("key"))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toContentResponse(c))
}

type transferRequest struct {
	NewOwnerID string `json:"new_owner_id"`
}

func (h *ContentHandler) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteUnauthorized(w)
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.NewOwnerID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "new_owner_id required")
		return
	}

	c, err := h.Router.Content.TransferOwnership(r.Context(), p, r.PathValue("key"), req.NewOwnerID)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toContentResponse(c))
}

func (h *ContentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteUnauthorized(w)
		return
	}

	if err := h.Router.Content.DeleteContent(r.Context(), p, r.PathValue("key")); err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
