package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/antistereov/singularity-core/internal/core/domain"
	"github.com/antistereov/singularity-core/internal/core/store"
	"github.com/antistereov/singularity-core/pkg/idx"
)

// ContentAuthorizationService answers "may principal P act with role R
// on content C" and applies access mutations. All mutations go through
// the content document's optimistic version: a lost race surfaces as
// ErrVersionConflict and the caller retries against fresh state.
type ContentAuthorizationService struct {
	Store store.Store
}

// CreateContent registers a content entity owned by the caller,
// starting PRIVATE.
func (s *ContentAuthorizationService) CreateContent(ctx context.Context, p domain.Principal, key, name string) (domain.Content, error) {
	content := domain.Content{
		ID:     idx.New().String(),
		Key:    key,
		Name:   name,
		Access: domain.NewAccessDetails(p.UserID),
	}
	if err := s.Store.Contents().CreateContent(ctx, content); err != nil {
		return domain.Content{}, err
	}
	content.Version = 1
	return content, nil
}

// FindAuthorizedByKey loads content by key and authorizes the caller
// for the required role. PUBLIC content short-circuits VIEWER checks
// with no identity at all; everything else needs an authenticated
// principal. p is nil for unauthenticated requests.
func (s *ContentAuthorizationService) FindAuthorizedByKey(ctx context.Context, p *domain.Principal, key string, role domain.ContentRole) (domain.Content, error) {
	content, err := s.Store.Contents().GetContentByKey(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Content{}, ErrContentNotFound
		}
		return domain.Content{}, err
	}

	if role == domain.RoleViewer && content.Access.Visibility == domain.VisibilityPublic {
		return content, nil
	}

	if p == nil {
		return domain.Content{}, ErrNotAuthenticated
	}
	if !content.Access.HasAccess(*p, role) {
		return domain.Content{}, ErrNotAuthorized
	}
	return content, nil
}

// Share grants role to a subject. Requires MAINTAINER on the content;
// private content becomes SHARED.
func (s *ContentAuthorizationService) Share(ctx context.Context, p domain.Principal, key string, subjectType domain.SubjectType, subjectID string, role domain.ContentRole) (domain.Content, error) {
	return s.mutate(ctx, p, key, func(a domain.AccessDetails) domain.AccessDetails {
		return a.Share(subjectType, subjectID, role)
	})
}

// Unshare removes a subject's grant. An emptied SHARED document
// collapses back to PRIVATE.
func (s *ContentAuthorizationService) Unshare(ctx context.Context, p domain.Principal, key string, subjectType domain.SubjectType, subjectID string) (domain.Content, error) {
	return s.mutate(ctx, p, key, func(a domain.AccessDetails) domain.AccessDetails {
		return a.Unshare(subjectType, subjectID)
	})
}

// UpdateAccess applies a visibility-change request: target visibility
// plus a bulk replacement of the shared user/group role sets.
func (s *ContentAuthorizationService) UpdateAccess(ctx context.Context, p domain.Principal, key string, req domain.AccessUpdate) (domain.Content, error) {
	return s.mutate(ctx, p, key, func(a domain.AccessDetails) domain.AccessDetails {
		return a.ApplyUpdate(req)
	})
}

// MakePrivate clears all grants. Pending invitations survive and can
// still be accepted later.
func (s *ContentAuthorizationService) MakePrivate(ctx context.Context, p domain.Principal, key string) (domain.Content, error) {
	return s.mutate(ctx, p, key, func(a domain.AccessDetails) domain.AccessDetails {
		return a.MakePrivate()
	})
}

// TransferOwnership hands the content to a new owner. Only the current
// owner or an admin may transfer.
func (s *ContentAuthorizationService) TransferOwnership(ctx context.Context, p domain.Principal, key, newOwnerID string) (domain.Content, error) {
	content, err := s.Store.Contents().GetContentByKey(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Content{}, ErrContentNotFound
		}
		return domain.Content{}, err
	}

	if !p.Admin && p.UserID != content.Access.OwnerID {
		return domain.Content{}, ErrNotAuthorized
	}

	content.Access = content.Access.TransferOwnership(newOwnerID)
	return s.save(ctx, content)
}

// DeleteContent removes a content entity and, with it, its access
// document. Owner or admin only.
func (s *ContentAuthorizationService) DeleteContent(ctx context.Context, p domain.Principal, key string) error {
	content, err := s.Store.Contents().GetContentByKey(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrContentNotFound
		}
		return err
	}
	if !p.Admin && p.UserID != content.Access.OwnerID {
		return ErrNotAuthorized
	}
	return s.Store.Contents().DeleteContent(ctx, key)
}

// mutate loads, authorizes (MAINTAINER), applies fn and saves under the
// version check.
func (s *ContentAuthorizationService) mutate(ctx context.Context, p domain.Principal, key string, fn func(domain.AccessDetails) domain.AccessDetails) (domain.Content, error) {
	content, err := s.FindAuthorizedByKey(ctx, &p, key, domain.RoleMaintainer)
	if err != nil {
		return domain.Content{}, err
	}

	content.Access = fn(content.Access)
	return s.save(ctx, content)
}

func (s *ContentAuthorizationService) save(ctx context.Context, content domain.Content) (domain.Content, error) {
	if err := s.Store.Contents().SaveContent(ctx, content); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return domain.Content{}, fmt.Errorf("%w: %s", ErrVersionConflict, content.Key)
		}
		return domain.Content{}, err
	}
	content.Version++
	return content, nil
}
