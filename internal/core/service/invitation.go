package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/antistereov/singularity-core/internal/core/domain"
	"github.com/antistereov/singularity-core/internal/core/notify"
	"github.com/antistereov/singularity-core/internal/core/store"
	"github.com/antistereov/singularity-core/pkg/idx"
	"github.com/antistereov/singularity-core/pkg/slogx"
	"github.com/antistereov/singularity-core/pkg/tokenx"
)

// InvitationService issues and accepts time-boxed invitations offering
// a content role to an email address. Acceptance is the only path by
// which a party without any session token can gain access membership;
// the signed invitation token is its proof-of-email.
type InvitationService struct {
	Codec   *tokenx.Codec
	Store   store.Store
	Mailer  notify.Mailer
	Content *ContentAuthorizationService
	TTL     time.Duration
}

// Invite mints an invitation for email on the content behind key.
// Requires MAINTAINER. The invitation record and the pending id on the
// content document are persisted before the mail goes out; mail failure
// is logged and tolerated (the token can be re-sent).
func (s *InvitationService) Invite(ctx context.Context, p domain.Principal, key, email string, role domain.ContentRole) (domain.Token, error) {
	content, err := s.Content.FindAuthorizedByKey(ctx, &p, key, domain.RoleMaintainer)
	if err != nil {
		return domain.Token{}, err
	}

	now := time.Now().UTC()
	inv := domain.Invitation{
		ID:         idx.New().String(),
		ContentKey: key,
		Email:      email,
		Role:       role,
		CreatedBy:  p.UserID,
		ExpiresAt:  now.Add(s.TTL),
		CreatedAt:  now,
	}

	claims := tokenx.NewClaims(tokenx.TypeInvitation, email, inv.ID, s.TTL, s.Codec.Issuer, now)
	claims.Email = email
	claims.ContentKey = key
	claims.ContentRole = string(role)

	raw, err := s.Codec.Encode(claims)
	if err != nil {
		return domain.Token{}, fmt.Errorf("encode invitation token: %w", err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Invitations().CreateInvitation(ctx, inv); err != nil {
			return err
		}
		content.Access = content.Access.AddInvitation(inv.ID)
		if err := tx.Contents().SaveContent(ctx, content); err != nil {
			if errors.Is(err, store.ErrVersionConflict) {
				return fmt.Errorf("%w: %s", ErrVersionConflict, key)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return domain.Token{}, err
	}

	if err := s.Mailer.Send(ctx, notify.Message{
		To:       email,
		Template: notify.TemplateInvitation,
		Data: map[string]string{
			"token":   raw,
			"content": content.Name,
			"role":    string(role),
		},
	}); err != nil {
		slogx.FromContext(ctx).Warn("invitation mail delivery failed",
			slog.String("invitation_id", inv.ID),
			slog.String("error", err.Error()))
	}

	return domain.Token{Raw: raw, ID: inv.ID, ExpiresAt: inv.ExpiresAt}, nil
}

// Accept consumes an invitation token: the invitee (resolved by the
// invited email) gains the offered role and the invitation disappears,
// all in one transaction so a second acceptance of the same token
// always fails. Expired, consumed and dangling invitations are
// indistinguishable to the caller.
func (s *InvitationService) Accept(ctx context.Context, raw string) (domain.Content, error) {
	claims, err := s.Codec.Decode(raw, tokenx.TypeInvitation)
	if err != nil {
		return domain.Content{}, fmt.Errorf("%w: %w", ErrInvalidInvitation, err)
	}
	if claims.ID == "" || claims.Email == "" || claims.ContentKey == "" {
		return domain.Content{}, fmt.Errorf("%w: incomplete claims", ErrInvalidInvitation)
	}

	role, err := domain.ParseContentRole(claims.ContentRole)
	if err != nil {
		return domain.Content{}, fmt.Errorf("%w: %w", ErrInvalidInvitation, err)
	}

	var result domain.Content
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		inv, err := tx.Invitations().GetInvitation(ctx, claims.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidInvitation
			}
			return err
		}
		if inv.Expired(time.Now().UTC()) || inv.Email != claims.Email || inv.ContentKey != claims.ContentKey {
			return ErrInvalidInvitation
		}

		user, err := tx.Users().GetUserByEmail(ctx, inv.Email)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidInvitation
			}
			return err
		}

		content, err := tx.Contents().GetContentByKey(ctx, inv.ContentKey)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidInvitation
			}
			return err
		}

		content.Access = content.Access.
			Share(domain.SubjectUser, user.ID, role).
			RemoveInvitation(inv.ID)

		if err := tx.Contents().SaveContent(ctx, content); err != nil {
			if errors.Is(err, store.ErrVersionConflict) {
				return fmt.Errorf("%w: %s", ErrVersionConflict, inv.ContentKey)
			}
			return err
		}
		if err := tx.Invitations().DeleteInvitation(ctx, inv.ID); err != nil {
			return err
		}

		content.Version++
		result = content
		return nil
	})
	if err != nil {
		return domain.Content{}, err
	}
	return result, nil
}

// Revoke withdraws a pending invitation before acceptance. Requires
// MAINTAINER on the content.
func (s *InvitationService) Revoke(ctx context.Context, p domain.Principal, invitationID string) error {
	inv, err := s.Store.Invitations().GetInvitation(ctx, invitationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidInvitation
		}
		return err
	}

	content, err := s.Content.FindAuthorizedByKey(ctx, &p, inv.ContentKey, domain.RoleMaintainer)
	if err != nil {
		return err
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		content.Access = content.Access.RemoveInvitation(inv.ID)
		if err := tx.Contents().SaveContent(ctx, content); err != nil {
			if errors.Is(err, store.ErrVersionConflict) {
				return fmt.Errorf("%w: %s", ErrVersionConflict, inv.ContentKey)
			}
			return err
		}
		return tx.Invitations().DeleteInvitation(ctx, inv.ID)
	})
}
