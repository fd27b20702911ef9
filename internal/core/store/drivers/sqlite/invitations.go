package sqlite

import (
	"context"
	"time"

	"github.com/antistereov/singularity-core/internal/core/domain"
)

type invitationsRepo struct {
	q querier
}

const invitationColumns = `id, content_key, email, role, created_by, expires_at, created_at`

func (r *invitationsRepo) CreateInvitation(ctx context.Context, inv domain.Invitation) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO invitations (id, content_key, email, role, created_by, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.ContentKey, inv.Email, string(inv.Role), inv.CreatedBy,
		toUnix(inv.ExpiresAt), toUnix(inv.CreatedAt))
	return mapConflict(err)
}

func (r *invitationsRepo) GetInvitation(ctx context.Context, id string) (domain.Invitation, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE id = ?`, id)

	var (
		inv       domain.Invitation
		role      string
		expiresAt int64
		createdAt int64
	)
	err := row.Scan(&inv.ID, &inv.ContentKey, &inv.Email, &role, &inv.CreatedBy,
		&expiresAt, &createdAt)
	if err != nil {
		return domain.Invitation{}, mapNotFound(err)
	}
	inv.Role = domain.ContentRole(role)
	inv.ExpiresAt = fromUnix(expiresAt)
	inv.CreatedAt = fromUnix(createdAt)
	return inv, nil
}

func (r *invitationsRepo) DeleteInvitation(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM invitations WHERE id = ?`, id)
	return err
}

func (r *invitationsRepo) DeleteExpiredInvitations(ctx context.Context, now time.Time) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM invitations WHERE expires_at < ?`, toUnix(now))
	return err
}
