package sqlite

import (
	"context"
	"time"

	"github.com/antistereov/singularity-core/internal/core/domain"
	"github.com/google/uuid"
)

type secretsRepo struct {
	q querier
}

const secretColumns = `id, kid, value_encrypted, created_at`

func (r *secretsRepo) CreateSecret(ctx context.Context, sec domain.Secret) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO secrets (id, kid, value_encrypted, created_at)
		VALUES (?, ?, ?, ?)`,
		sec.ID.String(), sec.KID, sec.ValueEncrypted, toUnix(sec.CreatedAt))
	return mapConflict(err)
}

// GetCurrentSecret returns the newest secret, which is the one used to
// sign new tokens. Older secrets stay available for verification.
func (r *secretsRepo) GetCurrentSecret(ctx context.Context) (domain.Secret, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+secretColumns+` FROM secrets ORDER BY created_at DESC, id DESC LIMIT 1`)
	return scanSecret(row.Scan)
}

func (r *secretsRepo) ListSecrets(ctx context.Context) ([]domain.Secret, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+secretColumns+` FROM secrets ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var secrets []domain.Secret
	for rows.Next() {
		sec, err := scanSecret(rows.Scan)
		if err != nil {
			return nil, err
		}
		secrets = append(secrets, sec)
	}
	return secrets, rows.Err()
}

func (r *secretsRepo) DeleteSecretsCreatedBefore(ctx context.Context, cutoff time.Time) error {
	// Never delete the newest secret, even if it is older than the cutoff.
	_, err := r.q.ExecContext(ctx, `
		DELETE FROM secrets
		WHERE created_at < ?
		  AND id != (SELECT id FROM secrets ORDER BY created_at DESC, id DESC LIMIT 1)`,
		toUnix(cutoff))
	return err
}

func scanSecret(scan func(dest ...any) error) (domain.Secret, error) {
	var (
		sec       domain.Secret
		id        string
		createdAt int64
	)
	if err := scan(&id, &sec.KID, &sec.ValueEncrypted, &createdAt); err != nil {
		return domain.Secret{}, mapNotFound(err)
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return domain.Secret{}, err
	}
	sec.ID = parsed
	sec.CreatedAt = fromUnix(createdAt)
	return sec, nil
}
