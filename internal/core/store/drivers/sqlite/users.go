package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/antistereov/singularity-core/internal/core/domain"
)

type usersRepo struct {
	q querier
}

const userColumns = `id, email, name, password_hash, admin, email_verified,
	email_verification_secret, totp_secret, group_ids, created_at, updated_at`

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	groups, err := json.Marshal(u.GroupIDs)
	if err != nil {
		return fmt.Errorf("marshal group ids: %w", err)
	}

	now := time.Now().UTC()
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, admin, email_verified,
			email_verification_secret, totp_secret, group_ids, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Admin,
		toUnixPtr(u.EmailVerified), u.EmailVerificationSecret,
		mapOptionalString(u.TOTPSecret), string(groups),
		toUnix(now), toUnix(now),
	)
	return mapConflict(err)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, toUnix(time.Now().UTC()), userID)
	return err
}

func (r *usersRepo) SetGroupIDs(ctx context.Context, userID string, groupIDs []string) error {
	groups, err := json.Marshal(groupIDs)
	if err != nil {
		return fmt.Errorf("marshal group ids: %w", err)
	}
	_, err = r.q.ExecContext(ctx,
		`UPDATE users SET group_ids = ?, updated_at = ? WHERE id = ?`,
		string(groups), toUnix(time.Now().UTC()), userID)
	return err
}

func (r *usersRepo) ConsumeEmailVerificationSecret(
	ctx context.Context,
	userID, expectedSecret, nextSecret string,
) (bool, error) {
	now := time.Now().UTC()
	res, err := r.q.ExecContext(ctx, `
		UPDATE users
		SET email_verified = ?, email_verification_secret = ?, updated_at = ?
		WHERE id = ? AND email_verification_secret = ?`,
		toUnix(now), nextSecret, toUnix(now), userID, expectedSecret)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *usersRepo) RotateEmailVerificationSecret(ctx context.Context, userID, newSecret string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET email_verification_secret = ?, updated_at = ? WHERE id = ?`,
		newSecret, toUnix(time.Now().UTC()), userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	return nil
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	return err
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u          domain.User
		verified   sql.NullInt64
		totpSecret sql.NullString
		groupsJSON string
		createdAt  int64
		updatedAt  int64
	)

	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Admin,
		&verified, &u.EmailVerificationSecret, &totpSecret, &groupsJSON,
		&createdAt, &updatedAt)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.EmailVerified = fromUnixPtr(verified)
	u.TOTPSecret = mapNullStringPtr(totpSecret)
	u.CreatedAt = fromUnix(createdAt)
	u.UpdatedAt = fromUnix(updatedAt)

	if err := json.Unmarshal([]byte(groupsJSON), &u.GroupIDs); err != nil {
		return domain.User{}, fmt.Errorf("unmarshal group ids: %w", err)
	}
	return u, nil
}
