package sqlite

import (
	"context"
	"time"

	"github.com/antistereov/singularity-core/internal/core/domain"
)

type sessionsRepo struct {
	q querier
}

const sessionColumns = `user_id, id, refresh_token_id, browser, os, ip_address,
	city, country, last_active, created_at`

// UpsertSession is a single atomic statement; concurrent rotations for
// the same (user, session) serialize on the row and the last write wins
// with a consistent refresh_token_id.
func (r *sessionsRepo) UpsertSession(ctx context.Context, s domain.Session) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO sessions (user_id, id, refresh_token_id, browser, os,
			ip_address, city, country, last_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, id) DO UPDATE SET
			refresh_token_id = excluded.refresh_token_id,
			browser = excluded.browser,
			os = excluded.os,
			ip_address = excluded.ip_address,
			city = excluded.city,
			country = excluded.country,
			last_active = excluded.last_active`,
		s.UserID, s.ID, s.RefreshTokenID, s.Browser, s.OS,
		s.IPAddress, s.City, s.Country,
		toUnix(s.LastActive), toUnix(s.CreatedAt))
	return err
}

func (r *sessionsRepo) GetSession(ctx context.Context, userID, sessionID string) (domain.Session, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = ? AND id = ?`,
		userID, sessionID)

	var (
		s          domain.Session
		lastActive int64
		createdAt  int64
	)
	err := row.Scan(&s.UserID, &s.ID, &s.RefreshTokenID, &s.Browser, &s.OS,
		&s.IPAddress, &s.City, &s.Country, &lastActive, &createdAt)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	s.LastActive = fromUnix(lastActive)
	s.CreatedAt = fromUnix(createdAt)
	return s, nil
}

func (r *sessionsRepo) ListUserSessions(ctx context.Context, userID string) ([]domain.Session, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = ? ORDER BY last_active DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var (
			s          domain.Session
			lastActive int64
			createdAt  int64
		)
		if err := rows.Scan(&s.UserID, &s.ID, &s.RefreshTokenID, &s.Browser, &s.OS,
			&s.IPAddress, &s.City, &s.Country, &lastActive, &createdAt); err != nil {
			return nil, err
		}
		s.LastActive = fromUnix(lastActive)
		s.CreatedAt = fromUnix(createdAt)
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *sessionsRepo) DeleteSession(ctx context.Context, userID, sessionID string) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM sessions WHERE user_id = ? AND id = ?`, userID, sessionID)
	return err
}

func (r *sessionsRepo) DeleteUserSessions(ctx context.Context, userID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	return err
}

func (r *sessionsRepo) DeleteIdleSessions(ctx context.Context, lastActiveBefore time.Time) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM sessions WHERE last_active < ?`, toUnix(lastActiveBefore))
	return err
}
