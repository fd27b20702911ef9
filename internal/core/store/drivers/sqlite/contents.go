package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/antistereov/singularity-core/internal/core/domain"
	"github.com/antistereov/singularity-core/internal/core/store"
)

type contentsRepo struct {
	q querier
}

const contentColumns = `id, content_key, name, access, version, created_at, updated_at`

func (r *contentsRepo) CreateContent(ctx context.Context, c domain.Content) error {
	access, err := json.Marshal(c.Access)
	if err != nil {
		return fmt.Errorf("marshal access details: %w", err)
	}

	now := time.Now().UTC()
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO contents (id, content_key, name, access, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)`,
		c.ID, c.Key, c.Name, string(access), toUnix(now), toUnix(now))
	return mapConflict(err)
}

func (r *contentsRepo) GetContentByKey(ctx context.Context, key string) (domain.Content, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+contentColumns+` FROM contents WHERE content_key = ?`, key)

	var (
		c          domain.Content
		accessJSON string
		createdAt  int64
		updatedAt  int64
	)
	err := row.Scan(&c.ID, &c.Key, &c.Name, &accessJSON, &c.Version, &createdAt, &updatedAt)
	if err != nil {
		return domain.Content{}, mapNotFound(err)
	}
	if err := json.Unmarshal([]byte(accessJSON), &c.Access); err != nil {
		return domain.Content{}, fmt.Errorf("unmarshal access details: %w", err)
	}
	c.CreatedAt = fromUnix(createdAt)
	c.UpdatedAt = fromUnix(updatedAt)
	return c, nil
}

// SaveContent writes back a document read at c.Version. A concurrent
// writer bumps the version and the update matches zero rows, which maps
// to store.ErrVersionConflict so the caller can re-read and retry.
func (r *contentsRepo) SaveContent(ctx context.Context, c domain.Content) error {
	access, err := json.Marshal(c.Access)
	if err != nil {
		return fmt.Errorf("marshal access details: %w", err)
	}

	res, err := r.q.ExecContext(ctx, `
		UPDATE contents
		SET name = ?, access = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		c.Name, string(access), toUnix(time.Now().UTC()), c.ID, c.Version)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrVersionConflict
	}
	return nil
}

func (r *contentsRepo) DeleteContent(ctx context.Context, key string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM contents WHERE content_key = ?`, key)
	return err
}
