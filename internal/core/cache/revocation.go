// Package cache tracks which issued tokens are still honored. Tokens are
// registered at issuance and checked on every extraction; deleting the
// keys revokes without touching the signing secrets.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// opTimeout bounds every cache round-trip so a slow Redis cannot stall
// request handling.
const opTimeout = 2 * time.Second

// RevocationCache stores one key per live token, plus a per-principal
// index set so InvalidateAll can find every key without a scan.
//
// Lookups fail closed: if Redis is unreachable the token is treated as
// revoked. Accepting tokens while the revocation list is unavailable
// would void every logout and account deletion that happened during the
// outage.
type RevocationCache struct {
	rdb *redis.Client
}

func NewRevocationCache(rdb *redis.Client) *RevocationCache {
	return &RevocationCache{rdb: rdb}
}

func tokenKey(userID, tokenID string) string {
	return fmt.Sprintf("rc:%s:%s", userID, tokenID)
}

func indexKey(userID string) string {
	return fmt.Sprintf("rc:%s", userID)
}

// Register records a freshly issued token id for its principal. The key
// expires with the token, so revocation state never outlives the token
// itself. Registration failure must abort issuance: a token the cache
// does not know about can never pass IsTokenValid.
func (c *RevocationCache) Register(ctx context.Context, userID, tokenID string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, tokenKey(userID, tokenID), 1, ttl)
	pipe.SAdd(ctx, indexKey(userID), tokenID)
	// Index lives slightly longer than the longest member so it is not
	// resurrected empty.
	pipe.Expire(ctx, indexKey(userID), ttl+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("register token: %w", err)
	}
	return nil
}

// IsTokenValid reports whether the token id is still honored for the
// principal. Any cache error reads as invalid.
func (c *RevocationCache) IsTokenValid(ctx context.Context, userID, tokenID string) bool {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	n, err := c.rdb.Exists(ctx, tokenKey(userID, tokenID)).Result()
	if err != nil {
		return false
	}
	return n == 1
}

// Invalidate revokes a single token (logout of one session, refresh
// rotation of the superseded token).
func (c *RevocationCache) Invalidate(ctx context.Context, userID, tokenID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, tokenKey(userID, tokenID))
	pipe.SRem(ctx, indexKey(userID), tokenID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("invalidate token: %w", err)
	}
	return nil
}

// InvalidateAll revokes every live token of a principal: logout-all,
// account deletion, group-membership change, password change.
func (c *RevocationCache) InvalidateAll(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	ids, err := c.rdb.SMembers(ctx, indexKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("list principal tokens: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, tokenKey(userID, id))
	}
	keys = append(keys, indexKey(userID))

	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate principal tokens: %w", err)
	}
	return nil
}

// PurgeAll drops every registered token id for every principal. Only
// for emergency signing-secret rotation, where all outstanding access
// tokens must die at once; the revocation database holds nothing else.
func (c *RevocationCache) PurgeAll(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.rdb.FlushDB(ctx).Err(); err != nil {
		return fmt.Errorf("purge revocation cache: %w", err)
	}
	return nil
}

// Ping verifies connectivity at startup.
func (c *RevocationCache) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}
