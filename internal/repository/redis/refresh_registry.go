package redis

import (
	"context"
	"errors"
	"fmt"

	domainauth "github.com/NordCoder/firmbook/internal/domain/auth"
	goredis "github.com/redis/go-redis/v9"
)

var _ domainauth.RefreshRegistry = (*RefreshRegistry)(nil)

// compare-and-delete; returns 1 when the stored secret matched and was removed.
var consumeScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

type RefreshRegistry struct {
	c *Client
}

func NewRefreshRegistry(c *Client) *RefreshRegistry { return &RefreshRegistry{c: c} }

func refreshKey(userID, sessionID string) string {
	return "rt:" + userID + ":" + sessionID
}

func (r *RefreshRegistry) Save(ctx context.Context, s domainauth.RefreshSession) error {
	ctx, cancel := r.c.withTimeout(ctx)
	defer cancel()

	if err := r.c.rdb.Set(ctx, refreshKey(s.UserID, s.SessionID), s.Secret, s.TTL).Err(); err != nil {
		return fmt.Errorf("refresh save: %w", err)
	}
	return nil
}

func (r *RefreshRegistry) Verify(ctx context.Context, userID, sessionID, secret string) (bool, error) {
	ctx, cancel := r.c.withTimeout(ctx)
	defer cancel()

	stored, err := r.c.rdb.Get(ctx, refreshKey(userID, sessionID)).Result()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("refresh get: %w", err)
	}
	return stored == secret, nil
}

func (r *RefreshRegistry) Consume(ctx context.Context, userID, sessionID, secret string) (bool, error) {
	ctx, cancel := r.c.withTimeout(ctx)
	defer cancel()

	n, err := consumeScript.Run(ctx, r.c.rdb, []string{refreshKey(userID, sessionID)}, secret).Int()
	if err != nil {
		return false, fmt.Errorf("refresh consume: %w", err)
	}
	return n == 1, nil
}

func (r *RefreshRegistry) Revoke(ctx context.Context, userID, sessionID string) error {
	ctx, cancel := r.c.withTimeout(ctx)
	defer cancel()

	if err := r.c.rdb.Del(ctx, refreshKey(userID, sessionID)).Err(); err != nil {
		return fmt.Errorf("refresh revoke: %w", err)
	}
	return nil
}
