package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainauth "github.com/NordCoder/firmbook/internal/domain/auth"
	goredis "github.com/redis/go-redis/v9"
)

var _ domainauth.RevocationList = (*Blacklist)(nil)

const blacklistMarker = "1"

type Blacklist struct {
	c *Client
}

func NewBlacklist(c *Client) *Blacklist { return &Blacklist{c: c} }

func blacklistKey(token string) string { return "blacklist:" + token }

func (b *Blacklist) Add(ctx context.Context, token string, ttl time.Duration) error {
	ctx, cancel := b.c.withTimeout(ctx)
	defer cancel()

	if err := b.c.rdb.Set(ctx, blacklistKey(token), blacklistMarker, ttl).Err(); err != nil {
		return fmt.Errorf("blacklist add: %w", err)
	}
	return nil
}

func (b *Blacklist) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	ctx, cancel := b.c.withTimeout(ctx)
	defer cancel()

	v, err := b.c.rdb.Get(ctx, blacklistKey(token)).Result()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("blacklist get: %w", err)
	}
	return v == blacklistMarker, nil
}
