package auth

import (
	"context"
	"time"
)

type RefreshRegistry interface {
	Save(ctx context.Context, s RefreshSession) error
	Verify(ctx context.Context, userID, sessionID, secret string) (bool, error)
	// Consume deletes the entry only if it holds secret. At most one caller
	// observes true for a given pair.
	Consume(ctx context.Context, userID, sessionID, secret string) (bool, error)
	Revoke(ctx context.Context, userID, sessionID string) error
}

type RevocationList interface {
	Add(ctx context.Context, token string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, token string) (bool, error)
}
