package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainauth "github.com/NordCoder/firmbook/internal/domain/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const MinSecretLen = 32

var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrWeakSecret   = fmt.Errorf("jwt secret must be at least %d characters", MinSecretLen)
)

type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

// Minter signs access tokens and issues refresh sessions into the registry.
type Minter struct {
	cfg      Config
	registry domainauth.RefreshRegistry
}

func NewMinter(registry domainauth.RefreshRegistry, cfg Config) (*Minter, error) {
	if len(cfg.Secret) < MinSecretLen {
		return nil, ErrWeakSecret
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Minter{cfg: cfg, registry: registry}, nil
}

func (m *Minter) AccessTTL() time.Duration { return m.cfg.AccessTTL }

func (m *Minter) GenerateAccessToken(userID string) (string, error) {
	now := m.cfg.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.AccessTTL)),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign access: %w", err)
	}
	return signed, nil
}

// ParseAccess returns the subject of a validly signed, unexpired token.
func (m *Minter) ParseAccess(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return m.cfg.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.cfg.Now),
	)
	if err != nil || claims.Subject == "" {
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}

func (m *Minter) GenerateRefreshToken(ctx context.Context, userID string) (domainauth.RefreshSession, error) {
	secret, err := newRefreshSecret()
	if err != nil {
		return domainauth.RefreshSession{}, fmt.Errorf("gen refresh secret: %w", err)
	}
	s := domainauth.RefreshSession{
		UserID:    userID,
		SessionID: newSessionID(),
		Secret:    secret,
		TTL:       m.cfg.RefreshTTL,
	}
	if err := m.registry.Save(ctx, s); err != nil {
		return domainauth.RefreshSession{}, fmt.Errorf("save refresh: %w", err)
	}
	return s, nil
}

func (m *Minter) VerifyRefreshToken(ctx context.Context, userID, sessionID, secret string) (bool, error) {
	return m.registry.Verify(ctx, userID, sessionID, secret)
}

func (m *Minter) ConsumeRefreshToken(ctx context.Context, userID, sessionID, secret string) (bool, error) {
	return m.registry.Consume(ctx, userID, sessionID, secret)
}

func (m *Minter) RevokeRefreshToken(ctx context.Context, userID, sessionID string) error {
	return m.registry.Revoke(ctx, userID, sessionID)
}
