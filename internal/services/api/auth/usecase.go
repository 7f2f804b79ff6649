package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NordCoder/firmbook/internal/apperr"
	authcore "github.com/NordCoder/firmbook/internal/auth"
	domainauth "github.com/NordCoder/firmbook/internal/domain/auth"
	"github.com/NordCoder/firmbook/internal/domain/events"
	"github.com/NordCoder/firmbook/internal/domain/outbox"
	"github.com/NordCoder/firmbook/internal/domain/user"
	"github.com/NordCoder/firmbook/internal/obs"
	outboxsvc "github.com/NordCoder/firmbook/internal/outbox"
	"go.uber.org/zap"
)

const (
	msgInvalidLogin   = "Invalid login data"
	msgInvalidRefresh = "Invalid refresh token"
	msgNoIdentity     = "User context not found"
)

type TokenMinter interface {
	GenerateAccessToken(userID string) (string, error)
	ParseAccess(token string) (string, error)
	GenerateRefreshToken(ctx context.Context, userID string) (domainauth.RefreshSession, error)
	ConsumeRefreshToken(ctx context.Context, userID, sessionID, secret string) (bool, error)
	RevokeRefreshToken(ctx context.Context, userID, sessionID string) error
	AccessTTL() time.Duration
}

type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Deps wires the usecase. Tx and Outbox are optional; without them
// registration writes only the user row.
type Deps struct {
	Users     user.Repo
	Hasher    authcore.Hasher
	Minter    TokenMinter
	Blacklist domainauth.RevocationList
	Tx        Transactor
	Outbox    outbox.Repository
	Logger    *zap.Logger
	Now       func() time.Time
}

type Usecase struct {
	users     user.Repo
	hasher    authcore.Hasher
	minter    TokenMinter
	blacklist domainauth.RevocationList
	tx        Transactor
	outbox    outbox.Repository
	log       *zap.Logger
	now       func() time.Time
}

func NewUseCase(d Deps) *Usecase {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Usecase{
		users:     d.Users,
		hasher:    d.Hasher,
		minter:    d.Minter,
		blacklist: d.Blacklist,
		tx:        d.Tx,
		outbox:    d.Outbox,
		log:       d.Logger,
		now:       d.Now,
	}
}

type PublicUser struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

type LoginResult struct {
	User           PublicUser `json:"user"`
	Token          string     `json:"token"`
	RefreshToken   string     `json:"refreshToken"`
	RefreshTokenID string     `json:"refreshTokenId"`
}

type RefreshResult struct {
	Token          string `json:"token"`
	RefreshTokenID string `json:"refreshTokenId"`
	RefreshToken   string `json:"refreshToken"`
}

func publicUser(u *user.User, withCreated bool) PublicUser {
	p := PublicUser{ID: u.ID, Email: u.Email, Phone: u.Phone}
	if withCreated {
		created := u.CreatedAt
		p.CreatedAt = &created
	}
	return p
}

func (uc *Usecase) Register(ctx context.Context, in RegisterInput) (out PublicUser, err error) {
	defer uc.observe("register", time.Now(), &err)

	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := validateStruct(in); err != nil {
		return PublicUser{}, err
	}

	hash, err := uc.hasher.Hash(in.Password)
	if err != nil {
		return PublicUser{}, apperr.Internal(err)
	}
	u := &user.User{
		Email:        normalizeEmail(in.Email),
		Phone:        normalizePhone(in.Phone),
		PasswordHash: hash,
	}

	if err := uc.withTx(ctx, func(ctx context.Context) error {
		if err := uc.users.Create(ctx, u); err != nil {
			return err
		}
		return uc.enqueueRegistered(ctx, u)
	}); err != nil {
		var dup *user.DuplicateError
		if errors.As(err, &dup) {
			return PublicUser{}, apperr.Duplicate(dup.Field)
		}
		return PublicUser{}, apperr.Internal(err)
	}

	obs.WithTrace(ctx, uc.log).Info("auth.register", zap.String("user_id", u.ID))
	return publicUser(u, true), nil
}

func (uc *Usecase) Login(ctx context.Context, in LoginInput) (out LoginResult, err error) {
	defer uc.observe("login", time.Now(), &err)

	if err := validateStruct(in); err != nil {
		return LoginResult{}, err
	}

	ident, isEmail := normalizeIdentifier(in.Identifier)
	var u *user.User
	if isEmail {
		u, err = uc.users.GetByEmail(ctx, ident)
	} else {
		u, err = uc.users.GetByPhone(ctx, ident)
	}
	if errors.Is(err, user.ErrNotFound) {
		return LoginResult{}, apperr.Unauthorized(msgInvalidLogin)
	}
	if err != nil {
		return LoginResult{}, apperr.Internal(err)
	}
	if !uc.hasher.Verify(in.Password, u.PasswordHash) {
		return LoginResult{}, apperr.Unauthorized(msgInvalidLogin)
	}

	access, session, err := uc.issue(ctx, u.ID)
	if err != nil {
		return LoginResult{}, err
	}

	obs.WithTrace(ctx, uc.log).Info("auth.login", zap.String("user_id", u.ID))
	return LoginResult{
		User:           publicUser(u, false),
		Token:          access,
		RefreshToken:   session.Secret,
		RefreshTokenID: session.SessionID,
	}, nil
}

// Refresh rotates a refresh session. The consume step is atomic, so of two
// concurrent calls with the same pair only one gets past it.
func (uc *Usecase) Refresh(ctx context.Context, userID string, in RefreshInput, oldAccessToken string) (out RefreshResult, err error) {
	defer uc.observe("refresh", time.Now(), &err)

	if err := validateStruct(in); err != nil {
		return RefreshResult{}, err
	}
	if userID == "" {
		return RefreshResult{}, apperr.Unauthorized(msgNoIdentity)
	}

	ok, err := uc.minter.ConsumeRefreshToken(ctx, userID, in.RefreshTokenID, in.RefreshToken)
	if err != nil {
		return RefreshResult{}, apperr.Internal(err)
	}
	if !ok {
		return RefreshResult{}, apperr.Unauthorized(msgInvalidRefresh)
	}

	access, session, err := uc.issue(ctx, userID)
	if err != nil {
		return RefreshResult{}, err
	}

	log := obs.WithTrace(ctx, uc.log)
	// The old session is already gone; a failed blacklist write must not
	// cost the caller the replacement pair.
	if oldAccessToken != "" {
		if err := uc.blacklist.Add(ctx, oldAccessToken, uc.minter.AccessTTL()); err != nil {
			log.Warn("refresh: blacklist old access", zap.String("user_id", userID), zap.Error(err))
		}
	}

	log.Info("auth.refresh", zap.String("user_id", userID))
	return RefreshResult{
		Token:          access,
		RefreshTokenID: session.SessionID,
		RefreshToken:   session.Secret,
	}, nil
}

// Logout is best effort and never fails. The session is revoked only when
// both ids are known; a presented access token is blacklisted as well.
func (uc *Usecase) Logout(ctx context.Context, userID string, in LogoutInput, accessToken string) {
	var err error
	defer uc.observe("logout", time.Now(), &err)

	log := obs.WithTrace(ctx, uc.log)
	sessionID := strings.TrimSpace(in.RefreshTokenID)
	if userID == "" {
		return
	}
	if sessionID != "" {
		if err = uc.minter.RevokeRefreshToken(ctx, userID, sessionID); err != nil {
			log.Warn("logout: revoke refresh", zap.String("user_id", userID), zap.Error(err))
		}
	}
	if accessToken != "" {
		if berr := uc.blacklist.Add(ctx, accessToken, uc.minter.AccessTTL()); berr != nil {
			err = berr
			log.Warn("logout: blacklist access", zap.String("user_id", userID), zap.Error(berr))
		}
	}
	log.Info("auth.logout", zap.String("user_id", userID))
}

func (uc *Usecase) Me(ctx context.Context, userID string) (out PublicUser, err error) {
	defer uc.observe("me", time.Now(), &err)

	if userID == "" {
		return PublicUser{}, apperr.Unauthorized(msgNoIdentity)
	}
	u, err := uc.users.GetByID(ctx, userID)
	if errors.Is(err, user.ErrNotFound) {
		return PublicUser{}, apperr.NotFound("user")
	}
	if err != nil {
		return PublicUser{}, apperr.Internal(err)
	}
	return publicUser(u, true), nil
}

func (uc *Usecase) issue(ctx context.Context, userID string) (string, domainauth.RefreshSession, error) {
	access, err := uc.minter.GenerateAccessToken(userID)
	if err != nil {
		return "", domainauth.RefreshSession{}, apperr.Internal(err)
	}
	session, err := uc.minter.GenerateRefreshToken(ctx, userID)
	if err != nil {
		return "", domainauth.RefreshSession{}, apperr.Internal(err)
	}
	return access, session, nil
}

func (uc *Usecase) withTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if uc.tx == nil {
		return fn(ctx)
	}
	return uc.tx.WithTx(ctx, fn)
}

func (uc *Usecase) enqueueRegistered(ctx context.Context, u *user.User) error {
	if uc.outbox == nil {
		return nil
	}
	ev := events.UserRegistered{
		Type:   events.TypeUserRegistered,
		UserID: u.ID,
		Email:  u.Email,
		At:     uc.now(),
	}
	msg, err := outboxsvc.NewMessage(ctx, events.TypeUserRegistered+":"+u.ID, outbox.KindUserRegistered, ev)
	if err != nil {
		return err
	}
	if err := uc.outbox.Enqueue(ctx, msg); err != nil {
		return fmt.Errorf("enqueue user registered: %w", err)
	}
	return nil
}

func (uc *Usecase) observe(op string, start time.Time, err *error) {
	result := "ok"
	if *err != nil {
		result = strings.ToLower(apperr.KindOf(*err).Code())
	}
	obs.ObserveAuth(op, result, time.Since(start))
}
