package auth

import (
	"context"
	"strings"

	"github.com/NordCoder/firmbook/internal/apperr"
	domainauth "github.com/NordCoder/firmbook/internal/domain/auth"
	"github.com/NordCoder/firmbook/internal/obs"
	"github.com/NordCoder/firmbook/internal/requestctx"
	"github.com/NordCoder/firmbook/internal/services/api/httpx"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TokenParser interface {
	ParseAccess(token string) (string, error)
}

// Gateway decides per request whether a bearer token identifies a user.
// It never rejects; protected routes add RequireAuth.
type Gateway struct {
	parser    TokenParser
	blacklist domainauth.RevocationList
	log       *zap.Logger
}

func NewGateway(parser TokenParser, blacklist domainauth.RevocationList, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{parser: parser, blacklist: blacklist, log: log}
}

// BearerToken accepts exactly "<scheme> <token>" with a case-insensitive
// bearer scheme.
func BearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// Authenticate checks the revocation list before the signature.
func (g *Gateway) Authenticate(ctx context.Context, header string) (domainauth.Identity, bool) {
	token, ok := BearerToken(header)
	if !ok {
		obs.ObserveGateway("none")
		return domainauth.Identity{}, false
	}

	revoked, err := g.blacklist.IsBlacklisted(ctx, token)
	if err != nil {
		obs.ObserveGateway("error")
		obs.WithTrace(ctx, g.log).Warn("gateway: blacklist lookup", zap.Error(err))
		return domainauth.Identity{}, false
	}
	if revoked {
		obs.ObserveGateway("blacklisted")
		return domainauth.Identity{}, false
	}

	uid, err := g.parser.ParseAccess(token)
	if err != nil {
		obs.ObserveGateway("invalid")
		return domainauth.Identity{}, false
	}
	obs.ObserveGateway("attached")
	return domainauth.Identity{UserID: uid, Token: token}, true
}

func (g *Gateway) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if id, ok := g.Authenticate(ctx, c.GetHeader("Authorization")); ok {
			c.Request = c.Request.WithContext(requestctx.WithIdentity(ctx, id))
		}
		c.Next()
	}
}

func RequireAuth(resp *httpx.Responder) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requestctx.IdentityFrom(c.Request.Context()); !ok {
			resp.Error(c, apperr.Unauthorized("login required"))
			return
		}
		c.Next()
	}
}

// RequireAdmin has no role model behind it yet and only demands a login.
func RequireAdmin(resp *httpx.Responder) gin.HandlerFunc {
	return RequireAuth(resp)
}
