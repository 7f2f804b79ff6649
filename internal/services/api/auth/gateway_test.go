package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/NordCoder/firmbook/internal/requestctx"
	"github.com/NordCoder/firmbook/internal/services/api/httpx"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"BEARER abc", "abc", true},
		{"", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"Bearer abc def", "", false},
		{"Bearer  abc", "", false},
	}
	for _, tt := range tests {
		token, ok := BearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, "%q", tt.header)
		assert.Equal(t, tt.token, token, "%q", tt.header)
	}
}

type brokenList struct{}

func (brokenList) Add(context.Context, string, time.Duration) error { return errors.New("down") }
func (brokenList) IsBlacklisted(context.Context, string) (bool, error) {
	return false, errors.New("down")
}

func TestGateway_Authenticate(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	gw := NewGateway(h.minter, h.blacklist, nil)

	token, err := h.minter.GenerateAccessToken("u-1")
	require.NoError(t, err)

	id, ok := gw.Authenticate(ctx, "Bearer "+token)
	require.True(t, ok)
	assert.Equal(t, "u-1", id.UserID)
	assert.Equal(t, token, id.Token)

	_, ok = gw.Authenticate(ctx, "Bearer not-a-jwt")
	assert.False(t, ok)

	_, ok = gw.Authenticate(ctx, token)
	assert.False(t, ok, "missing scheme")

	_, ok = NewGateway(h.minter, brokenList{}, nil).Authenticate(ctx, "Bearer "+token)
	assert.False(t, ok, "lookup errors never attach")

	require.NoError(t, h.blacklist.Add(ctx, token, time.Minute))
	_, ok = gw.Authenticate(ctx, "Bearer "+token)
	assert.False(t, ok)
}

func newProtectedRouter(gw *Gateway) *gin.Engine {
	resp := httpx.NewResponder(false, nil)
	r := gin.New()
	r.Use(httpx.RequestID(), gw.Middleware())
	r.GET("/open", func(c *gin.Context) {
		uid, _ := requestctx.UserIDFrom(c.Request.Context())
		c.String(http.StatusOK, uid)
	})
	r.GET("/private", RequireAuth(resp), func(c *gin.Context) {
		uid, _ := requestctx.UserIDFrom(c.Request.Context())
		c.String(http.StatusOK, uid)
	})
	r.GET("/admin", RequireAdmin(resp), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestGateway_Middleware(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	r := newProtectedRouter(NewGateway(h.minter, h.blacklist, nil))
	token, err := h.minter.GenerateAccessToken("u-7")
	require.NoError(t, err)

	do := func(path, auth string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := do("/open", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	w = do("/open", "Bearer garbage")
	assert.Equal(t, http.StatusOK, w.Code, "bad tokens pass through anonymously")
	assert.Empty(t, w.Body.String())

	w = do("/open", "Bearer "+token)
	assert.Equal(t, "u-7", w.Body.String())

	w = do("/private", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")

	w = do("/private", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u-7", w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, do("/admin", "").Code)
	assert.Equal(t, http.StatusNoContent, do("/admin", "Bearer "+token).Code)
}
