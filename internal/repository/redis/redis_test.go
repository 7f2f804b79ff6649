package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	domainauth "github.com/NordCoder/firmbook/internal/domain/auth"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mini := miniredis.RunT(t)

	c, err := New(context.Background(), Config{URL: "redis://" + mini.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mini
}

func TestNew_BadURL(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{URL: "http://nope"})
	require.Error(t, err)
}

func TestRefreshRegistry_SaveVerifyRevoke(t *testing.T) {
	t.Parallel()

	c, mini := newTestClient(t)
	reg := NewRefreshRegistry(c)
	ctx := context.Background()

	s := domainauth.RefreshSession{UserID: "u1", SessionID: "s1", Secret: "abc", TTL: time.Hour}
	require.NoError(t, reg.Save(ctx, s))

	got, err := mini.Get("rt:u1:s1")
	require.NoError(t, err)
	assert.Equal(t, "abc", got)
	assert.Equal(t, time.Hour, mini.TTL("rt:u1:s1"))

	ok, err := reg.Verify(ctx, "u1", "s1", "abc")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = reg.Verify(ctx, "u1", "s1", "ab")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = reg.Verify(ctx, "u2", "s1", "abc")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, reg.Revoke(ctx, "u1", "s1"))
	assert.False(t, mini.Exists("rt:u1:s1"))
	require.NoError(t, reg.Revoke(ctx, "u1", "s1"), "revoke is idempotent")
}

func TestRefreshRegistry_Expires(t *testing.T) {
	t.Parallel()

	c, mini := newTestClient(t)
	reg := NewRefreshRegistry(c)
	ctx := context.Background()

	require.NoError(t, reg.Save(ctx, domainauth.RefreshSession{UserID: "u1", SessionID: "s1", Secret: "abc", TTL: time.Minute}))
	mini.FastForward(2 * time.Minute)

	ok, err := reg.Verify(ctx, "u1", "s1", "abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRefreshRegistry_Consume(t *testing.T) {
	t.Parallel()

	c, mini := newTestClient(t)
	reg := NewRefreshRegistry(c)
	ctx := context.Background()

	require.NoError(t, reg.Save(ctx, domainauth.RefreshSession{UserID: "u1", SessionID: "s1", Secret: "abc", TTL: time.Hour}))

	ok, err := reg.Consume(ctx, "u1", "s1", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, mini.Exists("rt:u1:s1"), "mismatch leaves the entry alone")

	ok, err = reg.Consume(ctx, "u1", "s1", "abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, mini.Exists("rt:u1:s1"))

	ok, err = reg.Consume(ctx, "u1", "s1", "abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRefreshRegistry_ConcurrentConsume(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t)
	reg := NewRefreshRegistry(c)
	ctx := context.Background()
	require.NoError(t, reg.Save(ctx, domainauth.RefreshSession{UserID: "u1", SessionID: "s1", Secret: "abc", TTL: time.Hour}))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := reg.Consume(ctx, "u1", "s1", "abc")
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestBlacklist(t *testing.T) {
	t.Parallel()

	c, mini := newTestClient(t)
	bl := NewBlacklist(c)
	ctx := context.Background()

	ok, err := bl.IsBlacklisted(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, bl.Add(ctx, "tok", 15*time.Minute))
	got, err := mini.Get("blacklist:tok")
	require.NoError(t, err)
	assert.Equal(t, "1", got)
	assert.Equal(t, 15*time.Minute, mini.TTL("blacklist:tok"))

	ok, err = bl.IsBlacklisted(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, ok)

	mini.FastForward(16 * time.Minute)
	ok, err = bl.IsBlacklisted(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBlacklist_OtherValueIsNotAMarker(t *testing.T) {
	t.Parallel()

	c, mini := newTestClient(t)
	require.NoError(t, mini.Set("blacklist:tok", "0"))

	ok, err := NewBlacklist(c).IsBlacklisted(context.Background(), "tok")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_Ping(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t)
	require.NoError(t, c.Ping(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, c.Ping(ctx))
}
