package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/NordCoder/firmbook/internal/domain/events"
	"github.com/NordCoder/firmbook/internal/domain/outbox"
	"github.com/NordCoder/firmbook/internal/obs/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRepo struct {
	mu      sync.Mutex
	pending []outbox.Message
	marked  []string
	done    chan struct{}
}

func (r *fakeRepo) Enqueue(_ context.Context, m outbox.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, m)
	return nil
}

func (r *fakeRepo) PickBatch(_ context.Context, batch int, _ time.Duration) ([]outbox.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if batch > len(r.pending) {
		batch = len(r.pending)
	}
	out := r.pending[:batch]
	r.pending = r.pending[batch:]
	return out, nil
}

func (r *fakeRepo) MarkSuccess(_ context.Context, keys []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(keys) == 0 {
		return nil
	}
	r.marked = append(r.marked, keys...)
	select {
	case r.done <- struct{}{}:
	default:
	}
	return nil
}

type fakePublisher struct {
	mu    sync.Mutex
	fails int
	got   []events.UserRegistered
}

func (p *fakePublisher) PublishUserRegistered(_ context.Context, e events.UserRegistered) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fails > 0 {
		p.fails--
		return errors.New("temporary")
	}
	p.got = append(p.got, e)
	return nil
}

func fastPolicy() retry.Policy {
	return retry.Policy{
		Name:     "test",
		Attempts: 3,
		Backoff:  retry.ExpoJitter{Base: time.Millisecond, Max: 5 * time.Millisecond},
	}
}

func TestGlobalHandler_RetriesThenPublishes(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{fails: 2}
	h, err := MakeGlobalOutboxHandler(pub, fastPolicy())(outbox.KindUserRegistered)
	require.NoError(t, err)

	data, err := json.Marshal(events.UserRegistered{Type: events.TypeUserRegistered, UserID: "u1"})
	require.NoError(t, err)
	require.NoError(t, h(context.Background(), data))
	require.Len(t, pub.got, 1)
	assert.Equal(t, "u1", pub.got[0].UserID)
}

func TestGlobalHandler_UnknownKind(t *testing.T) {
	t.Parallel()

	_, err := MakeGlobalOutboxHandler(&fakePublisher{}, fastPolicy())(outbox.Kind(99))
	require.Error(t, err)
}

func TestGlobalHandler_BadPayload(t *testing.T) {
	t.Parallel()

	h, err := MakeGlobalOutboxHandler(&fakePublisher{}, fastPolicy())(outbox.KindUserRegistered)
	require.NoError(t, err)
	err = h(context.Background(), []byte("{"))
	require.ErrorIs(t, err, ErrBadPayload)
	assert.Contains(t, err.Error(), "dispatch user_registered")
}

func TestWrapKindHandler_Attempts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"bad payload fails once", fmt.Errorf("%w: eof", ErrBadPayload), 1},
		{"transient error uses every attempt", errors.New("broker down"), 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			calls := 0
			h := WrapKindHandler(outbox.KindUserRegistered, func(context.Context, []byte) error {
				calls++
				return tc.err
			}, fastPolicy())

			err := h(context.Background(), nil)
			require.ErrorIs(t, err, tc.err)
			assert.Equal(t, tc.want, calls)
		})
	}
}

func TestNewMessage(t *testing.T) {
	t.Parallel()

	m, err := NewMessage(context.Background(), "user.registered:u1", outbox.KindUserRegistered, events.UserRegistered{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "user.registered:u1", m.IdempotencyKey)
	assert.Equal(t, outbox.StatusCreated, m.Status)
	assert.Contains(t, string(m.Data), `"userId":"u1"`)
}

func TestRunner_DispatchesAndMarks(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{done: make(chan struct{}, 1)}
	pub := &fakePublisher{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m, err := NewMessage(ctx, "k1", outbox.KindUserRegistered, events.UserRegistered{UserID: "u1"})
	require.NoError(t, err)
	require.NoError(t, repo.Enqueue(ctx, m))

	r := NewOutboxRunner(zap.NewNop(), repo, MakeGlobalOutboxHandler(pub, fastPolicy()), RunnerConfig{
		Workers:  1,
		WaitTime: 5 * time.Millisecond,
	})
	stopped := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(stopped)
	}()

	select {
	case <-repo.done:
	case <-time.After(2 * time.Second):
		t.Fatal("outbox message was not marked")
	}
	cancel()
	<-stopped

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Equal(t, []string{"k1"}, repo.marked)
	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.got, 1)
}
