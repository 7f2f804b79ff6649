package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	authcore "github.com/NordCoder/firmbook/internal/auth"
	"github.com/NordCoder/firmbook/internal/domain/outbox"
	"github.com/NordCoder/firmbook/internal/domain/user"
	redisrepo "github.com/NordCoder/firmbook/internal/repository/redis"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func init() { gin.SetMode(gin.TestMode) }

type memUsers struct {
	mu      sync.Mutex
	byID    map[string]*user.User
	byEmail map[string]string
	byPhone map[string]string
	failing error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*user.User{}, byEmail: map[string]string{}, byPhone: map[string]string{}}
}

func (m *memUsers) Create(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing != nil {
		return m.failing
	}
	if _, ok := m.byEmail[u.Email]; ok {
		return &user.DuplicateError{Field: "email"}
	}
	if _, ok := m.byPhone[u.Phone]; ok {
		return &user.DuplicateError{Field: "phone"}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.byID[u.ID] = &cp
	m.byEmail[u.Email] = u.ID
	m.byPhone[u.Phone] = u.ID
	return nil
}

func (m *memUsers) get(id string, ok bool) (*user.User, error) {
	if !ok {
		return nil, user.ErrNotFound
	}
	u, found := m.byID[id]
	if !found {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(id, true)
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[email]
	return m.get(id, ok)
}

func (m *memUsers) GetByPhone(_ context.Context, phone string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byPhone[phone]
	return m.get(id, ok)
}

func (m *memUsers) delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
}

type memOutbox struct {
	mu   sync.Mutex
	msgs []outbox.Message
	err  error
}

func (o *memOutbox) Enqueue(_ context.Context, m outbox.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.msgs = append(o.msgs, m)
	return nil
}

func (o *memOutbox) PickBatch(context.Context, int, time.Duration) ([]outbox.Message, error) {
	return nil, nil
}

func (o *memOutbox) MarkSuccess(context.Context, []string) error { return nil }

type countingTx struct {
	calls int
}

func (t *countingTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

type harness struct {
	uc        *Usecase
	users     *memUsers
	minter    *authcore.Minter
	blacklist *redisrepo.Blacklist
	mini      *miniredis.Miniredis
	outbox    *memOutbox
	tx        *countingTx
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	mini := miniredis.RunT(t)
	client, err := redisrepo.New(context.Background(), redisrepo.Config{URL: "redis://" + mini.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	minter, err := authcore.NewMinter(redisrepo.NewRefreshRegistry(client), authcore.Config{
		Secret:     []byte(testSecret),
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	})
	require.NoError(t, err)

	h := &harness{
		users:     newMemUsers(),
		minter:    minter,
		blacklist: redisrepo.NewBlacklist(client),
		mini:      mini,
		outbox:    &memOutbox{},
		tx:        &countingTx{},
	}
	h.uc = NewUseCase(Deps{
		Users:     h.users,
		Hasher:    authcore.NewBcryptHasher(bcrypt.MinCost),
		Minter:    minter,
		Blacklist: h.blacklist,
		Tx:        h.tx,
		Outbox:    h.outbox,
	})
	return h
}
