package pool_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tagwatch/tagwatch/internal/database/types"
	"github.com/tagwatch/tagwatch/internal/metrics"
	"github.com/tagwatch/tagwatch/internal/pool"
	"github.com/tagwatch/tagwatch/internal/twitter"
	"go.uber.org/zap"
)

type fakeAccountStore struct {
	mu          sync.Mutex
	active      []*types.Account
	inactive    []*types.Account
	disabled    []string
	sessions    map[string]string
	reactivated int
}

func newFakeAccountStore(active ...*types.Account) *fakeAccountStore {
	return &fakeAccountStore{
		active:   active,
		sessions: make(map[string]string),
	}
}

func (s *fakeAccountStore) GetActive(_ context.Context) ([]*types.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*types.Account, len(s.active))
	copy(out, s.active)

	return out, nil
}

func (s *fakeAccountStore) MarkInactive(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.disabled = append(s.disabled, username)

	kept := s.active[:0]

	for _, account := range s.active {
		if account.Username == username {
			s.inactive = append(s.inactive, account)
		} else {
			kept = append(kept, account)
		}
	}

	s.active = kept

	return nil
}

func (s *fakeAccountStore) ReactivateAll(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := len(s.inactive)
	s.active = append(s.active, s.inactive...)
	s.inactive = nil
	s.reactivated += count

	return count, nil
}

func (s *fakeAccountStore) UpdateSession(_ context.Context, username, sessionToken, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[username] = sessionToken

	return nil
}

type fakeAuthenticator struct {
	mu         sync.Mutex
	failWith   map[string]error
	loginOrder []string
}

func (a *fakeAuthenticator) Login(_ context.Context, account *types.Account) (*twitter.Session, error) {
	a.mu.Lock()
	a.loginOrder = append(a.loginOrder, account.Username)
	a.mu.Unlock()

	if err, ok := a.failWith[account.Username]; ok {
		return nil, err
	}

	return &twitter.Session{
		Username:  account.Username,
		AuthToken: "token-" + account.Username,
		CSRFToken: "csrf-" + account.Username,
	}, nil
}

func testConfig() pool.Config {
	return pool.Config{
		MaxLoginAttempts:  1,
		LoginRetryDelay:   time.Millisecond,
		LoginRetryJitter:  0,
		ReactivationDelay: time.Millisecond,
	}
}

func account(username string) *types.Account {
	return &types.Account{Username: username, Password: "pw"}
}

func TestAcquireSkipsFailedLogins(t *testing.T) {
	t.Parallel()

	store := newFakeAccountStore(account("alpha"), account("bravo"), account("charlie"))
	authenticator := &fakeAuthenticator{failWith: map[string]error{
		"alpha": twitter.ErrAutomationTimeout,
		"bravo": twitter.ErrAutomationTimeout,
	}}

	manager := pool.NewManager(store, authenticator, metrics.New(), testConfig(), zap.NewNop())

	state := pool.NewState()

	client, err := manager.Acquire(t.Context(), state, pool.AcquireOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"charlie"}, client.Usernames())
	assert.True(t, state.HasFailed("alpha"))
	assert.True(t, state.HasFailed("bravo"))
	assert.False(t, state.HasFailed("charlie"))
	assert.ElementsMatch(t, []string{"alpha", "bravo"}, store.disabled)
	assert.Equal(t, "token-charlie", store.sessions["charlie"])
}

func TestAcquireRejectedCredentialsAreTerminal(t *testing.T) {
	t.Parallel()

	store := newFakeAccountStore(account("alpha"))
	authenticator := &fakeAuthenticator{failWith: map[string]error{
		"alpha": twitter.ErrAuthFailed,
	}}

	config := testConfig()
	config.MaxLoginAttempts = 3

	manager := pool.NewManager(store, authenticator, metrics.New(), config, zap.NewNop())

	client, err := manager.Acquire(t.Context(), pool.NewState(), pool.AcquireOptions{})
	require.NoError(t, err)

	assert.Empty(t, client.Usernames())
	assert.Len(t, authenticator.loginOrder, 1, "rejected credentials must not be retried")
}

func TestAcquireTimeoutsRetryUntilAttemptsExhausted(t *testing.T) {
	t.Parallel()

	store := newFakeAccountStore(account("alpha"))
	authenticator := &fakeAuthenticator{failWith: map[string]error{
		"alpha": twitter.ErrAutomationTimeout,
	}}

	config := testConfig()
	config.MaxLoginAttempts = 3

	manager := pool.NewManager(store, authenticator, metrics.New(), config, zap.NewNop())

	client, err := manager.Acquire(t.Context(), pool.NewState(), pool.AcquireOptions{})
	require.NoError(t, err)

	assert.Empty(t, client.Usernames())
	assert.Len(t, authenticator.loginOrder, 3)
}

func TestAcquireReactivatesLockedOutFleet(t *testing.T) {
	t.Parallel()

	store := newFakeAccountStore()
	store.inactive = []*types.Account{account("alpha"), account("bravo")}

	authenticator := &fakeAuthenticator{}

	manager := pool.NewManager(store, authenticator, metrics.New(), testConfig(), zap.NewNop())

	client, err := manager.Acquire(t.Context(), pool.NewState(), pool.AcquireOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, store.reactivated)
	assert.ElementsMatch(t, []string{"alpha", "bravo"}, client.Usernames())
}

func TestAcquirePartitionsFleet(t *testing.T) {
	t.Parallel()

	usernames := []string{"alpha", "bravo", "charlie", "delta", "echo"}

	var bound [][]string

	for index := range 2 {
		store := newFakeAccountStore(
			account("alpha"), account("bravo"), account("charlie"),
			account("delta"), account("echo"),
		)

		config := testConfig()
		config.PartitionIndex = index
		config.PartitionCount = 2

		manager := pool.NewManager(store, &fakeAuthenticator{}, metrics.New(), config, zap.NewNop())

		client, err := manager.Acquire(t.Context(), pool.NewState(), pool.AcquireOptions{})
		require.NoError(t, err)

		bound = append(bound, client.Usernames())
	}

	for _, username := range bound[0] {
		assert.NotContains(t, bound[1], username, "partitions must not share accounts")
	}

	assert.ElementsMatch(t, usernames, append(append([]string{}, bound[0]...), bound[1]...),
		"partitions together cover the fleet")
}

func TestAcquireExcludesAndPrefers(t *testing.T) {
	t.Parallel()

	store := newFakeAccountStore(account("alpha"), account("bravo"), account("charlie"))
	authenticator := &fakeAuthenticator{}

	manager := pool.NewManager(store, authenticator, metrics.New(), testConfig(), zap.NewNop())

	client, err := manager.Acquire(t.Context(), pool.NewState(), pool.AcquireOptions{
		Exclude: map[string]struct{}{"bravo": {}},
		Prefer:  map[string]struct{}{"charlie": {}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"charlie", "alpha"}, client.Usernames())
	assert.Equal(t, []string{"charlie", "alpha"}, authenticator.loginOrder)
}
