// Package pool builds authenticated session pools from enrolled accounts,
// isolating per-account login failures so one bad account never blocks the
// rest of the fleet.
package pool

import (
	"context"
	"errors"
	"hash/fnv"
	"time"

	"github.com/tagwatch/tagwatch/internal/database/types"
	"github.com/tagwatch/tagwatch/internal/metrics"
	"github.com/tagwatch/tagwatch/internal/twitter"
	"github.com/tagwatch/tagwatch/internal/twitter/auth"
	"go.uber.org/zap"
)

// AccountStore is the slice of the account model the pool manager needs.
type AccountStore interface {
	GetActive(ctx context.Context) ([]*types.Account, error)
	MarkInactive(ctx context.Context, username string) error
	ReactivateAll(ctx context.Context) (int, error)
	UpdateSession(ctx context.Context, username, sessionToken, authCookies string) error
}

// Config bounds the login retry state machine and the lockout recovery path.
type Config struct {
	// MaxLoginAttempts bounds retries per account before it counts as failed.
	MaxLoginAttempts int
	// LoginRetryDelay is the linear backoff base between login attempts.
	LoginRetryDelay time.Duration
	// LoginRetryJitter is the random extra added to each login delay.
	LoginRetryJitter time.Duration
	// ReactivationDelay is the wait between the reactivation sweep and the
	// acquisition retry.
	ReactivationDelay time.Duration
	// PartitionIndex and PartitionCount split the account fleet across a
	// worker fan-out so no two workers log into the same account and
	// clobber each other's session material. A count of 1 disables the
	// split.
	PartitionIndex int
	PartitionCount int
}

// DefaultConfig returns the bounds used in production.
func DefaultConfig() Config {
	return Config{
		MaxLoginAttempts:  3,
		LoginRetryDelay:   5 * time.Second,
		LoginRetryJitter:  2 * time.Second,
		ReactivationDelay: 30 * time.Second,
		PartitionCount:    1,
	}
}

// AcquireOptions steers one pool acquisition. Excluded accounts are dropped;
// preferred accounts are tried before the rest but nothing is dropped for not
// being preferred.
type AcquireOptions struct {
	Exclude map[string]struct{}
	Prefer  map[string]struct{}
}

// Manager acquires and rotates authenticated session pools.
type Manager struct {
	store      AccountStore
	auth       auth.Authenticator
	metrics    *metrics.Collector
	config     Config
	clientOpts []twitter.Option
	logger     *zap.Logger
}

// NewManager creates a pool manager using the configured login strategy.
func NewManager(
	store AccountStore, authenticator auth.Authenticator, collector *metrics.Collector,
	config Config, logger *zap.Logger, clientOpts ...twitter.Option,
) *Manager {
	return &Manager{
		store:      store,
		auth:       authenticator,
		metrics:    collector,
		config:     config,
		clientOpts: clientOpts,
		logger:     logger.Named("pool"),
	}
}

// Acquire rebuilds the session pool in full: every eligible account is logged
// in from scratch and the returned client is bound to however many sessions
// succeeded. Zero sessions is a valid result the caller must treat as "no
// capacity this cycle". Accounts whose login fails are marked inactive,
// recorded in the run state, and skipped; they never abort acquisition.
func (m *Manager) Acquire(ctx context.Context, state *State, opts AcquireOptions) (*twitter.Client, error) {
	accounts, err := m.eligibleAccounts(ctx)
	if err != nil {
		return nil, err
	}

	accounts = m.filterPartition(accounts)
	accounts = filterExcluded(accounts, opts.Exclude)
	accounts = preferFirst(accounts, opts.Prefer)

	sessions := make([]*twitter.Session, 0, len(accounts))

	for _, account := range accounts {
		session, err := m.login(ctx, account)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			m.metrics.LoginFailures.Inc()
			state.MarkFailed(account.Username)

			if markErr := m.store.MarkInactive(ctx, account.Username); markErr != nil {
				m.logger.Error("Failed to disable account",
					zap.String("username", account.Username),
					zap.Error(markErr))
			}

			m.logger.Warn("Account failed login, skipping for this cycle",
				zap.String("username", account.Username),
				zap.Error(err))

			continue
		}

		m.metrics.LoginSuccesses.Inc()

		if err := m.store.UpdateSession(ctx, account.Username, session.AuthToken, session.AuthCookies); err != nil {
			m.logger.Error("Failed to persist session material",
				zap.String("username", account.Username),
				zap.Error(err))
		}

		sessions = append(sessions, session)
	}

	m.logger.Info("Pool acquired",
		zap.Int("sessions", len(sessions)),
		zap.Int("candidates", len(accounts)))

	return twitter.NewClient(sessions, m.logger, m.clientOpts...), nil
}

// eligibleAccounts loads the active fleet. An empty fleet triggers a
// reactivation sweep and one delayed retry to recover from a fleet-wide
// lockout.
func (m *Manager) eligibleAccounts(ctx context.Context) ([]*types.Account, error) {
	accounts, err := m.store.GetActive(ctx)
	if err != nil {
		return nil, err
	}

	if len(accounts) > 0 {
		return accounts, nil
	}

	reactivated, err := m.store.ReactivateAll(ctx)
	if err != nil {
		return nil, err
	}

	m.logger.Warn("No active accounts, ran reactivation sweep",
		zap.Int("reactivated", reactivated))

	if err := sleepCtx(ctx, m.config.ReactivationDelay); err != nil {
		return nil, err
	}

	return m.store.GetActive(ctx)
}

// login is the bounded retry state machine around one account's login.
// Rejected credentials are terminal immediately; automation timeouts retry
// with a linearly increasing jittered delay until attempts run out.
func (m *Manager) login(ctx context.Context, account *types.Account) (*twitter.Session, error) {
	var lastErr error

	for attempt := 1; attempt <= m.config.MaxLoginAttempts; attempt++ {
		session, err := m.auth.Login(ctx, account)
		if err == nil {
			return session, nil
		}

		lastErr = err

		if errors.Is(err, twitter.ErrAuthFailed) {
			return nil, err
		}

		if attempt < m.config.MaxLoginAttempts {
			delay := LoginDelay(attempt, m.config.LoginRetryDelay, m.config.LoginRetryJitter)

			m.logger.Debug("Login attempt failed, backing off",
				zap.String("username", account.Username),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err))

			if err := sleepCtx(ctx, delay); err != nil {
				return nil, err
			}
		}
	}

	return nil, lastErr
}

// filterPartition keeps only the accounts this manager's partition owns.
// Usernames hash stably onto partition indexes so concurrent workers never
// share a session.
func (m *Manager) filterPartition(accounts []*types.Account) []*types.Account {
	if m.config.PartitionCount <= 1 {
		return accounts
	}

	kept := make([]*types.Account, 0, len(accounts))

	for _, account := range accounts {
		h := fnv.New32a()
		h.Write([]byte(account.Username))

		if int(h.Sum32()%uint32(m.config.PartitionCount)) == m.config.PartitionIndex {
			kept = append(kept, account)
		}
	}

	return kept
}

func filterExcluded(accounts []*types.Account, exclude map[string]struct{}) []*types.Account {
	if len(exclude) == 0 {
		return accounts
	}

	kept := make([]*types.Account, 0, len(accounts))

	for _, account := range accounts {
		if _, ok := exclude[account.Username]; !ok {
			kept = append(kept, account)
		}
	}

	return kept
}

// preferFirst stable-partitions accounts so preferred ones are tried first.
func preferFirst(accounts []*types.Account, prefer map[string]struct{}) []*types.Account {
	if len(prefer) == 0 {
		return accounts
	}

	ordered := make([]*types.Account, 0, len(accounts))

	for _, account := range accounts {
		if _, ok := prefer[account.Username]; ok {
			ordered = append(ordered, account)
		}
	}

	for _, account := range accounts {
		if _, ok := prefer[account.Username]; !ok {
			ordered = append(ordered, account)
		}
	}

	return ordered
}

// sleepCtx waits for the duration unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
