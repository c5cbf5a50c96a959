// Package monitor runs the polling engine: it sweeps active campaigns,
// ingests matching posts through the session pool, and applies the
// flagged-account and surge detectors to what was stored.
package monitor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tagwatch/tagwatch/internal/database/types"
	"github.com/tagwatch/tagwatch/internal/pool"
	"github.com/tagwatch/tagwatch/internal/twitter"
)

// SearchClient is the slice of the platform client the monitor needs.
type SearchClient interface {
	Search(ctx context.Context, query string, limit int) ([]twitter.Tweet, error)
	Usernames() []string
}

// SessionPool acquires search clients bound to authenticated sessions.
type SessionPool interface {
	Acquire(ctx context.Context, state *pool.State, opts pool.AcquireOptions) (SearchClient, error)
}

// ManagerPool adapts the concrete pool manager to the SessionPool interface.
type ManagerPool struct {
	Manager *pool.Manager
}

// Acquire delegates to the wrapped manager.
func (p ManagerPool) Acquire(
	ctx context.Context, state *pool.State, opts pool.AcquireOptions,
) (SearchClient, error) {
	return p.Manager.Acquire(ctx, state, opts)
}

// CampaignStore lists the campaigns to monitor.
type CampaignStore interface {
	GetActive(ctx context.Context) ([]*types.Campaign, error)
}

// PostStore stores ingested posts and serves the detector aggregations.
type PostStore interface {
	InsertBatch(ctx context.Context, posts []*types.Post) int
	UnprocessedAuthorActivity(ctx context.Context, campaignID uuid.UUID, since time.Time) ([]types.AuthorActivity, error)
	MarkProcessed(ctx context.Context, campaignID uuid.UUID, since time.Time) (int, error)
	DailyActivity(ctx context.Context, campaignID uuid.UUID, group types.HashtagGroup, since time.Time) ([]types.DailyActivity, error)
}

// FlagStore records flagged authors.
type FlagStore interface {
	Upsert(ctx context.Context, flag *types.FlaggedAccount) error
}

// ActivityStore records surge alerts.
type ActivityStore interface {
	Upsert(ctx context.Context, activity *types.HashtagActivity) error
}

// AccountCounter detects mid-run account enrollments.
type AccountCounter interface {
	CountAddedSince(ctx context.Context, since time.Time) (int, error)
}

// TaskReporter receives coarse progress updates for the status heartbeat.
// A nil reporter is valid and disables reporting.
type TaskReporter interface {
	UpdateTask(task string)
	SetHealthy(healthy bool)
}

// Stores bundles the database models the worker reads and writes.
type Stores struct {
	Campaigns CampaignStore
	Posts     PostStore
	Flags     FlagStore
	Activity  ActivityStore
	Accounts  AccountCounter
}

// Config bounds the polling cadence and the detector windows.
type Config struct {
	// PollInterval is the target time between cycle starts.
	PollInterval time.Duration
	// RecoveryCooldown is the wait after a failed cycle before the pool is
	// rebuilt and polling resumes.
	RecoveryCooldown time.Duration
	// SearchPageSize caps how many posts one hashtag group fetch returns.
	SearchPageSize int
	// GroupRetryDelay is the pause after a transient search failure before
	// the next group is tried.
	GroupRetryDelay time.Duration
	// FlagWindow is the trailing window the flagged-account detector scans.
	FlagWindow time.Duration
	// FlagThreshold is the minimum posts per author inside FlagWindow.
	FlagThreshold int
	// SurgeWindowDays is how many trailing days the surge detector loads.
	SurgeWindowDays int
	// SurgeThreshold is the minimum newest-day volume for a surge.
	SurgeThreshold int
	// WorkerIndex and WorkerCount partition campaigns across a worker
	// fan-out so no two workers sweep the same campaign. A count of 1
	// assigns everything to this worker.
	WorkerIndex int
	WorkerCount int
}

// DefaultConfig returns the production cadence and detector bounds.
func DefaultConfig() Config {
	return Config{
		PollInterval:     5 * time.Minute,
		RecoveryCooldown: 1 * time.Minute,
		SearchPageSize:   100,
		GroupRetryDelay:  5 * time.Second,
		FlagWindow:       1 * time.Hour,
		FlagThreshold:    2,
		SurgeWindowDays:  7,
		SurgeThreshold:   20,
		WorkerCount:      1,
	}
}
