package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tagwatch/tagwatch/internal/database/types"
	"github.com/tagwatch/tagwatch/internal/metrics"
	"github.com/tagwatch/tagwatch/internal/pool"
	"github.com/tagwatch/tagwatch/internal/twitter"
	"go.uber.org/zap"
)

type fakeCampaigns struct {
	campaigns []*types.Campaign
	err       error
}

func (f *fakeCampaigns) GetActive(_ context.Context) ([]*types.Campaign, error) {
	return f.campaigns, f.err
}

type fakePosts struct {
	mu        sync.Mutex
	seen      map[string]struct{}
	stored    []*types.Post
	authors   map[uuid.UUID][]types.AuthorActivity
	authorErr error
	daily     map[string][]types.DailyActivity
	dailyErr  error
	processed []uuid.UUID
}

func newFakePosts() *fakePosts {
	return &fakePosts{
		seen:    make(map[string]struct{}),
		authors: make(map[uuid.UUID][]types.AuthorActivity),
		daily:   make(map[string][]types.DailyActivity),
	}
}

func (f *fakePosts) InsertBatch(_ context.Context, posts []*types.Post) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	inserted := 0

	for _, post := range posts {
		if _, ok := f.seen[post.URL]; ok {
			continue
		}

		f.seen[post.URL] = struct{}{}
		f.stored = append(f.stored, post)
		inserted++
	}

	return inserted
}

func (f *fakePosts) UnprocessedAuthorActivity(
	_ context.Context, campaignID uuid.UUID, _ time.Time,
) ([]types.AuthorActivity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.authors[campaignID], f.authorErr
}

func (f *fakePosts) MarkProcessed(_ context.Context, campaignID uuid.UUID, _ time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := len(f.authors[campaignID])
	delete(f.authors, campaignID)
	f.processed = append(f.processed, campaignID)

	return count, nil
}

func (f *fakePosts) DailyActivity(
	_ context.Context, _ uuid.UUID, group types.HashtagGroup, _ time.Time,
) ([]types.DailyActivity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.daily[groupKey(group)], f.dailyErr
}

func groupKey(group types.HashtagGroup) string {
	key := ""
	for _, tag := range group {
		key += tag + ","
	}

	return key
}

type fakeFlags struct {
	mu      sync.Mutex
	upserts []*types.FlaggedAccount
	err     error
}

func (f *fakeFlags) Upsert(_ context.Context, flag *types.FlaggedAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}

	f.upserts = append(f.upserts, flag)

	return nil
}

type fakeActivity struct {
	mu      sync.Mutex
	upserts []*types.HashtagActivity
}

func (f *fakeActivity) Upsert(_ context.Context, activity *types.HashtagActivity) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.upserts = append(f.upserts, activity)

	return nil
}

type fakeAccounts struct {
	added int
	err   error
}

func (f *fakeAccounts) CountAddedSince(_ context.Context, _ time.Time) (int, error) {
	return f.added, f.err
}

// fakeSearch serves canned tweets per query, popping scripted errors first.
type fakeSearch struct {
	mu        sync.Mutex
	results   map[string][]twitter.Tweet
	errs      []error
	usernames []string
	panicOn   string
	calls     int
}

func (f *fakeSearch) Search(_ context.Context, query string, _ int) ([]twitter.Tweet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++

	if f.panicOn != "" && query == f.panicOn {
		panic("scripted search panic")
	}

	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]

		return nil, err
	}

	return f.results[query], nil
}

func (f *fakeSearch) Usernames() []string {
	return f.usernames
}

// fakePool hands out scripted clients in order, repeating the last one.
type fakePool struct {
	mu      sync.Mutex
	clients []SearchClient
	optsLog []pool.AcquireOptions
	err     error
}

func (f *fakePool) Acquire(
	_ context.Context, _ *pool.State, opts pool.AcquireOptions,
) (SearchClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.optsLog = append(f.optsLog, opts)

	if f.err != nil {
		return nil, f.err
	}

	if len(f.clients) == 0 {
		return &fakeSearch{}, nil
	}

	client := f.clients[0]
	if len(f.clients) > 1 {
		f.clients = f.clients[1:]
	}

	return client, nil
}

func testWorker(stores Stores, sessions SessionPool, config Config) *Worker {
	return NewWorker(stores, sessions, nil, metrics.New(), config, zap.NewNop())
}

func testMonitorConfig() Config {
	config := DefaultConfig()
	config.GroupRetryDelay = time.Millisecond
	config.RecoveryCooldown = time.Millisecond
	config.PollInterval = time.Millisecond

	return config
}

func testStores(posts *fakePosts) Stores {
	return Stores{
		Campaigns: &fakeCampaigns{},
		Posts:     posts,
		Flags:     &fakeFlags{},
		Activity:  &fakeActivity{},
		Accounts:  &fakeAccounts{},
	}
}

func testCampaign(name string, groups ...types.HashtagGroup) *types.Campaign {
	return &types.Campaign{
		ID:            uuid.New(),
		Name:          name,
		HashtagGroups: groups,
		Active:        true,
	}
}
