package monitor

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tagwatch/tagwatch/internal/database/types"
	"github.com/tagwatch/tagwatch/internal/twitter"
)

func tweet(url, username string) twitter.Tweet {
	return twitter.Tweet{
		ID:        url,
		URL:       url,
		Username:  username,
		Content:   "caption",
		Hashtags:  []string{"#Alpha", "#Beta"},
		CreatedAt: time.Now(),
	}
}

func TestIngestGroupStoresAndDeduplicates(t *testing.T) {
	t.Parallel()

	group := types.HashtagGroup{"alpha", "beta"}
	campaign := testCampaign("launch", group)
	query := twitter.BuildQuery(group)

	posts := newFakePosts()
	posts.seen["u1"] = struct{}{} // already ingested in an earlier cycle

	w := testWorker(testStores(posts), &fakePool{}, testMonitorConfig())
	w.client = &fakeSearch{results: map[string][]twitter.Tweet{
		query: {tweet("u1", "author1"), tweet("u2", "author2")},
	}}

	require.NoError(t, w.ingestGroup(t.Context(), campaign, group))

	require.Len(t, posts.stored, 1)
	stored := posts.stored[0]
	assert.Equal(t, "u2", stored.URL)
	assert.Equal(t, campaign.ID, stored.CampaignID)
	assert.Equal(t, []string{"alpha", "beta"}, stored.Hashtags)
}

func TestIngestGroupAppliesAllowlist(t *testing.T) {
	t.Parallel()

	group := types.HashtagGroup{"alpha", "beta"}
	campaign := testCampaign("launch", group)
	campaign.TrackedAccounts = []string{"Watched"}

	query := twitter.BuildQuery(group)

	posts := newFakePosts()

	w := testWorker(testStores(posts), &fakePool{}, testMonitorConfig())
	w.client = &fakeSearch{results: map[string][]twitter.Tweet{
		query: {tweet("u1", "watched"), tweet("u2", "stranger")},
	}}

	require.NoError(t, w.ingestGroup(t.Context(), campaign, group))

	require.Len(t, posts.stored, 1)
	assert.Equal(t, "watched", posts.stored[0].Username)
}

func TestIngestGroupRotatesOnCapacityExhaustion(t *testing.T) {
	t.Parallel()

	group := types.HashtagGroup{"alpha", "beta"}
	campaign := testCampaign("launch", group)
	query := twitter.BuildQuery(group)

	posts := newFakePosts()

	fresh := &fakeSearch{
		usernames: []string{"second"},
		results: map[string][]twitter.Tweet{
			query: {tweet("u1", "author1")},
		},
	}

	sessions := &fakePool{clients: []SearchClient{fresh}}

	w := testWorker(testStores(posts), sessions, testMonitorConfig())
	w.client = &fakeSearch{
		usernames: []string{"first"},
		errs:      []error{&twitter.CapacityError{Username: "first"}},
	}

	require.NoError(t, w.ingestGroup(t.Context(), campaign, group))

	require.Len(t, posts.stored, 1, "the same group is retried with the fresh pool")
	assert.True(t, w.state.HasFailed("first"))
	assert.Contains(t, w.state.Used(), "first")

	require.Len(t, sessions.optsLog, 1)
	assert.Contains(t, sessions.optsLog[0].Exclude, "first", "rotation must exclude burned accounts")
}

func TestIngestGroupAbandonsWhenPoolRunsDry(t *testing.T) {
	t.Parallel()

	group := types.HashtagGroup{"alpha", "beta"}
	campaign := testCampaign("launch", group)

	posts := newFakePosts()

	empty := &fakeSearch{}
	sessions := &fakePool{clients: []SearchClient{empty}}

	w := testWorker(testStores(posts), sessions, testMonitorConfig())
	w.client = &fakeSearch{
		usernames: []string{"first"},
		errs:      []error{&twitter.CapacityError{Username: "first"}},
	}

	require.NoError(t, w.ingestGroup(t.Context(), campaign, group), "abandoning a group is not an error")
	assert.Empty(t, posts.stored)
}

func TestIngestGroupSkipsOnTransientError(t *testing.T) {
	t.Parallel()

	group := types.HashtagGroup{"alpha", "beta"}
	campaign := testCampaign("launch", group)

	posts := newFakePosts()

	w := testWorker(testStores(posts), &fakePool{}, testMonitorConfig())
	w.client = &fakeSearch{errs: []error{twitter.ErrTransient}}

	require.NoError(t, w.ingestGroup(t.Context(), campaign, group), "transient failures skip the group")
	assert.Empty(t, posts.stored)
}

func TestIngestGroupPropagatesUnknownErrors(t *testing.T) {
	t.Parallel()

	group := types.HashtagGroup{"alpha", "beta"}
	campaign := testCampaign("launch", group)

	boom := errors.New("boom")

	w := testWorker(testStores(newFakePosts()), &fakePool{}, testMonitorConfig())
	w.client = &fakeSearch{errs: []error{boom}}

	err := w.ingestGroup(t.Context(), campaign, group)
	require.ErrorIs(t, err, boom)
}
