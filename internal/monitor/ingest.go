package monitor

import (
	"context"
	"errors"
	"strings"

	"github.com/tagwatch/tagwatch/internal/database/types"
	"github.com/tagwatch/tagwatch/internal/pool"
	"github.com/tagwatch/tagwatch/internal/twitter"
	"go.uber.org/zap"
)

// ingestCampaign fetches and stores matching posts for every hashtag group of
// the campaign.
func (w *Worker) ingestCampaign(ctx context.Context, campaign *types.Campaign) error {
	for _, group := range campaign.HashtagGroups {
		if err := w.ingestGroup(ctx, campaign, group); err != nil {
			return err
		}
	}

	return nil
}

// ingestGroup runs one group's search. Capacity exhaustion rotates the pool
// and retries the same group until it succeeds or the pool runs dry;
// transient failures skip the group for this cycle after a short pause.
func (w *Worker) ingestGroup(ctx context.Context, campaign *types.Campaign, group types.HashtagGroup) error {
	query := twitter.BuildQuery(group)

	for {
		tweets, err := w.client.Search(ctx, query, w.config.SearchPageSize)
		if err != nil {
			switch {
			case twitter.IsCapacityExhausted(err):
				rotated, rotateErr := w.rotatePool(ctx, err)
				if rotateErr != nil {
					return rotateErr
				}

				if !rotated {
					w.logger.Warn("No session capacity left, abandoning hashtag group",
						zap.Strings("group", group))
					return nil
				}

				continue

			case errors.Is(err, twitter.ErrTransient):
				w.logger.Warn("Transient search failure, skipping hashtag group",
					zap.Strings("group", group),
					zap.Error(err))

				return sleepCtx(ctx, w.config.GroupRetryDelay)

			default:
				return err
			}
		}

		w.storeTweets(ctx, campaign, group, tweets)

		return nil
	}
}

// rotatePool swaps exhausted sessions for fresh ones. Every account bound to
// the exhausted client is recorded as used and failed, then a new pool is
// acquired excluding everything already used this run. Returns false when the
// fleet has no capacity left.
func (w *Worker) rotatePool(ctx context.Context, cause error) (bool, error) {
	w.logger.Info("Session pool exhausted, rotating",
		zap.String("lastExhausted", twitter.ExhaustedUsername(cause)))

	for _, username := range w.client.Usernames() {
		w.state.MarkUsed(username)
		w.state.MarkFailed(username)
	}

	w.metrics.PoolRotations.Inc()

	client, err := w.sessions.Acquire(ctx, w.state, pool.AcquireOptions{
		Exclude: w.state.Used(),
	})
	if err != nil {
		return false, err
	}

	w.client = client

	return len(client.Usernames()) > 0, nil
}

// storeTweets filters results through the campaign's tracked-account
// allowlist and stores what remains. Already seen URLs are counted as
// duplicates, not stored twice.
func (w *Worker) storeTweets(
	ctx context.Context, campaign *types.Campaign, group types.HashtagGroup, tweets []twitter.Tweet,
) {
	allowed := allowlist(campaign.TrackedAccounts)

	posts := make([]*types.Post, 0, len(tweets))

	for i := range tweets {
		if allowed != nil {
			if _, ok := allowed[strings.ToLower(tweets[i].Username)]; !ok {
				continue
			}
		}

		posts = append(posts, tweets[i].ToPost(campaign.ID))
	}

	inserted := w.stores.Posts.InsertBatch(ctx, posts)

	w.metrics.PostsIngested.Add(float64(inserted))
	w.metrics.PostsDuplicate.Add(float64(len(posts) - inserted))

	w.logger.Debug("Stored group results",
		zap.String("campaign", campaign.Name),
		zap.Strings("group", group),
		zap.Int("fetched", len(tweets)),
		zap.Int("kept", len(posts)),
		zap.Int("inserted", inserted))
}

// allowlist builds a lower-cased lookup set, or nil when the campaign tracks
// every author.
func allowlist(usernames []string) map[string]struct{} {
	if len(usernames) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(usernames))
	for _, username := range usernames {
		set[strings.ToLower(username)] = struct{}{}
	}

	return set
}
