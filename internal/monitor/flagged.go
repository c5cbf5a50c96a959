package monitor

import (
	"context"
	"time"

	"github.com/tagwatch/tagwatch/internal/database/types"
	"go.uber.org/zap"
)

// flagAuthors runs the short-window frequency detector for one campaign:
// authors with enough unprocessed posts inside the trailing window are
// flagged, then every unprocessed post in the window is marked processed so
// the same posts are never counted twice. Returns how many authors were
// flagged this pass.
func (w *Worker) flagAuthors(ctx context.Context, campaign *types.Campaign) (int, error) {
	since := time.Now().Add(-w.config.FlagWindow)

	authors, err := w.stores.Posts.UnprocessedAuthorActivity(ctx, campaign.ID, since)
	if err != nil {
		return 0, err
	}

	flagged := 0

	for _, author := range authors {
		if !qualifiesForFlag(author, w.config.FlagThreshold) {
			continue
		}

		flag := &types.FlaggedAccount{
			Username:      author.Username,
			CampaignID:    campaign.ID,
			FirstDetected: author.FirstPost,
			LastDetected:  author.LastPost,
			PostCount:     author.PostCount,
			PostURLs:      author.PostURLs,
		}

		if err := w.stores.Flags.Upsert(ctx, flag); err != nil {
			return flagged, err
		}

		flagged++
		w.metrics.AccountsFlagged.Inc()

		w.logger.Info("Flagged account",
			zap.String("campaign", campaign.Name),
			zap.String("username", author.Username),
			zap.Int("postCount", author.PostCount))
	}

	if _, err := w.stores.Posts.MarkProcessed(ctx, campaign.ID, since); err != nil {
		return flagged, err
	}

	return flagged, nil
}

// qualifiesForFlag applies the frequency rule to one author's window
// aggregate.
func qualifiesForFlag(author types.AuthorActivity, threshold int) bool {
	return author.PostCount >= threshold
}
