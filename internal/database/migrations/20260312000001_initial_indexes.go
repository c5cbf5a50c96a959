package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		indexes := []string{
			"CREATE INDEX IF NOT EXISTS idx_accounts_status ON accounts (status)",
			"CREATE INDEX IF NOT EXISTS idx_campaigns_active ON campaigns (active)",
			"CREATE INDEX IF NOT EXISTS idx_posts_campaign_id ON posts (campaign_id)",
			"CREATE INDEX IF NOT EXISTS idx_posts_username ON posts (username)",
			"CREATE INDEX IF NOT EXISTS idx_posts_hashtags ON posts USING GIN (hashtags)",
			"CREATE INDEX IF NOT EXISTS idx_posts_posted_at ON posts (posted_at DESC)",
			"CREATE INDEX IF NOT EXISTS idx_posts_processed ON posts (processed)",
			"CREATE INDEX IF NOT EXISTS idx_flagged_accounts_last_detected ON flagged_accounts (last_detected DESC)",
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_hashtag_activity_group_date ON hashtag_activity (hashtags, date)",
			"CREATE INDEX IF NOT EXISTS idx_hashtag_activity_is_surge ON hashtag_activity (is_surge)",
		}

		for _, index := range indexes {
			if _, err := db.NewRaw(index).Exec(ctx); err != nil {
				return fmt.Errorf("failed to create index: %w", err)
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		indexes := []string{
			"DROP INDEX IF EXISTS idx_hashtag_activity_is_surge",
			"DROP INDEX IF EXISTS idx_hashtag_activity_group_date",
			"DROP INDEX IF EXISTS idx_flagged_accounts_last_detected",
			"DROP INDEX IF EXISTS idx_posts_processed",
			"DROP INDEX IF EXISTS idx_posts_posted_at",
			"DROP INDEX IF EXISTS idx_posts_hashtags",
			"DROP INDEX IF EXISTS idx_posts_username",
			"DROP INDEX IF EXISTS idx_posts_campaign_id",
			"DROP INDEX IF EXISTS idx_campaigns_active",
			"DROP INDEX IF EXISTS idx_accounts_status",
		}

		for _, index := range indexes {
			if _, err := db.NewRaw(index).Exec(ctx); err != nil {
				return fmt.Errorf("failed to drop index: %w", err)
			}
		}

		return nil
	})
}
