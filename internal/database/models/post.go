package models

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tagwatch/tagwatch/internal/database/dbretry"
	"github.com/tagwatch/tagwatch/internal/database/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"go.uber.org/zap"
)

// PostModel handles database operations for ingested posts.
type PostModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewPost creates a new post model instance.
func NewPost(db *bun.DB, logger *zap.Logger) *PostModel {
	return &PostModel{
		db:     db,
		logger: logger.Named("db_post"),
	}
}

// InsertBatch stores posts one at a time, keyed by URL. Duplicate URLs are
// swallowed so re-ingestion is idempotent; any other storage error is logged
// and does not abort the batch. Returns how many rows were actually inserted.
func (m *PostModel) InsertBatch(ctx context.Context, posts []*types.Post) int {
	inserted := 0

	for _, post := range posts {
		err := dbretry.NoResult(ctx, func(ctx context.Context) error {
			_, err := m.db.NewInsert().Model(post).Exec(ctx)
			return err
		})
		if err != nil {
			if dbretry.IsUniqueViolation(err) {
				continue
			}

			m.logger.Error("Failed to store post",
				zap.String("url", post.URL),
				zap.Error(err))

			continue
		}

		inserted++
	}

	return inserted
}

// UnprocessedAuthorActivity groups unprocessed posts inside the detection
// window by author, with per-author counts, window bounds, and contributing
// post URLs.
func (m *PostModel) UnprocessedAuthorActivity(
	ctx context.Context, campaignID uuid.UUID, since time.Time,
) ([]types.AuthorActivity, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]types.AuthorActivity, error) {
		var activity []types.AuthorActivity

		err := m.db.NewSelect().
			Model((*types.Post)(nil)).
			Column("username").
			ColumnExpr("count(*) AS post_count").
			ColumnExpr("min(posted_at) AS first_post").
			ColumnExpr("max(posted_at) AS last_post").
			ColumnExpr("array_agg(url) AS post_urls").
			Where("campaign_id = ?", campaignID).
			Where("processed = FALSE").
			Where("posted_at >= ?", since).
			Group("username").
			Scan(ctx, &activity)
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate author activity: %w", err)
		}

		return activity, nil
	})
}

// MarkProcessed flips the processed flag on every unprocessed post in the
// window, whether or not its author qualified for flagging. This is the
// consumed barrier: a post is evaluated for flagging exactly once.
func (m *PostModel) MarkProcessed(ctx context.Context, campaignID uuid.UUID, since time.Time) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		res, err := m.db.NewUpdate().
			Model((*types.Post)(nil)).
			Set("processed = TRUE").
			Where("campaign_id = ?", campaignID).
			Where("processed = FALSE").
			Where("posted_at >= ?", since).
			Exec(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to mark posts processed: %w", err)
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get processed count: %w", err)
		}

		return int(rows), nil
	})
}

// DailyActivity aggregates post volume per calendar day for posts carrying
// every tag of the group, ascending by day. Days with no posts produce no row.
func (m *PostModel) DailyActivity(
	ctx context.Context, campaignID uuid.UUID, group types.HashtagGroup, since time.Time,
) ([]types.DailyActivity, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]types.DailyActivity, error) {
		var days []types.DailyActivity

		err := m.db.NewSelect().
			Model((*types.Post)(nil)).
			ColumnExpr("date_trunc('day', posted_at)::date AS day").
			ColumnExpr("count(*) AS post_count").
			ColumnExpr("count(DISTINCT username) AS unique_accounts").
			Where("campaign_id = ?", campaignID).
			Where("hashtags @> ?", pgdialect.Array([]string(group))).
			Where("posted_at >= ?", since).
			GroupExpr("date_trunc('day', posted_at)::date").
			OrderExpr("day ASC").
			Scan(ctx, &days)
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate daily activity: %w", err)
		}

		return days, nil
	})
}
