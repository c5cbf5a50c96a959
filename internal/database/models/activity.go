package models

import (
	"context"
	"fmt"

	"github.com/tagwatch/tagwatch/internal/database/dbretry"
	"github.com/tagwatch/tagwatch/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ActivityModel handles database operations for hashtag surge alerts.
type ActivityModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewActivity creates a new hashtag activity model instance.
func NewActivity(db *bun.DB, logger *zap.Logger) *ActivityModel {
	return &ActivityModel{
		db:     db,
		logger: logger.Named("db_activity"),
	}
}

// Upsert stores a surge alert keyed by (hashtags, date), refreshing the
// counts if the same day fires again in a later cycle.
func (m *ActivityModel) Upsert(ctx context.Context, activity *types.HashtagActivity) error {
	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(activity).
			On("CONFLICT (hashtags, date) DO UPDATE").
			Set("post_count = EXCLUDED.post_count").
			Set("unique_accounts = EXCLUDED.unique_accounts").
			Set("is_surge = EXCLUDED.is_surge").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert hashtag activity: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Info("Surge recorded",
		zap.Strings("hashtags", activity.Hashtags),
		zap.Time("date", activity.Date),
		zap.Int("postCount", activity.PostCount),
		zap.Int("uniqueAccounts", activity.UniqueAccounts))

	return nil
}

// GetSurges returns recorded surge days, newest first. Used by the dashboard
// layer.
func (m *ActivityModel) GetSurges(ctx context.Context, limit int) ([]*types.HashtagActivity, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.HashtagActivity, error) {
		var surges []*types.HashtagActivity

		err := m.db.NewSelect().
			Model(&surges).
			Where("is_surge = TRUE").
			Order("date DESC").
			Limit(limit).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get surges: %w", err)
		}

		return surges, nil
	})
}
