package models

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tagwatch/tagwatch/internal/database/dbretry"
	"github.com/tagwatch/tagwatch/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// FlagModel handles database operations for flagged accounts.
type FlagModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewFlag creates a new flagged account model instance.
func NewFlag(db *bun.DB, logger *zap.Logger) *FlagModel {
	return &FlagModel{
		db:     db,
		logger: logger.Named("db_flag"),
	}
}

// Upsert records a detection for (username, campaign). On first sight the row
// is created with the window bounds; on repeat sight only last_detected moves,
// the new window's count is added, and the contributing post URLs are unioned
// without double counting.
func (m *FlagModel) Upsert(ctx context.Context, flag *types.FlaggedAccount) error {
	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(flag).
			On("CONFLICT (username, campaign_id) DO UPDATE").
			Set("last_detected = EXCLUDED.last_detected").
			Set("post_count = flagged_accounts.post_count + EXCLUDED.post_count").
			Set("post_urls = (SELECT array_agg(DISTINCT u) FROM unnest(flagged_accounts.post_urls || EXCLUDED.post_urls) AS u)").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert flagged account: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Upserted flagged account",
		zap.String("username", flag.Username),
		zap.String("campaignID", flag.CampaignID.String()),
		zap.Int("windowPostCount", flag.PostCount))

	return nil
}

// GetByCampaign returns all flagged accounts for a campaign, most recently
// detected first. Used by the dashboard layer.
func (m *FlagModel) GetByCampaign(ctx context.Context, campaignID uuid.UUID) ([]*types.FlaggedAccount, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.FlaggedAccount, error) {
		var flags []*types.FlaggedAccount

		err := m.db.NewSelect().
			Model(&flags).
			Where("campaign_id = ?", campaignID).
			Order("last_detected DESC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get flagged accounts: %w", err)
		}

		return flags, nil
	})
}
