package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tagwatch/tagwatch/internal/database/dbretry"
	"github.com/tagwatch/tagwatch/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

var (
	// ErrCampaignNotFound is returned when the requested campaign does not exist.
	ErrCampaignNotFound = errors.New("campaign not found")
	// ErrInvalidHashtagGroups is returned when a campaign's hashtag groups do
	// not all have 2 or 3 non-empty members.
	ErrInvalidHashtagGroups = errors.New("every hashtag group must have 2 or 3 non-empty tags")
	// ErrCampaignNameTaken is returned when a campaign with the same name
	// already exists.
	ErrCampaignNameTaken = errors.New("campaign name already in use")
)

// CampaignModel handles database operations for monitoring campaigns.
type CampaignModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewCampaign creates a new campaign model instance.
func NewCampaign(db *bun.DB, logger *zap.Logger) *CampaignModel {
	return &CampaignModel{
		db:     db,
		logger: logger.Named("db_campaign"),
	}
}

// Create stores a new campaign after normalizing and validating its hashtag
// groups.
func (m *CampaignModel) Create(ctx context.Context, campaign *types.Campaign) error {
	campaign.Normalize()

	if !campaign.Valid() {
		return ErrInvalidHashtagGroups
	}

	if campaign.ID == uuid.Nil {
		campaign.ID = uuid.New()
	}

	now := time.Now()
	campaign.CreatedAt = now
	campaign.UpdatedAt = now

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(campaign).
			Exec(ctx)
		if err != nil {
			if dbretry.IsUniqueViolation(err) {
				return fmt.Errorf("%w: %s", ErrCampaignNameTaken, campaign.Name)
			}

			return fmt.Errorf("failed to create campaign: %w", err)
		}

		return nil
	})
}

// GetActive returns all campaigns currently enabled for monitoring, in stable
// creation order.
func (m *CampaignModel) GetActive(ctx context.Context) ([]*types.Campaign, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Campaign, error) {
		var campaigns []*types.Campaign

		err := m.db.NewSelect().
			Model(&campaigns).
			Where("active = TRUE").
			Order("created_at ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get active campaigns: %w", err)
		}

		return campaigns, nil
	})
}

// GetByID returns a single campaign by id.
func (m *CampaignModel) GetByID(ctx context.Context, id uuid.UUID) (*types.Campaign, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Campaign, error) {
		campaign := new(types.Campaign)

		err := m.db.NewSelect().
			Model(campaign).
			Where("id = ?", id).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrCampaignNotFound
			}

			return nil, fmt.Errorf("failed to get campaign: %w", err)
		}

		return campaign, nil
	})
}

// SetActive toggles a campaign's active flag.
func (m *CampaignModel) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.Campaign)(nil)).
			Set("active = ?", active).
			Set("updated_at = ?", time.Now()).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to set campaign active flag: %w", err)
		}

		return nil
	})
}
