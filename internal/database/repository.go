package database

import (
	"github.com/tagwatch/tagwatch/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	account  *models.AccountModel
	campaign *models.CampaignModel
	post     *models.PostModel
	flag     *models.FlagModel
	activity *models.ActivityModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		account:  models.NewAccount(db, logger),
		campaign: models.NewCampaign(db, logger),
		post:     models.NewPost(db, logger),
		flag:     models.NewFlag(db, logger),
		activity: models.NewActivity(db, logger),
	}
}

// Account returns the account model repository.
func (r *Repository) Account() *models.AccountModel {
	return r.account
}

// Campaign returns the campaign model repository.
func (r *Repository) Campaign() *models.CampaignModel {
	return r.campaign
}

// Post returns the post model repository.
func (r *Repository) Post() *models.PostModel {
	return r.post
}

// Flag returns the flagged account model repository.
func (r *Repository) Flag() *models.FlagModel {
	return r.flag
}

// Activity returns the hashtag activity model repository.
func (r *Repository) Activity() *models.ActivityModel {
	return r.activity
}
