package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// FlaggedAccount records an author that exceeded the short-window posting
// threshold for a campaign. Keyed by (username, campaign id); once created it
// only accumulates, it is never deleted by the monitor.
type FlaggedAccount struct {
	bun.BaseModel `bun:"table:flagged_accounts,alias:flagged_accounts"`

	Username      string    `bun:",pk"                json:"username"`
	CampaignID    uuid.UUID `bun:",pk,type:uuid"      json:"campaignId"`
	FirstDetected time.Time `bun:",notnull"           json:"firstDetected"`
	LastDetected  time.Time `bun:",notnull"           json:"lastDetected"`
	PostCount     int       `bun:",notnull,default:0" json:"postCount"`
	PostURLs      []string  `bun:",array"             json:"postUrls"`
}
