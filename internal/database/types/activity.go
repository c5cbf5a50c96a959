package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// HashtagActivity is a surge alert for one hashtag group on one calendar day.
// Keyed by (hashtags, date); non-surging days produce no record, so the table
// is sparse by design.
type HashtagActivity struct {
	bun.BaseModel `bun:"table:hashtag_activity,alias:hashtag_activity"`

	Hashtags       []string  `bun:",array"                 json:"hashtags"`
	Date           time.Time `bun:",notnull,type:date"     json:"date"`
	CampaignID     uuid.UUID `bun:",notnull,type:uuid"     json:"campaignId"`
	PostCount      int       `bun:",notnull"               json:"postCount"`
	UniqueAccounts int       `bun:",notnull"               json:"uniqueAccounts"`
	IsSurge        bool      `bun:",notnull,default:false" json:"isSurge"`
}
