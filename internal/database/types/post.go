package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Post is a single ingested platform post. The source URL is the unique key
// and the deduplication boundary: re-ingesting the same URL is a no-op.
type Post struct {
	bun.BaseModel `bun:"table:posts,alias:posts"`

	URL        string    `bun:",pk"                    json:"url"`
	CampaignID uuid.UUID `bun:",notnull,type:uuid"     json:"campaignId"`
	Username   string    `bun:",notnull"               json:"username"`
	Hashtags   []string  `bun:",array"                 json:"hashtags"`
	Caption    string    `bun:",notnull"               json:"caption"`
	PostedAt   time.Time `bun:",notnull"               json:"postedAt"`
	Likes      int       `bun:",notnull,default:0"     json:"likes"`
	Comments   int       `bun:",notnull,default:0"     json:"comments"`
	Reshares   int       `bun:",notnull,default:0"     json:"reshares"`
	Processed  bool      `bun:",notnull,default:false" json:"processed"`
}

// AuthorActivity is one author's aggregated unprocessed activity inside a
// detection window.
type AuthorActivity struct {
	Username  string    `bun:"username"`
	PostCount int       `bun:"post_count"`
	FirstPost time.Time `bun:"first_post"`
	LastPost  time.Time `bun:"last_post"`
	PostURLs  []string  `bun:"post_urls,array"`
}

// DailyActivity is the per-day post volume for one hashtag group, used by the
// surge detector. Days are compared in ascending date order.
type DailyActivity struct {
	Day            time.Time `bun:"day"`
	PostCount      int       `bun:"post_count"`
	UniqueAccounts int       `bun:"unique_accounts"`
}
