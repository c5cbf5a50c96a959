package twitter

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tagwatch/tagwatch/internal/database/types"
)

// Tweet is a normalized post-like record returned by the search capability.
type Tweet struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	Hashtags  []string  `json:"hashtags"`
	CreatedAt time.Time `json:"createdAt"`
	Likes     int       `json:"likes"`
	Replies   int       `json:"replies"`
	Retweets  int       `json:"retweets"`
}

// ToPost converts the tweet into a storable post owned by the campaign.
// Hashtags are lower-cased so they match campaign configuration.
func (t *Tweet) ToPost(campaignID uuid.UUID) *types.Post {
	hashtags := make([]string, 0, len(t.Hashtags))
	for _, tag := range t.Hashtags {
		tag = strings.ToLower(strings.TrimPrefix(tag, "#"))
		if tag != "" {
			hashtags = append(hashtags, tag)
		}
	}

	return &types.Post{
		URL:        t.URL,
		CampaignID: campaignID,
		Username:   t.Username,
		Hashtags:   hashtags,
		Caption:    t.Content,
		PostedAt:   t.CreatedAt,
		Likes:      t.Likes,
		Comments:   t.Replies,
		Reshares:   t.Retweets,
	}
}
