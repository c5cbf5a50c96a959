package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// HashtagGroup is a configured set of 2-3 tags that must all co-occur in a
// matching post.
type HashtagGroup []string

// Campaign is a monitoring campaign over an ordered list of hashtag groups.
// Name is unique across campaigns.
type Campaign struct {
	bun.BaseModel `bun:"table:campaigns,alias:campaigns"`

	ID              uuid.UUID      `bun:",pk,type:uuid"         json:"id"`
	Name            string         `bun:",notnull,unique"       json:"name"`
	HashtagGroups   []HashtagGroup `bun:",notnull,type:jsonb"   json:"hashtagGroups"`
	TrackedAccounts []string       `bun:",array"                json:"trackedAccounts,omitempty"`
	Active          bool           `bun:",notnull,default:true" json:"active"`
	CreatedAt       time.Time      `bun:",notnull"              json:"createdAt"`
	UpdatedAt       time.Time      `bun:",notnull"              json:"updatedAt"`
}

// Normalize rewrites every configured tag to the stored post form: trimmed,
// lower-cased, leading # stripped, empties dropped. Ingested post hashtags
// are stored this way, so an unnormalized group would never match them in
// the daily activity containment query.
func (c *Campaign) Normalize() {
	for gi, group := range c.HashtagGroups {
		normalized := make(HashtagGroup, 0, len(group))

		for _, tag := range group {
			tag = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
			if tag != "" {
				normalized = append(normalized, tag)
			}
		}

		c.HashtagGroups[gi] = normalized
	}
}

// Valid reports whether every configured hashtag group has 2 or 3 non-empty
// members.
func (c *Campaign) Valid() bool {
	if len(c.HashtagGroups) == 0 {
		return false
	}

	for _, group := range c.HashtagGroups {
		if len(group) < 2 || len(group) > 3 {
			return false
		}

		for _, tag := range group {
			if tag == "" {
				return false
			}
		}
	}

	return true
}
