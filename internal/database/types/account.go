package types

import (
	"time"

	"github.com/tagwatch/tagwatch/internal/database/types/enum"
	"github.com/uptrace/bun"
)

// Account is an enrolled platform account with its credential material and
// cached session tokens. Username is the unique key.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:accounts"`

	Username      string             `bun:",pk"                json:"username"`
	Password      string             `bun:",notnull"           json:"-"`
	Email         string             `bun:",notnull"           json:"email"`
	EmailPassword string             `bun:""                   json:"-"`
	ProxyURL      string             `bun:""                   json:"proxyUrl,omitempty"`
	SessionToken  string             `bun:""                   json:"-"`
	AuthCookies   string             `bun:""                   json:"-"`
	Status        enum.AccountStatus `bun:",notnull,default:0" json:"status"`
	AddedAt       time.Time          `bun:",notnull"           json:"addedAt"`
	LastUsed      time.Time          `bun:",nullzero"          json:"lastUsed"`
	DisabledAt    time.Time          `bun:",nullzero"          json:"disabledAt"`
}
