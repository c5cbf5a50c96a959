// Package auth provides the login strategies that turn enrolled account
// credentials into usable search sessions. The strategy is selected at
// configuration time so the pool manager never cares which one is in use.
package auth

import (
	"context"
	"fmt"

	"github.com/tagwatch/tagwatch/internal/database/types"
	"github.com/tagwatch/tagwatch/internal/twitter"
)

// Strategy names a login implementation in the worker configuration.
const (
	StrategyBrowser = "browser"
	StrategyFlow    = "flow"
)

// Authenticator obtains a valid session for the given account credentials.
type Authenticator interface {
	Login(ctx context.Context, account *types.Account) (*twitter.Session, error)
}

// New returns the authenticator for the configured strategy name.
func New(strategy string, driver Driver, opts ...FlowOption) (Authenticator, error) {
	switch strategy {
	case StrategyBrowser:
		if driver == nil {
			return nil, fmt.Errorf("login strategy %q requires a browser driver", strategy)
		}

		return NewBrowserAuthenticator(driver), nil
	case StrategyFlow:
		return NewFlowAuthenticator(opts...), nil
	default:
		return nil, fmt.Errorf("unknown login strategy %q", strategy)
	}
}
