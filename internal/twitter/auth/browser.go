package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tagwatch/tagwatch/internal/database/types"
	"github.com/tagwatch/tagwatch/internal/twitter"
)

// Driver is the headless-browser capability consumed by the browser login
// strategy. Implementations wrap whatever automation stack the deployment
// ships; the monitor only ever sees this interface.
type Driver interface {
	// Navigate loads the given URL.
	Navigate(ctx context.Context, url string) error
	// WaitVisible blocks until the selector is visible or the wait ceiling
	// elapses, returning ErrElementNotFound on timeout.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// Fill types the value into the element matching the selector.
	Fill(ctx context.Context, selector, value string) error
	// Click activates the element matching the selector.
	Click(ctx context.Context, selector string) error
	// Cookies returns the current cookie jar as name/value pairs.
	Cookies(ctx context.Context) (map[string]string, error)
}

// ErrElementNotFound is returned by drivers when a waited-on element never
// became visible.
var ErrElementNotFound = errors.New("element not found")

const (
	loginURL = "https://x.com/i/flow/login"

	selectorUsername     = `input[autocomplete="username"]`
	selectorNextButton   = `button[data-testid="login-next"]`
	selectorPassword     = `input[name="password"]`
	selectorLoginButton  = `button[data-testid="login-submit"]`
	selectorHomeTimeline = `div[data-testid="primaryColumn"]`
	selectorErrorBanner  = `div[data-testid="login-error"]`

	// stepTimeout bounds each individual wait; the pool manager bounds the
	// attempt count around the whole procedure.
	stepTimeout = 20 * time.Second
)

// BrowserAuthenticator drives the scripted UI login flow and extracts session
// tokens from the resulting cookie jar.
type BrowserAuthenticator struct {
	driver Driver
}

// NewBrowserAuthenticator creates a browser-based login strategy.
func NewBrowserAuthenticator(driver Driver) *BrowserAuthenticator {
	return &BrowserAuthenticator{driver: driver}
}

// Login walks the UI login flow for the account. Element-not-found and
// timeout failures surface as twitter.ErrAutomationTimeout; a rejected
// credential surfaces as twitter.ErrAuthFailed.
func (a *BrowserAuthenticator) Login(ctx context.Context, account *types.Account) (*twitter.Session, error) {
	if err := a.driver.Navigate(ctx, loginURL); err != nil {
		return nil, fmt.Errorf("%w: %w", twitter.ErrAutomationTimeout, err)
	}

	steps := []struct {
		selector string
		action   func(context.Context) error
	}{
		{selectorUsername, func(ctx context.Context) error {
			return a.driver.Fill(ctx, selectorUsername, account.Username)
		}},
		{selectorNextButton, func(ctx context.Context) error {
			return a.driver.Click(ctx, selectorNextButton)
		}},
		{selectorPassword, func(ctx context.Context) error {
			return a.driver.Fill(ctx, selectorPassword, account.Password)
		}},
		{selectorLoginButton, func(ctx context.Context) error {
			return a.driver.Click(ctx, selectorLoginButton)
		}},
	}

	for _, step := range steps {
		if err := a.driver.WaitVisible(ctx, step.selector, stepTimeout); err != nil {
			return nil, fmt.Errorf("%w: waiting for %s: %w", twitter.ErrAutomationTimeout, step.selector, err)
		}

		if err := step.action(ctx); err != nil {
			return nil, fmt.Errorf("%w: at %s: %w", twitter.ErrAutomationTimeout, step.selector, err)
		}
	}

	// Rejected credentials render an error banner instead of the timeline.
	if err := a.driver.WaitVisible(ctx, selectorHomeTimeline, stepTimeout); err != nil {
		if bannerErr := a.driver.WaitVisible(ctx, selectorErrorBanner, time.Second); bannerErr == nil {
			return nil, fmt.Errorf("%w: credentials rejected for %s", twitter.ErrAuthFailed, account.Username)
		}

		return nil, fmt.Errorf("%w: timeline never loaded: %w", twitter.ErrAutomationTimeout, err)
	}

	cookies, err := a.driver.Cookies(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: reading cookies: %w", twitter.ErrAutomationTimeout, err)
	}

	authToken, csrfToken := cookies["auth_token"], cookies["ct0"]
	if authToken == "" || csrfToken == "" {
		return nil, fmt.Errorf("%w: session cookies missing after login", twitter.ErrAuthFailed)
	}

	return &twitter.Session{
		Username:    account.Username,
		AuthToken:   authToken,
		CSRFToken:   csrfToken,
		AuthCookies: encodeCookies(cookies),
	}, nil
}

// encodeCookies flattens the jar into a Cookie header value.
func encodeCookies(cookies map[string]string) string {
	pairs := make([]string, 0, len(cookies))
	for name, value := range cookies {
		pairs = append(pairs, name+"="+value)
	}

	return strings.Join(pairs, "; ")
}
