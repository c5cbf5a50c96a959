package auth_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tagwatch/tagwatch/internal/database/types"
	"github.com/tagwatch/tagwatch/internal/twitter"
	"github.com/tagwatch/tagwatch/internal/twitter/auth"
)

// fakeDriver scripts the page states the login flow walks through. Selectors
// listed in visible are immediately "on screen"; everything else times out.
type fakeDriver struct {
	visible map[string]bool
	cookies map[string]string
	filled  map[string]string
	clicked []string
}

func (d *fakeDriver) Navigate(_ context.Context, _ string) error { return nil }

func (d *fakeDriver) WaitVisible(_ context.Context, selector string, _ time.Duration) error {
	if d.visible[selector] {
		return nil
	}

	return auth.ErrElementNotFound
}

func (d *fakeDriver) Fill(_ context.Context, selector, value string) error {
	if d.filled == nil {
		d.filled = make(map[string]string)
	}

	d.filled[selector] = value

	return nil
}

func (d *fakeDriver) Click(_ context.Context, selector string) error {
	d.clicked = append(d.clicked, selector)
	return nil
}

func (d *fakeDriver) Cookies(_ context.Context) (map[string]string, error) {
	return d.cookies, nil
}

func loginFormSelectors() map[string]bool {
	visible := make(map[string]bool)

	for _, selector := range []string{
		`input[autocomplete="username"]`,
		`button[data-testid="login-next"]`,
		`input[name="password"]`,
		`button[data-testid="login-submit"]`,
	} {
		visible[selector] = true
	}

	return visible
}

func TestBrowserLoginSuccess(t *testing.T) {
	t.Parallel()

	visible := loginFormSelectors()
	visible[`div[data-testid="primaryColumn"]`] = true

	driver := &fakeDriver{
		visible: visible,
		cookies: map[string]string{
			"auth_token": "at-1",
			"ct0":        "ct-1",
			"lang":       "en",
		},
	}

	authenticator := auth.NewBrowserAuthenticator(driver)

	session, err := authenticator.Login(t.Context(), &types.Account{
		Username: "alpha",
		Password: "pw",
	})
	require.NoError(t, err)

	assert.Equal(t, "at-1", session.AuthToken)
	assert.Equal(t, "ct-1", session.CSRFToken)
	assert.Equal(t, "alpha", driver.filled[`input[autocomplete="username"]`])
	assert.Equal(t, "pw", driver.filled[`input[name="password"]`])
	assert.Contains(t, strings.Split(session.AuthCookies, "; "), "auth_token=at-1")
}

func TestBrowserLoginErrorBanner(t *testing.T) {
	t.Parallel()

	visible := loginFormSelectors()
	visible[`div[data-testid="login-error"]`] = true

	driver := &fakeDriver{visible: visible}

	authenticator := auth.NewBrowserAuthenticator(driver)

	_, err := authenticator.Login(t.Context(), &types.Account{Username: "alpha"})
	require.ErrorIs(t, err, twitter.ErrAuthFailed)
}

func TestBrowserLoginTimelineTimeout(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{visible: loginFormSelectors()}

	authenticator := auth.NewBrowserAuthenticator(driver)

	_, err := authenticator.Login(t.Context(), &types.Account{Username: "alpha"})
	require.ErrorIs(t, err, twitter.ErrAutomationTimeout)
}

func TestBrowserLoginMissingCookies(t *testing.T) {
	t.Parallel()

	visible := loginFormSelectors()
	visible[`div[data-testid="primaryColumn"]`] = true

	driver := &fakeDriver{visible: visible, cookies: map[string]string{"lang": "en"}}

	authenticator := auth.NewBrowserAuthenticator(driver)

	_, err := authenticator.Login(t.Context(), &types.Account{Username: "alpha"})
	require.ErrorIs(t, err, twitter.ErrAuthFailed)
}

func TestNewSelectsStrategy(t *testing.T) {
	t.Parallel()

	flow, err := auth.New(auth.StrategyFlow, nil)
	require.NoError(t, err)
	assert.IsType(t, &auth.FlowAuthenticator{}, flow)

	browser, err := auth.New(auth.StrategyBrowser, &fakeDriver{})
	require.NoError(t, err)
	assert.IsType(t, &auth.BrowserAuthenticator{}, browser)

	_, err = auth.New(auth.StrategyBrowser, nil)
	require.Error(t, err)

	_, err = auth.New("carrier-pigeon", nil)
	require.Error(t, err)
}
