package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jaxron/axonet/middleware/retry"
	"github.com/jaxron/axonet/pkg/client"
	"github.com/tagwatch/tagwatch/internal/database/types"
	"github.com/tagwatch/tagwatch/internal/twitter"
)

// DefaultFlowURL is the credential onboarding endpoint.
const DefaultFlowURL = "https://api.x.com/1.1/onboarding/task.json"

const flowTimeout = 30 * time.Second

// FlowOption configures a FlowAuthenticator.
type FlowOption func(*FlowAuthenticator)

// WithFlowURL overrides the onboarding endpoint. Used in tests.
func WithFlowURL(url string) FlowOption {
	return func(a *FlowAuthenticator) { a.flowURL = url }
}

// FlowAuthenticator logs in directly against the platform's onboarding flow
// endpoints. This is the pre-browser strategy and survives as a fallback for
// accounts that never trip interactive challenges.
type FlowAuthenticator struct {
	http    *client.Client
	flowURL string
}

// NewFlowAuthenticator creates a credential-flow login strategy.
func NewFlowAuthenticator(opts ...FlowOption) *FlowAuthenticator {
	a := &FlowAuthenticator{flowURL: DefaultFlowURL}

	for _, opt := range opts {
		opt(a)
	}

	a.http = client.NewClient(
		client.WithMarshalFunc(sonic.Marshal),
		client.WithUnmarshalFunc(sonic.Unmarshal),
		client.WithTimeout(flowTimeout),
		client.WithMiddleware(retry.New(2, 500*time.Millisecond, 2*time.Second)),
	)

	return a
}

type flowRequest struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	Email         string `json:"email,omitempty"`
	EmailPassword string `json:"emailPassword,omitempty"`
}

type flowResponse struct {
	AuthToken string `json:"authToken"`
	CSRFToken string `json:"csrfToken"`
	Cookies   string `json:"cookies"`
}

// Login exchanges the account credentials for session tokens. A rejected
// credential surfaces as twitter.ErrAuthFailed; a stalled flow surfaces as
// twitter.ErrAutomationTimeout so the pool retries it like any other
// transient login problem.
func (a *FlowAuthenticator) Login(ctx context.Context, account *types.Account) (*twitter.Session, error) {
	resp, err := a.http.NewRequest().
		Method(http.MethodPost).
		URL(a.flowURL).
		Header("Content-Type", "application/json").
		MarshalBody(flowRequest{
			Username:      account.Username,
			Password:      account.Password,
			Email:         account.Email,
			EmailPassword: account.EmailPassword,
		}).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", twitter.ErrAutomationTimeout, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: credentials rejected for %s", twitter.ErrAuthFailed, account.Username)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: unexpected status %d", twitter.ErrAutomationTimeout, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", twitter.ErrAutomationTimeout, err)
	}

	var flow flowResponse
	if err := sonic.Unmarshal(body, &flow); err != nil {
		return nil, fmt.Errorf("%w: malformed flow response: %w", twitter.ErrAutomationTimeout, err)
	}

	if flow.AuthToken == "" || flow.CSRFToken == "" {
		return nil, fmt.Errorf("%w: flow returned no session tokens", twitter.ErrAuthFailed)
	}

	return &twitter.Session{
		Username:    account.Username,
		AuthToken:   flow.AuthToken,
		CSRFToken:   flow.CSRFToken,
		AuthCookies: flow.Cookies,
	}, nil
}
