package twitter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jaxron/axonet/middleware/retry"
	"github.com/jaxron/axonet/middleware/singleflight"
	"github.com/jaxron/axonet/pkg/client"
	"go.uber.org/zap"
)

// DefaultBaseURL is the search gateway endpoint.
const DefaultBaseURL = "https://api.x.com/graphql/search/timeline"

const defaultTimeout = 30 * time.Second

// searchResponse is the wire shape of one result page.
type searchResponse struct {
	Tweets     []Tweet `json:"tweets"`
	NextCursor string  `json:"nextCursor"`
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the search endpoint. Used in tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.timeout = timeout }
}

// WithRetry overrides the HTTP retry middleware shape.
func WithRetry(maxRetries uint64, delay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryMax = maxRetries
		c.retryDelay = delay
		c.retryMaxDelay = maxDelay
	}
}

// Client is an API handle bound to the sessions that survived pool
// acquisition. Searches rotate across bound sessions: a rate-limited session
// is marked exhausted and skipped, and once every session is exhausted the
// client reports capacity exhaustion so the pool can be rebuilt.
type Client struct {
	http          *client.Client
	sessions      []*Session
	baseURL       string
	timeout       time.Duration
	retryMax      uint64
	retryDelay    time.Duration
	retryMaxDelay time.Duration
	logger        *zap.Logger
}

// NewClient creates a search client bound to the given sessions. A client
// with zero sessions is valid and reports capacity exhaustion on first use.
func NewClient(sessions []*Session, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		sessions:      sessions,
		baseURL:       DefaultBaseURL,
		timeout:       defaultTimeout,
		retryMax:      2,
		retryDelay:    500 * time.Millisecond,
		retryMaxDelay: 2 * time.Second,
		logger:        logger.Named("twitter"),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.http = client.NewClient(
		client.WithMarshalFunc(sonic.Marshal),
		client.WithUnmarshalFunc(sonic.Unmarshal),
		client.WithTimeout(c.timeout),
		client.WithMiddleware(
			retry.New(c.retryMax, c.retryDelay, c.retryMaxDelay),
			singleflight.New(),
		),
	)

	return c
}

// Usernames returns the accounts bound to this client.
func (c *Client) Usernames() []string {
	names := make([]string, 0, len(c.sessions))
	for _, s := range c.sessions {
		names = append(names, s.Username)
	}

	return names
}

// Search runs one query and returns up to limit normalized tweets, paging
// through results with whichever bound session currently has capacity.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Tweet, error) {
	if c.usableSession() == nil {
		return nil, &CapacityError{Username: c.lastUsername()}
	}

	if limit < 0 {
		limit = 0
	}

	tweets := make([]Tweet, 0, limit)
	cursor := ""

	for len(tweets) < limit {
		session := c.usableSession()
		if session == nil {
			return nil, &CapacityError{Username: c.lastUsername()}
		}

		remaining := limit - len(tweets)

		page, err := c.fetchPage(ctx, session, query, remaining, cursor)
		if err != nil {
			if IsCapacityExhausted(err) {
				// Session rate limited; the next loop iteration picks another.
				continue
			}

			return nil, err
		}

		// A server ignoring the count parameter must not overshoot limit.
		if len(page.Tweets) > remaining {
			page.Tweets = page.Tweets[:remaining]
		}

		tweets = append(tweets, page.Tweets...)

		if page.NextCursor == "" {
			break
		}

		cursor = page.NextCursor
	}

	return tweets, nil
}

// fetchPage requests one result page with the given session.
func (c *Client) fetchPage(
	ctx context.Context, session *Session, query string, count int, cursor string,
) (*searchResponse, error) {
	req := c.http.NewRequest().
		Method(http.MethodGet).
		URL(c.baseURL).
		Query("q", query).
		Query("count", strconv.Itoa(count)).
		Header("Authorization", "Bearer "+session.AuthToken).
		Header("X-Csrf-Token", session.CSRFToken).
		Header("Cookie", session.AuthCookies)

	if cursor != "" {
		req = req.Query("cursor", cursor)
	}

	resp, err := req.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		session.Exhausted = true
		c.logger.Warn("Session exhausted",
			zap.String("username", session.Username),
			zap.Int("status", resp.StatusCode))

		return nil, &CapacityError{Username: session.Username}

	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: unexpected status %d", ErrTransient, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransient, err)
	}

	var page searchResponse
	if err := sonic.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("%w: malformed search response: %w", ErrTransient, err)
	}

	return &page, nil
}

// usableSession returns the first session that still has capacity.
func (c *Client) usableSession() *Session {
	for _, s := range c.sessions {
		if !s.Exhausted {
			return s
		}
	}

	return nil
}

// lastUsername names the most recently exhausted session, or any bound
// session when none is marked, so rotation always has an account to exclude.
func (c *Client) lastUsername() string {
	for i := len(c.sessions) - 1; i >= 0; i-- {
		if c.sessions[i].Exhausted {
			return c.sessions[i].Username
		}
	}

	if len(c.sessions) > 0 {
		return c.sessions[len(c.sessions)-1].Username
	}

	return ""
}
