package twitter

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthFailed means the platform rejected the account's credentials.
	// The account is marked inactive and is not retried this run.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrAutomationTimeout means a login UI step did not complete in time.
	// Retried with backoff, then treated as an auth failure.
	ErrAutomationTimeout = errors.New("login automation timed out")

	// ErrTransient means a search failed for a reason that is expected to
	// clear on its own. The hashtag group is skipped for the cycle.
	ErrTransient = errors.New("transient platform error")
)

// CapacityError reports that no bound session could serve a search. Username
// names the session that exhausted last so the caller can rotate it out.
type CapacityError struct {
	Username string
}

func (e *CapacityError) Error() string {
	if e.Username == "" {
		return "no account available for query"
	}

	return fmt.Sprintf("no account available for query (last exhausted: %s)", e.Username)
}

// IsCapacityExhausted reports whether err is a capacity exhaustion error.
func IsCapacityExhausted(err error) bool {
	var capacityErr *CapacityError
	return errors.As(err, &capacityErr)
}

// ExhaustedUsername extracts the exhausted account from a capacity error,
// or "" when err is not one.
func ExhaustedUsername(err error) string {
	var capacityErr *CapacityError
	if errors.As(err, &capacityErr) {
		return capacityErr.Username
	}

	return ""
}
