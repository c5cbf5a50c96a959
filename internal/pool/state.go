package pool

import (
	"time"
)

// State is the process-local run context shared by the pool manager and the
// polling scheduler: which accounts failed login this run, which were rotated
// out after exhausting their capacity, and when accounts were last checked
// for additions. It is injected rather than global so the pool manager stays
// testable with synthetic account lists.
type State struct {
	failed           map[string]struct{}
	used             map[string]struct{}
	lastAccountCheck time.Time
}

// NewState creates an empty run context starting its account check clock now.
func NewState() *State {
	return &State{
		failed:           make(map[string]struct{}),
		used:             make(map[string]struct{}),
		lastAccountCheck: time.Now(),
	}
}

// MarkFailed records a login or capacity failure for the account.
func (s *State) MarkFailed(username string) {
	s.failed[username] = struct{}{}
}

// MarkUsed records that the account was rotated out this run.
func (s *State) MarkUsed(username string) {
	s.used[username] = struct{}{}
}

// Failed returns a copy of the failed-account set.
func (s *State) Failed() map[string]struct{} {
	return copySet(s.failed)
}

// Used returns a copy of the used-account set.
func (s *State) Used() map[string]struct{} {
	return copySet(s.used)
}

// HasFailed reports whether the account failed earlier in this run.
func (s *State) HasFailed(username string) bool {
	_, ok := s.failed[username]
	return ok
}

// FailedCount returns the size of the failed set.
func (s *State) FailedCount() int {
	return len(s.failed)
}

// ClearFailed empties the failed set.
func (s *State) ClearFailed() {
	s.failed = make(map[string]struct{})
}

// ClearUsed empties the used set.
func (s *State) ClearUsed() {
	s.used = make(map[string]struct{})
}

// LastAccountCheck returns when new-account detection last ran.
func (s *State) LastAccountCheck() time.Time {
	return s.lastAccountCheck
}

// TouchAccountCheck moves the new-account detection cursor to now.
func (s *State) TouchAccountCheck() {
	s.lastAccountCheck = time.Now()
}

func copySet(set map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(set))
	for k := range set {
		out[k] = struct{}{}
	}

	return out
}
