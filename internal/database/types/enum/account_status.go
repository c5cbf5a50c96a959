package enum

// AccountStatus represents the stored lifecycle state of a platform account.
// Accounts that failed login during the current run are tracked in-memory by
// the pool state and are not a distinct stored status.
type AccountStatus int

const (
	// AccountStatusActive means the account is eligible for session logins.
	AccountStatusActive AccountStatus = iota
	// AccountStatusInactive means the account was disabled after a login
	// failure or by an operator and is skipped until reactivated.
	AccountStatusInactive
)

// String returns the lowercase name of the status.
func (s AccountStatus) String() string {
	switch s {
	case AccountStatusActive:
		return "active"
	case AccountStatusInactive:
		return "inactive"
	default:
		return "unknown"
	}
}
