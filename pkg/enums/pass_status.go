package enums

import "fmt"

// PassStatus maps to the pass_status_enum enum in Postgres.
//
// EXPIRED is never written by the purchase or revoke paths. A stored ACTIVE
// pass whose expiry is in the past reports EXPIRED to readers without a
// mutation; only administrative revocation writes REVOKED.
type PassStatus string

const (
	PassStatusPending PassStatus = "pending"
	PassStatusActive  PassStatus = "active"
	PassStatusExpired PassStatus = "expired"
	PassStatusRevoked PassStatus = "revoked"
)

var validPassStatuses = []PassStatus{
	PassStatusPending,
	PassStatusActive,
	PassStatusExpired,
	PassStatusRevoked,
}

// String implements fmt.Stringer.
func (s PassStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s PassStatus) IsValid() bool {
	for _, candidate := range validPassStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status permits no further transitions.
func (s PassStatus) IsTerminal() bool {
	return s == PassStatusExpired || s == PassStatusRevoked
}

// ParsePassStatus converts raw input into a PassStatus.
func ParsePassStatus(value string) (PassStatus, error) {
	for _, candidate := range validPassStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pass status %q", value)
}
