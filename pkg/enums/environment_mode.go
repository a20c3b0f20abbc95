package enums

import (
	"fmt"
	"strings"
)

// EnvironmentMode is the process-wide sandbox/production switch. It is read
// once from explicit configuration at startup and never inferred from other
// signals.
type EnvironmentMode string

const (
	EnvironmentModeSandbox    EnvironmentMode = "SANDBOX"
	EnvironmentModeProduction EnvironmentMode = "PRODUCTION"
)

var validEnvironmentModes = []EnvironmentMode{
	EnvironmentModeSandbox,
	EnvironmentModeProduction,
}

// String implements fmt.Stringer.
func (m EnvironmentMode) String() string {
	return string(m)
}

// IsValid reports whether the value is known.
func (m EnvironmentMode) IsValid() bool {
	for _, candidate := range validEnvironmentModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// IsProduction reports whether authority locking applies.
func (m EnvironmentMode) IsProduction() bool {
	return m == EnvironmentModeProduction
}

// ParseEnvironmentMode converts raw input into an EnvironmentMode.
func ParseEnvironmentMode(value string) (EnvironmentMode, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validEnvironmentModes {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid environment mode %q", value)
}
