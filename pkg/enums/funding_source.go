package enums

import "fmt"

// FundingSource maps to the funding_source_enum enum in Postgres.
type FundingSource string

const (
	FundingSourceStripe   FundingSource = "stripe"
	FundingSourceZelle    FundingSource = "zelle"
	FundingSourceInternal FundingSource = "internal"
)

var validFundingSources = []FundingSource{
	FundingSourceStripe,
	FundingSourceZelle,
	FundingSourceInternal,
}

// String implements fmt.Stringer.
func (s FundingSource) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical funding source enum.
func (s FundingSource) IsValid() bool {
	for _, candidate := range validFundingSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsExternal reports whether the source represents money entering from
// outside the platform. Internal is reserved for pass purchase debits.
func (s FundingSource) IsExternal() bool {
	return s == FundingSourceStripe || s == FundingSourceZelle
}

// ParseFundingSource converts raw input into a FundingSource.
func ParseFundingSource(value string) (FundingSource, error) {
	for _, candidate := range validFundingSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid funding source %q", value)
}
