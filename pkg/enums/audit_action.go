package enums

import "fmt"

// AuditAction identifies the kind of mutation an audit log entry records.
type AuditAction string

const (
	AuditActionWalletCredit    AuditAction = "wallet.credit"
	AuditActionWalletDebit     AuditAction = "wallet.debit"
	AuditActionPassPurchase    AuditAction = "pass.purchase"
	AuditActionPassRevoke      AuditAction = "pass.revoke"
	AuditActionFeeConfigUpdate AuditAction = "fee_config.update"
	AuditActionPolicyReload    AuditAction = "authority_policy.reload"
)

var validAuditActions = []AuditAction{
	AuditActionWalletCredit,
	AuditActionWalletDebit,
	AuditActionPassPurchase,
	AuditActionPassRevoke,
	AuditActionFeeConfigUpdate,
	AuditActionPolicyReload,
}

// String implements fmt.Stringer.
func (a AuditAction) String() string {
	return string(a)
}

// IsValid reports whether the value is known.
func (a AuditAction) IsValid() bool {
	for _, candidate := range validAuditActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditAction converts raw input into an AuditAction.
func ParseAuditAction(value string) (AuditAction, error) {
	for _, candidate := range validAuditActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit action %q", value)
}
