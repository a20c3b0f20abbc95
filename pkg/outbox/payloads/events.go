package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/nocturne-labs/ghostpass-backend/pkg/enums"
)

// WalletFundedEvent is emitted after a wallet credit commits.
type WalletFundedEvent struct {
	WalletID      uuid.UUID           `json:"wallet_id"`
	OwnerID       uuid.UUID           `json:"owner_id"`
	TransactionID uuid.UUID           `json:"transaction_id"`
	AmountCents   int64               `json:"amount_cents"`
	Source        enums.FundingSource `json:"source"`
	BalanceCents  int64               `json:"balance_cents"`
}

// PassPurchasedEvent carries the outcome of a committed purchase, including
// the fee split that was recorded with the debit.
type PassPurchasedEvent struct {
	PassID             uuid.UUID       `json:"pass_id"`
	OwnerID            uuid.UUID       `json:"owner_id"`
	WalletID           uuid.UUID       `json:"wallet_id"`
	TransactionID      uuid.UUID       `json:"transaction_id"`
	DurationDays       int             `json:"duration_days"`
	AmountChargedCents int64           `json:"amount_charged_cents"`
	FeeSplit           FeeSplitPayload `json:"fee_split"`
	ActivatedAt        time.Time       `json:"activated_at"`
	ExpiresAt          time.Time       `json:"expires_at"`
}

// FeeSplitPayload mirrors the per-stakeholder allocation in minor units.
type FeeSplitPayload struct {
	ValidCents    int64 `json:"valid_cents"`
	VendorCents   int64 `json:"vendor_cents"`
	PoolCents     int64 `json:"pool_cents"`
	PromoterCents int64 `json:"promoter_cents"`
}

// PassRevokedEvent is emitted when an administrator revokes a pass.
type PassRevokedEvent struct {
	PassID    uuid.UUID `json:"pass_id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	RevokedAt time.Time `json:"revoked_at"`
	Reason    string    `json:"reason,omitempty"`
}

// FeeConfigUpdatedEvent reports a fee configuration change for a scope.
type FeeConfigUpdatedEvent struct {
	Scope       string `json:"scope"`
	ValidPct    string `json:"valid_pct"`
	VendorPct   string `json:"vendor_pct"`
	PoolPct     string `json:"pool_pct"`
	PromoterPct string `json:"promoter_pct"`
}
