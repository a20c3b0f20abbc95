package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultFeeScope is the fallback scope key used when a venue has no
// dedicated fee configuration.
const DefaultFeeScope = "default"

// FeeConfig defines how a charged amount is split among stakeholders for a
// given scope (a venue identifier or the literal "default"). The four
// percentages must sum to 100 within a 0.01 tolerance.
type FeeConfig struct {
	Scope       string          `gorm:"column:scope;primaryKey"`
	ValidPct    decimal.Decimal `gorm:"column:valid_pct;type:numeric(5,2);not null"`
	VendorPct   decimal.Decimal `gorm:"column:vendor_pct;type:numeric(5,2);not null"`
	PoolPct     decimal.Decimal `gorm:"column:pool_pct;type:numeric(5,2);not null"`
	PromoterPct decimal.Decimal `gorm:"column:promoter_pct;type:numeric(5,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (FeeConfig) TableName() string {
	return "fee_configs"
}
