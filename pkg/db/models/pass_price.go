package models

import "time"

// PassPrice maps a pass duration to its charge in minor currency units.
// Managed administratively; the purchase path only reads it.
type PassPrice struct {
	DurationDays int       `gorm:"column:duration_days;primaryKey"`
	AmountCents  int64     `gorm:"column:amount_cents;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
