package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nocturne-labs/ghostpass-backend/pkg/enums"
)

// GhostPass is a time-bounded venue entitlement. The stored status only ever
// moves active -> revoked; expiry is derived from ExpiresAt at read time so
// no sweeper has to notice it before a reader can trust the status.
type GhostPass struct {
	ID                 uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID            uuid.UUID        `gorm:"column:owner_id;type:uuid;not null;index"`
	Status             enums.PassStatus `gorm:"column:status;type:pass_status_enum;not null;default:'active'"`
	DurationDays       int              `gorm:"column:duration_days;not null"`
	AmountChargedCents int64            `gorm:"column:amount_charged_cents;not null"`
	IdempotencyKey     string           `gorm:"column:idempotency_key;not null;uniqueIndex"`
	ActivatedAt        time.Time        `gorm:"column:activated_at;not null"`
	ExpiresAt          time.Time        `gorm:"column:expires_at;not null"`
	RevokedAt          *time.Time       `gorm:"column:revoked_at"`
	CreatedAt          time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// DerivedStatus resolves the externally visible status at the given instant.
// A stored ACTIVE pass whose expiry has passed reports EXPIRED without a
// write having occurred.
func (p GhostPass) DerivedStatus(now time.Time) enums.PassStatus {
	if p.Status == enums.PassStatusActive && !p.ExpiresAt.After(now) {
		return enums.PassStatusExpired
	}
	return p.Status
}
