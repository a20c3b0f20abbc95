package models

import (
	"time"

	"github.com/google/uuid"
)

// Wallet holds a prepaid balance in minor currency units. Balance is never
// negative at any committed state and is mutated only by ledger operations
// under the wallet's row lock. Version increments on every balance change
// and serves as the optimistic lock token.
type Wallet struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID      uuid.UUID `gorm:"column:owner_id;type:uuid;not null;uniqueIndex"`
	BalanceCents int64     `gorm:"column:balance_cents;not null;default:0"`
	Version      int64     `gorm:"column:version;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
