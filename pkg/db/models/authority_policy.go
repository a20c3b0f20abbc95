package models

import (
	"time"

	"github.com/nocturne-labs/ghostpass-backend/pkg/enums"
)

// AuthorityPolicy stores the per-channel authority rule. The table is read
// once at startup and on administrative reload; readers only ever see a
// whole-table snapshot, never a partial update.
type AuthorityPolicy struct {
	Channel           enums.SensoryChannel `gorm:"column:channel;primaryKey"`
	Required          bool                 `gorm:"column:required;not null;default:false"`
	HasAuthorityToken bool                 `gorm:"column:has_authority_token;not null;default:false"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (AuthorityPolicy) TableName() string {
	return "authority_policies"
}
