package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/nocturne-labs/ghostpass-backend/pkg/enums"
)

// AuditLogEntry is an append-only record of a mutation. Entries are never
// updated or deleted, and a failed append aborts the enclosing transaction.
type AuditLogEntry struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	ActorID   uuid.UUID         `gorm:"column:actor_id;type:uuid;not null;index"`
	Action    enums.AuditAction `gorm:"column:action;not null;index"`
	TargetID  uuid.UUID         `gorm:"column:target_id;type:uuid;not null;index"`
	Snapshot  json.RawMessage   `gorm:"column:snapshot;type:jsonb"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime;index"`
}

// TableName overrides the default pluralization.
func (AuditLogEntry) TableName() string {
	return "audit_log_entries"
}
