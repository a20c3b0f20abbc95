package audit

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nocturne-labs/ghostpass-backend/pkg/db/models"
)

// Repository manages persistence for audit log entries. The table is
// append-only; there is deliberately no update or delete surface.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.AuditLogEntry) error
	ListByTarget(ctx context.Context, targetID uuid.UUID, limit int) ([]models.AuditLogEntry, error)
	ListByActor(ctx context.Context, actorID uuid.UUID, limit int) ([]models.AuditLogEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an audit repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.AuditLogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByTarget(ctx context.Context, targetID uuid.UUID, limit int) ([]models.AuditLogEntry, error) {
	var entries []models.AuditLogEntry
	if err := r.db.WithContext(ctx).
		Where("target_id = ?", targetID).
		Order("created_at DESC").
		Limit(normalizeListLimit(limit)).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListByActor(ctx context.Context, actorID uuid.UUID, limit int) ([]models.AuditLogEntry, error) {
	var entries []models.AuditLogEntry
	if err := r.db.WithContext(ctx).
		Where("actor_id = ?", actorID).
		Order("created_at DESC").
		Limit(normalizeListLimit(limit)).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func normalizeListLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 200 {
		return 200
	}
	return limit
}
