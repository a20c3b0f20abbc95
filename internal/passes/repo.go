package passes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nocturne-labs/ghostpass-backend/pkg/db/models"
	"github.com/nocturne-labs/ghostpass-backend/pkg/enums"
)

// Repository manages persistence for ghost passes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, pass *models.GhostPass) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.GhostPass, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*models.GhostPass, error)
	FindLatestByOwner(ctx context.Context, ownerID uuid.UUID) (*models.GhostPass, error)
	FindActiveByOwner(ctx context.Context, ownerID uuid.UUID, now time.Time) (*models.GhostPass, error)
	MarkRevoked(ctx context.Context, id uuid.UUID, revokedAt time.Time) error
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.GhostPass, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a pass repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, pass *models.GhostPass) error {
	return r.db.WithContext(ctx).Create(pass).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.GhostPass, error) {
	var pass models.GhostPass
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&pass).Error; err != nil {
		return nil, err
	}
	return &pass, nil
}

func (r *repository) FindByIdempotencyKey(ctx context.Context, key string) (*models.GhostPass, error) {
	var pass models.GhostPass
	if err := r.db.WithContext(ctx).
		Where("idempotency_key = ?", key).
		First(&pass).Error; err != nil {
		return nil, err
	}
	return &pass, nil
}

func (r *repository) FindLatestByOwner(ctx context.Context, ownerID uuid.UUID) (*models.GhostPass, error) {
	var pass models.GhostPass
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		First(&pass).Error; err != nil {
		return nil, err
	}
	return &pass, nil
}

// FindActiveByOwner returns the owner's pass whose derived status is ACTIVE
// at the given instant, if any. The expiry comparison happens in the query so
// a stored-ACTIVE-but-expired pass never counts as active.
func (r *repository) FindActiveByOwner(ctx context.Context, ownerID uuid.UUID, now time.Time) (*models.GhostPass, error) {
	var pass models.GhostPass
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND status = ? AND expires_at > ?", ownerID, enums.PassStatusActive, now).
		First(&pass).Error; err != nil {
		return nil, err
	}
	return &pass, nil
}

func (r *repository) MarkRevoked(ctx context.Context, id uuid.UUID, revokedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.GhostPass{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     enums.PassStatusRevoked,
			"revoked_at": revokedAt,
		}).Error
}

func (r *repository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.GhostPass, error) {
	if limit <= 0 {
		limit = 25
	}
	var out []models.GhostPass
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
