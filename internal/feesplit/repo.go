package feesplit

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nocturne-labs/ghostpass-backend/pkg/db/models"
)

// Repository manages persistence for fee configurations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByScope(ctx context.Context, scope string) (*models.FeeConfig, error)
	Upsert(ctx context.Context, cfg *models.FeeConfig) error
	List(ctx context.Context) ([]models.FeeConfig, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a fee config repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByScope(ctx context.Context, scope string) (*models.FeeConfig, error) {
	var cfg models.FeeConfig
	if err := r.db.WithContext(ctx).
		Where("scope = ?", scope).
		First(&cfg).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *repository) Upsert(ctx context.Context, cfg *models.FeeConfig) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "scope"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"valid_pct", "vendor_pct", "pool_pct", "promoter_pct", "updated_at",
			}),
		}).
		Create(cfg).Error
}

func (r *repository) List(ctx context.Context) ([]models.FeeConfig, error) {
	var configs []models.FeeConfig
	if err := r.db.WithContext(ctx).
		Order("scope ASC").
		Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}
