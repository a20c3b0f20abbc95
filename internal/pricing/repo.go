package pricing

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nocturne-labs/ghostpass-backend/pkg/db/models"
)

// Repository manages persistence for pass prices.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByDuration(ctx context.Context, durationDays int) (*models.PassPrice, error)
	Upsert(ctx context.Context, price *models.PassPrice) error
	List(ctx context.Context) ([]models.PassPrice, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a pricing repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByDuration(ctx context.Context, durationDays int) (*models.PassPrice, error) {
	var price models.PassPrice
	if err := r.db.WithContext(ctx).
		Where("duration_days = ?", durationDays).
		First(&price).Error; err != nil {
		return nil, err
	}
	return &price, nil
}

func (r *repository) Upsert(ctx context.Context, price *models.PassPrice) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "duration_days"}},
			DoUpdates: clause.AssignmentColumns([]string{"amount_cents", "updated_at"}),
		}).
		Create(price).Error
}

func (r *repository) List(ctx context.Context) ([]models.PassPrice, error) {
	var prices []models.PassPrice
	if err := r.db.WithContext(ctx).
		Order("duration_days ASC").
		Find(&prices).Error; err != nil {
		return nil, err
	}
	return prices, nil
}
