package sensory

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nocturne-labs/ghostpass-backend/pkg/db/models"
)

// Repository reads and writes the authority policy table. The evaluator never
// queries it per signal; it loads the whole table into a snapshot instead.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListAll(ctx context.Context) ([]models.AuthorityPolicy, error)
	Upsert(ctx context.Context, policy *models.AuthorityPolicy) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListAll(ctx context.Context) ([]models.AuthorityPolicy, error) {
	var policies []models.AuthorityPolicy
	if err := r.db.WithContext(ctx).
		Order("channel ASC").
		Find(&policies).Error; err != nil {
		return nil, err
	}
	return policies, nil
}

func (r *repository) Upsert(ctx context.Context, policy *models.AuthorityPolicy) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "channel"}},
			DoUpdates: clause.AssignmentColumns([]string{"required", "has_authority_token", "updated_at"}),
		}).
		Create(policy).Error
}
