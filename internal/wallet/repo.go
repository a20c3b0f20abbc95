package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nocturne-labs/ghostpass-backend/pkg/db/models"
)

// ErrVersionConflict reports that a balance write lost an optimistic-lock
// race. Callers inside a FOR UPDATE critical section should never see it.
var ErrVersionConflict = errors.New("wallet version conflict")

// Repository manages persistence for wallets and their ledger transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, wallet *models.Wallet) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error)
	FindByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Wallet, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Wallet, error)
	FindByOwnerForUpdate(ctx context.Context, ownerID uuid.UUID) (*models.Wallet, error)
	UpdateBalance(ctx context.Context, id uuid.UUID, newBalance, expectedVersion int64) error
	CreateTransaction(ctx context.Context, txn *models.LedgerTransaction) error
	ListTransactions(ctx context.Context, walletID uuid.UUID, limit int, before *time.Time, beforeID *uuid.UUID) ([]models.LedgerTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, wallet *models.Wallet) error {
	return r.db.WithContext(ctx).Create(wallet).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) FindByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// FindByIDForUpdate takes the wallet's row lock for the remainder of the
// transaction, serializing concurrent balance mutations per wallet.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) FindByOwnerForUpdate(ctx context.Context, ownerID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("owner_id = ?", ownerID).
		First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// UpdateBalance applies a version-guarded balance write. Zero affected rows
// means the version moved underneath us.
func (r *repository) UpdateBalance(ctx context.Context, id uuid.UUID, newBalance, expectedVersion int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]any{
			"balance_cents": newBalance,
			"version":       expectedVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.LedgerTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

// ListTransactions returns the newest transactions first, keyset-paged on
// (created_at, id).
func (r *repository) ListTransactions(ctx context.Context, walletID uuid.UUID, limit int, before *time.Time, beforeID *uuid.UUID) ([]models.LedgerTransaction, error) {
	query := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit)
	if before != nil && beforeID != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", *before, *before, *beforeID)
	}

	var txns []models.LedgerTransaction
	if err := query.Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}
