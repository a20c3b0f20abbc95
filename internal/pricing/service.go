package pricing

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/nocturne-labs/ghostpass-backend/pkg/db/models"
	pkgerrors "github.com/nocturne-labs/ghostpass-backend/pkg/errors"
)

// ErrPricingNotFound is returned when no price exists for a duration.
var ErrPricingNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "no price configured for requested duration")

// Service resolves the charge for a pass duration.
type Service interface {
	PriceForDuration(ctx context.Context, durationDays int) (*models.PassPrice, error)
	PriceForDurationWithRepo(ctx context.Context, repo Repository, durationDays int) (*models.PassPrice, error)
	SetPrice(ctx context.Context, durationDays int, amountCents int64) (*models.PassPrice, error)
	ListPrices(ctx context.Context) ([]models.PassPrice, error)
}

type service struct {
	repo Repository
}

// NewService wires a pricing service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("pricing repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) PriceForDuration(ctx context.Context, durationDays int) (*models.PassPrice, error) {
	return s.PriceForDurationWithRepo(ctx, s.repo, durationDays)
}

// PriceForDurationWithRepo resolves a price through a tx-bound repository so
// the purchase coordinator reads pricing inside its own transaction.
func (s *service) PriceForDurationWithRepo(ctx context.Context, repo Repository, durationDays int) (*models.PassPrice, error) {
	if durationDays <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "duration must be positive")
	}
	price, err := repo.FindByDuration(ctx, durationDays)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPricingNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pass price")
	}
	return price, nil
}

func (s *service) SetPrice(ctx context.Context, durationDays int, amountCents int64) (*models.PassPrice, error) {
	if durationDays <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "duration must be positive")
	}
	if amountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	price := &models.PassPrice{
		DurationDays: durationDays,
		AmountCents:  amountCents,
	}
	if err := s.repo.Upsert(ctx, price); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store pass price")
	}
	return price, nil
}

func (s *service) ListPrices(ctx context.Context) ([]models.PassPrice, error) {
	prices, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pass prices")
	}
	return prices, nil
}
