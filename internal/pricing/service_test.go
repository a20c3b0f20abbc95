package pricing

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/nocturne-labs/ghostpass-backend/pkg/db/models"
)

type stubRepo struct {
	prices map[int]models.PassPrice
	stored *models.PassPrice
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubRepo) FindByDuration(ctx context.Context, durationDays int) (*models.PassPrice, error) {
	price, ok := s.prices[durationDays]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &price, nil
}

func (s *stubRepo) Upsert(ctx context.Context, price *models.PassPrice) error {
	s.stored = price
	return nil
}

func (s *stubRepo) List(ctx context.Context) ([]models.PassPrice, error) {
	var out []models.PassPrice
	for _, price := range s.prices {
		out = append(out, price)
	}
	return out, nil
}

func TestPriceForDuration(t *testing.T) {
	repo := &stubRepo{prices: map[int]models.PassPrice{
		7: {DurationDays: 7, AmountCents: 2500},
	}}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}

	price, err := svc.PriceForDuration(context.Background(), 7)
	if err != nil {
		t.Fatalf("PriceForDuration error: %v", err)
	}
	if price.AmountCents != 2500 {
		t.Fatalf("unexpected price %+v", price)
	}
}

func TestPriceForDurationNotFound(t *testing.T) {
	repo := &stubRepo{prices: map[int]models.PassPrice{}}
	svc, _ := NewService(repo)

	_, err := svc.PriceForDuration(context.Background(), 14)
	if !errors.Is(err, ErrPricingNotFound) {
		t.Fatalf("expected ErrPricingNotFound, got %v", err)
	}
}

func TestPriceForDurationInvalidInput(t *testing.T) {
	repo := &stubRepo{prices: map[int]models.PassPrice{}}
	svc, _ := NewService(repo)

	for _, duration := range []int{0, -1} {
		if _, err := svc.PriceForDuration(context.Background(), duration); err == nil {
			t.Fatalf("expected validation error for duration %d", duration)
		}
	}
}

func TestSetPrice(t *testing.T) {
	repo := &stubRepo{prices: map[int]models.PassPrice{}}
	svc, _ := NewService(repo)

	price, err := svc.SetPrice(context.Background(), 30, 8000)
	if err != nil {
		t.Fatalf("SetPrice error: %v", err)
	}
	if repo.stored == nil || repo.stored.DurationDays != 30 {
		t.Fatalf("price not stored: %+v", repo.stored)
	}
	if price.AmountCents != 8000 {
		t.Fatalf("unexpected price %+v", price)
	}

	if _, err := svc.SetPrice(context.Background(), 30, 0); err == nil {
		t.Fatal("expected validation error for zero amount")
	}
}
