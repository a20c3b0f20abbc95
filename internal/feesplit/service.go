package feesplit

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nocturne-labs/ghostpass-backend/internal/audit"
	"github.com/nocturne-labs/ghostpass-backend/pkg/db/models"
	"github.com/nocturne-labs/ghostpass-backend/pkg/enums"
	pkgerrors "github.com/nocturne-labs/ghostpass-backend/pkg/errors"
	"github.com/nocturne-labs/ghostpass-backend/pkg/outbox"
	"github.com/nocturne-labs/ghostpass-backend/pkg/outbox/payloads"
)

// ErrFeeConfigNotFound is returned when no configuration exists for a scope
// and the default scope is also missing.
var ErrFeeConfigNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "fee configuration not found")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type auditRecorder interface {
	RecordTx(ctx context.Context, tx *gorm.DB, input audit.RecordInput) (*models.AuditLogEntry, error)
}

// Service resolves fee configuration and computes splits.
type Service interface {
	SplitForScope(ctx context.Context, scope string, amountCents int64) (Split, *models.FeeConfig, error)
	SplitWithRepo(ctx context.Context, repo Repository, scope string, amountCents int64) (Split, *models.FeeConfig, error)
	UpdateConfig(ctx context.Context, input UpdateConfigInput) (*models.FeeConfig, error)
	ListConfigs(ctx context.Context) ([]models.FeeConfig, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	audit  auditRecorder
	outbox outboxPublisher
}

// UpdateConfigInput carries a full replacement of a scope's percentages.
type UpdateConfigInput struct {
	Scope       string
	ValidPct    decimal.Decimal
	VendorPct   decimal.Decimal
	PoolPct     decimal.Decimal
	PromoterPct decimal.Decimal
	ActorID     uuid.UUID
}

// NewService wires a fee split service with its dependencies.
func NewService(repo Repository, tx txRunner, auditSvc auditRecorder, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("fee config repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if auditSvc == nil {
		return nil, fmt.Errorf("audit service required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, audit: auditSvc, outbox: outboxSvc}, nil
}

// SplitForScope loads the scope's configuration (falling back to the default
// scope) and computes the split for the amount.
func (s *service) SplitForScope(ctx context.Context, scope string, amountCents int64) (Split, *models.FeeConfig, error) {
	cfg, err := s.resolveConfig(ctx, s.repo, scope)
	if err != nil {
		return Split{}, nil, err
	}
	split, err := Compute(amountCents, *cfg)
	if err != nil {
		return Split{}, nil, err
	}
	return split, cfg, nil
}

// SplitWithRepo computes a split using a tx-bound repository so the purchase
// coordinator reads the configuration inside its own transaction.
func (s *service) SplitWithRepo(ctx context.Context, repo Repository, scope string, amountCents int64) (Split, *models.FeeConfig, error) {
	cfg, err := s.resolveConfig(ctx, repo, scope)
	if err != nil {
		return Split{}, nil, err
	}
	split, err := Compute(amountCents, *cfg)
	if err != nil {
		return Split{}, nil, err
	}
	return split, cfg, nil
}

func (s *service) resolveConfig(ctx context.Context, repo Repository, scope string) (*models.FeeConfig, error) {
	if scope == "" {
		scope = models.DefaultFeeScope
	}
	cfg, err := repo.FindByScope(ctx, scope)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fee config")
	}
	if scope == models.DefaultFeeScope {
		return nil, ErrFeeConfigNotFound
	}
	cfg, err = repo.FindByScope(ctx, models.DefaultFeeScope)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFeeConfigNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load default fee config")
	}
	return cfg, nil
}

func (s *service) UpdateConfig(ctx context.Context, input UpdateConfigInput) (*models.FeeConfig, error) {
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}
	scope := input.Scope
	if scope == "" {
		scope = models.DefaultFeeScope
	}

	cfg := &models.FeeConfig{
		Scope:       scope,
		ValidPct:    input.ValidPct,
		VendorPct:   input.VendorPct,
		PoolPct:     input.PoolPct,
		PromoterPct: input.PromoterPct,
	}
	if err := ValidatePercentages(*cfg); err != nil {
		return nil, err
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Upsert(ctx, cfg); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store fee config")
		}

		if _, err := s.audit.RecordTx(ctx, tx, audit.RecordInput{
			ActorID:  input.ActorID,
			Action:   enums.AuditActionFeeConfigUpdate,
			TargetID: uuid.NewSHA1(uuid.NameSpaceOID, []byte("fee_config:"+scope)),
			Snapshot: cfg,
		}); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventFeeConfigUpdated,
			AggregateType: enums.AggregateFeeConfig,
			AggregateID:   uuid.NewSHA1(uuid.NameSpaceOID, []byte("fee_config:"+scope)),
			Actor:         &outbox.ActorRef{ActorID: input.ActorID},
			Data: payloads.FeeConfigUpdatedEvent{
				Scope:       scope,
				ValidPct:    cfg.ValidPct.String(),
				VendorPct:   cfg.VendorPct.String(),
				PoolPct:     cfg.PoolPct.String(),
				PromoterPct: cfg.PromoterPct.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *service) ListConfigs(ctx context.Context) ([]models.FeeConfig, error) {
	configs, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list fee configs")
	}
	return configs, nil
}
