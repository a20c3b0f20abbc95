package purchase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nocturne-labs/ghostpass-backend/internal/audit"
	"github.com/nocturne-labs/ghostpass-backend/internal/feesplit"
	"github.com/nocturne-labs/ghostpass-backend/internal/passes"
	"github.com/nocturne-labs/ghostpass-backend/internal/pricing"
	"github.com/nocturne-labs/ghostpass-backend/internal/wallet"
	dbpkg "github.com/nocturne-labs/ghostpass-backend/pkg/db"
	"github.com/nocturne-labs/ghostpass-backend/pkg/db/models"
	"github.com/nocturne-labs/ghostpass-backend/pkg/enums"
	pkgerrors "github.com/nocturne-labs/ghostpass-backend/pkg/errors"
	"github.com/nocturne-labs/ghostpass-backend/pkg/logger"
	"github.com/nocturne-labs/ghostpass-backend/pkg/metrics"
	"github.com/nocturne-labs/ghostpass-backend/pkg/outbox"
	"github.com/nocturne-labs/ghostpass-backend/pkg/outbox/payloads"
)

// ErrPassAlreadyActive rejects a purchase while the owner's current pass is
// still active.
var ErrPassAlreadyActive = pkgerrors.New(pkgerrors.CodeStateConflict, "owner already holds an active pass")

const operationPurchase = "purchase"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type auditRecorder interface {
	RecordTx(ctx context.Context, tx *gorm.DB, input audit.RecordInput) (*models.AuditLogEntry, error)
}

type walletDebiter interface {
	DebitTx(ctx context.Context, tx *gorm.DB, input wallet.DebitInput) (*wallet.MutationResult, error)
}

type feeSplitter interface {
	SplitWithRepo(ctx context.Context, repo feesplit.Repository, scope string, amountCents int64) (feesplit.Split, *models.FeeConfig, error)
}

type priceResolver interface {
	PriceForDurationWithRepo(ctx context.Context, repo pricing.Repository, durationDays int) (*models.PassPrice, error)
}

// Service is the transaction coordinator: one purchase spans the debit, the
// fee split, the pass creation, and the audit write as a single atomic unit.
type Service interface {
	Purchase(ctx context.Context, input Input) (*Result, error)
}

// Input identifies the purchase request.
type Input struct {
	OwnerID        uuid.UUID
	DurationDays   int
	IdempotencyKey string
	Scope          string
	ActorID        uuid.UUID
}

// Result reports a committed purchase. Reused is true when the idempotency
// key matched a prior committed purchase and no new debit happened.
type Result struct {
	PassID             uuid.UUID      `json:"pass_id"`
	ExpiresAt          time.Time      `json:"expires_at"`
	AmountChargedCents int64          `json:"amount_charged_cents"`
	Split              feesplit.Split `json:"fee_split"`
	Reused             bool           `json:"-"`
}

type Params struct {
	Passes      passes.Repository
	Wallets     wallet.Repository
	WalletSvc   walletDebiter
	Pricing     pricing.Repository
	PricingSvc  priceResolver
	FeeConfigs  feesplit.Repository
	FeeSplitSvc feeSplitter
	Tx          txRunner
	Audit       auditRecorder
	Outbox      outboxPublisher
	Metrics     *metrics.OperationMetrics
	Logger      *logger.Logger
}

type service struct {
	passes  passes.Repository
	wallets wallet.Repository
	wallet  walletDebiter
	pricing pricing.Repository
	prices  priceResolver
	fees    feesplit.Repository
	split   feeSplitter
	tx      txRunner
	audit   auditRecorder
	outbox  outboxPublisher
	metrics *metrics.OperationMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService wires the purchase coordinator.
func NewService(params Params) (Service, error) {
	if params.Passes == nil {
		return nil, fmt.Errorf("pass repository required")
	}
	if params.Wallets == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if params.WalletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if params.Pricing == nil {
		return nil, fmt.Errorf("pricing repository required")
	}
	if params.PricingSvc == nil {
		return nil, fmt.Errorf("pricing service required")
	}
	if params.FeeConfigs == nil {
		return nil, fmt.Errorf("fee config repository required")
	}
	if params.FeeSplitSvc == nil {
		return nil, fmt.Errorf("fee split service required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Audit == nil {
		return nil, fmt.Errorf("audit service required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		passes:  params.Passes,
		wallets: params.Wallets,
		wallet:  params.WalletSvc,
		pricing: params.Pricing,
		prices:  params.PricingSvc,
		fees:    params.FeeConfigs,
		split:   params.FeeSplitSvc,
		tx:      params.Tx,
		audit:   params.Audit,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     time.Now,
	}, nil
}

// Purchase commits the debit, the fee split, the pass, and the audit entry
// together, or nothing at all. Retries under the same idempotency key return
// the first committed result without a second charge.
func (s *service) Purchase(ctx context.Context, input Input) (*Result, error) {
	started := s.now()
	result, err := s.purchase(ctx, input)
	s.metrics.ObserveDuration(operationPurchase, s.now().Sub(started))
	if err != nil {
		s.metrics.IncFailure(operationPurchase)
		return nil, err
	}
	s.metrics.IncSuccess(operationPurchase)
	return result, nil
}

func (s *service) purchase(ctx context.Context, input Input) (*Result, error) {
	if input.OwnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	if input.DurationDays <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "duration must be positive")
	}
	if input.IdempotencyKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key required")
	}
	actorID := input.ActorID
	if actorID == uuid.Nil {
		actorID = input.OwnerID
	}

	// Committed retries short-circuit before any transaction is opened.
	if prior, err := s.findPrior(ctx, input.IdempotencyKey); err != nil {
		return nil, err
	} else if prior != nil {
		return prior, nil
	}

	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		passRepo := s.passes.WithTx(tx)
		walletRepo := s.wallets.WithTx(tx)

		// The wallet row lock is the per-owner critical section: it
		// serializes the balance mutation and the one-active-pass check.
		ownerWallet, err := walletRepo.FindByOwnerForUpdate(ctx, input.OwnerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return wallet.ErrWalletNotFound
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock wallet")
		}

		if prior, err := passRepo.FindByIdempotencyKey(ctx, input.IdempotencyKey); err == nil {
			result = resultFromPass(prior, true)
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency key")
		}

		now := s.now()
		if _, err := passRepo.FindActiveByOwner(ctx, input.OwnerID, now); err == nil {
			return ErrPassAlreadyActive
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active pass")
		}

		price, err := s.prices.PriceForDurationWithRepo(ctx, s.pricing.WithTx(tx), input.DurationDays)
		if err != nil {
			return err
		}

		split, _, err := s.split.SplitWithRepo(ctx, s.fees.WithTx(tx), input.Scope, price.AmountCents)
		if err != nil {
			return err
		}
		splitJSON, err := json.Marshal(split)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode fee split")
		}

		passID := uuid.New()
		debit, err := s.wallet.DebitTx(ctx, tx, wallet.DebitInput{
			WalletID:    ownerWallet.ID,
			AmountCents: price.AmountCents,
			ActorID:     actorID,
			PassID:      &passID,
			FeeSplit:    splitJSON,
		})
		if err != nil {
			return err
		}

		pass := &models.GhostPass{
			ID:                 passID,
			OwnerID:            input.OwnerID,
			Status:             enums.PassStatusActive,
			DurationDays:       input.DurationDays,
			AmountChargedCents: price.AmountCents,
			IdempotencyKey:     input.IdempotencyKey,
			ActivatedAt:        now,
			ExpiresAt:          now.AddDate(0, 0, input.DurationDays),
		}
		if err := passRepo.Create(ctx, pass); err != nil {
			if dbpkg.IsUniqueViolation(err, "idempotency_key") {
				return errIdempotencyRace
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create pass")
		}

		if _, err := s.audit.RecordTx(ctx, tx, audit.RecordInput{
			ActorID:  actorID,
			Action:   enums.AuditActionPassPurchase,
			TargetID: pass.ID,
			Snapshot: map[string]any{
				"owner_id":             pass.OwnerID,
				"duration_days":        pass.DurationDays,
				"amount_charged_cents": pass.AmountChargedCents,
				"transaction_id":       debit.Transaction.ID,
				"fee_split":            split,
				"expires_at":           pass.ExpiresAt,
			},
		}); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPassPurchased,
			AggregateType: enums.AggregateGhostPass,
			AggregateID:   pass.ID,
			Actor:         &outbox.ActorRef{ActorID: actorID},
			Data: payloads.PassPurchasedEvent{
				PassID:             pass.ID,
				OwnerID:            pass.OwnerID,
				WalletID:           ownerWallet.ID,
				TransactionID:      debit.Transaction.ID,
				DurationDays:       pass.DurationDays,
				AmountChargedCents: pass.AmountChargedCents,
				FeeSplit: payloads.FeeSplitPayload{
					ValidCents:    split.ValidCents,
					VendorCents:   split.VendorCents,
					PoolCents:     split.PoolCents,
					PromoterCents: split.PromoterCents,
				},
				ActivatedAt: pass.ActivatedAt,
				ExpiresAt:   pass.ExpiresAt,
			},
		}); err != nil {
			return err
		}

		result = &Result{
			PassID:             pass.ID,
			ExpiresAt:          pass.ExpiresAt,
			AmountChargedCents: pass.AmountChargedCents,
			Split:              split,
		}
		return nil
	})
	if err != nil {
		// A concurrent request with the same key won the race; its
		// committed result is the answer.
		if errors.Is(err, errIdempotencyRace) {
			if prior, priorErr := s.findPrior(ctx, input.IdempotencyKey); priorErr == nil && prior != nil {
				return prior, nil
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeIdempotency, err, "idempotency race lost and prior result missing")
		}
		return nil, err
	}
	return result, nil
}

var errIdempotencyRace = errors.New("idempotency key raced")

func (s *service) findPrior(ctx context.Context, key string) (*Result, error) {
	pass, err := s.passes.FindByIdempotencyKey(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency key")
	}
	return resultFromPass(pass, true), nil
}

func resultFromPass(pass *models.GhostPass, reused bool) *Result {
	return &Result{
		PassID:             pass.ID,
		ExpiresAt:          pass.ExpiresAt,
		AmountChargedCents: pass.AmountChargedCents,
		Reused:             reused,
	}
}
