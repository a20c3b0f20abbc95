package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nocturne-labs/ghostpass-backend/internal/audit"
	dbpkg "github.com/nocturne-labs/ghostpass-backend/pkg/db"
	"github.com/nocturne-labs/ghostpass-backend/pkg/db/models"
	"github.com/nocturne-labs/ghostpass-backend/pkg/enums"
	pkgerrors "github.com/nocturne-labs/ghostpass-backend/pkg/errors"
	"github.com/nocturne-labs/ghostpass-backend/pkg/outbox"
	"github.com/nocturne-labs/ghostpass-backend/pkg/outbox/payloads"
	"github.com/nocturne-labs/ghostpass-backend/pkg/pagination"
)

// Sentinel errors for the ledger operations. They carry typed codes so the
// HTTP layer maps them without string matching.
var (
	ErrWalletNotFound      = pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
	ErrWalletExists        = pkgerrors.New(pkgerrors.CodeConflict, "wallet already exists for owner")
	ErrInvalidAmount       = pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	ErrInvalidSource       = pkgerrors.New(pkgerrors.CodeValidation, "unrecognized funding source")
	ErrInsufficientBalance = pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient balance")
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type auditRecorder interface {
	RecordTx(ctx context.Context, tx *gorm.DB, input audit.RecordInput) (*models.AuditLogEntry, error)
}

// Service exposes the wallet ledger operations.
type Service interface {
	CreateWallet(ctx context.Context, ownerID uuid.UUID) (*models.Wallet, error)
	GetWallet(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error)
	GetWalletByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Wallet, error)
	Credit(ctx context.Context, input CreditInput) (*MutationResult, error)
	Debit(ctx context.Context, input DebitInput) (*MutationResult, error)
	DebitTx(ctx context.Context, tx *gorm.DB, input DebitInput) (*MutationResult, error)
	ListTransactions(ctx context.Context, walletID uuid.UUID, params pagination.Params) ([]models.LedgerTransaction, string, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	audit  auditRecorder
	outbox outboxPublisher
}

// CreditInput funds a wallet from an external rail.
type CreditInput struct {
	WalletID    uuid.UUID
	AmountCents int64
	Source      enums.FundingSource
	ActorID     uuid.UUID
}

// DebitInput charges a wallet. PassID and FeeSplit are attached to the
// ledger row when the debit belongs to a pass purchase.
type DebitInput struct {
	WalletID    uuid.UUID
	AmountCents int64
	ActorID     uuid.UUID
	PassID      *uuid.UUID
	FeeSplit    json.RawMessage
}

// MutationResult reports the committed outcome of a ledger operation.
type MutationResult struct {
	Wallet      *models.Wallet
	Transaction *models.LedgerTransaction
}

// NewService wires a wallet service with its dependencies.
func NewService(repo Repository, tx txRunner, auditSvc auditRecorder, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
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

func (s *service) CreateWallet(ctx context.Context, ownerID uuid.UUID) (*models.Wallet, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	wallet := &models.Wallet{
		ID:      uuid.New(),
		OwnerID: ownerID,
	}
	if err := s.repo.Create(ctx, wallet); err != nil {
		if dbpkg.IsUniqueViolation(err, "owner_id") {
			return nil, ErrWalletExists
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create wallet")
	}
	return wallet, nil
}

func (s *service) GetWallet(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error) {
	if walletID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wallet id required")
	}
	wallet, err := s.repo.FindByID(ctx, walletID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	return wallet, nil
}

func (s *service) GetWalletByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Wallet, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	wallet, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	return wallet, nil
}

// Credit increases the balance inside its own transaction, writing the
// ledger row, the audit entry, and the wallet_funded event together.
func (s *service) Credit(ctx context.Context, input CreditInput) (*MutationResult, error) {
	if input.WalletID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wallet id required")
	}
	if input.AmountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	if !input.Source.IsValid() || !input.Source.IsExternal() {
		return nil, ErrInvalidSource
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}

	var result *MutationResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		wallet, err := repo.FindByIDForUpdate(ctx, input.WalletID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWalletNotFound
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock wallet")
		}

		newBalance := wallet.BalanceCents + input.AmountCents
		if err := repo.UpdateBalance(ctx, wallet.ID, newBalance, wallet.Version); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update balance")
		}
		wallet.BalanceCents = newBalance
		wallet.Version++

		txn := &models.LedgerTransaction{
			ID:          uuid.New(),
			WalletID:    wallet.ID,
			AmountCents: input.AmountCents,
			Source:      input.Source,
			Status:      enums.TransactionStatusCommitted,
		}
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record credit")
		}

		if _, err := s.audit.RecordTx(ctx, tx, audit.RecordInput{
			ActorID:  input.ActorID,
			Action:   enums.AuditActionWalletCredit,
			TargetID: wallet.ID,
			Snapshot: creditSnapshot(wallet, txn),
		}); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWalletFunded,
			AggregateType: enums.AggregateWallet,
			AggregateID:   wallet.ID,
			Actor:         &outbox.ActorRef{ActorID: input.ActorID},
			Data: payloads.WalletFundedEvent{
				WalletID:      wallet.ID,
				OwnerID:       wallet.OwnerID,
				TransactionID: txn.ID,
				AmountCents:   input.AmountCents,
				Source:        input.Source,
				BalanceCents:  wallet.BalanceCents,
			},
		}); err != nil {
			return err
		}

		result = &MutationResult{Wallet: wallet, Transaction: txn}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Debit runs DebitTx inside its own transaction.
func (s *service) Debit(ctx context.Context, input DebitInput) (*MutationResult, error) {
	var result *MutationResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var innerErr error
		result, innerErr = s.DebitTx(ctx, tx, input)
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DebitTx decreases the balance inside the caller's transaction so the
// purchase coordinator can compose it with pass creation atomically. The
// wallet row lock taken here serializes every balance mutation and, because
// wallets are one-per-owner, also the one-active-pass check that follows.
func (s *service) DebitTx(ctx context.Context, tx *gorm.DB, input DebitInput) (*MutationResult, error) {
	if input.WalletID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wallet id required")
	}
	if input.AmountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}

	repo := s.repo.WithTx(tx)
	wallet, err := repo.FindByIDForUpdate(ctx, input.WalletID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock wallet")
	}

	if wallet.BalanceCents < input.AmountCents {
		return nil, ErrInsufficientBalance
	}

	newBalance := wallet.BalanceCents - input.AmountCents
	if err := repo.UpdateBalance(ctx, wallet.ID, newBalance, wallet.Version); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update balance")
	}
	wallet.BalanceCents = newBalance
	wallet.Version++

	txn := &models.LedgerTransaction{
		ID:          uuid.New(),
		WalletID:    wallet.ID,
		AmountCents: -input.AmountCents,
		Source:      enums.FundingSourceInternal,
		Status:      enums.TransactionStatusCommitted,
		PassID:      input.PassID,
		FeeSplit:    input.FeeSplit,
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record debit")
	}

	if _, err := s.audit.RecordTx(ctx, tx, audit.RecordInput{
		ActorID:  input.ActorID,
		Action:   enums.AuditActionWalletDebit,
		TargetID: wallet.ID,
		Snapshot: debitSnapshot(wallet, txn),
	}); err != nil {
		return nil, err
	}

	return &MutationResult{Wallet: wallet, Transaction: txn}, nil
}

func (s *service) ListTransactions(ctx context.Context, walletID uuid.UUID, params pagination.Params) ([]models.LedgerTransaction, string, error) {
	if walletID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "wallet id required")
	}
	if _, err := s.GetWallet(ctx, walletID); err != nil {
		return nil, "", err
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	var (
		beforeAt *time.Time
		beforeID *uuid.UUID
	)
	if cursor != nil {
		beforeAt = &cursor.CreatedAt
		beforeID = &cursor.ID
	}

	txns, err := s.repo.ListTransactions(ctx, walletID, limit+1, beforeAt, beforeID)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}

	next := ""
	if len(txns) > limit {
		txns = txns[:limit]
		last := txns[len(txns)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return txns, next, nil
}

func creditSnapshot(wallet *models.Wallet, txn *models.LedgerTransaction) map[string]any {
	return map[string]any{
		"transaction_id": txn.ID,
		"amount_cents":   txn.AmountCents,
		"source":         txn.Source,
		"balance_cents":  wallet.BalanceCents,
		"version":        wallet.Version,
	}
}

func debitSnapshot(wallet *models.Wallet, txn *models.LedgerTransaction) map[string]any {
	snapshot := map[string]any{
		"transaction_id": txn.ID,
		"amount_cents":   txn.AmountCents,
		"balance_cents":  wallet.BalanceCents,
		"version":        wallet.Version,
	}
	if txn.PassID != nil {
		snapshot["pass_id"] = *txn.PassID
	}
	return snapshot
}
