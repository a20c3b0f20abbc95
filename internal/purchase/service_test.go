package purchase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nocturne-labs/ghostpass-backend/internal/audit"
	"github.com/nocturne-labs/ghostpass-backend/internal/feesplit"
	"github.com/nocturne-labs/ghostpass-backend/internal/passes"
	"github.com/nocturne-labs/ghostpass-backend/internal/pricing"
	"github.com/nocturne-labs/ghostpass-backend/internal/wallet"
	"github.com/nocturne-labs/ghostpass-backend/pkg/db/models"
	"github.com/nocturne-labs/ghostpass-backend/pkg/enums"
	"github.com/nocturne-labs/ghostpass-backend/pkg/outbox"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakePassRepo struct {
	byID     map[uuid.UUID]*models.GhostPass
	onCreate func() error
}

func newFakePassRepo() *fakePassRepo {
	return &fakePassRepo{byID: map[uuid.UUID]*models.GhostPass{}}
}

func (f *fakePassRepo) WithTx(tx *gorm.DB) passes.Repository { return f }

func (f *fakePassRepo) Create(ctx context.Context, pass *models.GhostPass) error {
	if f.onCreate != nil {
		hook := f.onCreate
		f.onCreate = nil
		if err := hook(); err != nil {
			return err
		}
	}
	copied := *pass
	f.byID[pass.ID] = &copied
	return nil
}

func (f *fakePassRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.GhostPass, error) {
	pass, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *pass
	return &copied, nil
}

func (f *fakePassRepo) FindByIdempotencyKey(ctx context.Context, key string) (*models.GhostPass, error) {
	for _, pass := range f.byID {
		if pass.IdempotencyKey == key {
			copied := *pass
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePassRepo) FindLatestByOwner(ctx context.Context, ownerID uuid.UUID) (*models.GhostPass, error) {
	var latest *models.GhostPass
	for _, pass := range f.byID {
		if pass.OwnerID != ownerID {
			continue
		}
		if latest == nil || pass.ActivatedAt.After(latest.ActivatedAt) {
			latest = pass
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *latest
	return &copied, nil
}

func (f *fakePassRepo) FindActiveByOwner(ctx context.Context, ownerID uuid.UUID, now time.Time) (*models.GhostPass, error) {
	for _, pass := range f.byID {
		if pass.OwnerID == ownerID && pass.Status == enums.PassStatusActive && pass.ExpiresAt.After(now) {
			copied := *pass
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePassRepo) MarkRevoked(ctx context.Context, id uuid.UUID, revokedAt time.Time) error {
	pass, ok := f.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	pass.Status = enums.PassStatusRevoked
	pass.RevokedAt = &revokedAt
	return nil
}

func (f *fakePassRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.GhostPass, error) {
	var out []models.GhostPass
	for _, pass := range f.byID {
		if pass.OwnerID == ownerID {
			out = append(out, *pass)
		}
	}
	return out, nil
}

type fakeWalletRepo struct {
	wallet *models.Wallet
}

func (f *fakeWalletRepo) WithTx(tx *gorm.DB) wallet.Repository { return f }

func (f *fakeWalletRepo) Create(ctx context.Context, w *models.Wallet) error { return nil }

func (f *fakeWalletRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	if f.wallet == nil || f.wallet.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *f.wallet
	return &copied, nil
}

func (f *fakeWalletRepo) FindByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Wallet, error) {
	if f.wallet == nil || f.wallet.OwnerID != ownerID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *f.wallet
	return &copied, nil
}

func (f *fakeWalletRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeWalletRepo) FindByOwnerForUpdate(ctx context.Context, ownerID uuid.UUID) (*models.Wallet, error) {
	return f.FindByOwner(ctx, ownerID)
}

func (f *fakeWalletRepo) UpdateBalance(ctx context.Context, id uuid.UUID, newBalance int64, expectedVersion int64) error {
	if f.wallet == nil || f.wallet.ID != id {
		return gorm.ErrRecordNotFound
	}
	if f.wallet.Version != expectedVersion {
		return wallet.ErrVersionConflict
	}
	f.wallet.BalanceCents = newBalance
	f.wallet.Version++
	return nil
}

func (f *fakeWalletRepo) CreateTransaction(ctx context.Context, txn *models.LedgerTransaction) error {
	return nil
}

func (f *fakeWalletRepo) ListTransactions(ctx context.Context, walletID uuid.UUID, limit int, before *time.Time, beforeID *uuid.UUID) ([]models.LedgerTransaction, error) {
	return nil, nil
}

// fakeDebiter mutates the fake wallet the way the real wallet service does,
// and counts debits so idempotent replays can prove no second charge ran.
type fakeDebiter struct {
	repo   *fakeWalletRepo
	debits int
}

func (f *fakeDebiter) DebitTx(ctx context.Context, tx *gorm.DB, input wallet.DebitInput) (*wallet.MutationResult, error) {
	w, err := f.repo.FindByOwnerForUpdate(ctx, f.repo.wallet.OwnerID)
	if err != nil {
		return nil, err
	}
	if w.BalanceCents < input.AmountCents {
		return nil, wallet.ErrInsufficientBalance
	}
	if err := f.repo.UpdateBalance(ctx, w.ID, w.BalanceCents-input.AmountCents, w.Version); err != nil {
		return nil, err
	}
	f.debits++
	w.BalanceCents -= input.AmountCents
	return &wallet.MutationResult{
		Wallet: w,
		Transaction: &models.LedgerTransaction{
			ID:          uuid.New(),
			WalletID:    w.ID,
			AmountCents: -input.AmountCents,
		},
	}, nil
}

type stubPriceResolver struct {
	prices map[int]int64
}

func (s stubPriceResolver) PriceForDurationWithRepo(ctx context.Context, repo pricing.Repository, durationDays int) (*models.PassPrice, error) {
	amount, ok := s.prices[durationDays]
	if !ok {
		return nil, pricing.ErrPricingNotFound
	}
	return &models.PassPrice{DurationDays: durationDays, AmountCents: amount}, nil
}

type stubSplitter struct{}

func (stubSplitter) SplitWithRepo(ctx context.Context, repo feesplit.Repository, scope string, amountCents int64) (feesplit.Split, *models.FeeConfig, error) {
	cfg := models.FeeConfig{
		ValidPct:    decimal.NewFromInt(70),
		VendorPct:   decimal.NewFromInt(15),
		PoolPct:     decimal.NewFromInt(10),
		PromoterPct: decimal.NewFromInt(5),
	}
	split, err := feesplit.Compute(amountCents, cfg)
	return split, &cfg, err
}

type stubAudit struct {
	entries []audit.RecordInput
	err     error
}

func (s *stubAudit) RecordTx(ctx context.Context, tx *gorm.DB, input audit.RecordInput) (*models.AuditLogEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.entries = append(s.entries, input)
	return &models.AuditLogEntry{ID: uuid.New()}, nil
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type fixture struct {
	svc     Service
	passes  *fakePassRepo
	wallets *fakeWalletRepo
	debiter *fakeDebiter
	audit   *stubAudit
	outbox  *stubOutbox
	ownerID uuid.UUID
}

func newFixture(t *testing.T, balanceCents int64) *fixture {
	t.Helper()
	ownerID := uuid.New()
	walletRepo := &fakeWalletRepo{wallet: &models.Wallet{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		BalanceCents: balanceCents,
		Version:      1,
	}}
	passRepo := newFakePassRepo()
	debiter := &fakeDebiter{repo: walletRepo}
	auditRec := &stubAudit{}
	outboxPub := &stubOutbox{}
	svc, err := NewService(Params{
		Passes:      passRepo,
		Wallets:     walletRepo,
		WalletSvc:   debiter,
		Pricing:     pricing.NewRepository(nil),
		PricingSvc:  stubPriceResolver{prices: map[int]int64{1: 500, 7: 2500, 30: 8000}},
		FeeConfigs:  feesplit.NewRepository(nil),
		FeeSplitSvc: stubSplitter{},
		Tx:          stubTxRunner{},
		Audit:       auditRec,
		Outbox:      outboxPub,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &fixture{
		svc:     svc,
		passes:  passRepo,
		wallets: walletRepo,
		debiter: debiter,
		audit:   auditRec,
		outbox:  outboxPub,
		ownerID: ownerID,
	}
}

func TestPurchaseChargesAndActivates(t *testing.T) {
	f := newFixture(t, 10_000)

	result, err := f.svc.Purchase(context.Background(), Input{
		OwnerID:        f.ownerID,
		DurationDays:   7,
		IdempotencyKey: "key-1",
	})
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	if result.Reused {
		t.Fatal("fresh purchase reported as reused")
	}
	if result.AmountChargedCents != 2500 {
		t.Fatalf("charged %d, want 2500", result.AmountChargedCents)
	}
	if f.wallets.wallet.BalanceCents != 7500 {
		t.Fatalf("balance %d, want 7500", f.wallets.wallet.BalanceCents)
	}
	if got := result.Split.Total(); got != 2500 {
		t.Fatalf("split total %d, want 2500", got)
	}

	pass, err := f.passes.FindByID(context.Background(), result.PassID)
	if err != nil {
		t.Fatalf("pass not persisted: %v", err)
	}
	if pass.Status != enums.PassStatusActive {
		t.Fatalf("status %s, want active", pass.Status)
	}
	if want := pass.ActivatedAt.AddDate(0, 0, 7); !pass.ExpiresAt.Equal(want) {
		t.Fatalf("expires_at %v, want %v", pass.ExpiresAt, want)
	}

	if len(f.audit.entries) != 1 || f.audit.entries[0].Action != enums.AuditActionPassPurchase {
		t.Fatalf("audit entries = %+v", f.audit.entries)
	}
	if len(f.outbox.events) != 1 || f.outbox.events[0].EventType != enums.EventPassPurchased {
		t.Fatalf("outbox events = %+v", f.outbox.events)
	}
}

func TestPurchaseIdempotentReplay(t *testing.T) {
	f := newFixture(t, 10_000)
	ctx := context.Background()

	first, err := f.svc.Purchase(ctx, Input{OwnerID: f.ownerID, DurationDays: 7, IdempotencyKey: "key-1"})
	if err != nil {
		t.Fatalf("first purchase: %v", err)
	}
	second, err := f.svc.Purchase(ctx, Input{OwnerID: f.ownerID, DurationDays: 7, IdempotencyKey: "key-1"})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}

	if !second.Reused {
		t.Fatal("replay not marked reused")
	}
	if second.PassID != first.PassID {
		t.Fatalf("replay pass %s, want %s", second.PassID, first.PassID)
	}
	if f.debiter.debits != 1 {
		t.Fatalf("debits = %d, want 1", f.debiter.debits)
	}
	if f.wallets.wallet.BalanceCents != 7500 {
		t.Fatalf("balance %d changed on replay", f.wallets.wallet.BalanceCents)
	}
}

func TestPurchaseRejectsSecondActivePass(t *testing.T) {
	f := newFixture(t, 10_000)
	ctx := context.Background()

	if _, err := f.svc.Purchase(ctx, Input{OwnerID: f.ownerID, DurationDays: 30, IdempotencyKey: "key-1"}); err != nil {
		t.Fatalf("first purchase: %v", err)
	}
	_, err := f.svc.Purchase(ctx, Input{OwnerID: f.ownerID, DurationDays: 1, IdempotencyKey: "key-2"})
	if !errors.Is(err, ErrPassAlreadyActive) {
		t.Fatalf("err = %v, want ErrPassAlreadyActive", err)
	}
	if f.debiter.debits != 1 {
		t.Fatalf("debits = %d, second purchase must not charge", f.debiter.debits)
	}
}

func TestPurchaseAfterExpiry(t *testing.T) {
	f := newFixture(t, 10_000)
	ctx := context.Background()

	// A stored ACTIVE pass that has lapsed must not block a new purchase.
	stale := &models.GhostPass{
		ID:             uuid.New(),
		OwnerID:        f.ownerID,
		Status:         enums.PassStatusActive,
		DurationDays:   1,
		IdempotencyKey: "old-key",
		ActivatedAt:    time.Now().Add(-48 * time.Hour),
		ExpiresAt:      time.Now().Add(-24 * time.Hour),
	}
	f.passes.byID[stale.ID] = stale

	if _, err := f.svc.Purchase(ctx, Input{OwnerID: f.ownerID, DurationDays: 7, IdempotencyKey: "key-1"}); err != nil {
		t.Fatalf("purchase after expiry: %v", err)
	}
}

func TestPurchaseInsufficientBalance(t *testing.T) {
	f := newFixture(t, 100)

	_, err := f.svc.Purchase(context.Background(), Input{OwnerID: f.ownerID, DurationDays: 7, IdempotencyKey: "key-1"})
	if !errors.Is(err, wallet.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	if len(f.passes.byID) != 0 {
		t.Fatal("pass persisted despite failed debit")
	}
	if len(f.outbox.events) != 0 {
		t.Fatal("event emitted despite failed debit")
	}
}

func TestPurchaseUnknownDuration(t *testing.T) {
	f := newFixture(t, 10_000)

	_, err := f.svc.Purchase(context.Background(), Input{OwnerID: f.ownerID, DurationDays: 14, IdempotencyKey: "key-1"})
	if !errors.Is(err, pricing.ErrPricingNotFound) {
		t.Fatalf("err = %v, want ErrPricingNotFound", err)
	}
	if f.debiter.debits != 0 {
		t.Fatal("unknown duration must not charge")
	}
}

func TestPurchaseUnknownOwner(t *testing.T) {
	f := newFixture(t, 10_000)

	_, err := f.svc.Purchase(context.Background(), Input{OwnerID: uuid.New(), DurationDays: 7, IdempotencyKey: "key-1"})
	if !errors.Is(err, wallet.ErrWalletNotFound) {
		t.Fatalf("err = %v, want ErrWalletNotFound", err)
	}
}

func TestPurchaseValidation(t *testing.T) {
	f := newFixture(t, 10_000)
	ctx := context.Background()

	cases := []struct {
		name  string
		input Input
	}{
		{"missing owner", Input{DurationDays: 7, IdempotencyKey: "key"}},
		{"zero duration", Input{OwnerID: f.ownerID, IdempotencyKey: "key"}},
		{"negative duration", Input{OwnerID: f.ownerID, DurationDays: -1, IdempotencyKey: "key"}},
		{"missing idempotency key", Input{OwnerID: f.ownerID, DurationDays: 7}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.svc.Purchase(ctx, tc.input); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
	if f.debiter.debits != 0 {
		t.Fatal("validation failures must not charge")
	}
}

func TestPurchaseAuditFailureAborts(t *testing.T) {
	f := newFixture(t, 10_000)
	f.audit.err = errors.New("audit store down")

	_, err := f.svc.Purchase(context.Background(), Input{OwnerID: f.ownerID, DurationDays: 7, IdempotencyKey: "key-1"})
	if err == nil {
		t.Fatal("expected failure when audit write fails")
	}
	if len(f.outbox.events) != 0 {
		t.Fatal("event emitted despite audit failure")
	}
}

func TestPurchaseIdempotencyRace(t *testing.T) {
	f := newFixture(t, 10_000)
	ctx := context.Background()

	// Simulate losing the insert race: the winner's pass commits under the
	// same key while the loser is mid-transaction, so the loser's insert
	// hits the unique constraint and the winner's result is returned.
	winner := &models.GhostPass{
		ID:                 uuid.New(),
		OwnerID:            f.ownerID,
		Status:             enums.PassStatusActive,
		DurationDays:       7,
		AmountChargedCents: 2500,
		IdempotencyKey:     "key-1",
		ActivatedAt:        time.Now().Add(-time.Minute),
		ExpiresAt:          time.Now().AddDate(0, 0, 7),
	}
	f.passes.onCreate = func() error {
		f.passes.byID[winner.ID] = winner
		return errors.New(`duplicate key value violates unique constraint "ux_ghost_passes_idempotency_key"`)
	}

	result, err := f.svc.Purchase(ctx, Input{OwnerID: f.ownerID, DurationDays: 7, IdempotencyKey: "key-1"})
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	if !result.Reused {
		t.Fatal("raced purchase not marked reused")
	}
	if result.PassID != winner.ID {
		t.Fatalf("pass %s, want winner %s", result.PassID, winner.ID)
	}
}
