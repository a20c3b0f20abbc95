package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nocturne-labs/ghostpass-backend/internal/feesplit"
	"github.com/nocturne-labs/ghostpass-backend/internal/passes"
	"github.com/nocturne-labs/ghostpass-backend/internal/purchase"
	"github.com/nocturne-labs/ghostpass-backend/pkg/db/models"
	"github.com/nocturne-labs/ghostpass-backend/pkg/enums"
	"github.com/nocturne-labs/ghostpass-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type testPurchaseService struct {
	purchaseFn func(ctx context.Context, input purchase.Input) (*purchase.Result, error)
}

func (s *testPurchaseService) Purchase(ctx context.Context, input purchase.Input) (*purchase.Result, error) {
	if s.purchaseFn != nil {
		return s.purchaseFn(ctx, input)
	}
	return nil, nil
}

type testPassService struct {
	statusFn func(ctx context.Context, ownerID uuid.UUID) (*passes.PassStatusView, error)
	revokeFn func(ctx context.Context, input passes.RevokeInput) (*models.GhostPass, error)
}

func (s *testPassService) GetStatusByOwner(ctx context.Context, ownerID uuid.UUID) (*passes.PassStatusView, error) {
	if s.statusFn != nil {
		return s.statusFn(ctx, ownerID)
	}
	return nil, nil
}

func (s *testPassService) GetPass(ctx context.Context, passID uuid.UUID) (*models.GhostPass, error) {
	return nil, nil
}

func (s *testPassService) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.GhostPass, error) {
	return nil, nil
}

func (s *testPassService) Revoke(ctx context.Context, input passes.RevokeInput) (*models.GhostPass, error) {
	if s.revokeFn != nil {
		return s.revokeFn(ctx, input)
	}
	return nil, nil
}

func withURLParam(req *http.Request, name, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(name, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestPassPurchaseCreated(t *testing.T) {
	ownerID := uuid.New()
	passID := uuid.New()
	svc := &testPurchaseService{
		purchaseFn: func(ctx context.Context, input purchase.Input) (*purchase.Result, error) {
			if input.OwnerID != ownerID {
				t.Fatalf("unexpected owner %s", input.OwnerID)
			}
			if input.IdempotencyKey != "key-1" {
				t.Fatalf("unexpected idempotency key %q", input.IdempotencyKey)
			}
			return &purchase.Result{
				PassID:             passID,
				ExpiresAt:          time.Now().AddDate(0, 0, 7),
				AmountChargedCents: 2500,
				Split:              feesplit.Split{ValidCents: 1750, VendorCents: 375, PoolCents: 250, PromoterCents: 125},
			}, nil
		},
	}

	body := `{"owner_id":"` + ownerID.String() + `","duration_days":7}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/passes/purchase", strings.NewReader(body))
	req.Header.Set("Idempotency-Key", "key-1")
	resp := httptest.NewRecorder()
	PassPurchase(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data purchase.Result `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.PassID != passID {
		t.Fatalf("unexpected pass %s", envelope.Data.PassID)
	}
	if envelope.Data.Split.Total() != 2500 {
		t.Fatalf("split total %d", envelope.Data.Split.Total())
	}
}

func TestPassPurchaseReusedReturnsOK(t *testing.T) {
	ownerID := uuid.New()
	svc := &testPurchaseService{
		purchaseFn: func(ctx context.Context, input purchase.Input) (*purchase.Result, error) {
			return &purchase.Result{PassID: uuid.New(), Reused: true}, nil
		},
	}

	body := `{"owner_id":"` + ownerID.String() + `","duration_days":7,"idempotency_key":"key-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/passes/purchase", strings.NewReader(body))
	resp := httptest.NewRecorder()
	PassPurchase(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("replayed purchase should be 200, got %d", resp.Code)
	}
}

func TestPassPurchaseRejectsBadBody(t *testing.T) {
	svc := &testPurchaseService{
		purchaseFn: func(ctx context.Context, input purchase.Input) (*purchase.Result, error) {
			t.Fatal("service must not run on invalid body")
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/passes/purchase", strings.NewReader(`{"duration_days":0}`))
	resp := httptest.NewRecorder()
	PassPurchase(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestPassStatusByOwner(t *testing.T) {
	ownerID := uuid.New()
	passID := uuid.New()
	svc := &testPassService{
		statusFn: func(ctx context.Context, oid uuid.UUID) (*passes.PassStatusView, error) {
			if oid != ownerID {
				t.Fatalf("unexpected owner %s", oid)
			}
			return &passes.PassStatusView{PassID: passID, Status: enums.PassStatusExpired}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/passes/owner/"+ownerID.String(), nil)
	req = withURLParam(req, "ownerID", ownerID.String())
	resp := httptest.NewRecorder()
	PassStatusByOwner(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data passes.PassStatusView `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Status != enums.PassStatusExpired {
		t.Fatalf("unexpected derived status %s", envelope.Data.Status)
	}
}

func TestPassStatusByOwnerNotFound(t *testing.T) {
	svc := &testPassService{
		statusFn: func(ctx context.Context, oid uuid.UUID) (*passes.PassStatusView, error) {
			return nil, passes.ErrPassNotFound
		},
	}

	ownerID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/passes/owner/"+ownerID.String(), nil)
	req = withURLParam(req, "ownerID", ownerID.String())
	resp := httptest.NewRecorder()
	PassStatusByOwner(svc, testLogger())(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestPassRevoke(t *testing.T) {
	passID := uuid.New()
	now := time.Now()
	svc := &testPassService{
		revokeFn: func(ctx context.Context, input passes.RevokeInput) (*models.GhostPass, error) {
			if input.PassID != passID {
				t.Fatalf("unexpected pass %s", input.PassID)
			}
			if input.Reason != "fraud" {
				t.Fatalf("unexpected reason %q", input.Reason)
			}
			return &models.GhostPass{
				ID:          passID,
				OwnerID:     uuid.New(),
				Status:      enums.PassStatusRevoked,
				ActivatedAt: now.Add(-time.Hour),
				ExpiresAt:   now.Add(time.Hour),
				RevokedAt:   &now,
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/passes/"+passID.String()+"/revoke", strings.NewReader(`{"reason":"fraud"}`))
	req = withURLParam(req, "passID", passID.String())
	resp := httptest.NewRecorder()
	PassRevoke(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data passResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Status != string(enums.PassStatusRevoked) {
		t.Fatalf("unexpected status %s", envelope.Data.Status)
	}
}
