package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nocturne-labs/ghostpass-backend/api/middleware"
	"github.com/nocturne-labs/ghostpass-backend/api/responses"
	"github.com/nocturne-labs/ghostpass-backend/api/validators"
	"github.com/nocturne-labs/ghostpass-backend/internal/passes"
	"github.com/nocturne-labs/ghostpass-backend/internal/purchase"
	"github.com/nocturne-labs/ghostpass-backend/pkg/db/models"
	pkgerrors "github.com/nocturne-labs/ghostpass-backend/pkg/errors"
	"github.com/nocturne-labs/ghostpass-backend/pkg/logger"
)

// PassPurchase runs the atomic purchase: debit, fee split, pass creation and
// audit entry commit together. The Idempotency-Key header doubles as the
// purchase's idempotency key at the coordinator level.
func PassPurchase(svc purchase.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchase service unavailable"))
			return
		}

		var payload passPurchaseRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
		if key == "" {
			key = payload.IdempotencyKey
		}

		result, err := svc.Purchase(r.Context(), purchase.Input{
			OwnerID:        payload.OwnerID,
			DurationDays:   payload.DurationDays,
			IdempotencyKey: key,
			Scope:          payload.Scope,
			ActorID:        middleware.ActorIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.Reused {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

// PassStatusByOwner reports the owner's latest pass with its derived status.
func PassStatusByOwner(svc passes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pass service unavailable"))
			return
		}

		ownerID, err := uuidParam(r, "ownerID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.GetStatusByOwner(r.Context(), ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// PassDetail returns one pass with its derived status.
func PassDetail(svc passes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pass service unavailable"))
			return
		}

		passID, err := uuidParam(r, "passID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pass, err := svc.GetPass(r.Context(), passID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPassResponse(pass))
	}
}

// PassRevoke performs the explicit ACTIVE -> REVOKED transition.
func PassRevoke(svc passes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pass service unavailable"))
			return
		}

		passID, err := uuidParam(r, "passID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload passRevokeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pass, err := svc.Revoke(r.Context(), passes.RevokeInput{
			PassID:  passID,
			ActorID: middleware.ActorIDFromContext(r.Context()),
			Reason:  payload.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPassResponse(pass))
	}
}

type passPurchaseRequest struct {
	OwnerID        uuid.UUID `json:"owner_id" validate:"required"`
	DurationDays   int       `json:"duration_days" validate:"required,gt=0"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	Scope          string    `json:"scope,omitempty"`
}

type passRevokeRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type passResponse struct {
	PassID             uuid.UUID  `json:"pass_id"`
	OwnerID            uuid.UUID  `json:"owner_id"`
	Status             string     `json:"status"`
	DurationDays       int        `json:"duration_days"`
	AmountChargedCents int64      `json:"amount_charged_cents"`
	ActivatedAt        time.Time  `json:"activated_at"`
	ExpiresAt          time.Time  `json:"expires_at"`
	RevokedAt          *time.Time `json:"revoked_at,omitempty"`
}

func newPassResponse(pass *models.GhostPass) passResponse {
	if pass == nil {
		return passResponse{}
	}
	return passResponse{
		PassID:             pass.ID,
		OwnerID:            pass.OwnerID,
		Status:             string(pass.DerivedStatus(time.Now())),
		DurationDays:       pass.DurationDays,
		AmountChargedCents: pass.AmountChargedCents,
		ActivatedAt:        pass.ActivatedAt,
		ExpiresAt:          pass.ExpiresAt,
		RevokedAt:          pass.RevokedAt,
	}
}
