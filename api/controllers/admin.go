package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/nocturne-labs/ghostpass-backend/api/middleware"
	"github.com/nocturne-labs/ghostpass-backend/api/responses"
	"github.com/nocturne-labs/ghostpass-backend/api/validators"
	"github.com/nocturne-labs/ghostpass-backend/internal/feesplit"
	"github.com/nocturne-labs/ghostpass-backend/internal/pricing"
	"github.com/nocturne-labs/ghostpass-backend/internal/sensory"
	"github.com/nocturne-labs/ghostpass-backend/pkg/db/models"
	"github.com/nocturne-labs/ghostpass-backend/pkg/enums"
	pkgerrors "github.com/nocturne-labs/ghostpass-backend/pkg/errors"
	"github.com/nocturne-labs/ghostpass-backend/pkg/logger"
)

// AdminFeeConfigUpdate replaces the fee percentages for a scope. All four
// values arrive together; partial updates are not supported.
func AdminFeeConfigUpdate(svc feesplit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fee split service unavailable"))
			return
		}

		scope := chi.URLParam(r, "scope")
		if scope == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "scope required"))
			return
		}

		var payload feeConfigRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pcts, err := payload.parse()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.UpdateConfig(r.Context(), feesplit.UpdateConfigInput{
			Scope:       scope,
			ValidPct:    pcts[0],
			VendorPct:   pcts[1],
			PoolPct:     pcts[2],
			PromoterPct: pcts[3],
			ActorID:     middleware.ActorIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newFeeConfigResponse(*updated))
	}
}

// AdminFeeConfigList returns every configured fee scope.
func AdminFeeConfigList(svc feesplit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fee split service unavailable"))
			return
		}
		configs, err := svc.ListConfigs(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items := make([]feeConfigResponse, 0, len(configs))
		for _, cfg := range configs {
			items = append(items, newFeeConfigResponse(cfg))
		}
		responses.WriteSuccess(w, items)
	}
}

// AdminPriceSet upserts the price for a pass duration.
func AdminPriceSet(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}

		days, err := strconv.Atoi(chi.URLParam(r, "durationDays"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid duration"))
			return
		}

		var payload priceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := svc.SetPrice(r.Context(), days, payload.AmountCents)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPriceResponse(*price))
	}
}

// AdminPriceList returns the full duration price table.
func AdminPriceList(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}
		prices, err := svc.ListPrices(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items := make([]priceResponse, 0, len(prices))
		for _, price := range prices {
			items = append(items, newPriceResponse(price))
		}
		responses.WriteSuccess(w, items)
	}
}

// AdminPolicyReload swaps in a fresh authority policy snapshot.
func AdminPolicyReload(svc sensory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sensory service unavailable"))
			return
		}
		if err := svc.Reload(r.Context(), middleware.ActorIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"mode":     svc.Mode().String(),
			"channels": svc.AllChannelStatuses(r.Context()),
		})
	}
}

// AdminPolicySet replaces one channel's authority rule.
func AdminPolicySet(svc sensory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sensory service unavailable"))
			return
		}

		channel, err := enums.ParseSensoryChannel(chi.URLParam(r, "channel"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sensory channel"))
			return
		}

		var payload policyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetPolicy(r.Context(), sensory.SetPolicyInput{
			Channel:           channel,
			Required:          payload.Required,
			HasAuthorityToken: payload.HasAuthorityToken,
			ActorID:           middleware.ActorIDFromContext(r.Context()),
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, svc.ChannelStatus(r.Context(), channel.String()))
	}
}

type feeConfigRequest struct {
	ValidPct    string `json:"valid_pct" validate:"required"`
	VendorPct   string `json:"vendor_pct" validate:"required"`
	PoolPct     string `json:"pool_pct" validate:"required"`
	PromoterPct string `json:"promoter_pct" validate:"required"`
}

func (p feeConfigRequest) parse() ([4]decimal.Decimal, error) {
	var out [4]decimal.Decimal
	raw := [4]string{p.ValidPct, p.VendorPct, p.PoolPct, p.PromoterPct}
	for i, value := range raw {
		parsed, err := decimal.NewFromString(value)
		if err != nil {
			return out, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid percentage")
		}
		out[i] = parsed
	}
	return out, nil
}

type priceRequest struct {
	AmountCents int64 `json:"amount_cents" validate:"required,gt=0"`
}

type policyRequest struct {
	Required          bool `json:"required"`
	HasAuthorityToken bool `json:"has_authority_token"`
}

type feeConfigResponse struct {
	Scope       string `json:"scope"`
	ValidPct    string `json:"valid_pct"`
	VendorPct   string `json:"vendor_pct"`
	PoolPct     string `json:"pool_pct"`
	PromoterPct string `json:"promoter_pct"`
}

type priceResponse struct {
	DurationDays int   `json:"duration_days"`
	AmountCents  int64 `json:"amount_cents"`
}

func newFeeConfigResponse(cfg models.FeeConfig) feeConfigResponse {
	return feeConfigResponse{
		Scope:       cfg.Scope,
		ValidPct:    cfg.ValidPct.String(),
		VendorPct:   cfg.VendorPct.String(),
		PoolPct:     cfg.PoolPct.String(),
		PromoterPct: cfg.PromoterPct.String(),
	}
}

func newPriceResponse(price models.PassPrice) priceResponse {
	return priceResponse{
		DurationDays: price.DurationDays,
		AmountCents:  price.AmountCents,
	}
}
