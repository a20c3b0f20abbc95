package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nocturne-labs/ghostpass-backend/api/responses"
	"github.com/nocturne-labs/ghostpass-backend/internal/sensory"
	pkgerrors "github.com/nocturne-labs/ghostpass-backend/pkg/errors"
	"github.com/nocturne-labs/ghostpass-backend/pkg/logger"
)

// SensoryEnvironment reports the configured environment mode.
func SensoryEnvironment(svc sensory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sensory service unavailable"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"mode": svc.Mode().String()})
	}
}

// SensoryChannels returns the evaluated state of all six channels.
func SensoryChannels(svc sensory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sensory service unavailable"))
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"mode":     svc.Mode().String(),
			"channels": svc.AllChannelStatuses(r.Context()),
		})
	}
}

// SensoryChannelDetail evaluates a single channel by identifier. Unknown
// identifiers report available rather than 404, matching the evaluator.
func SensoryChannelDetail(svc sensory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sensory service unavailable"))
			return
		}
		channel := chi.URLParam(r, "channel")
		responses.WriteSuccess(w, svc.ChannelStatus(r.Context(), channel))
	}
}
