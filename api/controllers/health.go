package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/nocturne-labs/ghostpass-backend/api/responses"
	"github.com/nocturne-labs/ghostpass-backend/pkg/config"
	"github.com/nocturne-labs/ghostpass-backend/pkg/logger"
)

const envHeader = "X-GhostPass-Env"

// Pinger is the health-check surface shared by the backing stores.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every wired dependency; nil pingers are skipped so the
// endpoint degrades gracefully in partial deployments.
func HealthReady(cfg *config.Config, logg *logger.Logger, db, cache, broker Pinger) http.HandlerFunc {
	checks := map[string]Pinger{
		"db":     db,
		"redis":  cache,
		"pubsub": broker,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := map[string]string{}
		healthy := true
		for name, pinger := range checks {
			if pinger == nil {
				status[name] = "skipped"
				continue
			}
			if err := pinger.Ping(ctx); err != nil {
				healthy = false
				status[name] = "down"
				if logg != nil {
					logg.Error(logg.WithField(ctx, "dependency", name), "readiness check failed", err)
				}
				continue
			}
			status[name] = "up"
		}

		if !healthy {
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, status)
			return
		}
		responses.WriteSuccess(w, status)
	}
}
