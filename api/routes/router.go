package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nocturne-labs/ghostpass-backend/api/controllers"
	"github.com/nocturne-labs/ghostpass-backend/api/middleware"
	"github.com/nocturne-labs/ghostpass-backend/internal/feesplit"
	"github.com/nocturne-labs/ghostpass-backend/internal/passes"
	"github.com/nocturne-labs/ghostpass-backend/internal/pricing"
	"github.com/nocturne-labs/ghostpass-backend/internal/purchase"
	"github.com/nocturne-labs/ghostpass-backend/internal/sensory"
	"github.com/nocturne-labs/ghostpass-backend/internal/wallet"
	"github.com/nocturne-labs/ghostpass-backend/pkg/config"
	"github.com/nocturne-labs/ghostpass-backend/pkg/logger"
	pkgredis "github.com/nocturne-labs/ghostpass-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      controllers.Pinger
	Redis   *pkgredis.Client
	PubSub  controllers.Pinger
	Wallets wallet.Service
	Passes  passes.Service

	Purchase purchase.Service
	Fees     feesplit.Service
	Pricing  pricing.Service
	Sensory  sensory.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, redisPinger(deps.Redis), deps.PubSub))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor())
		r.Use(middleware.Idempotency(idempotencyStore(deps.Redis), logg))

		r.Route("/wallets", func(r chi.Router) {
			r.Post("/", controllers.WalletCreate(deps.Wallets, logg))
			r.Get("/{walletID}", controllers.WalletDetail(deps.Wallets, logg))
			r.Post("/{walletID}/fund", controllers.WalletFund(deps.Wallets, logg))
			r.Get("/{walletID}/transactions", controllers.WalletTransactions(deps.Wallets, logg))
		})

		r.Route("/passes", func(r chi.Router) {
			r.Post("/purchase", controllers.PassPurchase(deps.Purchase, logg))
			r.Get("/owner/{ownerID}", controllers.PassStatusByOwner(deps.Passes, logg))
			r.Get("/{passID}", controllers.PassDetail(deps.Passes, logg))
			r.Post("/{passID}/revoke", controllers.PassRevoke(deps.Passes, logg))
		})

		r.Route("/sensory", func(r chi.Router) {
			r.Get("/environment", controllers.SensoryEnvironment(deps.Sensory, logg))
			r.Get("/channels", controllers.SensoryChannels(deps.Sensory, logg))
			r.Get("/channels/{channel}", controllers.SensoryChannelDetail(deps.Sensory, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Route("/fee-configs", func(r chi.Router) {
				r.Get("/", controllers.AdminFeeConfigList(deps.Fees, logg))
				r.Put("/{scope}", controllers.AdminFeeConfigUpdate(deps.Fees, logg))
			})
			r.Route("/prices", func(r chi.Router) {
				r.Get("/", controllers.AdminPriceList(deps.Pricing, logg))
				r.Put("/{durationDays}", controllers.AdminPriceSet(deps.Pricing, logg))
			})
			r.Route("/authority-policies", func(r chi.Router) {
				r.Post("/reload", controllers.AdminPolicyReload(deps.Sensory, logg))
				r.Put("/{channel}", controllers.AdminPolicySet(deps.Sensory, logg))
			})
		})
	})

	return r
}

// redisPinger and idempotencyStore keep nil *Client from becoming a non-nil
// interface value inside the router.
func redisPinger(client *pkgredis.Client) controllers.Pinger {
	if client == nil {
		return nil
	}
	return client
}

func idempotencyStore(client *pkgredis.Client) pkgredis.IdempotencyStore {
	if client == nil {
		return nil
	}
	return client
}
