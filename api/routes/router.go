package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/promotions"
	"github.com/angelmondragon/storefront-backend/internal/zones"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	gatherer prometheus.Gatherer,
	dbP controllers.Pinger,
	redisP controllers.Pinger,
	zoneService zones.Service,
	promotionService promotions.Service,
	tracker controllers.PresenceTracker,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": dbP,
			"redis":    redisP,
		}))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/stores/{storeId}", func(r chi.Router) {
			r.Use(middleware.RequireStoreAccess(logg, "storeId"))
			r.Post("/delivery/quote", controllers.DeliveryQuote(zoneService, logg))
			r.Post("/delivery/validate", controllers.DeliveryValidate(zoneService, logg))
			r.Get("/delivery/zones", controllers.DeliveryZones(zoneService, logg))
			r.Post("/promotions/best", controllers.BestPromotion(promotionService, logg))
			r.Post("/products/price", controllers.ProductPrice(promotionService, logg))
		})

		r.Route("/drivers", func(r chi.Router) {
			r.Get("/{driverId}/presence", controllers.DriverPresence(tracker, logg))
			r.Get("/{driverId}/presence/stream", controllers.DriverPresenceStream(tracker, logg))
			r.With(middleware.RequireRole(logg, enums.ActorRoleStoreAdmin, enums.ActorRoleDriver)).
				Get("/online", controllers.OnlineDrivers(tracker, logg))
		})
	})

	return r
}
