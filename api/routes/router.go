package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/visionscan/pos-backend/api/controllers"
	"github.com/visionscan/pos-backend/api/middleware"
	checkoutsvc "github.com/visionscan/pos-backend/internal/checkout"
	detectionsvc "github.com/visionscan/pos-backend/internal/detection"
	inventorysvc "github.com/visionscan/pos-backend/internal/inventory"
	sessionsvc "github.com/visionscan/pos-backend/internal/sessions"
	"github.com/visionscan/pos-backend/pkg/config"
	"github.com/visionscan/pos-backend/pkg/db"
	"github.com/visionscan/pos-backend/pkg/logger"
	"github.com/visionscan/pos-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionService sessionsvc.Service,
	detectionService detectionsvc.Service,
	checkoutService checkoutsvc.Service,
	inventoryService inventorysvc.Service,
) http.Handler {
	var cache redis.Pinger
	var idempotencyStore redis.IdempotencyStore
	if redisClient != nil {
		cache = redisClient
		idempotencyStore = redisClient
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.Origins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, cache))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/start", controllers.StartSession(sessionService, logg))
			r.Route("/{sessionId}", func(r chi.Router) {
				r.Get("/", controllers.GetSession(sessionService, logg))
				r.Get("/items", controllers.ListSessionItems(sessionService, logg))
				r.Post("/scan", controllers.ScanItem(sessionService, logg))
				r.Post("/scan/detect-from-image", controllers.DetectFromImage(detectionService, logg))
			})
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/restock/{inventoryId}", controllers.Restock(inventoryService, logg))
			r.Post("/{sessionId}", controllers.Checkout(checkoutService, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", controllers.ListInventory(inventoryService, logg))
			r.Post("/", controllers.CreateInventory(inventoryService, logg))
			r.Route("/{inventoryId}", func(r chi.Router) {
				r.Get("/", controllers.GetInventory(inventoryService, logg))
				r.Put("/", controllers.UpdateInventory(inventoryService, logg))
				r.Delete("/", controllers.DeactivateInventory(inventoryService, logg))
			})
		})
	})

	return r
}
