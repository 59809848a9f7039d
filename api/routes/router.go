package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/cafe-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/cafe-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/cafe-backend/api/controllers/orders"
	"github.com/angelmondragon/cafe-backend/api/middleware"
	"github.com/angelmondragon/cafe-backend/internal/auth"
	"github.com/angelmondragon/cafe-backend/internal/cart"
	"github.com/angelmondragon/cafe-backend/internal/catalog"
	checkoutsvc "github.com/angelmondragon/cafe-backend/internal/checkout"
	"github.com/angelmondragon/cafe-backend/internal/orders"
	"github.com/angelmondragon/cafe-backend/pkg/auth/session"
	"github.com/angelmondragon/cafe-backend/pkg/config"
	"github.com/angelmondragon/cafe-backend/pkg/enums"
	"github.com/angelmondragon/cafe-backend/pkg/logger"
	"github.com/angelmondragon/cafe-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// NewRouter wires every HTTP surface. redisClient may be nil in tests, which
// disables rate limiting and idempotency replay.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	sessionManager sessionManager,
	authService auth.Service,
	registerService auth.RegisterService,
	catalogService catalog.Service,
	cartService cart.Service,
	checkoutService checkoutsvc.Service,
	ordersService orders.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	var (
		rateStore   middleware.RateLimitStore
		idemStore   redis.IdempotencyStore
		readyChecks = map[string]controllers.Pinger{"db": dbP}
	)
	if redisClient != nil {
		rateStore = redisClient
		idemStore = redisClient
		readyChecks["redis"] = redisClient
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readyChecks))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/menu", controllers.PublicMenu(catalogService, logg))
		r.Get("/items/{itemId}", controllers.PublicItem(catalogService, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(middleware.Idempotency(idemStore, logg))
		r.With(middleware.AuthRateLimit(middleware.LoginRateLimitPolicy(cfg.AuthRateLimit), rateStore, logg)).
			Post("/login", controllers.AuthLogin(authService, logg))
		r.With(middleware.AuthRateLimit(middleware.RegisterRateLimitPolicy(cfg.AuthRateLimit), rateStore, logg)).
			Post("/register", controllers.AuthRegister(registerService, authService, logg))
		r.Post("/logout", controllers.AuthLogout(sessionManager, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(sessionManager, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionManager, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.List(cartService, logg))
			r.Post("/", cartcontrollers.Add(cartService, logg))
			r.Delete("/", cartcontrollers.Clear(cartService, logg))
			r.Put("/{lineId}", cartcontrollers.UpdateQuantity(cartService, logg))
			r.Delete("/{lineId}", cartcontrollers.Remove(cartService, logg))
		})
		r.Get("/checkout", controllers.CheckoutPreview(checkoutService, logg))
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(ordersService, logg))
			r.Post("/", ordercontrollers.Place(checkoutService, logg))
			r.Get("/{orderNumber}", ordercontrollers.Get(ordersService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionManager, logg))
		r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Get("/dashboard", controllers.AdminDashboard(catalogService, ordersService, cfg.App.Location(), time.Now, logg))
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", controllers.AdminCategoriesList(catalogService, logg))
			r.Post("/", controllers.AdminCategoryCreate(catalogService, logg))
			r.Put("/{categoryId}", controllers.AdminCategoryUpdate(catalogService, logg))
			r.Delete("/{categoryId}", controllers.AdminCategoryDelete(catalogService, logg))
		})
		r.Route("/items", func(r chi.Router) {
			r.Get("/", controllers.AdminItemsList(catalogService, logg))
			r.Post("/", controllers.AdminItemCreate(catalogService, logg))
			r.Put("/{itemId}", controllers.AdminItemUpdate(catalogService, logg))
			r.Delete("/{itemId}", controllers.AdminItemDelete(catalogService, logg))
		})
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrdersList(ordersService, logg))
			r.Put("/{orderId}/status", controllers.AdminOrderSetStatus(ordersService, logg))
		})
	})

	return r
}
