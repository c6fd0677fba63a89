package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/storefront-backend/api/controllers/orders"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Services groups the domain services the API serves.
type Services struct {
	Cart          cart.Service
	Checkout      checkoutsvc.Service
	Orders        orders.Service
	Inventory     inventory.Service
	Products      products.Service
	Notifications notifications.Service
	Links         ordercontrollers.LinkVerifier
}

// Deps are the infrastructure pieces the router needs besides services.
type Deps struct {
	Pingers     map[string]controllers.Pinger
	Idempotency middleware.IdempotencyStore
	Gatherer    prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.CartSession(middleware.CartSessionOptions{
			CookieName: cfg.Cart.SessionCookieName,
			TTL:        cfg.Cart.AnonymousCartTTL,
			Secure:     cfg.App.IsProd(),
		}, logg))
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Get("/products/{productId}", controllers.ProductDetail(svc.Products, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.CartFetch(svc.Cart, logg))
			r.Delete("/", cartcontrollers.CartClear(svc.Cart, logg))
			r.Post("/items", cartcontrollers.CartAddItem(svc.Cart, logg))
			r.Put("/items", cartcontrollers.CartUpdateItem(svc.Cart, logg))
			r.Delete("/items", cartcontrollers.CartRemoveItem(svc.Cart, logg))
			r.With(middleware.RequireAuth(logg)).Post("/merge", cartcontrollers.CartMerge(svc.Cart, cfg.Cart.SessionCookieName, logg))
		})

		r.Post("/checkout", controllers.Checkout(svc.Checkout, logg))

		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Get("/", ordercontrollers.OrderDetail(svc.Orders, svc.Links, logg))
			r.Post("/cancel", ordercontrollers.OrderCancel(svc.Orders, logg))
			r.Post("/payment-submitted", ordercontrollers.OrderPaymentSubmitted(svc.Orders, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))

			r.Route("/orders/{orderId}", func(r chi.Router) {
				r.Get("/", ordercontrollers.AdminOrderDetail(svc.Orders, logg))
				r.Put("/status", ordercontrollers.AdminUpdateStatus(svc.Orders, logg))
				r.Post("/confirm-payment", ordercontrollers.AdminConfirmPayment(svc.Orders, logg))
			})
			r.Route("/inventory", func(r chi.Router) {
				r.Post("/adjust", controllers.AdminInventoryAdjust(svc.Inventory, logg))
				r.Get("/history", controllers.AdminInventoryHistory(svc.Inventory, logg))
				r.Get("/low-stock", controllers.AdminLowStock(svc.Inventory, cfg.Inventory.LowStockThreshold, logg))
			})
			r.Post("/products/{productId}/variations", controllers.AdminCreateVariation(svc.Products, logg))
			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.AdminNotificationsList(svc.Notifications, logg))
				r.Post("/{notificationId}/read", controllers.AdminNotificationMarkRead(svc.Notifications, logg))
			})
		})
	})

	return r
}
