package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/ledger"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	storefrontMetrics := metrics.NewStorefront(prometheus.DefaultRegisterer)
	services, err := buildServices(cfg, logg, dbClient, redisClient, storefrontMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Deps{
			Pingers: map[string]controllers.Pinger{
				"db":    dbClient,
				"redis": redisClient,
			},
			Idempotency: redisClient,
			Gatherer:    prometheus.DefaultGatherer,
		}, services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, storefrontMetrics *metrics.Storefront) (routes.Services, error) {
	conn := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)

	ledgerService, err := ledger.NewService(ledger.NewRepository(conn))
	if err != nil {
		return routes.Services{}, err
	}
	inventoryService, err := inventory.NewService(inventory.ServiceParams{
		DB:                dbClient,
		Repo:              inventory.NewRepository(conn),
		Ledger:            ledgerService,
		LowStockThreshold: cfg.Inventory.LowStockThreshold,
		Metrics:           storefrontMetrics,
		Logger:            logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	productRepo := products.NewRepository(conn)
	productService, err := products.NewService(dbClient, productRepo, ledgerService, inventoryService)
	if err != nil {
		return routes.Services{}, err
	}

	cartRepo := cart.NewRepository(conn)
	cartService, err := cart.NewService(cartRepo, dbClient, productRepo, logg)
	if err != nil {
		return routes.Services{}, err
	}

	ordersService, err := orders.NewService(orders.NewRepository(conn), dbClient, outboxService, inventoryService, logg)
	if err != nil {
		return routes.Services{}, err
	}

	notificationsRepo := notifications.NewRepository(conn)
	notificationsService, err := notifications.NewService(notificationsRepo)
	if err != nil {
		return routes.Services{}, err
	}
	notifier, err := notifications.NewLowStockNotifier(notifications.LowStockNotifierParams{
		DB:        dbClient,
		Repo:      notificationsRepo,
		Alerts:    redisClient,
		Outbox:    outboxService,
		Threshold: cfg.Inventory.LowStockThreshold,
		AlertTTL:  cfg.Inventory.LowStockAlertTTL,
		Logger:    logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	links, err := newLinkSigner(cfg, logg)
	if err != nil {
		return routes.Services{}, err
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		DB:        dbClient,
		Carts:     cartRepo,
		Products:  productRepo,
		Orders:    orders.NewRepository(conn),
		Inventory: inventoryService,
		Outbox:    outboxService,
		Notifier:  notifier,
		Links:     links,
		Metrics:   storefrontMetrics,
		Logger:    logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Cart:          cartService,
		Checkout:      checkoutService,
		Orders:        ordersService,
		Inventory:     inventoryService,
		Products:      productService,
		Notifications: notificationsService,
		Links:         links,
	}, nil
}

// newLinkSigner falls back to a per-process secret in dev, so links do not survive restarts there.
func newLinkSigner(cfg *config.Config, logg *logger.Logger) (*orders.LinkSigner, error) {
	secret := cfg.Orders.GuestLinkSecret
	if strings.TrimSpace(secret) == "" && cfg.App.IsDev() {
		generated, err := orders.NewGuestToken()
		if err != nil {
			return nil, err
		}
		secret = generated
		logg.Warn(context.Background(), "guest link secret not set, using an ephemeral one")
	}
	return orders.NewLinkSigner(secret, cfg.App.PublicURL, cfg.Orders.GuestLinkTTL)
}
