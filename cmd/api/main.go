package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/JhnOkall/avenuefashion-backend/api/routes"
	"github.com/JhnOkall/avenuefashion-backend/internal/addresses"
	"github.com/JhnOkall/avenuefashion-backend/internal/cart"
	"github.com/JhnOkall/avenuefashion-backend/internal/catalog"
	"github.com/JhnOkall/avenuefashion-backend/internal/locations"
	"github.com/JhnOkall/avenuefashion-backend/internal/orders"
	"github.com/JhnOkall/avenuefashion-backend/internal/pricing"
	"github.com/JhnOkall/avenuefashion-backend/internal/vouchers"
	paystackwebhook "github.com/JhnOkall/avenuefashion-backend/internal/webhooks/paystack"
	"github.com/JhnOkall/avenuefashion-backend/pkg/config"
	"github.com/JhnOkall/avenuefashion-backend/pkg/db"
	"github.com/JhnOkall/avenuefashion-backend/pkg/logger"
	"github.com/JhnOkall/avenuefashion-backend/pkg/metrics"
	"github.com/JhnOkall/avenuefashion-backend/pkg/migrate"
	"github.com/JhnOkall/avenuefashion-backend/pkg/paystack"
	"github.com/JhnOkall/avenuefashion-backend/pkg/redis"
)

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

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
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

	paystackClient, err := paystack.NewClient(cfg.Paystack.SecretKey, paystack.WithBaseURL(cfg.Paystack.BaseURL))
	if err != nil {
		logg.Error(context.Background(), "failed to create paystack client", err)
		os.Exit(1)
	}

	promReg := prometheus.NewRegistry()
	metricsReg := metrics.New(promReg)

	gormDB := dbClient.DB()
	catalogRepo := catalog.NewRepository(gormDB)
	locationsRepo := locations.NewRepository(gormDB)
	addressesRepo := addresses.NewRepository(gormDB)
	cartRepo := cart.NewRepository(gormDB)
	vouchersRepo := vouchers.NewRepository(gormDB)
	ordersRepo := orders.NewRepository(gormDB)

	locationsSvc, err := locations.NewService(locationsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create locations service", err)
		os.Exit(1)
	}
	addressesSvc, err := addresses.NewService(addressesRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create addresses service", err)
		os.Exit(1)
	}
	cartSvc, err := cart.NewService(cartRepo, catalogRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}
	vouchersSvc, err := vouchers.NewService(vouchersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create vouchers service", err)
		os.Exit(1)
	}
	calculator, err := pricing.NewCalculator(cfg.Checkout)
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing calculator", err)
		os.Exit(1)
	}
	ordersSvc, err := orders.NewService(orders.Deps{
		Repo:       ordersRepo,
		Cart:       cartSvc,
		Catalog:    catalogRepo,
		Addresses:  addressesSvc,
		Locations:  locationsSvc,
		Vouchers:   vouchersSvc,
		Calculator: calculator,
		Tx:         dbClient,
		Checkout:   cfg.Checkout,
		Log:        logg,
		Metrics:    metricsReg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	webhookGuard, err := paystackwebhook.NewIdempotencyGuard(redisClient, cfg.Paystack.IdempotencyTTL, "paystack")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}
	webhookSvc, err := paystackwebhook.NewService(paystackwebhook.ServiceParams{
		Orders:  ordersSvc,
		Cart:    cartSvc,
		Gateway: paystackClient,
		Guard:   webhookGuard,
		Log:     logg,
		Metrics: metricsReg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
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
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:     cfg,
			Log:        logg,
			DB:         dbClient,
			Redis:      redisClient,
			Catalog:    catalogRepo,
			Locations:  locationsSvc,
			Addresses:  addressesSvc,
			Cart:       cartSvc,
			Vouchers:   vouchersSvc,
			Orders:     ordersSvc,
			Webhook:    webhookSvc,
			MetricsReg: promReg,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
