package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"julianmorley.ca/con-plar/storefront/internal/cart"
	"julianmorley.ca/con-plar/storefront/internal/catalog"
	"julianmorley.ca/con-plar/storefront/internal/checkout"
	"julianmorley.ca/con-plar/storefront/internal/router"
	"julianmorley.ca/con-plar/storefront/pkg/backend"
	"julianmorley.ca/con-plar/storefront/pkg/global"
	"julianmorley.ca/con-plar/storefront/pkg/logging"
	"julianmorley.ca/con-plar/storefront/pkg/mongo"
	"julianmorley.ca/con-plar/storefront/pkg/pricing"
	"julianmorley.ca/con-plar/storefront/pkg/redis"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := global.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Error building logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	if envErr != nil {
		logger.Info("no .env file loaded, using process environment", zap.Error(envErr))
	}

	base, err := pricing.ParseDownPaymentBase(cfg.CardlessDownPaymentBase)
	if err != nil {
		logger.Fatal("invalid CARDLESS_DOWN_PAYMENT_BASE", zap.Error(err))
	}

	redisClient, err := redis.InitRedis(cfg)
	if err != nil {
		logger.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	ctx, cancel := global.GetDefaultTimer()
	mongoClient, err := mongo.Connect(ctx, cfg)
	cancel()
	if err != nil {
		logger.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		ctx, cancel := global.GetDefaultTimer()
		defer cancel()
		_ = mongoClient.Disconnect(ctx)
	}()
	db := mongoClient.Database(cfg.MongoDatabase)
	if err := mongo.EnsureIndexes(db, logger); err != nil {
		logger.Fatal("failed to ensure MongoDB indexes", zap.Error(err))
	}

	api, err := backend.NewClient(cfg.BackendBaseURL, cfg.BackendTimeout, logger.Named("backend"))
	if err != nil {
		logger.Fatal("failed to build backend client", zap.Error(err))
	}

	store := redis.NewSessionStore(redisClient, cfg.SessionTTL)
	products := catalog.NewService(api, redis.NewProductCache(redisClient, cfg.ProductCacheTTL), logger.Named("catalog"))
	carts := cart.NewManager(api, store, products, cart.Options{
		FreeShippingThreshold: cfg.LocalFreeShippingThreshold,
		ShippingCost:          cfg.LocalShippingCost,
	}, logger.Named("cart"))
	archive := mongo.NewOrderArchive(db)
	checkouts := checkout.NewService(api, carts, store, archive, base, logger.Named("checkout"))

	engine := router.NewEngine(cfg, logger)
	router.InitializeRoutes(engine, router.NewHandler(router.HandlerDeps{
		Catalog:  api,
		Products: products,
		Orders:   archive,
		Carts:    carts,
		Checkout: checkouts,
		Base:     base,
		Health: map[string]router.HealthCheck{
			"redis":    func(ctx context.Context) error { return redis.Ping(ctx, redisClient) },
			"database": func(ctx context.Context) error { return mongo.Ping(ctx, mongoClient) },
		},

		TokenSecret: []byte(cfg.JWTSecret),
	}, logger.Named("http")))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server is running", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to run server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
}
