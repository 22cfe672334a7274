package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ramikart/ramikart-backend/api/routes"
	"github.com/ramikart/ramikart-backend/internal/auth"
	"github.com/ramikart/ramikart-backend/internal/catalog"
	"github.com/ramikart/ramikart-backend/internal/chat"
	"github.com/ramikart/ramikart-backend/internal/orders"
	"github.com/ramikart/ramikart-backend/internal/presence"
	"github.com/ramikart/ramikart-backend/internal/realtime"
	"github.com/ramikart/ramikart-backend/internal/users"
	"github.com/ramikart/ramikart-backend/pkg/auth/session"
	"github.com/ramikart/ramikart-backend/pkg/config"
	"github.com/ramikart/ramikart-backend/pkg/db"
	"github.com/ramikart/ramikart-backend/pkg/logger"
	"github.com/ramikart/ramikart-backend/pkg/metrics"
	"github.com/ramikart/ramikart-backend/pkg/migrate"
	"github.com/ramikart/ramikart-backend/pkg/pubsub"
	"github.com/ramikart/ramikart-backend/pkg/redis"
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
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	apiMetrics := metrics.NewAPIMetrics(registry)

	userRepo, err := users.NewRepository(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create users repository", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	catalogRepo, err := catalog.NewRepository(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog repository", err)
		os.Exit(1)
	}
	catalogService, err := catalog.NewService(catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	ordersRepo, err := orders.NewRepository(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create orders repository", err)
		os.Exit(1)
	}
	ordersService, err := orders.NewService(ordersRepo, dbClient, dbClient.DB(), catalog.NewLedger(), apiMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	hub := realtime.NewHub(apiMetrics, logg)
	go hub.Run(ctx)

	instanceID := os.Getenv("DYNO")
	if instanceID == "" {
		instanceID, _ = os.Hostname()
	}
	if instanceID == "" {
		instanceID = "local"
	}

	localBroadcaster := realtime.NewPresenceBroadcaster(hub)
	broadcasters := []presence.Broadcaster{localBroadcaster}

	if cfg.PubSub.Enabled() {
		psClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := psClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()

		relay, err := presence.NewRelay(
			instanceID,
			psClient.PresencePublisher(),
			psClient.PresenceSubscriber(),
			func(userID uuid.UUID, online bool) {
				localBroadcaster.PresenceChanged(context.Background(), userID, online)
			},
			logg,
		)
		if err != nil {
			logg.Error(context.Background(), "failed to create presence relay", err)
			os.Exit(1)
		}
		go func() {
			if err := relay.Run(ctx); err != nil && ctx.Err() == nil {
				// Presence degrades to local-only when the subscriber dies.
				logg.Error(context.Background(), "presence relay stopped", err)
			}
		}()
		broadcasters = append(broadcasters, relay)
	}

	presenceSvc, err := presence.NewService(presence.NewTracker(), broadcasters...)
	if err != nil {
		logg.Error(context.Background(), "failed to create presence service", err)
		os.Exit(1)
	}

	chatRepo, err := chat.NewRepository(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create chat repository", err)
		os.Exit(1)
	}
	chatService, err := chat.NewService(chatRepo, dbClient, hub)
	if err != nil {
		logg.Error(context.Background(), "failed to create chat service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	logCtx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instanceID,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:         cfg,
			Logger:         logg,
			DB:             dbClient,
			Redis:          redisClient,
			SessionManager: sessionManager,
			AuthService:    authService,
			CatalogService: catalogService,
			OrdersService:  ordersService,
			ChatService:    chatService,
			PresenceSvc:    presenceSvc,
			Hub:            hub,
			Metrics:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(logCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(logCtx, "error during shutdown", err)
		}
	}
}
