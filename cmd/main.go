// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/Shivanand-hulikatti/clinic-checkin/internal/auth"
	"github.com/Shivanand-hulikatti/clinic-checkin/internal/config"
	"github.com/Shivanand-hulikatti/clinic-checkin/internal/database"
	"github.com/Shivanand-hulikatti/clinic-checkin/internal/handler"
	"github.com/Shivanand-hulikatti/clinic-checkin/internal/metrics"
	"github.com/Shivanand-hulikatti/clinic-checkin/internal/model"
	"github.com/Shivanand-hulikatti/clinic-checkin/internal/queue"
	"github.com/Shivanand-hulikatti/clinic-checkin/internal/repository"
	"github.com/Shivanand-hulikatti/clinic-checkin/internal/service"
	"github.com/Shivanand-hulikatti/clinic-checkin/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logging.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	ctx := context.Background()

	// ── 1. Open the store ────────────────────────────────────────────────
	var store repository.Store
	switch cfg.Store {
	case config.StoreMemory:
		mem := repository.NewMemoryStore()
		if err := seedDevelopment(mem, cfg.DevPIN); err != nil {
			return err
		}
		store = mem
		logger.Warn("using in-memory store; data is lost on restart")
	default:
		pool, err := database.NewPool(ctx, cfg.DatabaseURL, database.PoolOptions{MaxConns: int32(cfg.DBMaxConns)}, logger)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer pool.Close()
		store = repository.NewPostgresStore(pool)
		logger.Info("connected to postgres")
	}

	// ── 2. Redis for the PIN attempt limiter ─────────────────────────────
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable; PIN attempts are not limited until it recovers", "addr", cfg.RedisAddr, "error", err)
		}
	} else {
		logger.Warn("REDIS_ADDR not set; PIN attempts are not limited")
	}

	// ── 3. Wire up layers ────────────────────────────────────────────────
	policy, err := queue.ParsePolicy(cfg.AdmissionPolicy)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	selection, err := service.ParseSelectionPolicy(cfg.SelectionPolicy)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	gate := queue.Gate{Policy: policy}
	m := metrics.NewClinicMetrics(nil)

	secret := cfg.SessionSecret
	if secret == "" {
		secret = uuid.NewString()
		logger.Warn("SESSION_SECRET not set; sessions will not survive a restart")
	}
	sessions, err := auth.NewSessions(secret, cfg.SessionTTL)
	if err != nil {
		return fmt.Errorf("sessions: %w", err)
	}

	clinicHandler := handler.NewClinicHandler(
		service.NewClientService(store, logger),
		service.NewCheckInService(store, logger,
			service.WithGate(gate),
			service.WithSelectionPolicy(selection),
			service.WithMetrics(m),
		),
		service.NewQueueService(store, service.QueueConfig{
			Gate:          gate,
			WaitListLimit: cfg.WaitListLimit,
			Metrics:       m,
		}, logger),
		service.NewPipelineService(store, m, logger),
		logger,
	)
	authHandler := handler.NewAuthHandler(
		auth.NewPINVerifier(store),
		auth.NewAttemptLimiter(rdb, auth.LimiterConfig{
			MaxAttempts: cfg.PINMaxAttempts,
			Window:      cfg.PINAttemptWindow,
		}, logger),
		sessions,
		m,
		logger,
		cfg.IsProduction(),
	)

	// ── 4. Build the router ───────────────────────────────────────────────
	router := handler.NewRouter(handler.RouterConfig{
		Clinic:         clinicHandler,
		Auth:           authHandler,
		Health:         handler.NewHealthHandler(store, rdb, cfg.Version),
		Sessions:       sessions,
		Metrics:        promhttp.Handler(),
		Logger:         logger,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		WebDir:         cfg.WebDir,
	})

	// ── 5. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			"port", cfg.Port,
			"store", cfg.Store,
			"admission_policy", policy.String(),
			"selection_policy", selection.String(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// seedDevelopment loads an active event with the standard services into the
// in-memory store so the UI can be exercised without PostgreSQL.
func seedDevelopment(store *repository.MemoryStore, devPIN string) error {
	event := model.Event{
		ID:       uuid.NewString(),
		Date:     time.Now().UTC().Truncate(24 * time.Hour),
		Location: "Community Hall",
		IsActive: true,
	}
	store.AddEvent(event)

	for _, svc := range []model.Service{
		{ID: "medical", Name: "Medical", Icon: "stethoscope"},
		{ID: "dental", Name: "Dental", Icon: "tooth"},
		{ID: "optical", Name: "Optical", Icon: "glasses"},
		{ID: "haircut", Name: "Haircut", Icon: "scissors"},
	} {
		store.AddService(svc)
		store.SetEventService(model.EventService{EventID: event.ID, ServiceID: svc.ID})
	}

	if devPIN == "" {
		return nil
	}
	hash, err := auth.HashPIN(devPIN)
	if err != nil {
		return fmt.Errorf("hash DEV_PIN: %w", err)
	}
	store.AddPINHash(hash)
	return nil
}
