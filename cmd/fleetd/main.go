package main

import (
	"context"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openclaw/fleet-worker-go/internal/actions"
	"github.com/openclaw/fleet-worker-go/internal/config"
	"github.com/openclaw/fleet-worker-go/internal/database"
	"github.com/openclaw/fleet-worker-go/internal/handler"
	"github.com/openclaw/fleet-worker-go/internal/jobs"
	"github.com/openclaw/fleet-worker-go/internal/middleware"
	"github.com/openclaw/fleet-worker-go/internal/model"
	"github.com/openclaw/fleet-worker-go/internal/redis"
	"github.com/openclaw/fleet-worker-go/internal/repository"
	"github.com/openclaw/fleet-worker-go/internal/service"
	"github.com/openclaw/fleet-worker-go/internal/session"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, catalog := loadRuntime(os.Exit)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		exitStoreUnavailable(err, "failed to connect to database")
	}
	defer db.Close()

	retrier := database.NewRetrier()

	ctx := context.Background()
	if err := retrier.Do(ctx, "startup ping", func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, config.DBPingTimeout)
		defer cancel()
		return db.Ping(pingCtx)
	}); err != nil {
		exitStoreUnavailable(err, "failed to ping database")
	}
	if err := db.Migrate(ctx); err != nil {
		exitStoreUnavailable(err, "failed to apply migrations")
	}
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		exitWith(os.Exit, config.ExitStoreUnavailable, err, "failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	store := database.NewRetryDB(db.DB, retrier)
	accountRepo := repository.NewAccountRepository(store)
	eligibilityRepo := repository.NewEligibilityRepository(store)
	quotaRepo := repository.NewQuotaRepository(store)
	blockRepo := repository.NewBlockRepository(store)
	dispatchRepo := repository.NewDispatchRepository(store)
	heartbeatRepo := repository.NewHeartbeatRepository(store)
	commandRepo := repository.NewAdminCommandRepository(store)
	settingsRepo := repository.NewSettingsRepository(store)

	pool := service.NewResourcePool(config.ResourcePoolCapacity, config.ResourcePoolTTL)
	for class, ids := range catalog.Resources {
		pool.Add(class, ids...)
	}

	worker := service.NewWorker(service.WorkerDeps{
		Accounts:    accountRepo,
		Dispatches:  dispatchRepo,
		Catalog:     catalog,
		Eligibility: service.NewEligibilityService(eligibilityRepo, newRand()),
		Quotas:      service.NewQuotaService(quotaRepo, dispatchRepo),
		Blocks:      service.NewBlockManager(blockRepo, cfg.BlockBaseDays, cfg.BlockMaxDays),
		Pacer:       service.NewInvasivePacer(redisClient.Client, cfg.InvasiveCooldown()),
		Pool:        pool,
		Registry:    buildRegistry(catalog),
		Wheel:       service.NewWheel(newRand()),
		Sessions:    session.NewLocalProvider(),
		Auth:        session.AllowAuthenticator{},
	}, service.WorkerOptions{
		PunitivePause:        cfg.PunitivePause(),
		SessionOpTimeout:     cfg.SessionOpTimeout(),
		KeepSessionOnFailure: cfg.KeepSessionOnFailure,
		DiagnosticHold:       cfg.DiagnosticHold(),
	})

	supervisor := jobs.NewSupervisor(jobs.SupervisorDeps{
		Accounts:   accountRepo,
		Heartbeats: heartbeatRepo,
		Commands:   commandRepo,
		Settings:   settingsRepo,
		Worker:     worker,
	}, jobs.SupervisorConfig{
		HostID:     cfg.HostID,
		InstanceID: uuid.NewString(),
		Version:    cfg.AppVersion,
		Interval:   cfg.TickInterval(),
	})

	cleanupJob := jobs.NewCleanupJob(
		blockRepo, dispatchRepo, commandRepo,
		cfg.DispatchRetention(), config.CleanupJobInterval,
	)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(middleware.NewBodyLimitMiddleware(0).Handler)

	r.Method(http.MethodGet, "/health", handler.NewHealthHandler(cfg.HostID, cfg.AppVersion))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if cfg.OpsTokenHash != "" {
		opsAuth := middleware.NewOpsAuthMiddleware(cfg.OpsTokenHash)
		opsRateLimit := middleware.NewRateLimitMiddleware(redisClient.Client, config.OpsRateLimitPerMin)
		opsHandler := handler.NewOpsHandler(accountRepo, dispatchRepo, heartbeatRepo, commandRepo, opsAuth.Handler)
		r.Route("/v1", func(r chi.Router) {
			r.Use(opsRateLimit.Handler)
			r.Mount("/", opsHandler.Routes())
		})
	} else {
		log.Info().Msg("OPS_TOKEN_HASH not set, operator API disabled")
	}

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerRequestTimeout + 5*time.Second,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			exitWith(os.Exit, config.ExitInvalidConfig, err, "server error")
		}
	}()

	cleanupJob.Start()
	supervisor.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	supervisor.Stop()
	cleanupJob.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("fleetd stopped")
}

// buildRegistry maps rest kinds to the Rest handler and every other code to a
// Family keyed by the text before its first colon.
func buildRegistry(catalog *model.Catalog) *service.Registry {
	registry := service.NewRegistry()
	rest := &actions.Rest{}
	families := make(map[string]bool)

	for _, k := range catalog.ActiveActions() {
		if k.Rest {
			registry.Register(k.Code, rest)
			continue
		}
		prefix, _, ok := strings.Cut(k.Code, ":")
		if !ok {
			log.Warn().Str("actionCode", k.Code).Msg("action code has no family prefix, no handler registered")
			continue
		}
		if families[prefix] {
			continue
		}
		families[prefix] = true
		registry.RegisterPrefix(prefix+":", actions.NewFamily(actions.LogPerformer{}, session.CapabilityBrowser))
	}
	return registry
}

// loadRuntime reads env config and the action catalog. Failures exit with
// config.ExitInvalidConfig; exit returning leaves both results nil.
func loadRuntime(exit func(code int)) (*config.Config, *model.Catalog) {
	cfg, err := config.Load()
	if err != nil {
		exitWith(exit, config.ExitInvalidConfig, err, "failed to load config")
		return nil, nil
	}
	if err := cfg.Validate(); err != nil {
		exitWith(exit, config.ExitInvalidConfig, err, "invalid config")
		return nil, nil
	}

	setLogLevel(cfg.LogLevel)

	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		exitWith(exit, config.ExitInvalidConfig, err, "failed to load action catalog: "+cfg.CatalogPath)
		return nil, nil
	}
	log.Info().
		Int("actions", len(catalog.ActiveActions())).
		Int("quotas", len(catalog.Quotas)).
		Msg("action catalog loaded")
	return cfg, catalog
}

func exitWith(exit func(code int), code int, err error, msg string) {
	log.Error().Err(err).Int("exitCode", code).Msg(msg)
	exit(code)
}

func exitStoreUnavailable(err error, msg string) {
	exitWith(os.Exit, config.ExitStoreUnavailable, err, msg)
}

func newRand() *rand.Rand {
	seed := uint64(time.Now().UnixNano())
	return rand.New(rand.NewPCG(seed, rand.Uint64()))
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
