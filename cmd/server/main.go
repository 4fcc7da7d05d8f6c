package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	datasethandler "lumine/internal/dataset/handler"
	datasetmetrics "lumine/internal/dataset/metrics"
	"lumine/internal/dataset/revision"
	datasetservice "lumine/internal/dataset/service"
	"lumine/internal/dataset/store/counter"
	"lumine/internal/dataset/store/snapshot"
	"lumine/internal/identity"
	identitymodels "lumine/internal/identity/models"
	identitystore "lumine/internal/identity/store"
	intakehandler "lumine/internal/intake/handler"
	intakemetrics "lumine/internal/intake/metrics"
	intakeservice "lumine/internal/intake/service"
	intakestore "lumine/internal/intake/store"
	"lumine/internal/mirror"
	"lumine/internal/platform/config"
	"lumine/internal/platform/httpserver"
	"lumine/internal/platform/logger"
	"lumine/internal/platform/metrics"
	"lumine/internal/platform/postgres"
	"lumine/internal/platform/redis"
	rlmetrics "lumine/internal/ratelimit/metrics"
	rlmiddleware "lumine/internal/ratelimit/middleware"
	rlmodels "lumine/internal/ratelimit/models"
	"lumine/internal/ratelimit/ports"
	rlservice "lumine/internal/ratelimit/service"
	"lumine/internal/ratelimit/store/local"
	rlpostgres "lumine/internal/ratelimit/store/postgres"
	rlredis "lumine/internal/ratelimit/store/redis"
	httptransport "lumine/internal/transport/http"
	"lumine/pkg/domain"
	"lumine/pkg/platform/audit"
	"lumine/pkg/platform/audit/publisher"
	auditmemory "lumine/pkg/platform/audit/store/memory"
	auditpostgres "lumine/pkg/platform/audit/store/postgres"
	"lumine/pkg/platform/circuit"
	"lumine/pkg/platform/tx"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	if cfg.Server.APIToken == "" {
		return errors.New("API_TOKEN is required")
	}

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}
	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	infra := buildInfra(db, cfg, log)
	defer infra.audit.Close()

	mirrorPublisher, closeMirror, err := buildMirror(ctx, cfg.Mirror, log)
	if err != nil {
		return err
	}
	defer closeMirror()

	datasetSvc, err := datasetservice.New(infra.snapshots, infra.revisions, infra.ids, infra.runner,
		datasetservice.WithLogger(log),
		datasetservice.WithAuditPublisher(infra.audit),
		datasetservice.WithMetrics(datasetmetrics.New()),
		datasetservice.WithMirror(mirrorPublisher),
	)
	if err != nil {
		return err
	}
	intakeSvc, err := intakeservice.New(infra.intake, infra.snapshots, infra.revisions, infra.ids, infra.runner,
		intakeservice.WithLogger(log),
		intakeservice.WithAuditPublisher(infra.audit),
		intakeservice.WithMetrics(intakemetrics.New()),
		intakeservice.WithMirror(mirrorPublisher),
	)
	if err != nil {
		return err
	}

	resolver, err := buildResolver(db, cfg.Identity, log)
	if err != nil {
		return err
	}
	limits, err := buildRateLimiter(db, redisClient, cfg.RateLimit, infra.audit, log)
	if err != nil {
		return err
	}

	checks := map[string]httptransport.HealthCheck{}
	if db != nil {
		checks["postgres"] = db.PingContext
	}
	if redisClient != nil {
		checks["redis"] = redisClient.Health
	}

	router := httptransport.NewRouter(httptransport.Config{
		Logger:         log,
		Metrics:        metrics.New(),
		APIToken:       cfg.Server.APIToken,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Resolver:       resolver,
		RateLimiter:    limits,
		Dataset:        datasethandler.New(datasetSvc, log, cfg.Server.MaxPayloadBytes),
		Intake: intakehandler.New(intakeSvc, log,
			intakehandler.WithStageMiddleware(httptransport.StageMiddleware(limits, resolver, log))),
		HealthChecks: checks,
	})

	srv := httpserver.New(cfg.Server.Addr, router)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting lumine", "addr", cfg.Server.Addr, "postgres", db != nil, "redis", redisClient != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// snapshotStore is shared by the dataset and intake services so both see the
// same individuals.
type snapshotStore interface {
	datasetservice.SnapshotStore
	intakeservice.IndividualStore
}

type intakeStore = intakeservice.Store

type infra struct {
	snapshots snapshotStore
	revisions *revision.Store
	ids       *revision.Allocator
	intake    intakeStore
	runner    tx.Runner
	audit     *publisher.Publisher
}

// buildInfra selects PostgreSQL or in-memory stores for every bounded context.
func buildInfra(db *sql.DB, cfg config.Config, log *slog.Logger) infra {
	var (
		counters   revision.Counter
		snapshots  snapshotStore
		intake     intakeStore
		runner     tx.Runner
		auditStore audit.Store
	)
	if db != nil {
		counters = counter.NewPostgres(db)
		snapshots = snapshot.NewPostgres(db)
		intake = intakestore.NewPostgres(db)
		runner = tx.NewPostgresRunner(db)
		auditStore = auditpostgres.New(db)
	} else {
		log.Warn("DATABASE_URL is not set, using in-memory stores")
		counters = counter.NewInMemoryCounter()
		snapshots = snapshot.NewInMemoryStore()
		intake = intakestore.NewInMemoryStore()
		runner = tx.NewMemoryRunner()
		auditStore = auditmemory.NewInMemoryStore()
	}

	auditPublisher := publisher.NewPublisher(auditStore,
		publisher.WithLogger(log),
		publisher.WithMetrics(publisher.NewMetrics()),
		publisher.WithAsyncBuffer(cfg.Audit.BufferSize),
		publisher.WithBreaker(circuit.New("audit",
			circuit.WithFailureThreshold(cfg.Audit.FailureThreshold),
			circuit.WithCooldown(cfg.Audit.Cooldown),
		)),
	)

	return infra{
		snapshots: snapshots,
		revisions: revision.NewStore(counters),
		ids:       revision.NewAllocator(counters, revision.DefaultPrefix),
		intake:    intake,
		runner:    runner,
		audit:     auditPublisher,
	}
}

func buildResolver(db *sql.DB, cfg config.IdentityConfig, log *slog.Logger) (*identity.Resolver, error) {
	if !cfg.EnforceRBAC {
		log.Warn("role enforcement disabled, requests run as the system actor")
		return identity.NewResolver(identity.WithLogger(log))
	}

	var profiles identity.ProfileStore
	if db != nil {
		profiles = identitystore.NewPostgres(db)
	} else {
		profiles = identitystore.NewInMemoryStore(parseProfiles(cfg.BootstrapProfiles)...)
	}
	return identity.NewResolver(
		identity.WithLogger(log),
		identity.WithEnforcement(identity.NewTokenValidator(cfg.UserJWTSecret), profiles),
	)
}

// parseProfiles reads userID:role pairs.
func parseProfiles(pairs []string) []identitymodels.Profile {
	var out []identitymodels.Profile
	for _, pair := range pairs {
		userID, role, ok := strings.Cut(pair, ":")
		if !ok || userID == "" {
			continue
		}
		out = append(out, identitymodels.Profile{UserID: userID, Role: domain.ParseRole(role), Active: true})
	}
	return out
}

// buildRateLimiter prefers Redis as the shared backend, then PostgreSQL, and
// otherwise limits per process.
func buildRateLimiter(db *sql.DB, redisClient *redis.Client, cfg config.RateLimitConfig, auditor ports.AuditPublisher, log *slog.Logger) (*rlmiddleware.Middleware, error) {
	opts := []rlservice.Option{
		rlservice.WithLogger(log),
		rlservice.WithMetrics(rlmetrics.New()),
		rlservice.WithBackendTimeout(cfg.BackendTimeout),
		rlservice.WithBreaker(circuit.New("ratelimit",
			circuit.WithFailureThreshold(cfg.FailureThreshold),
			circuit.WithCooldown(cfg.Cooldown),
		)),
	}
	switch {
	case redisClient != nil:
		opts = append(opts, rlservice.WithSharedStore(rlredis.New(redisClient.Client)))
	case db != nil:
		opts = append(opts, rlservice.WithSharedStore(rlpostgres.New(db,
			rlpostgres.WithCleanupSampleRate(cfg.CleanupSampleRate),
			rlpostgres.WithLogger(log),
		)))
	}

	limiter, err := rlservice.New(local.New(), rlmodels.Limit{Max: cfg.Max, Window: cfg.Window}, opts...)
	if err != nil {
		return nil, err
	}
	return rlmiddleware.New(limiter, log, rlmiddleware.WithAuditPublisher(auditor)), nil
}

func buildMirror(ctx context.Context, cfg config.MirrorConfig, log *slog.Logger) (mirror.Publisher, func(), error) {
	if !cfg.Enabled {
		return mirror.Noop{}, func() {}, nil
	}
	producer, err := mirror.NewKafkaPublisher(cfg.Brokers, cfg.Topic,
		mirror.WithLogger(log),
		mirror.WithMetrics(mirror.NewMetrics()),
	)
	if err != nil {
		return nil, nil, err
	}

	ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := producer.EnsureTopic(ensureCtx, 1, 1); err != nil {
		// The broker may still auto-create the topic on first produce.
		log.Warn("mirror topic bootstrap failed", "topic", cfg.Topic, "error", err)
	}

	return producer, func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := producer.Close(flushCtx); err != nil {
			log.Warn("mirror flush failed", "error", err)
		}
	}, nil
}
