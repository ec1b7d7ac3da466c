// Command server runs the facility gate service: the public screening
// endpoint for scanner terminals plus the authenticated admin API.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	atthandler "facegate/internal/attendance/handler"
	attservice "facegate/internal/attendance/service"
	attstore "facegate/internal/attendance/store"
	gatehandler "facegate/internal/gate/handler"
	gatemetrics "facegate/internal/gate/metrics"
	gateports "facegate/internal/gate/ports"
	gateservice "facegate/internal/gate/service"
	transporthttp "facegate/internal/http"
	"facegate/internal/identity"
	"facegate/internal/jwttoken"
	"facegate/internal/platform/config"
	"facegate/internal/platform/httpserver"
	"facegate/internal/platform/logger"
	platformredis "facegate/internal/platform/redis"
	permhandler "facegate/internal/permission/handler"
	permservice "facegate/internal/permission/service"
	permstore "facegate/internal/permission/store"
	userhandler "facegate/internal/user/handler"
	userservice "facegate/internal/user/service"
	userstore "facegate/internal/user/store"
	"facegate/pkg/platform/audit"
	auditmemory "facegate/pkg/platform/audit/store/memory"
	auditpostgres "facegate/pkg/platform/audit/store/postgres"
	auditworker "facegate/pkg/platform/audit/worker"
)

const auditBufferSize = 1024

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		log.Info("connected to postgres")
	} else {
		log.Warn("no database configured, using in-memory stores")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		log.Info("connected to redis")
	}

	// Stores: Postgres when configured, in-memory otherwise.
	var (
		permissions interface {
			gateports.PermissionStore
			permservice.Store
		}
		ledger interface {
			gateports.AttendanceLedger
			attservice.Ledger
		}
		users      userservice.Store
		corpus     identity.UserSource
		atomic     gateports.Atomic
		auditStore audit.Store
	)
	if db != nil {
		pgPermissions := permstore.NewPostgres(db)
		permissions = pgPermissions
		ledger = attstore.NewPostgres(db)
		pgUsers := userstore.NewPostgres(db)
		users = pgUsers
		corpus = pgUsers
		atomic = gateservice.NewPostgresAtomic(db, pgPermissions)
		auditStore = auditpostgres.New(db)
	} else {
		permissions = permstore.NewMemory()
		ledger = attstore.NewMemory()
		memUsers := userstore.NewMemory()
		users = memUsers
		corpus = memUsers
		atomic = gateservice.NewShardedAtomic()
		auditStore = auditmemory.New()
	}

	cachedCorpus := identity.NewCachedSource(corpus, redisClient, cfg.EmbeddingCacheTTL, log)
	resolver := identity.NewResolver(cachedCorpus, cfg.SimilarityThreshold, log)

	publisher := audit.NewChannelPublisher(auditBufferSize, log)
	worker := auditworker.NewWorker(auditStore, publisher.Inbox(), log)

	gateSvc, err := gateservice.New(resolver, permissions, ledger, atomic,
		gateservice.WithLogger(log),
		gateservice.WithAuditPublisher(publisher),
		gateservice.WithMetrics(gatemetrics.New(prometheus.DefaultRegisterer)),
	)
	if err != nil {
		return err
	}

	permSvc, err := permservice.New(permissions, users,
		permservice.WithLogger(log),
		permservice.WithAuditPublisher(publisher),
	)
	if err != nil {
		return err
	}

	userSvc, err := userservice.New(users,
		userservice.WithLogger(log),
		userservice.WithAuditPublisher(publisher),
		userservice.WithCorpusInvalidator(cachedCorpus),
	)
	if err != nil {
		return err
	}

	attSvc, err := attservice.New(ledger)
	if err != nil {
		return err
	}

	jwtSvc := jwttoken.NewJWTService(cfg.JWTSigningKey, "facegate", "facegate-admin")

	checkers := map[string]transporthttp.HealthChecker{}
	if db != nil {
		checkers["postgres"] = dbChecker{db: db}
	}
	if redisClient != nil {
		checkers["redis"] = redisClient
	}

	router := transporthttp.NewRouter(transporthttp.Deps{
		Logger:      log,
		JWT:         jwttoken.NewMiddlewareAdapter(jwtSvc),
		Gate:        gatehandler.New(gateSvc, log),
		Permissions: permhandler.New(permSvc, log),
		Users:       userhandler.New(userSvc, log),
		Attendance:  atthandler.New(attSvc, log),
		Metrics:     promhttp.Handler(),
		Checkers:    checkers,
	})

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		err := worker.Run(groupCtx)
		if err == context.Canceled {
			return nil
		}
		return err
	})

	group.Go(func() error {
		log.Info("starting facegate server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

type dbChecker struct {
	db *sql.DB
}

func (c dbChecker) Health(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
