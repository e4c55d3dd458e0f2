package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	goredis "github.com/redis/go-redis/v9"

	adminhandler "conectasat/internal/admin/handler"
	"conectasat/internal/audit"
	authservice "conectasat/internal/auth/service"
	authstore "conectasat/internal/auth/store"
	cfdihandler "conectasat/internal/cfdi/handler"
	historyservice "conectasat/internal/history/service"
	historystore "conectasat/internal/history/store"
	"conectasat/internal/jwttoken"
	"conectasat/internal/platform/config"
	"conectasat/internal/platform/httpserver"
	"conectasat/internal/platform/logger"
	"conectasat/internal/platform/metrics"
	"conectasat/internal/platform/redis"
	httptransport "conectasat/internal/transport/http"
	"conectasat/internal/verification"
)

// main wires dependencies and owns the server lifecycle. Business logic lives
// in the internal services.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var (
		tokenStore   authstore.TokenStore
		adminStore   authstore.AdminStore
		userStore    authstore.UserStore
		historyStore historystore.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("could not open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("could not reach database", "error", err)
			os.Exit(1)
		}

		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("could not create pgx pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pg := authstore.NewPostgres(db)
		tokenStore, adminStore, userStore = pg, pg, pg
		historyStore = historystore.NewPostgres(pool)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		mem := authstore.NewInMemory()
		tokenStore, adminStore, userStore = mem, mem, mem
		historyStore = historystore.NewInMemory()
	}

	rdb, err := redis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("could not connect to redis", "error", err)
		os.Exit(1)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	auditor, err := audit.NewPublisher(ctx, cfg.KafkaBrokers, cfg.AuditTopic, log)
	if err != nil {
		log.Error("could not start audit publisher", "error", err)
		os.Exit(1)
	}

	jwt := jwttoken.New(cfg.JWTSigningKey, cfg.AccessTokenTTL)
	auth := authservice.New(tokenStore, adminStore, userStore, jwt, log, m)
	if err := auth.EnsureBootstrapAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Error("could not bootstrap superadmin", "error", err)
		os.Exit(1)
	}

	history := historyservice.New(historyStore, log, m)
	verifier := verification.NewClient(log,
		verification.WithEndpoint(cfg.SATEndpoint),
		verification.WithMetrics(m),
	)

	var limiter *goredis.Client
	if rdb != nil {
		limiter = rdb.Client
	}
	router := httptransport.NewRouter(
		httptransport.Options{
			Logger:             log,
			Redis:              limiter,
			RateLimitPerMinute: cfg.RateLimitPerMinute,
		},
		cfdihandler.New(verifier, history, auth, log, m, auditor),
		adminhandler.New(auth, auth, log),
	)

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting conectasat", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	auditor.Close(shutdownCtx)
}
