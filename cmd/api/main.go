package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/questboard/questboard-api/internal/config"
	"github.com/questboard/questboard-api/internal/domain/authz"
	"github.com/questboard/questboard-api/internal/domain/ledger"
	"github.com/questboard/questboard-api/internal/domain/notification"
	"github.com/questboard/questboard-api/internal/domain/organization"
	"github.com/questboard/questboard-api/internal/domain/quest"
	"github.com/questboard/questboard-api/internal/domain/treasury"
	"github.com/questboard/questboard-api/internal/domain/user"
	"github.com/questboard/questboard-api/internal/middleware"
	"github.com/questboard/questboard-api/internal/pkg/database"
	"github.com/questboard/questboard-api/internal/pkg/jwt"
	"github.com/questboard/questboard-api/internal/pkg/logger"
	"github.com/questboard/questboard-api/internal/pkg/metrics"
	pkgresponse "github.com/questboard/questboard-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env, LogFile: cfg.LogFile}); err != nil {
		log.Fatal().Err(err).Msg("Failed to init logger")
	}

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting QuestBoard API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	if cfg.RunMigrations {
		if err := database.RunMigrations(context.Background(), db); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
	}

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	var publisher notification.Publisher = notification.NopPublisher{}
	if redis != nil {
		publisher = notification.NewRedisPublisher(redis, cfg.NotifyChannel)
	}

	poolCtx, stopPoolStats := context.WithCancel(context.Background())
	defer stopPoolStats()
	go recordPoolStats(poolCtx, db.Stats, 15*time.Second)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)
	tx := database.NewTransactor(db, cfg.TxMaxAttempts, cfg.TxRetryBackoff)

	// ---------- Repositories ----------
	userRepo := user.NewRepository(db)
	orgRepo := organization.NewRepository(db)
	questRepo := quest.NewRepository(db)
	submissionRepo := quest.NewSubmissionRepository(db)
	ledgerRepo := ledger.NewRepository(tx)

	guard := authz.NewGuard(userRepo)

	// ---------- Services ----------
	questService := quest.NewService(tx, questRepo, submissionRepo, ledgerRepo, guard)
	treasuryService := treasury.NewService(tx, questRepo, ledgerRepo, userRepo, orgRepo, guard, publisher)
	walletService := ledger.NewService(ledgerRepo, guard)

	r := newRouter(routes{
		auth:     middleware.Auth(jwtService),
		origins:  cfg.AllowedOrigins,
		quests:   quest.NewHandler(questService),
		treasury: treasury.NewHandler(treasuryService),
		wallet:   ledger.NewHandler(walletService),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

type routes struct {
	auth     func(http.Handler) http.Handler
	origins  []string
	quests   *quest.Handler
	treasury *treasury.Handler
	wallet   *ledger.Handler
}

func newRouter(rt routes) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(metrics.Middleware)
	r.Use(middleware.CORSHandler(rt.origins))

	r.Handle("/metrics", metrics.Handler())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/quests", func(r chi.Router) {
			r.Use(rt.auth)
			rt.quests.RegisterQuestRoutes(r)
			rt.treasury.RegisterQuestRoutes(r)
		})

		r.Route("/submissions", func(r chi.Router) {
			r.Use(rt.auth)
			rt.quests.RegisterSubmissionRoutes(r)
		})

		r.Mount("/wallet", rt.wallet.Routes(rt.auth))

		r.With(rt.auth).Mount("/admin", rt.treasury.AdminRoutes())
	})

	return r
}

func recordPoolStats(ctx context.Context, stats func() sql.DBStats, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		metrics.RecordDBPoolStats(stats())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
