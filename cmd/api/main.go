package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"learning-portal/internal/audit"
	"learning-portal/internal/auth"
	"learning-portal/internal/config"
	"learning-portal/internal/httpapi"
	"learning-portal/internal/profile"
	"learning-portal/pkg/logger"
	"learning-portal/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	var (
		profileRepo profile.Repository = profile.NewMemoryRepo()
		auditRepo   audit.Repository   = audit.NewMemoryRepo()
	)
	if cfg.HasDatabase() {
		db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			log.Error("postgres init failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		profileRepo = profile.NewPostgresRepo(db)
		auditRepo = audit.NewPostgresRepo(db)
	} else {
		log.Warn("no database configured; profiles and audit are in memory")
	}
	auditSvc := audit.NewService(auditRepo)
	defer auditSvc.Close()

	// The provider client is built once here and handed to the resolver.
	var verifier auth.Verifier
	verifier, err = auth.NewHTTPVerifier(auth.HTTPVerifierConfig{
		BaseURL:  cfg.Identity.URL,
		UserPath: cfg.Identity.UserPath,
		APIKey:   cfg.Identity.APIKey,
	})
	if err != nil {
		log.Error("identity verifier init failed", "err", err)
		os.Exit(1)
	}
	if cfg.Identity.VerifyConcurrency > 0 {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		verifier, err = auth.NewCappedVerifier(verifier, rdb, auth.CapConfig{Limit: cfg.Identity.VerifyConcurrency})
		if err != nil {
			log.Error("verification cap init failed", "err", err)
			os.Exit(1)
		}
	}

	resolver, err := auth.NewResolver(verifier, auth.ResolverOptions{
		RequiredTimeout: cfg.Identity.RequiredTimeout,
		OptionalTimeout: cfg.Identity.OptionalTimeout,
		Recorder:        auditSvc,
	})
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(audit.CaptureClientIP())

	registerRoutes(r, resolver, httpapi.Handlers{
		Profiles: profile.NewService(profileRepo),
		Audit:    auditSvc,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
