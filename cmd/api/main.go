package main

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/gorm"

	"anticoag-tracker/internal/adapters/storage/database"
	"anticoag-tracker/internal/auth"
	"anticoag-tracker/internal/config"
	"anticoag-tracker/internal/platform/logger"
	authport "anticoag-tracker/internal/ports/auth"
	"anticoag-tracker/internal/router"
	"anticoag-tracker/internal/statecache"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := logger.Setup(logger.Options{Level: cfg.Logger.Level, Format: cfg.Logger.Format})

	authCfg, err := auth.LoadConfig(cfg.Auth.Issuer, cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	if err != nil {
		log.Error("load auth config", "error", err)
		os.Exit(1)
	}

	// No signing secret means dev mode: the X-Debug-User-ID header carries
	// the identity instead of a bearer token.
	var verifier authport.AuthVerifier
	if cfg.Auth.JWTSecret != "" {
		verifier = auth.NewVerifier(authCfg)
	} else {
		log.Warn("AUTH_JWT_SECRET is empty, running in dev mode")
	}

	var db *gorm.DB
	if cfg.DB.Provider != "memory" {
		db, err = database.Open(cfg.DB)
		if err != nil {
			log.Error("open database", "provider", cfg.DB.Provider, "error", err)
			os.Exit(1)
		}
		log.Info("database ready", "provider", cfg.DB.Provider)
	} else {
		log.Info("using in-memory storage")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cache *statecache.Cache
	if cfg.Cache.Key != "" {
		cache, err = statecache.New(cfg.Cache.Dir, cacheKey(cfg.Cache.Key))
		if err != nil {
			log.Error("open state cache", "error", err)
			os.Exit(1)
		}
		cache.StartSweeper(ctx.Done(), cfg.Cache.SweepInterval)
	}

	handler := router.NewRouter(router.Options{
		AuthVerifier: verifier,
		DB:           db,
		Auth:         authCfg,
		StateCache:   cache,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
}

// cacheKey accepts either a hex-encoded or a raw 32-byte key; statecache.New
// rejects anything of the wrong size.
func cacheKey(s string) []byte {
	if raw, err := hex.DecodeString(s); err == nil && len(raw) == statecache.KeySize {
		return raw
	}
	return []byte(s)
}
