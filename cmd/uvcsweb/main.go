package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	redisadapter "github.com/ericfisherdev/uvcsweb/internal/adapter/driven/redis"
	"github.com/ericfisherdev/uvcsweb/internal/adapter/driven/sealbox"
	sqliteadapter "github.com/ericfisherdev/uvcsweb/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/uvcsweb/internal/adapter/driven/uvcs"
	httphandler "github.com/ericfisherdev/uvcsweb/internal/adapter/driving/http"
	webhandler "github.com/ericfisherdev/uvcsweb/internal/adapter/driving/web"
	"github.com/ericfisherdev/uvcsweb/internal/application"
	"github.com/ericfisherdev/uvcsweb/internal/config"
	"github.com/ericfisherdev/uvcsweb/internal/domain/port/driven"
)

// sweepInterval is how often idle browser sessions are dropped from memory.
const sweepInterval = time.Minute

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// 2. Configure the default logger.
	slog.SetDefault(newLogger(os.Stderr, cfg))
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"api_url", cfg.APIURL,
		"session_backend", cfg.SessionBackend,
		"sealed", cfg.SecretKey != nil,
	)

	// 3. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Open the session key store.
	box, err := sealbox.New(cfg.SecretKey)
	if err != nil {
		return err
	}
	keys, closeKeys, err := openKeyStore(ctx, cfg, box)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeKeys(); closeErr != nil {
			slog.Error("error closing session key store", "error", closeErr)
		}
	}()

	// 5. Create the server client.
	client, err := uvcs.NewClient(cfg.APIURL, cfg.APITimeout, slog.Default())
	if err != nil {
		return err
	}

	// 6. Create the session registry and start the idle sweeper.
	registry := application.NewSessionRegistry(client, keys, slog.Default())
	go registry.Run(ctx, sweepInterval, cfg.SessionIdleTimeout)

	// 7. Register API and web routes.
	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, httphandler.NewHandler(registry, cfg.SessionBackend, slog.Default()))
	webhandler.RegisterRoutes(mux, webhandler.NewHandler(registry, cfg.CookieSecure, slog.Default()))

	// Apply middleware.
	handler := httphandler.ApplyMiddleware(mux, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	// 8. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 9. Graceful shutdown with 10s timeout to drain in-flight requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openKeyStore opens the configured session key backend and returns it with
// its close function.
func openKeyStore(ctx context.Context, cfg *config.Config, box *sealbox.Box) (driven.SessionKeyStore, func() error, error) {
	switch cfg.SessionBackend {
	case config.BackendRedis:
		repo, err := redisadapter.NewSessionKeyRepo(ctx, redisadapter.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.SessionTTL,
		}, box)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("redis session store connected", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
		return repo, repo.Close, nil

	case config.BackendSQLite:
		// Dual reader/writer with WAL mode; migrations run on the writer.
		db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		version, err := sqliteadapter.RunMigrations(db.Writer)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		slog.Info("database opened", "path", db.Path(), "schema_version", version)
		return sqliteadapter.NewSessionKeyRepo(db, box), db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
}
