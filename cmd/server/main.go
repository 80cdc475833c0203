package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/scanbill/internal/auth"
	"github.com/mmynk/scanbill/internal/billing"
	"github.com/mmynk/scanbill/internal/blobstore"
	"github.com/mmynk/scanbill/internal/config"
	"github.com/mmynk/scanbill/internal/metrics"
	"github.com/mmynk/scanbill/internal/scanner"
	"github.com/mmynk/scanbill/internal/service"
	"github.com/mmynk/scanbill/internal/storage/sqlite"
	"github.com/mmynk/scanbill/pkg/logging"
)

func main() {
	cfg := config.Load()
	logging.SetupWith(logging.ParseLevel(cfg.LogLevel), logging.ParseFormat(cfg.LogFormat))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open blob store: %w", err)
	}
	defer blobs.Close()
	slog.Info("Blob store ready", "backend", cfg.BlobBackend)

	collector := metrics.New()

	// A ledger that cannot be initialized is fatal.
	ledger, err := sqlite.New(ctx, blobs, sqlite.WithPersistObserver(collector.ObservePersist))
	if err != nil {
		return err
	}
	defer ledger.Close()
	slog.Info("Ledger initialized")

	gate, err := adminGate(cfg)
	if err != nil {
		return err
	}

	svc := billing.NewService(ledger, collector)
	session := billing.NewSession(svc, billing.WithScanObserver(func(r scanner.Result) {
		collector.ObserveScan(r.String())
	}))

	mux := service.NewMux(service.Deps{
		Session: session,
		Billing: svc,
		Gate:    gate,
		Tokens:  auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpires),
		Metrics: collector,
	})

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	handler := h2c.NewHandler(loggingMiddleware(corsMiddleware(mux)), &http2.Server{})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", addr, "url", fmt.Sprintf("http://localhost%s", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openBlobStore(ctx context.Context, cfg config.Config) (blobstore.Store, error) {
	switch cfg.BlobBackend {
	case config.BackendFile:
		return blobstore.NewFileStore(cfg.BlobDir)
	case config.BackendRedis:
		return blobstore.NewRedisStore(ctx, blobstore.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	case config.BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
		return blobstore.NewPostgresStore(ctx, cfg.DatabaseURL)
	case config.BackendMemory:
		slog.Warn("Using in-memory blob store; the ledger will not survive a restart")
		return blobstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}

func adminGate(cfg config.Config) (auth.Gate, error) {
	switch {
	case cfg.AdminSecretHash != "":
		return auth.NewBcryptGate(cfg.AdminSecretHash)
	case cfg.AdminSecret != "":
		return auth.NewPlaintextGate(cfg.AdminSecret)
	default:
		slog.Warn("No admin secret configured; admin operations are disabled")
		return auth.DisabledGate{}, nil
	}
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		slog.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms, X-Request-Id")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms, Content-Disposition, X-Request-Id")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
