package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"budgetinsights/internal/config"
	"budgetinsights/internal/handlers/explorer"
	"budgetinsights/internal/handlers/insights"
	apphttp "budgetinsights/internal/http"
	"budgetinsights/internal/logging"
	"budgetinsights/internal/services/analyzer"
	"budgetinsights/internal/services/dataloader"
	"budgetinsights/internal/services/digest"
	"budgetinsights/internal/services/storage"
	"budgetinsights/internal/version"
)

var (
	cfg    *config.Config
	logger *logrus.Logger
	store  *storage.Storage
	loader *dataloader.DataLoader
	svc    *analyzer.Service
)

func main() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	logger = logging.New(cfg.LogLevel, cfg.LogFormat)
	info := version.Get()
	logger.WithFields(info.Fields()).Infof("Starting budget insights on %s", cfg.ListenAddr)
	if w := info.Warning(); w != "" {
		logger.Warn(w)
	}
	logger.WithField("dir", cfg.DataDirectory).Info("Data directory")
	cfg.EnsureDirectories(logger)

	if err := SetupDependencies(cfg); err != nil {
		logger.Fatalf("Failed to set up: %v", err)
	}

	if store.IsEncrypted() {
		if pass := os.Getenv("BUDGET_PASSPHRASE"); pass != "" {
			if err := store.Unlock(pass); err != nil {
				logger.Fatalf("Failed to unlock ledger: %v", err)
			}
		} else {
			logger.Warn("Ledger is encrypted; POST /api/unlock before requesting insights")
		}
	}

	var job *digest.Digest
	if cfg.DigestSchedule != "" {
		job = digest.New(loader, svc, time.Now, logging.Component(logger, "digest"))
		if err := job.Start(cfg.DigestSchedule); err != nil {
			logger.Fatalf("Failed to schedule digest: %v", err)
		}
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown failed")
	}
	if job != nil {
		<-job.Stop().Done()
	}
}

// SetupDependencies wires storage, loading and analysis for c. A logger set
// beforehand is kept.
func SetupDependencies(c *config.Config) error {
	cfg = c
	if logger == nil {
		logger = logging.New(c.LogLevel, c.LogFormat)
	}
	apphttp.Logger = logging.Component(logger, "http")

	var err error
	store, err = storage.New(c.DataDirectory, logging.Component(logger, "storage"))
	if err != nil {
		return err
	}

	loader = dataloader.New(store, logging.Component(logger, "loader"))
	svc = analyzer.New(c.Analysis.Settings(), logging.Component(logger, "analyzer"))
	insights.Initialize(loader, svc, time.Now)
	explorer.Initialize(loader, logging.Component(logger, "explorer"))
	return nil
}

// SetupRouter builds the HTTP routes
func SetupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logging.Component(logger, "http")))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/insights", http.StatusTemporaryRedirect)
	})

	insights.RegisterRoutes(r)
	explorer.RegisterRoutes(r)

	r.Get("/api/health", handleHealth)
	r.Post("/api/unlock", handleUnlock)
	r.Post("/api/lock", handleLock)

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	apphttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"version":   version.Get(),
		"encrypted": store.IsEncrypted(),
		"unlocked":  store.IsUnlocked(),
	})
}

func handleUnlock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Passphrase string `json:"passphrase"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<12)).Decode(&req); err != nil {
		apphttp.ErrorResponse(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := store.Unlock(req.Passphrase); err != nil {
		apphttp.Failed(w, err)
		return
	}
	apphttp.WriteJSON(w, http.StatusOK, map[string]bool{"unlocked": true})
}

func handleLock(w http.ResponseWriter, r *http.Request) {
	store.Lock()
	apphttp.WriteJSON(w, http.StatusOK, map[string]bool{"unlocked": store.IsUnlocked()})
}
