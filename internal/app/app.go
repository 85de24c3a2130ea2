// Package app wires configuration into a running journal service.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/zella/internal/alert"
	"github.com/newthinker/zella/internal/api"
	"github.com/newthinker/zella/internal/api/job"
	"github.com/newthinker/zella/internal/api/stream"
	"github.com/newthinker/zella/internal/auth"
	"github.com/newthinker/zella/internal/coach"
	"github.com/newthinker/zella/internal/config"
	"github.com/newthinker/zella/internal/journal"
	"github.com/newthinker/zella/internal/llm"
	"github.com/newthinker/zella/internal/llm/factory"
	"github.com/newthinker/zella/internal/metrics"
	notifierfactory "github.com/newthinker/zella/internal/notifier/factory"
	"github.com/newthinker/zella/internal/settings"
	"github.com/newthinker/zella/internal/storage/archive"
	"github.com/newthinker/zella/internal/storage/trade"
)

// App is the main application orchestrator
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Registry

	store    trade.Store
	archive  archive.Storage
	settings *settings.Store
	journal  *journal.Service
	vault    *auth.Vault
	resolver *auth.Resolver

	provider llm.Provider
	runner   *coach.Runner
	grader   *coach.Grader
	auditor  *coach.Auditor
	mindset  *coach.Mindset

	watcher   *alert.Watcher
	watchOnce sync.Once

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// New opens storage and builds every component named in cfg.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}
	if cfg.Metrics.Enabled {
		a.metrics = metrics.NewRegistry()
	}

	var err error
	if a.archive, err = archive.New(cfg.Storage.Archive); err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	if a.store, err = trade.Open(ctx, cfg.Storage.Trades, logger); err != nil {
		return nil, fmt.Errorf("opening trade store: %w", err)
	}

	if a.settings, err = settings.New(cfg.Sessions, a.archive, logger); err != nil {
		a.store.Close()
		return nil, fmt.Errorf("session settings: %w", err)
	}
	if err := a.settings.Load(ctx); err != nil {
		logger.Warn("ignoring persisted session profile", zap.Error(err))
	}

	a.journal, err = journal.NewService(a.store, a.settings, journal.Options{
		Policy:   cfg.Risk,
		Accounts: cfg.Accounts,
		Archive:  a.archive,
		Metrics:  a.metrics,
		Logger:   logger,
	})
	if err != nil {
		a.store.Close()
		return nil, fmt.Errorf("journal: %w", err)
	}
	if cfg.Journal.SeedSample {
		if err := a.journal.SeedSample(ctx); err != nil {
			logger.Warn("seeding sample journal failed", zap.Error(err))
		}
	}

	if a.vault, err = auth.NewVault(cfg.Auth.Admin, logger); err != nil {
		a.store.Close()
		return nil, fmt.Errorf("admin vault: %w", err)
	}
	a.resolver = auth.NewResolver(a.vault, cfg.Auth.APIKeys, cfg.Auth.AllowGuest)

	if cfg.Alerts.Enabled {
		notifiers, err := notifierfactory.New(cfg.Alerts.Notifiers)
		if err != nil {
			a.store.Close()
			return nil, fmt.Errorf("alert notifiers: %w", err)
		}
		a.watcher, err = alert.NewWatcher(a.journal, notifiers, alert.Options{
			Rules:    cfg.Alerts.Rules,
			Cooldown: cfg.Alerts.Cooldown,
			Metrics:  a.metrics,
			Logger:   logger,
		})
		if err != nil {
			a.store.Close()
			return nil, fmt.Errorf("alert watcher: %w", err)
		}
		if notifiers.Len() == 0 {
			logger.Info("alerts enabled without notifiers, alerts are only listed over the API")
		}
	}

	if a.provider, err = factory.New(cfg.LLM); err != nil {
		a.store.Close()
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	if a.provider != nil {
		ttl := time.Duration(cfg.Server.JobTTLHours) * time.Hour
		a.runner = coach.NewRunner(job.NewStore(cfg.Server.MaxJobs, ttl), cfg.Coach.Timeout, a.metrics, logger)
		a.grader = coach.NewGrader(a.provider, logger)
		a.auditor = coach.NewAuditor(a.provider, logger)
		a.mindset = coach.NewMindset(a.provider, cfg.Coach.MaxChatTurns, logger)
		logger.Info("coach enabled", zap.String("provider", a.provider.Name()))
	} else {
		logger.Info("coach disabled, no llm provider configured")
	}

	return a, nil
}

// Journal returns the journal service.
func (a *App) Journal() *journal.Service { return a.journal }

// Grader returns the execution grader, nil when no provider is configured.
func (a *App) Grader() *coach.Grader { return a.grader }

// Auditor returns the performance auditor, nil when no provider is configured.
func (a *App) Auditor() *coach.Auditor { return a.auditor }

// Watcher returns the alert watcher, nil when alerts are disabled.
func (a *App) Watcher() *alert.Watcher { return a.watcher }

// Dependencies assembles the HTTP server collaborators. hub may be nil.
func (a *App) Dependencies(hub *stream.Hub, version string) api.Dependencies {
	deps := api.Dependencies{
		Journal:  a.journal,
		Vault:    a.vault,
		Resolver: a.resolver,
		Hub:      hub,
		Metrics:  a.metrics,
		Version:  version,
	}
	if a.watcher != nil {
		deps.Alerts = a.watcher
	}
	if a.runner != nil {
		deps.Runner = a.runner
		deps.Grader = a.grader
		deps.Auditor = a.auditor
		deps.Chat = a.mindset
	}
	return deps
}

// Serve runs the HTTP server and change stream until ctx is cancelled,
// then shuts both down within grace.
func (a *App) Serve(ctx context.Context, version string, grace time.Duration) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return errors.New("app already running")
	}
	ctx, a.cancel = context.WithCancel(ctx)
	a.running = true
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	hub := stream.NewHub(a.metrics, a.logger)
	go hub.Run(ctx)

	if a.watcher != nil {
		a.watchOnce.Do(func() { a.journal.Subscribe(a.watcher.Handle) })
		go a.watcher.Run(ctx)
	}

	srv, err := api.NewServer(api.Config{
		Host:           a.cfg.Server.Host,
		Port:           a.cfg.Server.Port,
		ReadTimeout:    a.cfg.Server.ReadTimeout,
		WriteTimeout:   a.cfg.Server.WriteTimeout,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
	}, a.Dependencies(hub, version), a.logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		a.cancel()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if a.runner != nil {
		a.runner.Wait()
	}
	return nil
}

// Stop cancels a running Serve.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
}

// IsRunning reports whether Serve is active.
func (a *App) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// Close releases storage.
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}
