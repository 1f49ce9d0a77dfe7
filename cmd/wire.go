package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	sqlitejournal "github.com/bnema/pacer/internal/adapters/journal/sqlite"
	"github.com/bnema/pacer/internal/adapters/platform/httpapi"
	statusadapter "github.com/bnema/pacer/internal/adapters/render/status"
	chainstore "github.com/bnema/pacer/internal/adapters/secrets/chain"
	redisstore "github.com/bnema/pacer/internal/adapters/session/redis"
	tomlstore "github.com/bnema/pacer/internal/adapters/session/toml"
	"github.com/bnema/pacer/internal/application"
	"github.com/bnema/pacer/internal/config"
	"github.com/bnema/pacer/internal/domain"
	"github.com/bnema/pacer/internal/ports"
	"github.com/spf13/viper"
)

const (
	secretEnvPrefix = "PACER"
	// historyWindow covers the longest quota window and the daily safety check.
	historyWindow = 24 * time.Hour
)

type app struct {
	cfg             config.Config
	logger          *slog.Logger
	logLevel        *slog.LevelVar
	sessionStore    ports.SessionStore
	secretStore     ports.SecretStore
	credentials     *application.CredentialService
	httpClient      *http.Client
	sessionRenderer func(application.SessionInfo, statusadapter.RenderOptions) (string, error)
	reportRenderer  func(statusadapter.Report, statusadapter.RenderOptions) (string, error)
	now             func() time.Time
	closers         []func() error
}

func wireApp() (*app, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	cfg, err := config.Load(viper.New(), homeDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logLevel := new(slog.LevelVar)
	logLevel.Set(cfg.Log.SlogLevel())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	a := &app{
		cfg:             cfg,
		logger:          logger,
		logLevel:        logLevel,
		httpClient:      http.DefaultClient,
		sessionRenderer: statusadapter.RenderSession,
		reportRenderer:  statusadapter.RenderReport,
		now:             time.Now,
	}

	if err := a.wireSessionStore(); err != nil {
		return nil, err
	}

	secretStore, err := chainstore.NewDefault(secretEnvPrefix, cfg.Secrets.EnvFiles, cfg.Secrets.Dir)
	if err != nil {
		return nil, fmt.Errorf("wire secret store chain: %w", err)
	}
	a.secretStore = secretStore
	a.credentials = application.NewCredentialService(cfg.Account.Username, cfg.Account.SecretRef, secretStore)

	return a, nil
}

func (a *app) wireSessionStore() error {
	switch a.cfg.Session.Backend {
	case config.BackendRedis:
		store, err := redisstore.NewStore(redisstore.Options{
			Addr:     a.cfg.Session.Redis.Addr,
			Username: a.cfg.Session.Redis.Username,
			Password: a.cfg.Session.Redis.Password,
			DB:       a.cfg.Session.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("wire redis session store: %w", err)
		}
		a.sessionStore = store
		a.closers = append(a.closers, store.Close)
	default:
		store, err := tomlstore.NewStore(a.cfg.Session.Path)
		if err != nil {
			return fmt.Errorf("wire session store: %w", err)
		}
		a.sessionStore = store
	}

	return nil
}

func (a *app) close() error {
	var errs []error
	for _, closeFn := range a.closers {
		errs = append(errs, closeFn())
	}
	a.closers = nil

	return errors.Join(errs...)
}

func (a *app) platformClient() (*httpapi.Client, error) {
	if a.cfg.Platform.BaseURL == "" {
		return nil, fmt.Errorf("%w: platform.base_url is not configured", domain.ErrInvalidConfig)
	}

	client, err := httpapi.NewClient(httpapi.Config{
		API: httpapi.API{
			BaseURL:      a.cfg.Platform.BaseURL,
			LoginPath:    a.cfg.Platform.LoginPath,
			IdentityPath: a.cfg.Platform.IdentityPath,
		},
		UserAgent:      a.cfg.Platform.UserAgent,
		RequestTimeout: a.cfg.Platform.Timeout,
		RequestDelay:   a.cfg.Delays.Request,
		HTTPClient:     a.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("wire platform client: %w", err)
	}

	return client, nil
}

// sessionService builds the session manager. client may be nil for
// commands that only read the stored record.
func (a *app) sessionService(client ports.PlatformClient) *application.SessionService {
	return application.NewSessionService(
		application.SessionConfig{Username: a.cfg.Account.Username, Policy: a.cfg.Session.Policy},
		a.sessionStore,
		client,
		a.credentials,
		ports.SystemClock{},
		a.logger,
	)
}

// openJournal returns nil when the journal is disabled.
func (a *app) openJournal(ctx context.Context) (*sqlitejournal.Journal, error) {
	if !a.cfg.Journal.Enabled {
		return nil, nil
	}

	journal, err := sqlitejournal.Open(ctx, a.cfg.Journal.Path)
	if err != nil {
		return nil, fmt.Errorf("open action journal: %w", err)
	}

	if retention := a.cfg.Journal.Retention; retention > 0 {
		pruned, err := journal.Prune(ctx, a.now().Add(-retention))
		if err != nil {
			a.logger.Warn("journal prune failed", "error", err)
		} else if pruned > 0 {
			a.logger.Debug("pruned journal records", "count", pruned)
		}
	}

	return journal, nil
}

// history replays the trailing window of journaled actions into a recorder.
func (a *app) history(ctx context.Context, journal *sqlitejournal.Journal) (*application.Recorder, error) {
	recorder := application.NewRecorder()
	if journal == nil {
		return recorder, nil
	}

	records, err := journal.Since(ctx, a.cfg.Account.Username, a.now().Add(-historyWindow))
	if err != nil {
		return nil, fmt.Errorf("replay action journal: %w", err)
	}
	if err := recorder.Seed(records); err != nil {
		return nil, err
	}

	return recorder, nil
}

func (a *app) executor(recorder *application.Recorder, journal *sqlitejournal.Journal) *application.Executor {
	opts := application.ExecutorOptions{Logger: a.logger}
	if journal != nil {
		opts.Journal = journal
	}

	return application.NewExecutor(application.ExecutorConfig{
		Username: a.cfg.Account.Username,
		Limits:   a.cfg.RateLimits,
		Delays:   a.cfg.Delays,
	}, recorder, opts)
}

func (a *app) safetyMonitor() *application.SafetyMonitor {
	return application.NewSafetyMonitor(a.cfg.Safety, ports.SystemClock{}, a.logger)
}
