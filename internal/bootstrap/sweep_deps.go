// Package bootstrap wires configuration, adapters and services together.
package bootstrap

import (
	"os"

	"github.com/rs/zerolog"

	"sweep_server/adapter/out/provider"
	"sweep_server/adapter/out/tokenstore"
	"sweep_server/config"
	"sweep_server/core/service/account"
	"sweep_server/core/service/action"
	"sweep_server/core/service/export"
	"sweep_server/core/service/scan"
	"sweep_server/pkg/ratelimit"
)

// Dependencies holds every constructed service and adapter.
type Dependencies struct {
	Log zerolog.Logger

	TokenStore *tokenstore.SQLiteStore
	Gateway    *provider.GmailAdapter

	ScanService    *scan.Orchestrator
	ActionService  *action.Coordinator
	AccountService *account.Service
	ExportService  *export.Service
}

// NewDependencies builds the dependency graph. The returned cleanup stops
// background work and closes the token store.
func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	log := newLogger(cfg)

	tokens, err := tokenstore.NewSQLiteStore(cfg.TokenDBPath)
	if err != nil {
		return nil, nil, err
	}

	limiter := ratelimit.NewLimiter(&ratelimit.Config{
		UnitsPerSecond: cfg.QuotaPerSecond,
		Burst:          cfg.QuotaBurst,
	})

	gateway := provider.NewGmailAdapter(provider.Config{
		ClientID:        cfg.GoogleClientID,
		ClientSecret:    cfg.GoogleClientSecret,
		RedirectURL:     cfg.GoogleRedirectURL,
		PageSize:        int64(cfg.ScanPageSize),
		ModifyBatchSize: cfg.ModifyBatchSize,
		FetchWorkers:    cfg.FetchWorkers,
		MaxRetries:      cfg.MaxRetries,
		RetryBaseDelay:  cfg.RetryBaseDelay,
	}, tokens, limiter, log)

	scanService := scan.NewOrchestrator(gateway, tokens, scan.NewAggregator(nil), scan.Config{
		FetchChunk:  cfg.ScanFetchChunk,
		MaxMessages: cfg.ScanMaxMessages,
	}, log)
	actionService := action.NewCoordinator(gateway, scanService, log)
	accountService := account.NewService(gateway, tokens, scanService, log)
	exportService := export.NewService(scanService)

	deps := &Dependencies{
		Log:            log,
		TokenStore:     tokens,
		Gateway:        gateway,
		ScanService:    scanService,
		ActionService:  actionService,
		AccountService: accountService,
		ExportService:  exportService,
	}

	cleanup := func() {
		scanService.Stop()
		if err := tokens.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close token store")
		}
	}
	return deps, cleanup, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level := zerolog.InfoLevel
	if cfg.IsDevelopment() {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().
		Timestamp().
		Str("service", "sweep").
		Logger()
	if cfg.IsDevelopment() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	return logger
}
