package cli

import (
	"context"
	"fmt"

	"medrent/internal/amqp"
	"medrent/internal/backend"
	"medrent/internal/config"
	mlog "medrent/internal/log"
	"medrent/internal/services"
	"medrent/internal/sheets"
	gsheet "medrent/internal/sheets/google"
	mem "medrent/internal/sheets/memory"
)

// OpenBackend creates the record store selected by DATA_BACKEND.
func OpenBackend(ctx context.Context, logger *mlog.Logger, cfg *config.Config) (*backend.BackendResult, error) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(logger.Logger).CreateBackend(ctx, bc)
}

// RefreshConfig maps the environment settings onto the refresh processor.
func RefreshConfig(cfg *config.Config) services.RefreshProcessorConfig {
	rc := services.DefaultRefreshProcessorConfig()
	rc.Interval = cfg.RefreshInterval
	rc.CacheTTL = cfg.CacheTTL
	rc.CacheSize = cfg.CacheSize
	rc.LookaheadDays = cfg.LookaheadDays
	return rc
}

// NewAgenda returns the Google Sheets agenda when a spreadsheet is configured
// and an in-memory one otherwise.
func NewAgenda(ctx context.Context, logger *mlog.Logger, cfg *config.Config) (sheets.Agenda, error) {
	if !cfg.AgendaEnabled() {
		logger.Info("Agenda sheet disabled, notifications are kept in memory")
		return mem.New(), nil
	}
	client, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleAgendaSheetName,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
		OAuthClientFile:    cfg.GoogleOAuthClientFile,
		OAuthTokenFile:     cfg.GoogleOAuthTokenFile,
	})
	if err != nil {
		return nil, fmt.Errorf("init agenda sheet: %w", err)
	}
	logger.Info("Agenda sheet initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleAgendaSheetName)
	return client, nil
}

// ConnectAMQP dials the broker when one is configured. A nil client with a
// nil error means no broker.
func ConnectAMQP(logger *mlog.Logger, cfg *config.Config) (*amqp.Client, error) {
	if cfg.AMQPURL == "" {
		return nil, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return nil, fmt.Errorf("connect AMQP: %w", err)
	}
	logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client, nil
}
