package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/budgetbook/budgetbook/internal/backup"
	"github.com/budgetbook/budgetbook/internal/config"
	"github.com/budgetbook/budgetbook/internal/importer"
	"github.com/budgetbook/budgetbook/internal/ingest"
	"github.com/budgetbook/budgetbook/internal/logger"
	"github.com/budgetbook/budgetbook/internal/pipeline"
	"github.com/budgetbook/budgetbook/internal/store"
)

// env is everything a command needs to work on a data root.
type env struct {
	root     string
	cfg      *config.Config
	log      zerolog.Logger
	kv       store.KV
	ledger   *store.Ledger
	registry *importer.Registry
	pipeline *pipeline.Pipeline
}

// openEnv loads the configuration of the data root and opens its store.
func openEnv(ctx context.Context, opts *rootOptions, stderr io.Writer) (*env, context.Context, error) {
	root, err := filepath.Abs(opts.dir)
	if err != nil {
		return nil, ctx, fmt.Errorf("resolving path: %w", err)
	}
	cfg, err := config.LoadOrDefault(filepath.Join(root, config.FileName))
	if err != nil {
		return nil, ctx, err
	}
	if err := cfg.LoadEnv(root); err != nil {
		return nil, ctx, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	log := logger.NewWithWriter(stderr, logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	ctx = logger.WithContext(ctx, log)

	kv, err := store.Open(ctx, cfg.Storage.Driver, cfg.DBPath(root))
	if err != nil {
		return nil, ctx, fmt.Errorf("opening store: %w", err)
	}
	log.Debug().Str("driver", cfg.Storage.Driver).Str("path", cfg.DBPath(root)).Msg("store opened")

	registry := importer.DefaultRegistry()
	ledger := store.NewLedger(kv)
	p := pipeline.New(registry, pipeline.Options{
		SanityCeiling:  decimal.NewFromInt(cfg.Ingest.SanityCeiling),
		HeaderScanRows: cfg.Ingest.HeaderScanRows,
	})
	return &env{
		root:     root,
		cfg:      cfg,
		log:      log,
		kv:       kv,
		ledger:   ledger,
		registry: registry,
		pipeline: p,
	}, ctx, nil
}

// ingestService returns an importer over the env's ledger. autoDetect
// turns on marker preselection for text statements on top of the config.
func (e *env) ingestService(autoDetect bool) *ingest.Service {
	return ingest.NewService(e.pipeline, e.registry, e.ledger, ingest.Options{
		Workers:        e.cfg.Ingest.Workers,
		AutoDetectText: autoDetect || e.cfg.Ingest.AutoDetectText,
	})
}

func (e *env) backupOptions() backup.Options {
	return backup.Options{
		S3Endpoint:        e.cfg.Backup.S3Endpoint,
		S3Region:          e.cfg.Backup.S3Region,
		S3AccessKeyID:     e.cfg.Backup.S3AccessKeyID,
		S3SecretAccessKey: e.cfg.Backup.S3SecretAccessKey,
	}
}

func (e *env) Close() error {
	return e.kv.Close()
}
