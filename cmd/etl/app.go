package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	httpadapter "github.com/couchcryptid/snowex-etl-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/snowex-etl-service/internal/adapter/kafka"
	"github.com/couchcryptid/snowex-etl-service/internal/adapter/store"
	"github.com/couchcryptid/snowex-etl-service/internal/config"
	"github.com/couchcryptid/snowex-etl-service/internal/domain"
	"github.com/couchcryptid/snowex-etl-service/internal/observability"
	"github.com/couchcryptid/snowex-etl-service/internal/pipeline"
)

// app holds the dependencies shared by every subcommand.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *observability.Metrics
	store     *store.Store
	vocab     *domain.Vocabulary
	publisher *kafkaadapter.Publisher
	closers   []func() error
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	vocab, err := domain.LoadVocabulary(cfg.VariableFiles...)
	if err != nil {
		return nil, err
	}

	db, err := store.Open(cfg.DBDriver, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		store:   store.New(db, logger, metrics),
		vocab:   vocab,
	}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}

	if cfg.EventsEnabled() {
		a.publisher = kafkaadapter.NewPublisher(cfg, logger)
		a.closers = append(a.closers, a.publisher.Close)
		logger.Info("upload events enabled", "topic", cfg.KafkaEventsTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("upload events disabled")
	}
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("close error", "error", err)
		}
	}
}

// batchFlags are shared by every upload subcommand.
type batchFlags struct {
	debug  bool
	nFiles int
}

// runBatch uploads files while the HTTP server reports progress, then shuts
// the server down. Any failed file makes the command fail.
func (a *app) runBatch(ctx context.Context, kind string, files []string, bf batchFlags, upload pipeline.UploadFunc) error {
	cfg := pipeline.BatchConfig{Kind: kind, Debug: bf.debug, NFiles: bf.nFiles}
	if a.publisher != nil {
		cfg.Publisher = a.publisher
	}
	batch := pipeline.NewBatch(upload, cfg, a.logger, a.metrics)

	srv := httpadapter.NewServer(a.cfg.HTTPAddr, a.store, batch, a.logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("http server shutdown error", "error", err)
		}
	}()

	rep, err := batch.Push(ctx, files)
	if err != nil {
		return err
	}
	if len(rep.Errors) > 0 {
		return fmt.Errorf("%d of %d files failed", len(rep.Errors), rep.Attempted)
	}
	return nil
}
