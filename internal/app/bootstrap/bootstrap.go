package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	councilengine "conclave/contexts/governance/council-engine"
	postgresadapter "conclave/contexts/governance/council-engine/adapters/postgres"
	workerapp "conclave/contexts/governance/council-engine/application/workers"
	"conclave/contexts/governance/council-engine/ports"
	"conclave/internal/platform/config"
	"conclave/internal/platform/db"
	"conclave/internal/platform/httpserver"
	"conclave/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	expirySweep  workerapp.ExpirySweep
	outboxRelay  workerapp.OutboxRelay
	sweepEnabled bool
	relayEnabled bool
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	roster, err := LoadRoster(cfg.RosterPath)
	if err != nil {
		return nil, err
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	module := councilengine.NewModule(councilengine.Dependencies{
		Roster:            roster,
		Votes:             repo,
		Outbox:            repo,
		Audit:             ports.NoopAuditSink{},
		Outcomes:          ports.NoopOutcomeSink{},
		Scorer:            ports.NoopRelevanceScorer{},
		Clock:             postgresadapter.SystemClock{},
		IDGen:             postgresadapter.UUIDGenerator{},
		MinCategoryQuorum: cfg.MinCategoryQuorum,
		DissentFloor:      cfg.DissentFloor,
		OverturnWindow:    cfg.OverturnWindow,
		Logger:            logger,
	})

	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	roster, err := LoadRoster(cfg.RosterPath)
	if err != nil {
		return nil, err
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	module := councilengine.NewModule(councilengine.Dependencies{
		Roster:            roster,
		Votes:             repo,
		Outbox:            repo,
		Audit:             ports.NoopAuditSink{},
		Outcomes:          ports.NoopOutcomeSink{},
		Scorer:            ports.NoopRelevanceScorer{},
		Clock:             postgresadapter.SystemClock{},
		IDGen:             postgresadapter.UUIDGenerator{},
		MinCategoryQuorum: cfg.MinCategoryQuorum,
		DissentFloor:      cfg.DissentFloor,
		OverturnWindow:    cfg.OverturnWindow,
		Logger:            logger,
	})

	return &WorkerApp{
		postgres: pg,
		expirySweep: workerapp.ExpirySweep{
			Ledger: module.Ledger,
			Logger: logger,
		},
		outboxRelay: workerapp.OutboxRelay{
			Outbox:    repo,
			Publisher: kafka,
			Clock:     postgresadapter.SystemClock{},
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		sweepEnabled: cfg.EnableExpirySweep,
		relayEnabled: cfg.EnableOutboxRelay,
		pollInterval: cfg.SweepInterval,
		logger:       logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	interval := w.pollInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", interval.String(),
	)

	for {
		if w.sweepEnabled {
			if err := w.expirySweep.RunOnce(ctx); err != nil {
				return err
			}
		}
		if w.relayEnabled {
			if err := w.outboxRelay.RunOnce(ctx); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
