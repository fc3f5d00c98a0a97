package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	apisrv "github.com/compose-network/bolt/server/api"
	apimw "github.com/compose-network/bolt/server/api/middleware"

	"github.com/compose-network/bolt/internal/boltclient"
	"github.com/compose-network/bolt/internal/boltjob"
	"github.com/compose-network/bolt/internal/boltmetrics"
	"github.com/compose-network/bolt/internal/boltrunner"
	"github.com/compose-network/bolt/internal/config"
)

// App wires a Runner to its operational HTTP surface (health/ready/jobs/metrics).
// Grounded on publisher-leader-app/app.go's App/NewApp/initialize/Run/shutdown
// staged lifecycle, generalized from a single long-lived publisher process to
// one that also accepts and drives job batches.
type App struct {
	cfg *config.Config
	log zerolog.Logger

	runner  *boltrunner.Runner
	history *boltjob.History
	reg     *prometheus.Registry

	apiServer *apisrv.Server

	cancel context.CancelFunc
}

// NewApp builds an App. publisher and partner are the two peer clients every
// submitted job batch is driven against.
func NewApp(cfg *config.Config, log zerolog.Logger, publisher, partner boltclient.Client) (*App, error) {
	a := &App{
		cfg: cfg,
		log: log.With().Str("component", "app").Logger(),
	}
	if err := a.initialize(publisher, partner); err != nil {
		return nil, fmt.Errorf("failed to initialize app: %w", err)
	}
	return a, nil
}

func (a *App) initialize(publisher, partner boltclient.Client) error {
	a.reg = prometheus.NewRegistry()

	var metrics *boltmetrics.Metrics
	if a.cfg.Metrics.Enabled {
		metrics = boltmetrics.New(a.reg)
	}

	runnerCfg := boltrunner.DefaultConfig()
	runnerCfg.NumTries = a.cfg.Runner.NumTries
	runnerCfg.PollInterval = a.cfg.Runner.PollInterval
	runnerCfg.Metrics = metrics
	runnerCfg.Logger = a.log.With().Str("component", "runner").Logger()

	a.runner = boltrunner.New(publisher, partner, runnerCfg)
	a.history = boltjob.NewHistory(a.cfg.API.JobHistorySize)

	apiCfg := apisrv.Config{
		ListenAddr:        a.cfg.API.ListenAddr,
		ReadHeaderTimeout: a.cfg.API.ReadHeaderTimeout,
		ReadTimeout:       a.cfg.API.ReadTimeout,
		WriteTimeout:      a.cfg.API.WriteTimeout,
		IdleTimeout:       a.cfg.API.IdleTimeout,
		MaxHeaderBytes:    a.cfg.API.MaxHeaderBytes,
	}
	s := apisrv.NewServer(apiCfg, a.log)
	s.Use(apimw.Recover(a.log, metrics))
	s.Use(apimw.RequestID())
	s.Use(apimw.Logger(a.log))

	s.Router.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)
	s.Router.HandleFunc("/ready", a.handleReady).Methods(http.MethodGet)
	s.Router.HandleFunc("/jobs", a.handleJobs).Methods(http.MethodGet)

	if a.cfg.Metrics.Enabled {
		s.Router.Handle("/metrics", promhttp.HandlerFor(a.reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	a.apiServer = s
	return nil
}

// RunJobs drives jobs to completion, recording each Summary into the
// operational /jobs history, and returns the summaries in input order.
func (a *App) RunJobs(ctx context.Context, jobs []boltjob.Job) []boltjob.Summary {
	summaries := a.runner.RunAsync(ctx, jobs)
	for _, s := range summaries {
		a.history.Record(s)
	}
	return summaries
}

// Serve starts the operational HTTP API and blocks until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.log.Info().Str("addr", a.cfg.API.ListenAddr).Msg("bolt operational API starting")
	return a.apiServer.Start(runCtx)
}

// Shutdown cancels the API server's context, which starts the server's
// graceful shutdown (bounded at 10s inside Server.Start), then pauses 100ms.
// It does not wait for the server to stop serving.
func (a *App) Shutdown() {
	if a.cancel != nil {
		a.cancel()
	}
	time.Sleep(100 * time.Millisecond)
}

func (a *App) handleHealth(w http.ResponseWriter, _ *http.Request) {
	apisrv.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *App) handleReady(w http.ResponseWriter, _ *http.Request) {
	apisrv.WriteJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *App) handleJobs(w http.ResponseWriter, _ *http.Request) {
	apisrv.WriteJSON(w, http.StatusOK, map[string]any{"jobs": a.history.Recent()})
}
