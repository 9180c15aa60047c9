package main

import (
	"context"
	"errors"
	"log/slog"
	nethttp "net/http"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	apihttp "ozzus/relayping/internal/api/http"
	"ozzus/relayping/internal/checks"
	"ozzus/relayping/internal/directory"
	"ozzus/relayping/internal/repository"
	"ozzus/relayping/internal/repository/kafka"
	"ozzus/relayping/internal/service"
	"ozzus/relayping/internal/telemetry"
)

func newAgentCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "agent",
		Short: "Consume latency tasks from Kafka and serve the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAgent(cmd.Context(), a)
		},
	}
}

func runAgent(parent context.Context, a *app) error {
	cfg := a.cfg
	log := setupLogger(cfg.Env, os.Stdout)

	log.Info("starting application",
		"env", cfg.Env,
		"agent", cfg.Agent.Name,
		"version", version,
	)

	ctx, cancel := signalContext(parent)
	defer cancel()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry.OTLPEndpoint, cfg.Agent.Name, log)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			log.Error("telemetry shutdown failed", "error", err)
		}
	}()

	dir, err := newDirectory(cfg, log)
	if err != nil {
		log.Error("failed to initialize relay directory", "error", err)
		return err
	}

	log.Info("initializing Kafka components")

	taskConsumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.Tasks, cfg.Agent.Name, log)
	defer taskConsumer.Close()

	resultsProducer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.Results)
	defer resultsProducer.Close()

	logsProducer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.Logs)
	defer logsProducer.Close()

	checkCtx, checkCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := taskConsumer.CheckConnection(checkCtx); err != nil {
		log.Warn("kafka not reachable yet", "error", err)
	}
	checkCancel()

	taskRepo := repository.NewKafkaTaskRepository(taskConsumer, log)
	resultRepo := repository.NewKafkaResultRepository(resultsProducer, logsProducer, log)

	agentService := service.NewAgentService(
		taskRepo,
		resultRepo,
		service.Config{
			AgentID:      cfg.Agent.Name,
			PollInterval: cfg.GetPollInterval(),
		},
		log,
	)

	log.Debug("initializing checkers")
	location := cfg.Agent.Name
	country := cfg.Agent.Country

	runner := newEchoRunner(cfg, log)
	measurer := newMeasurer(cfg, runner, log)

	agentService.RegisterChecker(checks.NewLatencyChecker(measurer, location, country))
	agentService.RegisterChecker(checks.NewTCPChecker(tcpOptions(cfg), log, location, country))
	agentService.RegisterChecker(checks.NewPingChecker(runner, newParser(cfg), cfg.Latency.Echo.Count, cfg.GetEchoWait(), location, country))
	agentService.RegisterChecker(checks.NewSweepChecker(dir, measurer, cfg.Latency.Concurrency, location, country))

	router := apihttp.NewRouter(
		apihttp.NewHealthController(agentService, dir, cfg.Agent.Name, version),
		apihttp.NewLatencyController(measurer, dir, cfg.Latency.Concurrency, log),
		log,
	)

	var wg sync.WaitGroup

	startDirectoryRefresh(ctx, &wg, dir, log, cfg.GetDirectoryCacheTTL())

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("starting agent service", "kafka_brokers", cfg.Kafka.Brokers)
		if err := agentService.Start(ctx); err != nil {
			log.Error("agent service failed", "error", err)
			cancel()
		}
	}()

	httpServer := &nethttp.Server{
		Addr:              ":" + cfg.Server.HealthPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("starting health server", "port", cfg.Server.HealthPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			log.Error("HTTP server failed", "error", err)
			cancel()
		}
	}()

	log.Info("application started and ready",
		"health_port", cfg.Server.HealthPort,
		"agent_id", cfg.Agent.Name,
	)

	<-ctx.Done()
	log.Info("shutting down agent...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", "error", err)
	}

	wg.Wait()
	log.Info("agent stopped gracefully")
	return nil
}

// startDirectoryRefresh keeps the relay directory warm so sweeps and
// /servers rarely wait on the upstream API.
func startDirectoryRefresh(ctx context.Context, wg *sync.WaitGroup, dir *directory.Cache, log *slog.Logger, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	refresh := func() {
		refreshCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		if _, err := dir.Refresh(refreshCtx); err != nil {
			log.Warn("relay directory refresh failed", "error", err.Error())
			return
		}

		log.Debug("relay directory refreshed")
	}

	wg.Add(1)

	go func() {
		defer wg.Done()

		refresh()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				refresh()
			case <-ctx.Done():
				log.Debug("directory refresh loop stopped")
				return
			}
		}
	}()
}
