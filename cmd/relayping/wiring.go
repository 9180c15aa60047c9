package main

import (
	"log/slog"

	"ozzus/relayping/internal/config"
	"ozzus/relayping/internal/directory"
	"ozzus/relayping/internal/latency"
	"ozzus/relayping/internal/telemetry"
)

func newEchoRunner(cfg *config.Config, log *slog.Logger) latency.EchoRunner {
	if cfg.Latency.Echo.Mode == config.EchoModeNative {
		return latency.NewNativeRunner(cfg.Latency.Echo.Privileged, log)
	}
	return latency.NewExecRunner(cfg.Latency.Echo.Path, log)
}

func newParser(cfg *config.Config) *latency.Parser {
	if cfg.Latency.Parser.UnixSummary {
		return latency.NewUnixAwareParser()
	}
	return latency.NewParser()
}

func tcpOptions(cfg *config.Config) latency.TCPOptions {
	return latency.TCPOptions{
		Ports:        cfg.Latency.Ports,
		Timeout:      cfg.GetTCPTimeout(),
		AllAddresses: cfg.Latency.TryAllAddresses,
	}
}

func newMeasurer(cfg *config.Config, runner latency.EchoRunner, log *slog.Logger) *latency.Measurer {
	opts := latency.Options{
		TCP:             latency.NewTCPProbe(tcpOptions(cfg), log),
		Echo:            runner,
		Parser:          newParser(cfg),
		EchoCount:       cfg.Latency.Echo.Count,
		EchoWait:        cfg.GetEchoWait(),
		EstimateMs:      cfg.Latency.Estimate.Ms,
		DisableEstimate: !cfg.Latency.Estimate.Enabled,
		Logger:          log,
	}

	if cfg.Latency.Gate.Enabled {
		opts.Gate = latency.NewEchoGate(runner, cfg.Latency.Gate.Host, cfg.GetGateTimeout(), log)
	}

	meters, err := telemetry.NewMeters()
	if err != nil {
		log.Warn("metrics disabled", "error", err)
	} else {
		opts.Recorder = meters
	}

	return latency.NewMeasurer(opts)
}

func newDirectory(cfg *config.Config, log *slog.Logger) (*directory.Cache, error) {
	client, err := directory.NewClient(cfg.Directory.URL, cfg.GetDirectoryTimeout())
	if err != nil {
		return nil, err
	}
	return directory.NewCache(client, cfg.GetDirectoryCacheTTL(), log), nil
}
