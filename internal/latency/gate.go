package latency

import (
	"context"
	"log/slog"
	"time"
)

const (
	DefaultGateHost = "8.8.8.8"
	DefaultGateWait = time.Second
)

// EchoGate reports whether the local network can reach a well-known host.
type EchoGate struct {
	runner EchoRunner
	host   string
	wait   time.Duration
	log    *slog.Logger
}

func NewEchoGate(runner EchoRunner, host string, wait time.Duration, log *slog.Logger) *EchoGate {
	if host == "" {
		host = DefaultGateHost
	}
	if wait <= 0 {
		wait = DefaultGateWait
	}
	if log == nil {
		log = slog.Default()
	}
	return &EchoGate{runner: runner, host: host, wait: wait, log: log}
}

// Available sends a single echo and never fails: a runner error counts as
// "unavailable".
func (g *EchoGate) Available(ctx context.Context) bool {
	out, err := g.runner.Run(ctx, EchoRequest{Host: g.host, Count: 1, Wait: g.wait})
	if err != nil {
		g.log.Debug("connectivity gate could not run", "host", g.host, "error", err)
		return false
	}
	if !out.Success {
		g.log.Debug("connectivity gate probe failed", "host", g.host)
	}
	return out.Success
}

// openGate is used when the gate is disabled in configuration.
type openGate struct{}

func (openGate) Available(context.Context) bool { return true }
