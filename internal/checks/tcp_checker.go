package checks

import (
	"context"
	"log/slog"
	"time"

	"ozzus/relayping/internal/domain"
	"ozzus/relayping/internal/latency"
)

// TCPChecker times the TCP handshake only, without the ping fallback.
type TCPChecker struct {
	baseMetadata
	opts latency.TCPOptions
	log  *slog.Logger
}

func NewTCPChecker(opts latency.TCPOptions, log *slog.Logger, location, country string) *TCPChecker {
	return &TCPChecker{
		baseMetadata: newBaseMetadata(location, country),
		opts:         opts,
		log:          log,
	}
}

func (t *TCPChecker) Check(ctx context.Context, target string, parameters map[string]interface{}) (*domain.CheckResult, error) {
	host, err := normalizeHostname(target)
	if err != nil {
		return &domain.CheckResult{Status: domain.StatusFailed, Error: err.Error()}, nil
	}

	opts := t.opts
	if port := intParam(parameters, "port", 0); port > 0 {
		opts.Ports = []int{port}
	}
	if timeout := durationParam(parameters, "timeout", 0); timeout > 0 {
		opts.Timeout = timeout
	}

	start := time.Now()
	ms, err := latency.NewTCPProbe(opts, t.log).Probe(ctx, host)

	var out *domain.CheckResult
	if err != nil {
		out = latencyResult(latency.Result{}, err)
	} else {
		out = latencyResult(latency.Result{Host: host, Method: latency.MethodTCP, LatencyMs: ms}, nil)
	}
	out.Target = host
	out.Payload = t.payload(parameters)
	out.Payload["connectTime"] = formatMilliseconds(time.Since(start))

	return out, nil
}

func (t *TCPChecker) Type() domain.TaskType {
	return domain.TaskTypeTCP
}
