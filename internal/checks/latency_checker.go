package checks

import (
	"context"

	"ozzus/relayping/internal/domain"
	"ozzus/relayping/internal/latency"
)

type latencyMeasurer interface {
	Measure(ctx context.Context, host string) (latency.Result, error)
}

// LatencyChecker runs the full gate, TCP and ping fallback measurement.
type LatencyChecker struct {
	baseMetadata
	measurer latencyMeasurer
}

func NewLatencyChecker(measurer latencyMeasurer, location, country string) *LatencyChecker {
	return &LatencyChecker{
		baseMetadata: newBaseMetadata(location, country),
		measurer:     measurer,
	}
}

func (l *LatencyChecker) Check(ctx context.Context, target string, parameters map[string]interface{}) (*domain.CheckResult, error) {
	host, err := normalizeHostname(target)
	if err != nil {
		return &domain.CheckResult{Status: domain.StatusFailed, Error: err.Error()}, nil
	}

	res, err := l.measurer.Measure(ctx, host)
	out := latencyResult(res, err)
	out.Target = host
	out.Payload = l.payload(parameters)
	if err == nil && res.Strategy != "" {
		out.Payload["strategy"] = res.Strategy
	}

	return out, nil
}

func (l *LatencyChecker) Type() domain.TaskType {
	return domain.TaskTypeLatency
}
