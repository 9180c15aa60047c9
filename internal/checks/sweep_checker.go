package checks

import (
	"context"
	"fmt"

	"ozzus/relayping/internal/directory"
	"ozzus/relayping/internal/domain"
	"ozzus/relayping/internal/sweep"
)

type serverSource interface {
	Servers(ctx context.Context) ([]directory.Server, error)
}

// SweepChecker measures every relay in the directory. The task target is
// ignored unless it names a region or country code to filter by.
type SweepChecker struct {
	baseMetadata
	source      serverSource
	measurer    sweep.Measurer
	concurrency int
}

func NewSweepChecker(source serverSource, measurer sweep.Measurer, concurrency int, location, country string) *SweepChecker {
	return &SweepChecker{
		baseMetadata: newBaseMetadata(location, country),
		source:       source,
		measurer:     measurer,
		concurrency:  concurrency,
	}
}

func (s *SweepChecker) Check(ctx context.Context, target string, parameters map[string]interface{}) (*domain.CheckResult, error) {
	servers, err := s.source.Servers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load relay directory: %w", err)
	}
	servers = FilterServers(servers, target)

	concurrency := intParam(parameters, "concurrency", s.concurrency)
	measurements := sweep.Run(ctx, s.measurer, servers, sweep.Options{Concurrency: concurrency})

	rows := make([]map[string]interface{}, 0, len(measurements))
	measured := 0
	for _, m := range measurements {
		row := map[string]interface{}{
			"id":      m.Server.ID,
			"name":    m.Server.Name,
			"ip":      m.Server.IP,
			"country": m.Server.CountryCode,
			"display": m.Display,
		}
		if m.Result != nil {
			measured++
			row["method"] = string(m.Result.Method)
			row["latency_ms"] = m.Result.LatencyMs
			row["estimated"] = !m.Result.Measured()
		} else {
			row["error_kind"] = string(m.ErrorKind)
		}
		rows = append(rows, row)
	}

	payload := s.payload(parameters)
	payload["servers"] = rows

	status := domain.StatusSuccess
	var errText string
	if measured == 0 {
		status = domain.StatusFailed
		errText = "no relay responded"
	}

	return &domain.CheckResult{
		Target:  target,
		Status:  status,
		Error:   errText,
		Display: fmt.Sprintf("%d/%d relays measured", measured, len(measurements)),
		Payload: payload,
	}, nil
}

func (s *SweepChecker) Type() domain.TaskType {
	return domain.TaskTypeSweep
}
