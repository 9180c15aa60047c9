package checks

import (
	"context"
	"errors"

	"ozzus/relayping/internal/domain"
	"ozzus/relayping/internal/latency"
)

// Checker runs one kind of task against a target.
type Checker interface {
	Check(ctx context.Context, target string, parameters map[string]interface{}) (*domain.CheckResult, error)
	Type() domain.TaskType
}

type baseMetadata struct {
	location string
	country  string
}

func newBaseMetadata(location, country string) baseMetadata {
	return baseMetadata{location: location, country: country}
}

func (b baseMetadata) locationValue(params map[string]interface{}) string {
	return stringParam(params, "location", b.location)
}

func (b baseMetadata) countryValue(params map[string]interface{}) string {
	return lowerStringParam(params, "country", b.country)
}

func (b baseMetadata) payload(params map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"location": b.locationValue(params),
		"country":  b.countryValue(params),
	}
}

// latencyResult maps a measurement outcome onto a CheckResult.
func latencyResult(res latency.Result, err error) *domain.CheckResult {
	if err != nil {
		status := domain.StatusFailed
		if errors.Is(err, latency.KindTimeout) {
			status = domain.StatusTimeout
		}
		return &domain.CheckResult{
			Status:    status,
			Error:     err.Error(),
			Display:   err.Error(),
			ErrorKind: string(latency.KindOf(err)),
		}
	}

	out := &domain.CheckResult{
		Status:    domain.StatusSuccess,
		Method:    string(res.Method),
		Estimated: !res.Measured(),
		Display:   res.String(),
	}
	if !res.Unmeasured && res.Raw == "" {
		ms := res.LatencyMs
		out.LatencyMs = &ms
	}
	return out
}
