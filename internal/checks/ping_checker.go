package checks

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"ozzus/relayping/internal/domain"
	"ozzus/relayping/internal/latency"
)

var (
	pingSummaryRegexp    = regexp.MustCompile(`(?m)(\d+) packets transmitted, (\d+) (?:packets )?received, ([0-9.]+)% packet loss`)
	pingWinSummaryRegexp = regexp.MustCompile(`(?m)Sent = (\d+), Received = (\d+), Lost = \d+ \(([0-9.]+)% loss\)`)
)

// PingChecker runs the echo-probe alone and extracts latency from its output.
type PingChecker struct {
	baseMetadata
	runner latency.EchoRunner
	parser *latency.Parser
	count  int
	wait   time.Duration
}

func NewPingChecker(runner latency.EchoRunner, parser *latency.Parser, count int, wait time.Duration, location, country string) *PingChecker {
	if count <= 0 {
		count = latency.DefaultEchoCount
	}
	if wait <= 0 {
		wait = latency.DefaultEchoWait
	}
	if parser == nil {
		parser = latency.NewParser()
	}

	return &PingChecker{
		baseMetadata: newBaseMetadata(location, country),
		runner:       runner,
		parser:       parser,
		count:        count,
		wait:         wait,
	}
}

func (p *PingChecker) Check(ctx context.Context, target string, parameters map[string]interface{}) (*domain.CheckResult, error) {
	host, err := normalizeHostname(target)
	if err != nil {
		return &domain.CheckResult{Status: domain.StatusFailed, Error: err.Error()}, nil
	}

	count := intParam(parameters, "count", p.count)
	if count <= 0 {
		count = p.count
	}

	wait := durationParam(parameters, "timeout", p.wait)
	if wait <= 0 {
		wait = p.wait
	}

	out, err := p.runner.Run(ctx, latency.EchoRequest{Host: host, Count: count, Wait: wait})
	if err != nil {
		res := latencyResult(latency.Result{}, err)
		res.Target = host
		return res, nil
	}

	transmitted, received, loss := p.parseSummary(out.Stdout, count)

	payload := p.payload(parameters)
	payload["packets"] = map[string]interface{}{
		"transmitted": transmitted,
		"received":    received,
		"loss":        strconv.FormatFloat(loss, 'f', 0, 64) + "%",
	}

	// Same classification as the latency measurer, so a lost reply is a
	// timeout here too.
	if err := latency.ClassifyOutput(host, out); err != nil {
		result := latencyResult(latency.Result{}, err)
		result.Target = host
		result.Method = string(latency.MethodICMP)
		result.Payload = payload
		return result, nil
	}

	result := &domain.CheckResult{
		Target:  host,
		Method:  string(latency.MethodICMP),
		Payload: payload,
	}

	ms, strategy, ok := p.parser.ExtractNamed(out.Stdout)
	switch {
	case received == 0:
		result.Status = domain.StatusFailed
		result.Error = "no packets received"
	case !ok:
		result.Status = domain.StatusFailed
		result.Error = "could not extract latency from ping output"
	default:
		v := int64(ms)
		result.Status = domain.StatusSuccess
		result.LatencyMs = &v
		result.Display = latency.Result{Method: latency.MethodICMP, LatencyMs: v}.String()
		payload["strategy"] = strategy
	}

	return result, nil
}

// parseSummary reads packet counters from iputils or Windows output.
// Unknown formats count every packet as received when output succeeded.
func (p *PingChecker) parseSummary(output string, count int) (int, int, float64) {
	for _, re := range []*regexp.Regexp{pingSummaryRegexp, pingWinSummaryRegexp} {
		matches := re.FindStringSubmatch(output)
		if len(matches) != 4 {
			continue
		}
		transmitted, _ := strconv.Atoi(matches[1])
		received, _ := strconv.Atoi(matches[2])
		loss, _ := strconv.ParseFloat(matches[3], 64)
		return transmitted, received, loss
	}

	return count, count, 0
}

func (p *PingChecker) Type() domain.TaskType {
	return domain.TaskTypePing
}
