package latency

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultEstimateMs = 80

var (
	lossMarkers       = []string{"Request timed out", "100% packet loss", "100% loss"}
	resolutionPhrases = []string{
		"could not find host",
		"could not resolve",
		"cannot resolve",
		"Name or service not known",
		"Temporary failure in name resolution",
		"nknown host",
	}
	timeoutPhrases = []string{"Request timed out", "100% packet loss", "timed out"}
	successPhrases = []string{"Reply from", "bytes from"}
)

// Gate short-circuits measurement when the local network is down.
type Gate interface {
	Available(ctx context.Context) bool
}

// TCPProber measures handshake latency in milliseconds.
type TCPProber interface {
	Probe(ctx context.Context, host string) (int64, error)
}

// Recorder observes measurement outcomes, typically for metrics.
type Recorder interface {
	ObserveResult(ctx context.Context, r Result, elapsed time.Duration)
	ObserveFailure(ctx context.Context, kind Kind, elapsed time.Duration)
	ObserveFallback(ctx context.Context, host string)
}

type Options struct {
	Gate   Gate
	TCP    TCPProber
	Echo   EchoRunner
	Parser *Parser

	EchoCount int
	EchoWait  time.Duration

	// EstimateMs is reported, flagged as estimated, when ping succeeded but
	// no latency could be extracted. DisableEstimate reports such results
	// as unmeasured instead.
	EstimateMs      int64
	DisableEstimate bool

	Recorder Recorder
	Logger   *slog.Logger
}

// Measurer runs the gate, TCP probe and echo fallback for one host.
type Measurer struct {
	gate     Gate
	tcp      TCPProber
	echo     EchoRunner
	parser   *Parser
	request  EchoRequest
	estimate int64
	noEst    bool
	recorder Recorder
	tracer   trace.Tracer
	log      *slog.Logger
}

func NewMeasurer(opts Options) *Measurer {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.Echo == nil {
		opts.Echo = NewExecRunner("", log)
	}
	if opts.Gate == nil {
		opts.Gate = openGate{}
	}
	if opts.TCP == nil {
		opts.TCP = NewTCPProbe(TCPOptions{}, log)
	}
	if opts.Parser == nil {
		opts.Parser = NewParser()
	}
	if opts.EstimateMs <= 0 {
		opts.EstimateMs = DefaultEstimateMs
	}

	return &Measurer{
		gate:     opts.Gate,
		tcp:      opts.TCP,
		echo:     opts.Echo,
		parser:   opts.Parser,
		request:  EchoRequest{Count: opts.EchoCount, Wait: opts.EchoWait}.withDefaults(),
		estimate: opts.EstimateMs,
		noEst:    opts.DisableEstimate,
		recorder: opts.Recorder,
		tracer:   otel.Tracer("relayping/latency"),
		log:      log,
	}
}

// MeasureLatency returns the display form of Measure.
func (m *Measurer) MeasureLatency(ctx context.Context, host string) (string, error) {
	res, err := m.Measure(ctx, host)
	if err != nil {
		return "", err
	}
	return res.String(), nil
}

// Measure probes host once. Every failure is terminal; the TCP to echo
// fallback is the only second attempt.
func (m *Measurer) Measure(ctx context.Context, host string) (Result, error) {
	ctx, span := m.tracer.Start(ctx, "latency.measure", trace.WithAttributes(attribute.String("host", host)))
	defer span.End()

	start := time.Now()
	res, err := m.measure(ctx, host)
	elapsed := time.Since(start)

	if err != nil {
		kind := KindOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))
		if m.recorder != nil {
			m.recorder.ObserveFailure(ctx, kind, elapsed)
		}
		m.log.Info("latency measurement failed", "host", host, "kind", kind, "error", err)
		return Result{}, err
	}

	span.SetAttributes(
		attribute.String("method", string(res.Method)),
		attribute.Int64("latency_ms", res.LatencyMs),
		attribute.Bool("estimated", res.Estimated),
	)
	if m.recorder != nil {
		m.recorder.ObserveResult(ctx, res, elapsed)
	}
	m.log.Debug("latency measured", "host", host, "result", res.String())
	return res, nil
}

func (m *Measurer) measure(ctx context.Context, host string) (Result, error) {
	if !m.gate.Available(ctx) {
		return Result{}, newError(KindNetworkUnavailable, "", "", nil)
	}

	ms, tcpErr := m.tcp.Probe(ctx, host)
	if tcpErr == nil {
		return Result{Host: host, Method: MethodTCP, LatencyMs: ms}, nil
	}

	m.log.Debug("tcp connectivity check failed, falling back to ping", "host", host, "error", tcpErr)
	if m.recorder != nil {
		m.recorder.ObserveFallback(ctx, host)
	}

	req := m.request
	req.Host = host
	out, err := m.echo.Run(ctx, req)
	if err != nil {
		if KindOf(err) != "" {
			return Result{}, err
		}
		return Result{}, newError(KindExecutionFailed, host, "", err)
	}

	return m.interpret(host, out)
}

func (m *Measurer) interpret(host string, out RawOutput) (Result, error) {
	if err := ClassifyOutput(host, out); err != nil {
		return Result{}, err
	}

	if ms, strategy, ok := m.parser.ExtractNamed(out.Stdout); ok {
		return Result{Host: host, Method: MethodICMP, LatencyMs: int64(ms), Strategy: strategy}, nil
	}

	if containsAny(out.Stdout, successPhrases) {
		if m.noEst {
			return Result{Host: host, Method: MethodICMP, Unmeasured: true}, nil
		}
		return Result{Host: host, Method: MethodICMP, LatencyMs: m.estimate, Estimated: true}, nil
	}

	if strings.TrimSpace(out.Stdout) == "" {
		return Result{}, newError(KindProbeError, host, "ping produced no output", nil)
	}
	return Result{Host: host, Method: MethodICMP, Raw: out.Stdout}, nil
}

// ClassifyOutput reports the failure an echo run represents, or nil when its
// output should be parsed for a latency. A timeout or any lost-reply marker
// wins over an exit status of zero.
func ClassifyOutput(host string, out RawOutput) error {
	text := out.Text()

	if out.TimedOut || containsAny(text, lossMarkers) {
		return newError(KindTimeout, host, strings.TrimSpace(text), nil)
	}
	if out.Success {
		return nil
	}

	switch {
	case strings.TrimSpace(out.Stderr) != "":
		return newError(KindProbeError, host, strings.TrimSpace(out.Stderr), nil)
	case containsAny(out.Stdout, resolutionPhrases):
		return newError(KindHostUnresolved, host, strings.TrimSpace(out.Stdout), nil)
	case containsAny(out.Stdout, timeoutPhrases):
		return newError(KindTimeout, host, strings.TrimSpace(out.Stdout), nil)
	default:
		return newError(KindProbeError, host, strings.TrimSpace(out.Stdout), nil)
	}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
