package latency

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

const (
	DefaultEchoCount = 4
	DefaultEchoWait  = 5 * time.Second
	defaultEchoPath  = "ping"

	// grace added on top of count*wait before the process is killed
	echoDeadlineSlack = 2 * time.Second

	// how long Run waits for the output pipes to close after the kill;
	// a child that inherited them would otherwise hold Wait open
	echoWaitDelay = time.Second
)

// EchoRequest describes one echo-probe invocation.
type EchoRequest struct {
	Host  string
	Count int
	Wait  time.Duration
}

func (r EchoRequest) withDefaults() EchoRequest {
	if r.Count <= 0 {
		r.Count = DefaultEchoCount
	}
	if r.Wait <= 0 {
		r.Wait = DefaultEchoWait
	}
	return r
}

// RawOutput is the captured text of an echo-probe run.
type RawOutput struct {
	Success  bool
	Stdout   string
	Stderr   string
	TimedOut bool
}

// Text returns stdout followed by stderr.
func (o RawOutput) Text() string {
	if o.Stderr == "" {
		return o.Stdout
	}
	if o.Stdout == "" {
		return o.Stderr
	}
	return o.Stdout + "\n" + o.Stderr
}

// EchoRunner runs a platform echo-probe against a host. A returned error
// means the probe could not be run at all; an unreachable host is reported
// through RawOutput.
type EchoRunner interface {
	Run(ctx context.Context, req EchoRequest) (RawOutput, error)
}

// ExecRunner shells out to the system ping binary.
type ExecRunner struct {
	path string
	log  *slog.Logger
}

func NewExecRunner(path string, log *slog.Logger) *ExecRunner {
	if path == "" {
		path = defaultEchoPath
	}
	if log == nil {
		log = slog.Default()
	}
	return &ExecRunner{path: path, log: log}
}

func (r *ExecRunner) Run(ctx context.Context, req EchoRequest) (RawOutput, error) {
	req = req.withDefaults()
	if req.Host == "" {
		return RawOutput{}, newError(KindExecutionFailed, "", "empty target", nil)
	}

	deadline := time.Duration(req.Count)*req.Wait + echoDeadlineSlack
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.path, echoArgs(req)...)
	configureEchoCmd(cmd)
	cmd.WaitDelay = echoWaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := RawOutput{
		Success: err == nil,
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		out.Success = false
		out.TimedOut = true
		return out, nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return RawOutput{}, newError(KindExecutionFailed, req.Host, "", fmt.Errorf("run %s: %w", r.path, err))
		}
	}

	r.log.Debug("echo probe finished",
		"host", req.Host,
		"success", out.Success,
		"output", out.Stdout,
	)

	return out, nil
}
