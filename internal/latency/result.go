package latency

import (
	"fmt"
	"strings"
)

// Method names the technique that produced a Result.
type Method string

const (
	MethodTCP  Method = "TCP"
	MethodICMP Method = "ICMP"
)

// Result is a successful measurement. Exactly one of LatencyMs (measured or
// Estimated), Unmeasured or Raw describes it.
type Result struct {
	Host      string `json:"host"`
	Method    Method `json:"method"`
	LatencyMs int64  `json:"latency_ms"`
	Estimated bool   `json:"estimated,omitempty"`
	// Unmeasured marks a probe that succeeded without a usable latency when
	// no estimate is configured.
	Unmeasured bool `json:"unmeasured,omitempty"`
	// Raw holds the echo-probe output when nothing could be extracted and no
	// success phrase was seen.
	Raw string `json:"raw,omitempty"`
	// Strategy is the parser strategy that produced LatencyMs for ICMP.
	Strategy string `json:"strategy,omitempty"`
}

// Measured reports whether LatencyMs is an actual measurement.
func (r Result) Measured() bool {
	return !r.Estimated && !r.Unmeasured && r.Raw == ""
}

func (r Result) String() string {
	switch {
	case r.Estimated:
		return fmt.Sprintf("~%dms (%s) [estimated]", r.LatencyMs, r.Method)
	case r.Unmeasured:
		return fmt.Sprintf("unmeasured (%s) [estimated]", r.Method)
	case r.Raw != "":
		return fmt.Sprintf("%s (%s)", strings.TrimSpace(r.Raw), r.Method)
	}
	return fmt.Sprintf("%dms (%s)", r.LatencyMs, r.Method)
}
