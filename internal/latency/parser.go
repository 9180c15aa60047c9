package latency

import (
	"regexp"
	"strconv"
	"strings"
)

// Strategy extracts a millisecond value from echo-probe output.
type Strategy struct {
	Name    string
	Extract func(output string) (int, bool)
}

// DefaultStrategies is the extraction cascade applied by NewParser. Summary
// statistics win over values reconstructed from individual replies.
var DefaultStrategies = []Strategy{
	{Name: "average", Extract: extractAverage},
	{Name: "reply-mean", Extract: extractReplyMean},
	{Name: "minimum", Extract: extractMinimum},
	{Name: "maximum", Extract: extractMaximum},
	{Name: "first-ms-token", Extract: extractFirstMsToken},
}

// UnixSummaryStrategy reads the "rtt min/avg/max/mdev" line printed by
// iputils and BSD ping. It is not part of DefaultStrategies.
var UnixSummaryStrategy = Strategy{Name: "unix-summary", Extract: extractUnixSummary}

var unixSummaryRegexp = regexp.MustCompile(`(?m)(?:rtt|round-trip) [^=]*= ([0-9.]+)/([0-9.]+)/([0-9.]+)`)

// Parser applies an ordered list of strategies and returns the first hit.
type Parser struct {
	strategies []Strategy
}

func NewParser(strategies ...Strategy) *Parser {
	if len(strategies) == 0 {
		strategies = DefaultStrategies
	}
	return &Parser{strategies: strategies}
}

// NewUnixAwareParser runs the default cascade with UnixSummaryStrategy
// inserted ahead of the token scan.
func NewUnixAwareParser() *Parser {
	n := len(DefaultStrategies)
	strategies := make([]Strategy, 0, n+1)
	strategies = append(strategies, DefaultStrategies[:n-1]...)
	strategies = append(strategies, UnixSummaryStrategy, DefaultStrategies[n-1])
	return &Parser{strategies: strategies}
}

// Extract returns the latency in milliseconds found in output.
func (p *Parser) Extract(output string) (int, bool) {
	ms, _, ok := p.ExtractNamed(output)
	return ms, ok
}

// ExtractNamed is Extract plus the name of the strategy that matched.
func (p *Parser) ExtractNamed(output string) (int, string, bool) {
	for _, s := range p.strategies {
		if ms, ok := s.Extract(output); ok {
			return ms, s.Name, true
		}
	}
	return 0, "", false
}

func (p *Parser) Strategies() []string {
	names := make([]string, len(p.strategies))
	for i, s := range p.strategies {
		names[i] = s.Name
	}
	return names
}

func extractAverage(output string) (int, bool) { return labelledValue(output, "Average = ") }
func extractMinimum(output string) (int, bool) { return labelledValue(output, "Minimum = ") }
func extractMaximum(output string) (int, bool) { return labelledValue(output, "Maximum = ") }

// labelledValue parses the text between the first occurrence of label and
// the following "ms".
func labelledValue(output, label string) (int, bool) {
	idx := strings.Index(output, label)
	if idx < 0 {
		return 0, false
	}
	return valueBeforeMs(output[idx+len(label):])
}

func valueBeforeMs(s string) (int, bool) {
	end := strings.Index(s, "ms")
	if end < 0 {
		return 0, false
	}
	return parseMillis(strings.TrimSpace(s[:end]))
}

func extractReplyMean(output string) (int, bool) {
	var total, count int
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "Reply from") || !strings.Contains(line, "time=") {
			continue
		}
		idx := strings.Index(line, "time=")
		ms, ok := valueBeforeMs(line[idx+len("time="):])
		if !ok {
			continue
		}
		total += ms
		count++
	}
	if count == 0 {
		return 0, false
	}
	return total / count, true
}

func extractFirstMsToken(output string) (int, bool) {
	for _, line := range strings.Split(output, "\n") {
		for _, word := range strings.Fields(line) {
			if !strings.HasSuffix(word, "ms") {
				continue
			}
			num := word
			for strings.HasSuffix(num, "ms") {
				num = strings.TrimSuffix(num, "ms")
			}
			if ms, ok := parseMillis(num); ok {
				return ms, true
			}
		}
	}
	return 0, false
}

func extractUnixSummary(output string) (int, bool) {
	m := unixSummaryRegexp.FindStringSubmatch(output)
	if len(m) != 4 {
		return 0, false
	}
	avg, err := strconv.ParseFloat(m[2], 64)
	if err != nil || avg < 0 {
		return 0, false
	}
	return int(avg), true
}

// parseMillis accepts unsigned 32-bit decimal integers only.
func parseMillis(s string) (int, bool) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return int(v), true
}
