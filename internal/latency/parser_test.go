package latency

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const windowsTranscript = `
Pinging 155.133.248.34 with 32 bytes of data:
Reply from 155.133.248.34: bytes=32 time=41ms TTL=54
Reply from 155.133.248.34: bytes=32 time=44ms TTL=54
Reply from 155.133.248.34: bytes=32 time=40ms TTL=54
Reply from 155.133.248.34: bytes=32 time=43ms TTL=54

Ping statistics for 155.133.248.34:
    Packets: Sent = 4, Received = 4, Lost = 0 (0% loss),
Approximate round trip times in milli-seconds:
    Minimum = 40ms, Maximum = 44ms, Average = 42ms
`

const linuxTranscript = `PING 8.8.8.8 (8.8.8.8) 56(84) bytes of data.
64 bytes from 8.8.8.8: icmp_seq=1 ttl=117 time=12.3 ms
64 bytes from 8.8.8.8: icmp_seq=2 ttl=117 time=11.9 ms

--- 8.8.8.8 ping statistics ---
2 packets transmitted, 2 received, 0% packet loss, time 1001ms
rtt min/avg/max/mdev = 11.912/12.105/12.298/0.193 ms
`

func TestParser_AverageWins(t *testing.T) {
	p := NewParser()

	ms, ok := p.Extract("Minimum = 10ms, Maximum = 50ms, Average = 30ms")
	require.True(t, ok)
	assert.Equal(t, 30, ms)

	ms, ok = p.Extract(windowsTranscript)
	require.True(t, ok)
	assert.Equal(t, 42, ms)
}

func TestParser_AverageIgnoresSurroundingNoise(t *testing.T) {
	p := NewParser()
	text := "Reply from 1.1.1.1: bytes=32 time=999ms TTL=1\n 7ms junk\n    Average = 17ms\n"

	ms, ok := p.Extract(text)
	require.True(t, ok)
	assert.Equal(t, 17, ms)
}

func TestParser_ReplyMeanTruncates(t *testing.T) {
	p := NewParser()
	text := strings.Join([]string{
		"Reply from 10.0.0.1: bytes=32 time=10ms TTL=64",
		"Reply from 10.0.0.1: bytes=32 time=20ms TTL=64",
		"Reply from 10.0.0.1: bytes=32 time=33ms TTL=64",
	}, "\r\n")

	ms, name, ok := p.ExtractNamed(text)
	require.True(t, ok)
	assert.Equal(t, 21, ms)
	assert.Equal(t, "reply-mean", name)
}

func TestParser_ReplyMeanSkipsUnparsableLines(t *testing.T) {
	p := NewParser()
	text := "Reply from 10.0.0.1: bytes=32 time<1ms TTL=64\nReply from 10.0.0.1: bytes=32 time=8ms TTL=64\n"

	ms, ok := p.Extract(text)
	require.True(t, ok)
	assert.Equal(t, 8, ms)
}

func TestParser_MinimumThenMaximum(t *testing.T) {
	p := NewParser()

	ms, name, ok := p.ExtractNamed("Minimum = 12ms, Maximum = 90ms")
	require.True(t, ok)
	assert.Equal(t, 12, ms)
	assert.Equal(t, "minimum", name)

	ms, name, ok = p.ExtractNamed("Minimum = ?ms, Maximum = 90ms")
	require.True(t, ok)
	assert.Equal(t, 90, ms)
	assert.Equal(t, "maximum", name)
}

func TestParser_FirstMsTokenInDocumentOrder(t *testing.T) {
	p := NewParser()
	text := "probe done\nelapsed xms 15ms 99ms\nlater 3ms\n"

	ms, name, ok := p.ExtractNamed(text)
	require.True(t, ok)
	assert.Equal(t, 15, ms)
	assert.Equal(t, "first-ms-token", name)
}

func TestParser_NoMatch(t *testing.T) {
	p := NewParser()

	for _, text := range []string{"", "Request timed out.", "ms ms -5ms 1.5ms", "Average = ms"} {
		_, ok := p.Extract(text)
		assert.False(t, ok, "input %q", text)
	}
}

func TestParser_DefaultCascadeOnLinuxOutput(t *testing.T) {
	// Only the token scan fires on iputils output and it picks the run time.
	ms, name, ok := NewParser().ExtractNamed(linuxTranscript)
	require.True(t, ok)
	assert.Equal(t, 1001, ms)
	assert.Equal(t, "first-ms-token", name)
}

func TestParser_UnixAwareReadsRttSummary(t *testing.T) {
	p := NewUnixAwareParser()

	ms, name, ok := p.ExtractNamed(linuxTranscript)
	require.True(t, ok)
	assert.Equal(t, 12, ms)
	assert.Equal(t, "unix-summary", name)

	// Windows output is untouched by the extra strategy.
	ms, ok = p.Extract(windowsTranscript)
	require.True(t, ok)
	assert.Equal(t, 42, ms)

	assert.Equal(t, []string{"average", "reply-mean", "minimum", "maximum", "unix-summary", "first-ms-token"}, p.Strategies())
}

func TestParser_CustomStrategies(t *testing.T) {
	p := NewParser(Strategy{Name: "fixed", Extract: func(string) (int, bool) { return 7, true }})

	ms, name, ok := p.ExtractNamed("anything")
	require.True(t, ok)
	assert.Equal(t, 7, ms)
	assert.Equal(t, "fixed", name)
}
