package latency

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-ping/ping"
)

// NativeRunner sends ICMP echoes in-process with go-ping instead of spawning
// the system binary. Its transcript uses the Windows ping layout so the same
// Parser and failure markers apply to both runners.
type NativeRunner struct {
	privileged bool
	log        *slog.Logger
}

func NewNativeRunner(privileged bool, log *slog.Logger) *NativeRunner {
	if log == nil {
		log = slog.Default()
	}
	return &NativeRunner{privileged: privileged, log: log}
}

func (r *NativeRunner) Run(ctx context.Context, req EchoRequest) (RawOutput, error) {
	req = req.withDefaults()

	pinger, err := ping.NewPinger(req.Host)
	if err != nil {
		r.log.Debug("native echo resolve failed", "host", req.Host, "error", err)
		return RawOutput{
			Stdout: fmt.Sprintf("Ping request could not find host %s. Please check the name and try again.\n", req.Host),
		}, nil
	}

	pinger.Count = req.Count
	pinger.Interval = time.Second
	pinger.Timeout = time.Duration(req.Count) * req.Wait
	pinger.SetPrivileged(r.privileged)

	var (
		mu      sync.Mutex
		replies []*ping.Packet
	)
	pinger.OnRecv = func(pkt *ping.Packet) {
		mu.Lock()
		replies = append(replies, pkt)
		mu.Unlock()
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			pinger.Stop()
		case <-done:
		}
	}()

	if err := pinger.Run(); err != nil {
		return RawOutput{}, newError(KindExecutionFailed, req.Host, "", fmt.Errorf("icmp echo: %w", err))
	}

	stats := pinger.Statistics()

	mu.Lock()
	defer mu.Unlock()

	return RawOutput{
		Success: stats.PacketsRecv > 0,
		Stdout:  renderTranscript(stats, replies, req.Count),
	}, nil
}

func renderTranscript(stats *ping.Statistics, replies []*ping.Packet, count int) string {
	addr := stats.Addr
	if stats.IPAddr != nil {
		addr = stats.IPAddr.String()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Pinging %s with 24 bytes of data:\n", addr)
	for _, pkt := range replies {
		fmt.Fprintf(&b, "Reply from %s: bytes=%d time=%dms TTL=%d\n", addr, pkt.Nbytes, pkt.Rtt.Milliseconds(), pkt.Ttl)
	}

	sent := stats.PacketsSent
	if sent < count {
		sent = count
	}
	for i := len(replies); i < sent; i++ {
		b.WriteString("Request timed out.\n")
	}

	lost := sent - stats.PacketsRecv
	lossPct := 0
	if sent > 0 {
		lossPct = lost * 100 / sent
	}

	fmt.Fprintf(&b, "\nPing statistics for %s:\n", addr)
	fmt.Fprintf(&b, "    Packets: Sent = %d, Received = %d, Lost = %d (%d%% loss),\n", sent, stats.PacketsRecv, lost, lossPct)
	if stats.PacketsRecv > 0 {
		b.WriteString("Approximate round trip times in milli-seconds:\n")
		fmt.Fprintf(&b, "    Minimum = %dms, Maximum = %dms, Average = %dms\n",
			stats.MinRtt.Milliseconds(), stats.MaxRtt.Milliseconds(), stats.AvgRtt.Milliseconds())
	}

	return b.String()
}
