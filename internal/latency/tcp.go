package latency

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"
)

const (
	DefaultPort       = 27017
	DefaultTCPTimeout = 2 * time.Second
)

// Resolver is the subset of *net.Resolver used by TCPProbe.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

type TCPOptions struct {
	// Ports are tried in order until one accepts. Defaults to DefaultPort.
	Ports   []int
	Timeout time.Duration
	// AllAddresses tries every resolved address instead of only the first.
	AllAddresses bool
	Resolver     Resolver
}

// TCPProbe times the TCP handshake to a host. No payload is exchanged.
type TCPProbe struct {
	ports        []int
	timeout      time.Duration
	allAddresses bool
	resolver     Resolver
	log          *slog.Logger
}

func NewTCPProbe(opts TCPOptions, log *slog.Logger) *TCPProbe {
	if len(opts.Ports) == 0 {
		opts.Ports = []int{DefaultPort}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTCPTimeout
	}
	if opts.Resolver == nil {
		opts.Resolver = net.DefaultResolver
	}
	if log == nil {
		log = slog.Default()
	}

	return &TCPProbe{
		ports:        opts.Ports,
		timeout:      opts.Timeout,
		allAddresses: opts.AllAddresses,
		resolver:     opts.Resolver,
		log:          log,
	}
}

// Probe returns the handshake time in whole milliseconds.
func (p *TCPProbe) Probe(ctx context.Context, host string) (int64, error) {
	addrs, err := p.resolve(ctx, host)
	if err != nil {
		return 0, err
	}

	var lastErr error
	for _, port := range p.ports {
		for _, ip := range addrs {
			target := net.JoinHostPort(ip.String(), strconv.Itoa(port))

			ms, err := p.dial(ctx, target)
			if err == nil {
				p.log.Debug("tcp connection successful", "host", host, "addr", target, "latency_ms", ms)
				return ms, nil
			}

			p.log.Debug("tcp connection failed", "host", host, "addr", target, "error", err)
			lastErr = err
		}
	}

	return 0, newError(KindConnectionRefused, host, "", lastErr)
}

func (p *TCPProbe) resolve(ctx context.Context, host string) ([]net.IP, error) {
	if host == "" {
		return nil, newError(KindAddressUnavailable, host, "empty host", nil)
	}

	if ip := net.ParseIP(host); ip != nil {
		return []net.IP{ip}, nil
	}

	resolved, err := p.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, newError(KindAddressUnavailable, host, "", fmt.Errorf("resolve %s: %w", host, err))
	}
	if len(resolved) == 0 {
		return nil, newError(KindAddressUnavailable, host, "no addresses returned", nil)
	}

	if !p.allAddresses {
		resolved = resolved[:1]
	}

	ips := make([]net.IP, len(resolved))
	for i, a := range resolved {
		ips[i] = a.IP
	}
	return ips, nil
}

func (p *TCPProbe) dial(ctx context.Context, target string) (int64, error) {
	dialer := net.Dialer{Timeout: p.timeout}

	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		return 0, err
	}
	elapsed := time.Since(start)
	_ = conn.Close()

	return elapsed.Milliseconds(), nil
}
