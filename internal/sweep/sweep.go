package sweep

import (
	"context"

	"github.com/sourcegraph/conc/pool"

	"ozzus/relayping/internal/directory"
	"ozzus/relayping/internal/latency"
)

const DefaultConcurrency = 8

// Measurer is implemented by *latency.Measurer.
type Measurer interface {
	Measure(ctx context.Context, host string) (latency.Result, error)
}

// Measurement is the outcome for one relay.
type Measurement struct {
	Server directory.Server `json:"server" yaml:"server"`
	Result *latency.Result  `json:"result,omitempty" yaml:"result,omitempty"`
	// Display is the normalized latency string or the error message.
	Display   string       `json:"display" yaml:"display"`
	ErrorKind latency.Kind `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Err       error        `json:"-" yaml:"-"`
}

type Options struct {
	Concurrency int
	// OnResult is called from worker goroutines as each measurement completes.
	OnResult func(Measurement)
}

// Run measures every server and returns results in input order.
func Run(ctx context.Context, m Measurer, servers []directory.Server, opts Options) []Measurement {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	p := pool.NewWithResults[indexed]().WithContext(ctx).WithMaxGoroutines(opts.Concurrency)
	for i, srv := range servers {
		p.Go(func(ctx context.Context) (indexed, error) {
			res := measureOne(ctx, m, srv)
			if opts.OnResult != nil {
				opts.OnResult(res)
			}
			return indexed{i: i, m: res}, nil
		})
	}

	collected, _ := p.Wait()

	out := make([]Measurement, len(servers))
	for _, c := range collected {
		out[c.i] = c.m
	}
	return out
}

type indexed struct {
	i int
	m Measurement
}

func measureOne(ctx context.Context, m Measurer, srv directory.Server) Measurement {
	res, err := m.Measure(ctx, srv.IP)
	if err != nil {
		return Measurement{
			Server:    srv,
			Display:   err.Error(),
			ErrorKind: latency.KindOf(err),
			Err:       err,
		}
	}
	return Measurement{Server: srv, Result: &res, Display: res.String()}
}
