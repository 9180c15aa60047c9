package sweep

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ozzus/relayping/internal/directory"
	"ozzus/relayping/internal/latency"
)

type scriptedMeasurer struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	results  map[string]latency.Result
}

func (s *scriptedMeasurer) Measure(_ context.Context, host string) (latency.Result, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)

	if res, ok := s.results[host]; ok {
		return res, nil
	}
	return latency.Result{}, &latency.Error{Kind: latency.KindTimeout, Host: host}
}

func TestRun_KeepsOrderAndBoundsConcurrency(t *testing.T) {
	m := &scriptedMeasurer{results: map[string]latency.Result{
		"10.0.0.1": {Host: "10.0.0.1", Method: latency.MethodTCP, LatencyMs: 12},
		"10.0.0.3": {Host: "10.0.0.3", Method: latency.MethodICMP, LatencyMs: 40},
	}}
	servers := []directory.Server{
		{ID: "server_0", IP: "10.0.0.1"},
		{ID: "server_1", IP: "10.0.0.2"},
		{ID: "server_2", IP: "10.0.0.3"},
		{ID: "server_3", IP: "10.0.0.4"},
	}

	var mu sync.Mutex
	var streamed []string
	out := Run(context.Background(), m, servers, Options{
		Concurrency: 2,
		OnResult: func(r Measurement) {
			mu.Lock()
			streamed = append(streamed, r.Server.ID)
			mu.Unlock()
		},
	})

	require.Len(t, out, 4)
	assert.Equal(t, "12ms (TCP)", out[0].Display)
	assert.Equal(t, latency.KindTimeout, out[1].ErrorKind)
	assert.Nil(t, out[1].Result)
	assert.Equal(t, "40ms (ICMP)", out[2].Display)
	assert.Equal(t, "server_3", out[3].Server.ID)

	assert.ElementsMatch(t, []string{"server_0", "server_1", "server_2", "server_3"}, streamed)
	assert.LessOrEqual(t, m.peak.Load(), int32(2))
}
