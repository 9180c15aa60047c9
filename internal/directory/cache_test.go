package directory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFetcher struct {
	calls   atomic.Int32
	servers []Server
	err     error
	block   chan struct{}
}

func (f *countingFetcher) Fetch(context.Context) ([]Server, error) {
	f.calls.Add(1)
	if f.block != nil {
		<-f.block
	}
	return f.servers, f.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCache_ServesUntilStale(t *testing.T) {
	f := &countingFetcher{servers: []Server{{ID: "server_0", IP: "10.0.0.1"}}}
	c := NewCache(f, time.Minute, quietLogger())

	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_, err := c.Servers(context.Background())
	require.NoError(t, err)
	_, err = c.Servers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.calls.Load())

	now = now.Add(2 * time.Minute)
	got, err := c.Servers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.calls.Load())
	assert.Equal(t, "10.0.0.1", got[0].IP)
}

func TestCache_RefreshFailureKeepsPrevious(t *testing.T) {
	f := &countingFetcher{servers: []Server{{ID: "server_0"}}}
	c := NewCache(f, time.Minute, quietLogger())

	_, err := c.Refresh(context.Background())
	require.NoError(t, err)

	f.err = errors.New("upstream down")
	_, err = c.Refresh(context.Background())
	require.Error(t, err)

	got, err := c.Servers(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestCache_ConcurrentRefreshShared(t *testing.T) {
	f := &countingFetcher{servers: []Server{{ID: "server_0"}}, block: make(chan struct{})}
	c := NewCache(f, time.Minute, quietLogger())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Refresh(context.Background())
		}()
	}

	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(f.block)
	wg.Wait()

	assert.Equal(t, int32(1), f.calls.Load())
}

type ctxRecordingFetcher struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
	ctxErr  chan error
}

func (f *ctxRecordingFetcher) Fetch(ctx context.Context) ([]Server, error) {
	f.once.Do(func() { close(f.started) })
	<-f.release
	f.ctxErr <- ctx.Err()
	return []Server{{ID: "server_0"}}, nil
}

func TestCache_FirstCallerCancelDoesNotFailSharedFetch(t *testing.T) {
	f := &ctxRecordingFetcher{
		started: make(chan struct{}),
		release: make(chan struct{}),
		ctxErr:  make(chan error, 2),
	}
	c := NewCache(f, time.Minute, quietLogger())

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Refresh(firstCtx)
		firstErr <- err
	}()
	<-f.started

	secondDone := make(chan []Server, 1)
	go func() {
		servers, err := c.Refresh(context.Background())
		assert.NoError(t, err)
		secondDone <- servers
	}()

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(f.release)
	assert.NoError(t, <-f.ctxErr)
	assert.Len(t, <-secondDone, 1)

	status := c.Status()
	assert.Equal(t, 1, status.Servers)
	assert.True(t, status.Fresh)
}

func TestCache_Status(t *testing.T) {
	f := &countingFetcher{servers: []Server{{ID: "server_0"}, {ID: "server_1"}}}
	c := NewCache(f, time.Minute, quietLogger())

	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	assert.Equal(t, CacheStatus{}, c.Status())

	_, err := c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CacheStatus{Servers: 2, FetchedAt: now, Fresh: true}, c.Status())

	now = now.Add(2 * time.Minute)
	assert.False(t, c.Status().Fresh)
}
