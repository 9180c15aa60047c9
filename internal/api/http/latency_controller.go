package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"ozzus/relayping/internal/checks"
	"ozzus/relayping/internal/directory"
	"ozzus/relayping/internal/latency"
	"ozzus/relayping/internal/sweep"
)

const sweepWriteTimeout = 5 * time.Second

// ServerSource is implemented by *directory.Cache.
type ServerSource interface {
	Servers(ctx context.Context) ([]directory.Server, error)
}

var sweepUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(strings.TrimSpace(u.Host), strings.TrimSpace(r.Host))
	},
}

type LatencyController struct {
	measurer    sweep.Measurer
	servers     ServerSource
	concurrency int
	log         *slog.Logger
}

func NewLatencyController(measurer sweep.Measurer, servers ServerSource, concurrency int, log *slog.Logger) *LatencyController {
	if log == nil {
		log = slog.Default()
	}
	return &LatencyController{
		measurer:    measurer,
		servers:     servers,
		concurrency: concurrency,
		log:         log,
	}
}

// Latency measures a single host.
func (l *LatencyController) Latency(c *gin.Context) {
	host := strings.TrimSpace(c.Param("host"))
	if host == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "host is required"})
		return
	}

	res, err := l.measurer.Measure(c.Request.Context(), host)
	if err != nil {
		c.JSON(statusForKind(latency.KindOf(err)), gin.H{
			"host":       host,
			"error":      err.Error(),
			"error_kind": latency.KindOf(err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"host":    host,
		"display": res.String(),
		"result":  res,
	})
}

// Servers lists the relay directory, optionally filtered by ?filter=.
func (l *LatencyController) Servers(c *gin.Context) {
	servers, err := l.servers.Servers(c.Request.Context())
	if err != nil {
		l.directoryError(c, err)
		return
	}

	servers = checks.FilterServers(servers, c.Query("filter"))
	c.JSON(http.StatusOK, gin.H{"servers": servers, "total": len(servers)})
}

// Sweep measures every relay and answers once all have completed.
func (l *LatencyController) Sweep(c *gin.Context) {
	servers, err := l.servers.Servers(c.Request.Context())
	if err != nil {
		l.directoryError(c, err)
		return
	}
	servers = checks.FilterServers(servers, c.Query("filter"))

	results := sweep.Run(c.Request.Context(), l.measurer, servers, sweep.Options{Concurrency: l.concurrency})
	c.JSON(http.StatusOK, gin.H{"results": results, "total": len(results)})
}

// SweepStream upgrades to a websocket and pushes one message per relay as
// its measurement completes, then a final summary message.
func (l *LatencyController) SweepStream(c *gin.Context) {
	servers, err := l.servers.Servers(c.Request.Context())
	if err != nil {
		l.directoryError(c, err)
		return
	}
	servers = checks.FilterServers(servers, c.Query("filter"))

	conn, err := sweepUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var writeMu sync.Mutex
	write := func(v interface{}) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(sweepWriteTimeout))
		return conn.WriteJSON(v)
	}

	results := sweep.Run(ctx, l.measurer, servers, sweep.Options{
		Concurrency: l.concurrency,
		OnResult: func(m sweep.Measurement) {
			if err := write(gin.H{"type": "result", "measurement": m}); err != nil {
				cancel()
			}
		},
	})

	measured := 0
	for _, m := range results {
		if m.Result != nil {
			measured++
		}
	}
	if err := write(gin.H{"type": "done", "total": len(results), "measured": measured}); err != nil {
		return
	}

	writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "sweep complete"),
		time.Now().Add(sweepWriteTimeout))
	writeMu.Unlock()
}

func (l *LatencyController) directoryError(c *gin.Context, err error) {
	l.log.Error("relay directory unavailable", "error", err)
	status := http.StatusBadGateway
	if errors.Is(err, directory.ErrNoServers) {
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusForKind(kind latency.Kind) int {
	switch kind {
	case latency.KindNetworkUnavailable:
		return http.StatusServiceUnavailable
	case latency.KindHostUnresolved:
		return http.StatusNotFound
	case latency.KindTimeout:
		return http.StatusGatewayTimeout
	case latency.KindExecutionFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}
