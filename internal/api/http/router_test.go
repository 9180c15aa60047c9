package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ozzus/relayping/internal/directory"
	"ozzus/relayping/internal/domain"
	"ozzus/relayping/internal/latency"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeAgent struct {
	err error
}

func (f fakeAgent) HealthCheck(context.Context) error { return f.err }

func (f fakeAgent) GetStatus() map[string]interface{} {
	return map[string]interface{}{"status": "RUNNING", "checkers": 4}
}

type fakeMeasurer struct {
	results map[string]latency.Result
	errs    map[string]error
}

func (f fakeMeasurer) Measure(_ context.Context, host string) (latency.Result, error) {
	if err, ok := f.errs[host]; ok {
		return latency.Result{}, err
	}
	return f.results[host], nil
}

type fakeServers struct {
	servers []directory.Server
	err     error
	status  directory.CacheStatus
}

func (f fakeServers) Status() directory.CacheStatus { return f.status }

func (f fakeServers) Servers(context.Context) ([]directory.Server, error) {
	return f.servers, f.err
}

var testServers = []directory.Server{
	{ID: "server_0", Name: "Germany Server I", IP: "10.0.0.1", Region: "Europe", CountryCode: "DE"},
	{ID: "server_1", Name: "US Server I", IP: "10.0.0.2", Region: "North America", CountryCode: "US"},
}

func newTestRouter(agent AgentStatus, servers fakeServers) *gin.Engine {
	m := fakeMeasurer{
		results: map[string]latency.Result{
			"10.0.0.1": {Host: "10.0.0.1", Method: latency.MethodTCP, LatencyMs: 24},
		},
		errs: map[string]error{
			"10.0.0.2":   &latency.Error{Kind: latency.KindTimeout, Host: "10.0.0.2"},
			"nosuchhost": &latency.Error{Kind: latency.KindHostUnresolved, Host: "nosuchhost"},
		},
	}
	return NewRouter(
		NewHealthController(agent, servers, "agent-1", "test"),
		NewLatencyController(m, servers, 2, discardLogger()),
		discardLogger(),
	)
}

func get(t *testing.T, router http.Handler, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func TestHealthEndpoints(t *testing.T) {
	healthy := newTestRouter(fakeAgent{}, fakeServers{})
	rec, body := get(t, healthy, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(domain.HealthStatusHealthy), body["status"])

	rec, body = get(t, healthy, "/info")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", body["version"])

	sick := newTestRouter(fakeAgent{err: errors.New("service is not running")}, fakeServers{})
	rec, body = get(t, sick, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", body["status"])

	rec, body = get(t, sick, "/status")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "RUNNING", body["status"])
}

func componentStatuses(t *testing.T, body map[string]interface{}) map[string]string {
	t.Helper()
	out := map[string]string{}
	for _, raw := range body["components"].([]interface{}) {
		c := raw.(map[string]interface{})
		out[c["name"].(string)] = c["status"].(string)
	}
	return out
}

func TestInfoReportsComponentState(t *testing.T) {
	fresh := fakeServers{servers: testServers, status: directory.CacheStatus{Servers: 2, Fresh: true}}
	_, body := get(t, newTestRouter(fakeAgent{}, fresh), "/info")
	assert.Equal(t, map[string]string{"task_processor": "running", "relay_directory": "fresh"}, componentStatuses(t, body))

	stale := fakeServers{status: directory.CacheStatus{Servers: 2}}
	_, body = get(t, newTestRouter(fakeAgent{err: errors.New("service is not running")}, stale), "/info")
	assert.Equal(t, map[string]string{"task_processor": "stopped", "relay_directory": "stale"}, componentStatuses(t, body))

	_, body = get(t, newTestRouter(fakeAgent{}, fakeServers{}), "/info")
	assert.Equal(t, "empty", componentStatuses(t, body)["relay_directory"])
}

func TestLatencyEndpoint(t *testing.T) {
	router := newTestRouter(fakeAgent{}, fakeServers{})

	rec, body := get(t, router, "/latency/10.0.0.1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "24ms (TCP)", body["display"])

	rec, body = get(t, router, "/latency/10.0.0.2")
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, string(latency.KindTimeout), body["error_kind"])

	rec, _ = get(t, router, "/latency/nosuchhost")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServersEndpoint(t *testing.T) {
	rec, body := get(t, newTestRouter(fakeAgent{}, fakeServers{servers: testServers}), "/servers?filter=us")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["total"])

	rec, _ = get(t, newTestRouter(fakeAgent{}, fakeServers{err: directory.ErrNoServers}), "/servers")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = get(t, newTestRouter(fakeAgent{}, fakeServers{err: errors.New("upstream 500")}), "/sweep")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestSweepEndpoint(t *testing.T) {
	rec, body := get(t, newTestRouter(fakeAgent{}, fakeServers{servers: testServers}), "/sweep")
	require.Equal(t, http.StatusOK, rec.Code)

	results := body["results"].([]interface{})
	require.Len(t, results, 2)
	first := results[0].(map[string]interface{})
	assert.Equal(t, "24ms (TCP)", first["display"])
	second := results[1].(map[string]interface{})
	assert.Equal(t, string(latency.KindTimeout), second["error_kind"])
}

func TestSweepStream(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(fakeAgent{}, fakeServers{servers: testServers}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sweep/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	var results, done int
	for {
		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg["type"] {
		case "result":
			results++
		case "done":
			done++
			assert.EqualValues(t, 2, msg["total"])
			assert.EqualValues(t, 1, msg["measured"])
		}
	}

	assert.Equal(t, 2, results)
	assert.Equal(t, 1, done)
}
