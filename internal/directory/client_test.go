package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sdrPayload = `{
  "revision": 1,
  "pops": {
    "fra": {"desc": "Frankfurt (Germany)", "relays": [{"ipv4": "155.133.226.68"}, {"ipv4": "155.133.226.69"}]},
    "iad": {"desc": "Sterling (Virginia)", "relays": [{"ipv4": "162.254.192.71"}]},
    "gru": {"desc": "Sao Paulo (Brazil)", "relays": [{"ipv4": "205.185.194.1"}]},
    "ams": {"desc": "Amsterdam (Netherlands)", "relays": [{"ipv4": "155.133.248.34"}]},
    "lhr": {"desc": "London (UK)", "relays": []}
  }
}`

func TestClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "730", r.URL.Query().Get("appid"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sdrPayload))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL+"/ISteamApps/GetSDRConfig/v1?appid=730", time.Second)
	require.NoError(t, err)

	servers, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, servers, 3)

	// Sorted by pop code: ams, fra, iad. gru is unclassified, lhr has no relays.
	assert.Equal(t, Server{
		ID: "server_0", Region: "Europe", Country: "Netherlands", CountryCode: "NL",
		Name: "Netherlands Server I", IP: "155.133.248.34", Flag: "🇳🇱",
	}, servers[0])
	assert.Equal(t, "155.133.226.68", servers[1].IP)
	assert.Equal(t, "Germany Server I", servers[1].Name)
	assert.Equal(t, "US Server I", servers[2].Name)
	assert.Equal(t, "North America", servers[2].Region)
}

func TestClient_FetchErrors(t *testing.T) {
	status := http.StatusServiceUnavailable
	body := ""
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, time.Second)
	require.NoError(t, err)

	_, err = c.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status: 503")

	status, body = http.StatusOK, "{not json"
	_, err = c.Fetch(context.Background())
	assert.ErrorContains(t, err, "failed to parse JSON response")

	body = `{"pops": {"gru": {"desc": "Sao Paulo", "relays": [{"ipv4": "1.2.3.4"}]}}}`
	_, err = c.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrNoServers)
}

func TestNormalizeURL(t *testing.T) {
	got, err := normalizeURL("api.steampowered.com/ISteamApps/GetSDRConfig/v1?appid=730#frag")
	require.NoError(t, err)
	assert.Equal(t, "https://api.steampowered.com/ISteamApps/GetSDRConfig/v1?appid=730", got)

	_, err = normalizeURL("http://")
	assert.Error(t, err)
}
