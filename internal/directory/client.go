package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultURL = "https://api.steampowered.com/ISteamApps/GetSDRConfig/v1?appid=730"

// ErrNoServers is returned when the directory lists no usable relay.
var ErrNoServers = errors.New("no servers found in API response")

// Client fetches the relay list from the Steam Datagram Relay config API.
type Client struct {
	url        string
	httpClient *http.Client
}

func NewClient(rawURL string, timeout time.Duration) (*Client, error) {
	if rawURL == "" {
		rawURL = DefaultURL
	}
	normalized, err := normalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		url:        normalized,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// WithHTTPClient overrides the default http.Client. Primarily useful for testing.
func (c *Client) WithHTTPClient(httpClient *http.Client) {
	if httpClient != nil {
		c.httpClient = httpClient
	}
}

type sdrConfig struct {
	Pops map[string]sdrPop `json:"pops"`
}

type sdrPop struct {
	Desc   string     `json:"desc"`
	Relays []sdrRelay `json:"relays"`
}

type sdrRelay struct {
	IPv4 string `json:"ipv4"`
}

// Fetch downloads and classifies the relay list.
func (c *Client) Fetch(ctx context.Context) ([]Server, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create directory request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	var cfg sdrConfig
	if err := c.do(req, &cfg); err != nil {
		return nil, fmt.Errorf("failed to fetch steam servers: %w", err)
	}

	servers := Build(cfg.Pops)
	if len(servers) == 0 {
		return nil, ErrNoServers
	}
	return servers, nil
}

func normalizeURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid directory URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("invalid directory URL: %s", raw)
	}
	parsed.Fragment = ""

	return parsed.String(), nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) {
			return fmt.Errorf("execute request: network error contacting %s: %w", req.URL.Hostname(), err)
		}
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if len(b) == 0 {
			return fmt.Errorf("request failed with status: %d", resp.StatusCode)
		}
		return fmt.Errorf("request failed with status: %d: %s", resp.StatusCode, string(b))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return nil
}
