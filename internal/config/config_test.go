package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relayping.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, []int{27017}, cfg.Latency.Ports)
	assert.Equal(t, 2*time.Second, cfg.GetTCPTimeout())
	assert.Equal(t, time.Second, cfg.GetGateTimeout())
	assert.Equal(t, 5*time.Second, cfg.GetEchoWait())
	assert.Equal(t, 4, cfg.Latency.Echo.Count)
	assert.Equal(t, "8.8.8.8", cfg.Latency.Gate.Host)
	assert.True(t, cfg.Latency.Gate.Enabled)
	assert.True(t, cfg.Latency.Estimate.Enabled)
	assert.EqualValues(t, 80, cfg.Latency.Estimate.Ms)
	assert.Equal(t, EchoModeExec, cfg.Latency.Echo.Mode)
	assert.Equal(t, 30*time.Second, cfg.GetPollInterval())
	assert.Equal(t, 10*time.Minute, cfg.GetDirectoryCacheTTL())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
env: prod
agent:
  name: fra-agent
  country: DE
latency:
  ports: [27017, 27015]
  try_all_addresses: true
  echo:
    mode: native
    count: 2
  estimate:
    enabled: false
directory:
  timeout: 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "fra-agent", cfg.Agent.Name)
	assert.Equal(t, []int{27017, 27015}, cfg.Latency.Ports)
	assert.True(t, cfg.Latency.TryAllAddresses)
	assert.Equal(t, EchoModeNative, cfg.Latency.Echo.Mode)
	assert.Equal(t, 2, cfg.Latency.Echo.Count)
	assert.False(t, cfg.Latency.Estimate.Enabled)
	assert.Equal(t, 3*time.Second, cfg.GetDirectoryTimeout())
	assert.Equal(t, 5*time.Second, cfg.GetEchoWait())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LATENCY_TCP_TIMEOUT", "4")
	t.Setenv("AGENT_NAME", "env-agent")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")

	cfg, err := Load(writeConfig(t, "agent:\n  name: file-agent\n"))
	require.NoError(t, err)

	assert.Equal(t, 4*time.Second, cfg.GetTCPTimeout())
	assert.Equal(t, "env-agent", cfg.Agent.Name)
	assert.Equal(t, "collector:4317", cfg.Telemetry.OTLPEndpoint)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "latency:\n  echo:\n    mode: raw\n"))
	assert.ErrorContains(t, err, "latency.echo.mode")

	_, err = Load(writeConfig(t, "latency:\n  ports: [70000]\n"))
	assert.ErrorContains(t, err, "invalid latency port")

	_, err = Load(writeConfig(t, "latency:\n  estimate:\n    ms: 0\n"))
	assert.ErrorContains(t, err, "latency.estimate.ms")
}
