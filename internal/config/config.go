package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EchoModeExec   = "exec"
	EchoModeNative = "native"
)

type Config struct {
	Env       string          `mapstructure:"env"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Server    ServerConfig    `mapstructure:"server"`
	Latency   LatencyConfig   `mapstructure:"latency"`
	Directory DirectoryConfig `mapstructure:"directory"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type AgentConfig struct {
	Name         string `mapstructure:"name"`
	Country      string `mapstructure:"country"`
	PollInterval int    `mapstructure:"poll_interval"`
}

type KafkaConfig struct {
	Brokers []string    `mapstructure:"brokers"`
	Topics  KafkaTopics `mapstructure:"topics"`
}

type KafkaTopics struct {
	Tasks   string `mapstructure:"tasks"`
	Results string `mapstructure:"results"`
	Logs    string `mapstructure:"logs"`
}

type ServerConfig struct {
	HealthPort string `mapstructure:"health_port"`
}

type LatencyConfig struct {
	Ports           []int          `mapstructure:"ports"`
	TryAllAddresses bool           `mapstructure:"try_all_addresses"`
	TCPTimeout      int            `mapstructure:"tcp_timeout"`
	Gate            GateConfig     `mapstructure:"gate"`
	Echo            EchoConfig     `mapstructure:"echo"`
	Parser          ParserConfig   `mapstructure:"parser"`
	Estimate        EstimateConfig `mapstructure:"estimate"`
	Concurrency     int            `mapstructure:"concurrency"`
}

type GateConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Timeout int    `mapstructure:"timeout"`
}

type EchoConfig struct {
	Mode       string `mapstructure:"mode"`
	Path       string `mapstructure:"path"`
	Count      int    `mapstructure:"count"`
	Wait       int    `mapstructure:"wait"`
	Privileged bool   `mapstructure:"privileged"`
}

type ParserConfig struct {
	UnixSummary bool `mapstructure:"unix_summary"`
}

type EstimateConfig struct {
	Enabled bool  `mapstructure:"enabled"`
	Ms      int64 `mapstructure:"ms"`
}

type DirectoryConfig struct {
	URL      string `mapstructure:"url"`
	Timeout  int    `mapstructure:"timeout"`
	CacheTTL int    `mapstructure:"cache_ttl"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// Load reads configuration from defaults, an optional YAML file and the
// environment (LATENCY_ECHO_MODE overrides latency.echo.mode). An empty path
// looks for config/local.yaml and ./local.yaml.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("local")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Agent defaults
	v.SetDefault("env", "local")
	v.SetDefault("agent.name", "relayping-agent-01")
	v.SetDefault("agent.country", "")
	v.SetDefault("agent.poll_interval", 30)

	// Kafka defaults
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topics.tasks", "latency-tasks")
	v.SetDefault("kafka.topics.results", "latency-results")
	v.SetDefault("kafka.topics.logs", "agent-logs")

	// Server defaults
	v.SetDefault("server.health_port", "8081")

	// Latency defaults
	v.SetDefault("latency.ports", []int{27017})
	v.SetDefault("latency.try_all_addresses", false)
	v.SetDefault("latency.tcp_timeout", 2)
	v.SetDefault("latency.gate.enabled", true)
	v.SetDefault("latency.gate.host", "8.8.8.8")
	v.SetDefault("latency.gate.timeout", 1)
	v.SetDefault("latency.echo.mode", EchoModeExec)
	v.SetDefault("latency.echo.path", "ping")
	v.SetDefault("latency.echo.count", 4)
	v.SetDefault("latency.echo.wait", 5)
	v.SetDefault("latency.echo.privileged", false)
	v.SetDefault("latency.parser.unix_summary", false)
	v.SetDefault("latency.estimate.enabled", true)
	v.SetDefault("latency.estimate.ms", 80)
	v.SetDefault("latency.concurrency", 8)

	// Directory defaults
	v.SetDefault("directory.url", "https://api.steampowered.com/ISteamApps/GetSDRConfig/v1?appid=730")
	v.SetDefault("directory.timeout", 10)
	v.SetDefault("directory.cache_ttl", 600)

	v.SetDefault("telemetry.otlp_endpoint", "")
	_ = v.BindEnv("telemetry.otlp_endpoint", "TELEMETRY_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func (c *Config) Validate() error {
	switch c.Latency.Echo.Mode {
	case EchoModeExec, EchoModeNative:
	default:
		return fmt.Errorf("unsupported latency.echo.mode %q", c.Latency.Echo.Mode)
	}
	for _, p := range c.Latency.Ports {
		if p <= 0 || p > 65535 {
			return fmt.Errorf("invalid latency port %d", p)
		}
	}
	if c.Latency.Estimate.Enabled && c.Latency.Estimate.Ms <= 0 {
		return errors.New("latency.estimate.ms must be positive when estimates are enabled")
	}
	return nil
}

func (c *Config) GetTCPTimeout() time.Duration {
	return time.Duration(c.Latency.TCPTimeout) * time.Second
}

func (c *Config) GetGateTimeout() time.Duration {
	return time.Duration(c.Latency.Gate.Timeout) * time.Second
}

func (c *Config) GetEchoWait() time.Duration {
	return time.Duration(c.Latency.Echo.Wait) * time.Second
}

func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.Agent.PollInterval) * time.Second
}

func (c *Config) GetDirectoryTimeout() time.Duration {
	return time.Duration(c.Directory.Timeout) * time.Second
}

func (c *Config) GetDirectoryCacheTTL() time.Duration {
	return time.Duration(c.Directory.CacheTTL) * time.Second
}
