// Package config loads Bolt's operator-facing configuration: the runner's
// retry/poll/timeout policy, the operational HTTP listen address, and
// logging. Grounded on shared-publisher-leader-app/config/config.go's
// viper Load/setDefaults/Validate shape.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds Bolt's complete application configuration.
type Config struct {
	Runner  RunnerConfig  `mapstructure:"runner"  yaml:"runner"`
	API     APIConfig     `mapstructure:"api"     yaml:"api"`
	Log     LogConfig     `mapstructure:"log"     yaml:"log"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// RunnerConfig configures the boltrunner.Runner.
type RunnerConfig struct {
	NumTries            int           `mapstructure:"num_tries"             yaml:"num_tries"`
	PollInterval        time.Duration `mapstructure:"poll_interval"         yaml:"poll_interval"`
	StageTimeoutCeiling time.Duration `mapstructure:"stage_timeout_ceiling" yaml:"stage_timeout_ceiling"`
}

// APIConfig configures the operational HTTP surface (health/ready/jobs/metrics).
type APIConfig struct {
	ListenAddr        string        `mapstructure:"listen_addr"         yaml:"listen_addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"        yaml:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"       yaml:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"        yaml:"idle_timeout"`
	MaxHeaderBytes    int           `mapstructure:"max_header_bytes"    yaml:"max_header_bytes"`
	// JobHistorySize bounds how many recent JobSummaries /jobs reports.
	JobHistorySize int `mapstructure:"job_history_size" yaml:"job_history_size"`
}

// LogConfig configures zerolog output.
type LogConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  env:"LOG_LEVEL"`
	Pretty bool   `mapstructure:"pretty" yaml:"pretty" env:"LOG_PRETTY"`
}

// MetricsConfig toggles the Prometheus /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" env:"METRICS_ENABLED"`
}

// Load loads configuration from a YAML file, with environment overrides.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Default returns a Config with every field at its production default.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("runner.num_tries", 2)
	v.SetDefault("runner.poll_interval", "2s")
	v.SetDefault("runner.stage_timeout_ceiling", "60m")

	v.SetDefault("api.listen_addr", ":8090")
	v.SetDefault("api.read_header_timeout", "5s")
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "30s")
	v.SetDefault("api.idle_timeout", "120s")
	v.SetDefault("api.max_header_bytes", 1048576)
	v.SetDefault("api.job_history_size", 200)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("metrics.enabled", true)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.validateRunner(); err != nil {
		return err
	}
	return c.validateAPI()
}

func (c *Config) validateRunner() error {
	if c.Runner.NumTries <= 0 {
		return fmt.Errorf("runner.num_tries must be positive, got %d", c.Runner.NumTries)
	}
	if c.Runner.PollInterval <= 0 {
		return fmt.Errorf("runner.poll_interval must be positive")
	}
	if c.Runner.StageTimeoutCeiling <= 0 {
		return fmt.Errorf("runner.stage_timeout_ceiling must be positive")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.JobHistorySize <= 0 {
		return fmt.Errorf("api.job_history_size must be positive, got %d", c.API.JobHistorySize)
	}
	if c.API.MaxHeaderBytes <= 0 {
		return fmt.Errorf("api.max_header_bytes must be positive")
	}
	return nil
}
