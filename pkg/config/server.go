package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig is the scalerd daemon configuration.
// It is loaded through viper from defaults, an optional YAML file and SCALERD_* env vars.
type ServerConfig struct {
	GRPCAddr    string          `mapstructure:"grpc_addr"`
	HTTPAddr    string          `mapstructure:"http_addr"`
	CatalogPath string          `mapstructure:"catalog_path"` // empty uses the built-in catalog
	Logging     LoggingConfig   `mapstructure:"logging"`
	Advisor     AdvisorConfig   `mapstructure:"advisor"`
	Notifier    NotifierConfig  `mapstructure:"notifier"`
	Sessions    SessionsConfig  `mapstructure:"sessions"`
	Autopilot   AutopilotConfig `mapstructure:"autopilot"`
}

// LoggingConfig selects the slog handler
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

// AdvisorConfig configures the advisory text port
type AdvisorConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`

	MaxRetries int           `mapstructure:"max_retries"`
	Backoff    string        `mapstructure:"backoff"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
	MaxDelay   time.Duration `mapstructure:"max_delay"`

	FailureThreshold  int           `mapstructure:"failure_threshold"`
	Cooldown          time.Duration `mapstructure:"cooldown"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

// NotifierConfig configures session-completion callbacks
type NotifierConfig struct {
	MaxRetries int           `mapstructure:"max_retries"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// SessionsConfig bounds the in-memory session store
type SessionsConfig struct {
	MaxSessions int `mapstructure:"max_sessions"` // 0 means unbounded
}

// AutopilotConfig tunes the headless scaling strategy
type AutopilotConfig struct {
	TargetUtilization float64 `mapstructure:"target_utilization"` // scale when next round is projected above this
	ReserveRounds     int     `mapstructure:"reserve_rounds"`     // rounds of new maintenance to keep after paying
	MinRoundsLeft     int     `mapstructure:"min_rounds_left"`    // no upgrades this close to the end
}

// DefaultServerConfig returns the built-in daemon configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		GRPCAddr: ":50051",
		HTTPAddr: ":8080",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Advisor: AdvisorConfig{
			Enabled:           false,
			Model:             "gemini-2.5-flash",
			Timeout:           30 * time.Second,
			MaxRetries:        5,
			Backoff:           "exponential",
			BaseDelay:         time.Second,
			MaxDelay:          16 * time.Second,
			FailureThreshold:  5,
			Cooldown:          time.Minute,
			RequestsPerMinute: 6,
		},
		Notifier: NotifierConfig{
			MaxRetries: 3,
			BaseDelay:  time.Second,
			Timeout:    10 * time.Second,
		},
		Sessions: SessionsConfig{
			MaxSessions: 1000,
		},
		Autopilot: AutopilotConfig{
			TargetUtilization: 0.80,
			ReserveRounds:     2,
			MinRoundsLeft:     3,
		},
	}
}

// SetDefaults registers default values with v
func SetDefaults(v *viper.Viper) {
	d := DefaultServerConfig()

	v.SetDefault("grpc_addr", d.GRPCAddr)
	v.SetDefault("http_addr", d.HTTPAddr)
	v.SetDefault("catalog_path", d.CatalogPath)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("advisor.enabled", d.Advisor.Enabled)
	v.SetDefault("advisor.endpoint", d.Advisor.Endpoint)
	v.SetDefault("advisor.api_key", d.Advisor.APIKey)
	v.SetDefault("advisor.model", d.Advisor.Model)
	v.SetDefault("advisor.timeout", d.Advisor.Timeout)
	v.SetDefault("advisor.max_retries", d.Advisor.MaxRetries)
	v.SetDefault("advisor.backoff", d.Advisor.Backoff)
	v.SetDefault("advisor.base_delay", d.Advisor.BaseDelay)
	v.SetDefault("advisor.max_delay", d.Advisor.MaxDelay)
	v.SetDefault("advisor.failure_threshold", d.Advisor.FailureThreshold)
	v.SetDefault("advisor.cooldown", d.Advisor.Cooldown)
	v.SetDefault("advisor.requests_per_minute", d.Advisor.RequestsPerMinute)

	v.SetDefault("notifier.max_retries", d.Notifier.MaxRetries)
	v.SetDefault("notifier.base_delay", d.Notifier.BaseDelay)
	v.SetDefault("notifier.timeout", d.Notifier.Timeout)

	v.SetDefault("sessions.max_sessions", d.Sessions.MaxSessions)

	v.SetDefault("autopilot.target_utilization", d.Autopilot.TargetUtilization)
	v.SetDefault("autopilot.reserve_rounds", d.Autopilot.ReserveRounds)
	v.SetDefault("autopilot.min_rounds_left", d.Autopilot.MinRoundsLeft)
}

// NewViper returns a viper instance with defaults and SCALERD_ env binding.
// When configFile is non-empty it is read; a missing file is an error.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix("SCALERD")
	// e.g. SCALERD_ADVISOR_API_KEY for advisor.api_key
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}
	return v, nil
}

// LoadServerConfig reads the configuration from v into a ServerConfig and validates it
func LoadServerConfig(v *viper.Viper) (*ServerConfig, error) {
	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode server config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the daemon configuration
func (c *ServerConfig) Validate() error {
	if c.GRPCAddr == "" && c.HTTPAddr == "" {
		return fmt.Errorf("at least one of grpc_addr or http_addr must be set")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}
	if err := c.Advisor.validate(); err != nil {
		return fmt.Errorf("advisor: %w", err)
	}
	if c.Notifier.MaxRetries < 0 {
		return fmt.Errorf("notifier.max_retries cannot be negative")
	}
	if c.Notifier.Timeout <= 0 {
		return fmt.Errorf("notifier.timeout must be positive")
	}
	if c.Sessions.MaxSessions < 0 {
		return fmt.Errorf("sessions.max_sessions cannot be negative")
	}
	if c.Autopilot.TargetUtilization <= 0 {
		return fmt.Errorf("autopilot.target_utilization must be positive")
	}
	if c.Autopilot.ReserveRounds < 0 || c.Autopilot.MinRoundsLeft < 0 {
		return fmt.Errorf("autopilot rounds cannot be negative")
	}
	return nil
}

func (a *AdvisorConfig) validate() error {
	if a.Enabled && a.Endpoint == "" {
		return fmt.Errorf("endpoint is required when the advisor is enabled")
	}
	if a.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", a.MaxRetries)
	}
	switch a.Backoff {
	case "constant", "linear", "exponential", "exponential_jitter":
	default:
		return fmt.Errorf("unknown backoff %q", a.Backoff)
	}
	if a.BaseDelay < 0 || a.MaxDelay < 0 {
		return fmt.Errorf("delays cannot be negative")
	}
	if a.MaxDelay > 0 && a.MaxDelay < a.BaseDelay {
		return fmt.Errorf("max_delay %s is below base_delay %s", a.MaxDelay, a.BaseDelay)
	}
	if a.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if a.FailureThreshold < 0 || a.RequestsPerMinute < 0 {
		return fmt.Errorf("failure_threshold and requests_per_minute cannot be negative")
	}
	return nil
}
