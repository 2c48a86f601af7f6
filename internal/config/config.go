// Package config defines Ember's typed configuration and loads it with
// koanf: one struct per section. Config.SetDefaults and Config.Validate call
// a section's SetDefaults/Validate where that section defines one.
package config

import (
	"fmt"
	"time"
)

// ServerConfig configures the HTTP/WebSocket API surface (§4.12).
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	LogLevel     string        `yaml:"log_level"`
}

func (c *ServerConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 60 * time.Second
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: server.port out of range: %d", c.Port)
	}
	return nil
}

// PrivacyConfig holds the §4.2 privacy settings. Only AutoConfirm is passed
// to the controller; DefaultMode is validated but not applied (the
// controller always starts in LOCAL), and EnabledProviders is not read.
type PrivacyConfig struct {
	DefaultMode      string   `yaml:"default_mode"`
	AutoConfirm      bool     `yaml:"auto_confirm"`
	EnabledProviders []string `yaml:"enabled_providers"`
}

func (c *PrivacyConfig) SetDefaults() {
	if c.DefaultMode == "" {
		c.DefaultMode = "LOCAL"
	}
}

func (c PrivacyConfig) Validate() error {
	switch c.DefaultMode {
	case "LOCAL", "HYBRID", "CLOUD":
		return nil
	default:
		return fmt.Errorf("config: privacy.default_mode invalid: %q", c.DefaultMode)
	}
}

// ModelProviderConfig configures one model backend registration.
type ModelProviderConfig struct {
	Kind    string `yaml:"kind"` // local, claude, gemini, groq, openai
	BaseURL string `yaml:"base_url,omitempty"`
	APIKey  string `yaml:"api_key,omitempty"`
	Model   string `yaml:"model,omitempty"`
}

// ModelsConfig maps a backend name to its provider configuration.
type ModelsConfig map[string]ModelProviderConfig

// KnowledgeProviderConfig configures one outbound knowledge provider
// (§4.3). Limit is not read; provider rate limits come from RateLimitConfig.
type KnowledgeProviderConfig struct {
	Enabled bool          `yaml:"enabled"`
	APIKey  string        `yaml:"api_key,omitempty"`
	Limit   ProviderLimit `yaml:"limit"`
}

// ProviderLimit mirrors ratelimit.ProviderLimit so config stays free of an
// import cycle with the ratelimit package while using the same shape.
type ProviderLimit struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// KnowledgeConfig configures the knowledge provider router (§4.3).
type KnowledgeConfig struct {
	Stocks        KnowledgeProviderConfig `yaml:"stocks"`
	Weather       KnowledgeProviderConfig `yaml:"weather"`
	Cyber         KnowledgeProviderConfig `yaml:"cyber"`
	TechPulse     KnowledgeProviderConfig `yaml:"tech_pulse"`
	News          KnowledgeProviderConfig `yaml:"news"`
	Encyclopedia  KnowledgeProviderConfig `yaml:"encyclopedia"`
	Web           KnowledgeProviderConfig `yaml:"web"`
	CacheTTL      time.Duration           `yaml:"cache_ttl"`
	HourlyRefresh time.Duration           `yaml:"hourly_refresh"`
}

func (c *KnowledgeConfig) SetDefaults() {
	if c.CacheTTL == 0 {
		c.CacheTTL = 10 * time.Minute
	}
	if c.HourlyRefresh == 0 {
		c.HourlyRefresh = time.Hour
	}
}

// MemoryConfig configures the permanent store (§4.5). Only DBDriver and DSN
// are read; the capacity, compression-threshold and tick-interval fields are
// not, and CORTEX uses the fixed layer table in internal/cortex.
type MemoryConfig struct {
	DBDriver             string        `yaml:"db_driver"` // sqlite3, postgres, mysql
	DSN                  string        `yaml:"dsn"`
	WorkingCapacity      int           `yaml:"working_capacity"`
	ShortTermCapacity    int           `yaml:"short_term_capacity"`
	MediumTermCapacity   int           `yaml:"medium_term_capacity"`
	LongTermCapacity     int           `yaml:"long_term_capacity"`
	CompressionThreshold int           `yaml:"compression_threshold"`
	TickInterval         time.Duration `yaml:"tick_interval"`
}

func (c *MemoryConfig) SetDefaults() {
	if c.DBDriver == "" {
		c.DBDriver = "sqlite3"
	}
	if c.DSN == "" {
		c.DSN = "ember.db"
	}
	if c.WorkingCapacity == 0 {
		c.WorkingCapacity = 10
	}
	if c.ShortTermCapacity == 0 {
		c.ShortTermCapacity = 50
	}
	if c.MediumTermCapacity == 0 {
		c.MediumTermCapacity = 200
	}
	if c.LongTermCapacity == 0 {
		c.LongTermCapacity = 1000
	}
	if c.CompressionThreshold == 0 {
		c.CompressionThreshold = 20
	}
	if c.TickInterval == 0 {
		c.TickInterval = time.Minute
	}
}

func (c MemoryConfig) Validate() error {
	switch c.DBDriver {
	case "sqlite3", "postgres", "mysql":
		return nil
	default:
		return fmt.Errorf("config: memory.db_driver invalid: %q", c.DBDriver)
	}
}

// GovernanceConfig holds the JWT bearer-auth gate in front of the API (off
// by default per §4.12). ContextConfidenceFloor is not read; the Governance
// Engine's context-fallback threshold is a fixed 0.3.
type GovernanceConfig struct {
	ContextConfidenceFloor float64        `yaml:"context_confidence_floor"`
	Auth                   AuthGateConfig `yaml:"auth"`
}

// AuthGateConfig configures the optional JWT middleware (internal/auth).
type AuthGateConfig struct {
	Enabled  bool   `yaml:"enabled"`
	JWKSURL  string `yaml:"jwks_url"`
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
}

func (c *GovernanceConfig) SetDefaults() {
	if c.ContextConfidenceFloor == 0 {
		c.ContextConfidenceFloor = 0.3
	}
}

// RateLimitConfig is the §10.3 typed section wrapping the
// internal/ratelimit per-provider token-bucket configuration.
type RateLimitConfig struct {
	Enabled     bool                     `yaml:"enabled"`
	Default     ProviderLimit            `yaml:"default"`
	PerProvider map[string]ProviderLimit `yaml:"per_provider"`
}

func (c *RateLimitConfig) SetDefaults() {
	if c.Default.RequestsPerSecond <= 0 {
		c.Default.RequestsPerSecond = 2
	}
	if c.Default.Burst <= 0 {
		c.Default.Burst = 5
	}
}

// LoggerConfig configures the process-wide slog handler (§10.1).
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // not read; logger.Init always writes JSON
}

func (c *LoggerConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "text"
	}
}

// Config is the top-level typed configuration tree.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Privacy    PrivacyConfig    `yaml:"privacy"`
	Models     ModelsConfig     `yaml:"models"`
	Knowledge  KnowledgeConfig  `yaml:"knowledge"`
	Memory     MemoryConfig     `yaml:"memory"`
	Governance GovernanceConfig `yaml:"governance"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Logger     LoggerConfig     `yaml:"logger"`
}

// SetDefaults fills every section's zero values with its defaults.
func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	c.Privacy.SetDefaults()
	c.Knowledge.SetDefaults()
	c.Memory.SetDefaults()
	c.Governance.SetDefaults()
	c.RateLimit.SetDefaults()
	c.Logger.SetDefaults()
}

// Validate runs every section's Validate, collecting the first failure.
func (c Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Privacy.Validate(); err != nil {
		return err
	}
	if err := c.Memory.Validate(); err != nil {
		return err
	}
	return nil
}

// NewDefaultConfig returns a zero-config, local-only setup that runs
// without any external credentials.
func NewDefaultConfig() *Config {
	cfg := &Config{
		Models: ModelsConfig{
			"local": {Kind: "local", BaseURL: "http://localhost:11434", Model: "llama3"},
		},
	}
	cfg.SetDefaults()
	return cfg
}
