package config

import "time"

// Config represents the main configuration structure
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Cloak     CloakConfig     `yaml:"cloak" mapstructure:"cloak"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	Upstream  UpstreamConfig  `yaml:"upstream" mapstructure:"upstream"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Audit     AuditConfig     `yaml:"audit" mapstructure:"audit"`
	WebSocket WebSocketConfig `yaml:"websocket" mapstructure:"websocket"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// CloakConfig controls entity cloaking of request bodies and uncloaking of
// responses.
type CloakConfig struct {
	Enabled        bool   `yaml:"enabled" mapstructure:"enabled"`
	StartDelimiter string `yaml:"start_delimiter" mapstructure:"start_delimiter"`
	EndDelimiter   string `yaml:"end_delimiter" mapstructure:"end_delimiter"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	File   struct {
		Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
		Path    string `yaml:"path" mapstructure:"path"`
	} `yaml:"file" mapstructure:"file"`
}

// UpstreamConfig contains upstream LLM service configuration
type UpstreamConfig struct {
	OpenAI  string        `yaml:"openai" mapstructure:"openai"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// RateLimitConfig contains per-client rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMin int  `yaml:"requests_per_min" mapstructure:"requests_per_min"`
	Burst          int  `yaml:"burst" mapstructure:"burst"`
}

// CacheConfig contains the optional Redis detection cache configuration
type CacheConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	RedisURL       string        `yaml:"redis_url" mapstructure:"redis_url"`
	MaxConnections int           `yaml:"max_connections" mapstructure:"max_connections"`
	MinIdleConns   int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DefaultTTL     time.Duration `yaml:"default_ttl" mapstructure:"default_ttl"`
	KeyPrefix      string        `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// AuditConfig contains the optional Postgres audit log configuration
type AuditConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// WebSocketConfig contains the dashboard event feed configuration
type WebSocketConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	Path            string        `yaml:"path" mapstructure:"path"`
	ReadBufferSize  int           `yaml:"read_buffer_size" mapstructure:"read_buffer_size"`
	WriteBufferSize int           `yaml:"write_buffer_size" mapstructure:"write_buffer_size"`
	PingInterval    time.Duration `yaml:"ping_interval" mapstructure:"ping_interval"`
	PongTimeout     time.Duration `yaml:"pong_timeout" mapstructure:"pong_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// GetDefaults returns a configuration with sensible defaults
func GetDefaults() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Cloak: CloakConfig{
			Enabled:        true,
			StartDelimiter: "<",
			EndDelimiter:   ">",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Upstream: UpstreamConfig{
			OpenAI:  "https://api.openai.com",
			Timeout: 120 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:        true,
			RequestsPerMin: 120,
			Burst:          20,
		},
		Cache: CacheConfig{
			Enabled:        false,
			RedisURL:       "redis://localhost:6379/0",
			MaxConnections: 10,
			MinIdleConns:   2,
			DefaultTTL:     time.Hour,
			KeyPrefix:      "llmcloak",
		},
		Audit: AuditConfig{
			Enabled:         false,
			DatabaseURL:     "postgres://localhost:5432/llmcloak?sslmode=disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
		},
		WebSocket: WebSocketConfig{
			Enabled:         true,
			Path:            "/ws",
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingInterval:    54 * time.Second,
			PongTimeout:     60 * time.Second,
			WriteTimeout:    10 * time.Second,
		},
	}
	cfg.Logging.File.Path = "logs/cloakd.log"
	return cfg
}
