package config

import "time"

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DBConfig       `yaml:"database"`
	Session  SessionConfig  `yaml:"session"`
	Hub      HubConfig      `yaml:"hub"`
	Client   ClientConfig   `yaml:"client"`
	Liveness LivenessConfig `yaml:"liveness"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds the hub HTTP server settings.
type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// SessionConfig describes the express-session cookie and its backing table.
type SessionConfig struct {
	CookieName string   `yaml:"cookie_name"`
	Secrets    []string `yaml:"secrets"` // newest first; all are accepted
	Table      string   `yaml:"table"`
}

// HubConfig holds realtime hub settings.
type HubConfig struct {
	BatchInterval  time.Duration `yaml:"batch_interval"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	SendBuffer     int           `yaml:"send_buffer"`
	ReadLimit      int64         `yaml:"read_limit"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// ClientConfig holds terminal client and connection manager settings.
type ClientConfig struct {
	PageURL             string        `yaml:"page_url"`
	SessionCookie       string        `yaml:"session_cookie"` // signed connect.sid value
	PeerID              string        `yaml:"peer_id"`
	LogFile             string        `yaml:"log_file"`
	MetricsAddr         string        `yaml:"metrics_addr"` // empty disables the metrics listener
	PingInterval        time.Duration `yaml:"ping_interval"`
	PongTimeout         time.Duration `yaml:"pong_timeout"`
	ReconnectBaseDelay  time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay   time.Duration `yaml:"reconnect_max_delay"`
	ForceReconnectDelay time.Duration `yaml:"force_reconnect_delay"`
	HandshakeTimeout    time.Duration `yaml:"handshake_timeout"`
	WriteTimeout        time.Duration `yaml:"write_timeout"`
}

// LivenessConfig holds session liveness monitor thresholds.
type LivenessConfig struct {
	StaleThreshold time.Duration `yaml:"stale_threshold"`
	WarningWindow  time.Duration `yaml:"warning_window"`
	DimWindow      time.Duration `yaml:"dim_window"`
	TickInterval   time.Duration `yaml:"tick_interval"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Path string `yaml:"path"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}
