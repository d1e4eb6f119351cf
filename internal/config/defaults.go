package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultServerAddr          = ":8080"
	DefaultReadHeaderTimeout   = 5 * time.Second
	DefaultShutdownTimeout     = 10 * time.Second
	DefaultDBPort              = 5432
	DefaultDBSSLMode           = "prefer"
	DefaultMaxConns            = 10
	DefaultMinConns            = 2
	DefaultCookieName          = "connect.sid"
	DefaultSessionTable        = "sessions"
	DefaultBatchInterval       = 200 * time.Millisecond
	DefaultHubPingInterval     = 30 * time.Second
	DefaultHubWriteTimeout     = 5 * time.Second
	DefaultSendBuffer          = 64
	DefaultReadLimit           = 64 << 10
	DefaultClientLogFile       = "barsclient.log"
	DefaultPingInterval        = 8 * time.Second
	DefaultPongTimeout         = 3 * time.Second
	DefaultReconnectBaseDelay  = 500 * time.Millisecond
	DefaultReconnectMaxDelay   = 10 * time.Second
	DefaultForceReconnectDelay = 100 * time.Millisecond
	DefaultHandshakeTimeout    = 10 * time.Second
	DefaultClientWriteTimeout  = 5 * time.Second
	DefaultStaleThreshold      = 15 * time.Minute
	DefaultWarningWindow       = 2 * time.Minute
	DefaultDimWindow           = 30 * time.Second
	DefaultTickInterval        = time.Second
	DefaultMetricsPath         = "/metrics"
	DefaultLogLevel            = "info"
	DefaultLogFormat           = "text"
)

// ApplyDefaults fills every unset optional field.
func (c *Config) ApplyDefaults() {
	// Server defaults
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Server.ReadHeaderTimeout == 0 {
		c.Server.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	applyDBDefaults(&c.Database)

	// Session defaults
	if c.Session.CookieName == "" {
		c.Session.CookieName = DefaultCookieName
	}
	if c.Session.Table == "" {
		c.Session.Table = DefaultSessionTable
	}

	// Hub defaults
	if c.Hub.BatchInterval == 0 {
		c.Hub.BatchInterval = DefaultBatchInterval
	}
	if c.Hub.PingInterval == 0 {
		c.Hub.PingInterval = DefaultHubPingInterval
	}
	if c.Hub.WriteTimeout == 0 {
		c.Hub.WriteTimeout = DefaultHubWriteTimeout
	}
	if c.Hub.SendBuffer == 0 {
		c.Hub.SendBuffer = DefaultSendBuffer
	}
	if c.Hub.ReadLimit == 0 {
		c.Hub.ReadLimit = DefaultReadLimit
	}

	// Client defaults
	if c.Client.LogFile == "" {
		c.Client.LogFile = DefaultClientLogFile
	}
	if c.Client.PingInterval == 0 {
		c.Client.PingInterval = DefaultPingInterval
	}
	if c.Client.PongTimeout == 0 {
		c.Client.PongTimeout = DefaultPongTimeout
	}
	if c.Client.ReconnectBaseDelay == 0 {
		c.Client.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Client.ReconnectMaxDelay == 0 {
		c.Client.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Client.ForceReconnectDelay == 0 {
		c.Client.ForceReconnectDelay = DefaultForceReconnectDelay
	}
	if c.Client.HandshakeTimeout == 0 {
		c.Client.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Client.WriteTimeout == 0 {
		c.Client.WriteTimeout = DefaultClientWriteTimeout
	}

	// Liveness defaults
	if c.Liveness.StaleThreshold == 0 {
		c.Liveness.StaleThreshold = DefaultStaleThreshold
	}
	if c.Liveness.WarningWindow == 0 {
		c.Liveness.WarningWindow = DefaultWarningWindow
	}
	if c.Liveness.DimWindow == 0 {
		c.Liveness.DimWindow = DefaultDimWindow
	}
	if c.Liveness.TickInterval == 0 {
		c.Liveness.TickInterval = DefaultTickInterval
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
