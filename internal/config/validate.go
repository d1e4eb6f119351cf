package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Role selects which sections Validate checks.
type Role int

const (
	// RoleHub validates server, database, session and hub.
	RoleHub Role = iota
	// RoleClient validates client and liveness.
	RoleClient
)

// Validate checks that the fields role needs are set and values are valid.
// The log section is always checked.
func (c *Config) Validate(role Role) error {
	if err := c.Log.validate(); err != nil {
		return err
	}
	switch role {
	case RoleHub:
		return c.validateHub()
	case RoleClient:
		return c.validateClient()
	default:
		return fmt.Errorf("unknown config role %d", role)
	}
}

func (c *Config) validateHub() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}

	if err := c.Database.validate("database"); err != nil {
		return err
	}

	if len(c.Session.Secrets) == 0 {
		return errors.New("session.secrets must list at least one secret")
	}
	for i, s := range c.Session.Secrets {
		if s == "" {
			return fmt.Errorf("session.secrets[%d] is empty", i)
		}
	}
	if c.Session.CookieName == "" {
		return errors.New("session.cookie_name is required")
	}
	if c.Session.Table == "" {
		return errors.New("session.table is required")
	}

	if c.Hub.BatchInterval <= 0 {
		return errors.New("hub.batch_interval must be > 0")
	}
	if c.Hub.PingInterval <= 0 {
		return errors.New("hub.ping_interval must be > 0")
	}
	if c.Hub.SendBuffer < 1 {
		return errors.New("hub.send_buffer must be >= 1")
	}
	if c.Hub.ReadLimit < 0 {
		return errors.New("hub.read_limit must be >= 0")
	}

	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}
	return nil
}

func (c *Config) validateClient() error {
	if c.Client.PageURL == "" {
		return errors.New("client.page_url is required")
	}
	u, err := url.Parse(c.Client.PageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("client.page_url must be an absolute http or https URL, got %q", c.Client.PageURL)
	}

	if c.Client.PingInterval <= 0 {
		return errors.New("client.ping_interval must be > 0")
	}
	if c.Client.PongTimeout <= 0 {
		return errors.New("client.pong_timeout must be > 0")
	}
	if c.Client.PongTimeout >= c.Client.PingInterval {
		return errors.New("client.pong_timeout must be less than client.ping_interval")
	}
	if c.Client.ReconnectBaseDelay <= 0 {
		return errors.New("client.reconnect_base_delay must be > 0")
	}
	if c.Client.ReconnectMaxDelay < c.Client.ReconnectBaseDelay {
		return fmt.Errorf("client.reconnect_max_delay (%s) cannot be less than reconnect_base_delay (%s)",
			c.Client.ReconnectMaxDelay, c.Client.ReconnectBaseDelay)
	}

	l := c.Liveness
	if l.TickInterval <= 0 {
		return errors.New("liveness.tick_interval must be > 0")
	}
	if l.DimWindow <= 0 || l.DimWindow >= l.WarningWindow {
		return errors.New("liveness.dim_window must be > 0 and less than liveness.warning_window")
	}
	if l.WarningWindow >= l.StaleThreshold {
		return errors.New("liveness.warning_window must be less than liveness.stale_threshold")
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

func (l LogConfig) validate() error {
	if _, err := l.level(); err != nil {
		return err
	}
	switch l.Format {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("log.format must be text or json, got %q", l.Format)
	}
}
