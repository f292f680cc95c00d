// Package config holds the functional-options connect configuration for a
// driver Session: host/port, credentials, default database, dial timeout,
// TLS, and an optional injected logger.
package config

import (
	"crypto/tls"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultHost is used when WithHost is not supplied.
	DefaultHost = "localhost"
	// DefaultPort is RethinkDB's standard client-driver port.
	DefaultPort = 28015
)

// Option configures a Config.
type Option func(*Config)

// Config is the resolved connection configuration, built by applying Options
// on top of defaultConfig().
type Config struct {
	Host      string
	Port      int
	Database  string
	User      string
	Password  string
	Timeout   time.Duration
	TLSConfig *tls.Config
	Logger    *logrus.Logger
}

// Validate reports whether c is usable to dial with.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("config: host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	if c.User == "" {
		return fmt.Errorf("config: user is required")
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Host:     DefaultHost,
		Port:     DefaultPort,
		Database: "test",
		User:     "admin",
	}
}

// Apply builds a Config by layering opts on top of the defaults.
func Apply(opts ...Option) *Config {
	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

// WithHost sets the server hostname or IP.
func WithHost(host string) Option {
	return func(c *Config) {
		if host != "" {
			c.Host = host
		}
	}
}

// WithPort sets the server's client-driver port.
func WithPort(port int) Option {
	return func(c *Config) {
		if port > 0 {
			c.Port = port
		}
	}
}

// WithDB sets the default database new queries run against.
func WithDB(name string) Option {
	return func(c *Config) {
		if name != "" {
			c.Database = name
		}
	}
}

// WithUser sets the authentication username.
func WithUser(user string) Option {
	return func(c *Config) {
		if user != "" {
			c.User = user
		}
	}
}

// WithPassword sets the authentication password.
func WithPassword(password string) Option {
	return func(c *Config) {
		c.Password = password
	}
}

// WithTimeout bounds how long Connect waits for the TCP connect and
// handshake to complete. Zero or negative is ignored; without this option
// Connect applies no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

// WithTLSConfig enables TLS using the given configuration. Pass nil (the
// zero value) for a plain TCP connection, which is also the default.
func WithTLSConfig(tlsCfg *tls.Config) Option {
	return func(c *Config) {
		c.TLSConfig = tlsCfg
	}
}

// WithLogger injects a logger for connection and query lifecycle events. If
// not set, logrus.StandardLogger() is used.
func WithLogger(log *logrus.Logger) Option {
	return func(c *Config) {
		if log != nil {
			c.Logger = log
		}
	}
}
