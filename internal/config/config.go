// Package config handles TOML configuration loading and validation.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"campusride-relay/internal/model"
)

// defaultUpstreamURL is where the Flask service listens in every deployment.
const defaultUpstreamURL = "http://127.0.0.1:5000"

// Profile describes one relay binary: its identity, defaults and route table.
type Profile struct {
	Name        string
	Description string
	Port        int
	UpstreamURL string
	// Fixed pins Port and UpstreamURL; the config file may not change them.
	Fixed bool
	// RootKey and RootMessage form the body of GET /.
	RootKey     string
	RootMessage string
	Routes      []model.Route
}

// CampusRideProfile is the configurable relay in front of the group service.
func CampusRideProfile() Profile {
	return Profile{
		Name:        "campusride-relay",
		Description: "CampusRide relay for group search, membership and creation.",
		Port:        4000,
		UpstreamURL: defaultUpstreamURL,
		RootKey:     "message",
		RootMessage: "🚀 CampusRide Node API is up and running!",
		Routes:      model.CampusRideRoutes(),
	}
}

// TripProfile is the fixed-address relay serving trip joins.
func TripProfile() Profile {
	return Profile{
		Name:        "trip-relay",
		Description: "Trip relay forwarding join requests to group search.",
		Port:        3000,
		UpstreamURL: defaultUpstreamURL,
		Fixed:       true,
		RootKey:     "status",
		RootMessage: "Node Server Running ✅",
		Routes:      model.TripRoutes(),
	}
}

// SearchPaths lists config paths checked in order when no explicit config is given.
func (p Profile) SearchPaths() []string {
	return []string{
		"/etc/" + p.Name + "/config.toml",
		"configs/" + p.Name + ".toml",
	}
}

// CommonCLI holds the flags every relay binary accepts.
type CommonCLI struct {
	Config   string `kong:"short='c',help='Path to TOML config file.',env='CONFIG_PATH'"`
	Host     string `kong:"help='Listen host (overrides config).',env='HOST'"`
	LogLevel string `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`
}

// CLI holds command-line arguments parsed by Kong for a relay whose port
// and upstream are operator-controlled.
type CLI struct {
	CommonCLI `kong:"embed"`

	Port      int    `kong:"short='p',help='Listen port (overrides config).',env='PORT'"`
	FlaskHost string `kong:"name='flask-host',help='Upstream Flask base URL (overrides config).',env='FLASK_HOST'"`
}

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Upstream UpstreamConfig `toml:"upstream"`
	Log      LogConfig      `toml:"log"`
	Metrics  MetricsConfig  `toml:"metrics"`

	filePath string // resolved config file path (unexported)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string     `toml:"host"`
	Port         int        `toml:"port"` // 0 means "use the profile default"
	BodyMaxBytes int64      `toml:"body_max_bytes"`
	CORS         CORSConfig `toml:"cors"`
}

// CORSConfig controls cross-origin access for browser clients.
type CORSConfig struct {
	AllowedOrigins []string `toml:"allowed_origins"`
}

// UpstreamConfig holds upstream connection settings.
type UpstreamConfig struct {
	BaseURL          string `toml:"base_url"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
	IdleConnections  int    `toml:"idle_connections"`
	MaxResponseBytes int64  `toml:"max_response_bytes"`
	// ForwardStatus relays the upstream status code instead of always
	// answering 200 on a successful round trip.
	ForwardStatus bool `toml:"forward_status"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load reads the optional TOML config file, applies CLI overrides and fills
// profile defaults. When no explicit path is given (via --config or
// CONFIG_PATH) the profile search paths are tried; finding none is not an
// error.
func Load(cli *CLI, p Profile) (*Config, error) {
	var cfg Config

	path := cli.Config
	if path == "" {
		path = findConfigInPaths(p.SearchPaths())
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.filePath = path
	}

	if err := cfg.checkFixed(p); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.applyCLI(cli, p)

	if err := cfg.validate(p); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.setDefaults(p)
	return &cfg, nil
}

// checkFixed rejects file values that would move a fixed profile.
func (c *Config) checkFixed(p Profile) error {
	if !p.Fixed {
		return nil
	}
	if c.Upstream.BaseURL != "" && strings.TrimRight(c.Upstream.BaseURL, "/") != p.UpstreamURL {
		return fmt.Errorf("upstream.base_url is fixed to %s for %s; got %q", p.UpstreamURL, p.Name, c.Upstream.BaseURL)
	}
	if c.Server.Port != 0 && c.Server.Port != p.Port {
		return fmt.Errorf("server.port is fixed to %d for %s; got %d", p.Port, p.Name, c.Server.Port)
	}
	return nil
}

// applyCLI overrides config values with non-zero CLI flags.
func (c *Config) applyCLI(cli *CLI, p Profile) {
	if cli.Host != "" {
		c.Server.Host = cli.Host
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
	if p.Fixed {
		return
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	if cli.FlaskHost != "" {
		c.Upstream.BaseURL = cli.FlaskHost
	}
}

func (c *Config) validate(p Profile) error {
	if c.Upstream.BaseURL != "" {
		u, err := url.Parse(c.Upstream.BaseURL)
		if err != nil {
			return fmt.Errorf("upstream.base_url is not a valid URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("upstream.base_url must use http or https; got %q", c.Upstream.BaseURL)
		}
		if u.Host == "" {
			return fmt.Errorf("upstream.base_url has no host; got %q", c.Upstream.BaseURL)
		}
	}

	// Numeric bounds.
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 0–65535; got %d", c.Server.Port)
	}
	if c.Server.BodyMaxBytes < 0 {
		return fmt.Errorf("server.body_max_bytes must be non-negative; got %d", c.Server.BodyMaxBytes)
	}
	if c.Upstream.TimeoutSeconds < 0 {
		return fmt.Errorf("upstream.timeout_seconds must be non-negative; got %d", c.Upstream.TimeoutSeconds)
	}
	if c.Upstream.IdleConnections < 0 {
		return fmt.Errorf("upstream.idle_connections must be non-negative; got %d", c.Upstream.IdleConnections)
	}
	if c.Upstream.MaxResponseBytes < 0 {
		return fmt.Errorf("upstream.max_response_bytes must be non-negative; got %d", c.Upstream.MaxResponseBytes)
	}

	// Log fields.
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error", "":
		// valid
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text", "":
		// valid
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format)
	}

	// Metrics path validation (only when metrics are enabled).
	if c.Metrics.Enabled && c.Metrics.Path != "" {
		mp := c.Metrics.Path
		if mp[0] != '/' {
			return fmt.Errorf("metrics.path must start with '/'; got %q", mp)
		}
		if mp == "/" {
			return fmt.Errorf("metrics.path %q conflicts with reserved route %q", mp, "/")
		}
		for _, reserved := range ReservedPaths(p) {
			if mp == reserved || strings.HasPrefix(mp, reserved+"/") {
				return fmt.Errorf("metrics.path %q conflicts with reserved route %q", mp, reserved)
			}
		}
	}

	return nil
}

// ReservedPaths returns every non-root path the profile serves besides metrics.
func ReservedPaths(p Profile) []string {
	return append([]string{"/healthz", "/relay/status"}, model.Paths(p.Routes)...)
}

// setDefaults fills zero-valued fields with profile and built-in defaults.
// For integer fields zero means "unset" because TOML cannot distinguish an
// explicit 0 from an omitted key.
func (c *Config) setDefaults(p Profile) {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = p.Port
	}
	if c.Server.BodyMaxBytes == 0 {
		c.Server.BodyMaxBytes = 100 * 1024 // 100 KiB
	}
	if len(c.Server.CORS.AllowedOrigins) == 0 {
		c.Server.CORS.AllowedOrigins = []string{"*"}
	}
	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = p.UpstreamURL
	}
	c.Upstream.BaseURL = strings.TrimRight(c.Upstream.BaseURL, "/")
	if c.Upstream.TimeoutSeconds == 0 {
		c.Upstream.TimeoutSeconds = 30
	}
	if c.Upstream.IdleConnections == 0 {
		c.Upstream.IdleConnections = 100
	}
	if c.Upstream.MaxResponseBytes == 0 {
		c.Upstream.MaxResponseBytes = 10 * 1024 * 1024 // 10 MB
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// findConfigInPaths returns the first path that exists on disk, or empty string.
func findConfigInPaths(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Addr returns the server listen address as host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// WarnPermissions logs a warning if the config file is readable by group or others.
func (c *Config) WarnPermissions(logger *slog.Logger) {
	if c.filePath == "" {
		return
	}
	info, err := os.Stat(c.filePath)
	if err != nil {
		return
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Warn("config file is readable by group/others; consider chmod 600",
			"path", c.filePath,
			"mode", fmt.Sprintf("%04o", perm),
		)
	}
}
