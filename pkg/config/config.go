package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the xlogd instance configuration. Values arrive already
// parsed; flag overrides are applied by the caller after Load.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Diag   DiagConfig   `yaml:"diag"`
	Redis  RedisConfig  `yaml:"redis"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// IPPfx is stripped from client addresses in diagnostic output only.
	IPPfx string `yaml:"ippfx"`
}

type LogConfig struct {
	// Path is the flat-file template (~me~ ~y~ ~ym~ ~ymd~ ~h~ ~hm~ ~hms~
	// placeholders). Empty disables persistence, valid only with Verbose.
	Path string `yaml:"path"`
	// Verbose renders each record to the console through the viewer.
	Verbose bool `yaml:"verbose"`
	// Viewer selects the viewer implementation ("console" is the only
	// built-in).
	Viewer string `yaml:"viewer"`
}

type DiagConfig struct {
	// File, when set, tees the daemon's own diagnostics to a rolling file.
	File string `yaml:"file"`
}

type RedisConfig struct {
	// Address enables the remote-control subscriber when non-empty.
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 12321,
		},
		Log: LogConfig{
			Path:   "xlog/~ymd~.log",
			Viewer: "console",
		},
		Redis: RedisConfig{
			Channel: "xlogd_control",
		},
	}
}

// Load reads a YAML config file over the defaults. An empty path returns the
// defaults untouched.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate rejects combinations the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("bad port %d", c.Server.Port)
	}
	if c.Log.Path == "" && !c.Log.Verbose {
		return fmt.Errorf("no log path and not verbose: records would have nowhere to go")
	}
	if c.Log.Verbose && c.Log.Viewer == "" {
		return fmt.Errorf("verbose requires a viewer")
	}
	return nil
}

// ListenAddr joins host and port.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
