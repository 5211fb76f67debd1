package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 12321 {
		t.Errorf("default port = %d", cfg.Server.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xlogd.yaml")
	data := `
server:
  host: 0.0.0.0
  port: 9999
  ippfx: "192.168.1."
log:
  path: "logs/~ymd~/~hms~.log"
  verbose: true
  viewer: console
redis:
  address: "localhost:6379"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9999 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.ListenAddr() != "0.0.0.0:9999" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr())
	}
	if cfg.Log.Path != "logs/~ymd~/~hms~.log" || !cfg.Log.Verbose {
		t.Errorf("log = %+v", cfg.Log)
	}
	// Defaults survive a partial file.
	if cfg.Redis.Channel != "xlogd_control" {
		t.Errorf("redis channel = %q", cfg.Redis.Channel)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*Config)
		ok   bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"no sink", func(c *Config) { c.Log.Path = ""; c.Log.Verbose = false }, false},
		{"verbose only", func(c *Config) { c.Log.Path = ""; c.Log.Verbose = true }, true},
		{"verbose without viewer", func(c *Config) { c.Log.Verbose = true; c.Log.Viewer = "" }, false},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, false},
	}
	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mod(cfg)
		err := cfg.Validate()
		if (err == nil) != tc.ok {
			t.Errorf("%s: Validate() = %v, want ok=%v", tc.name, err, tc.ok)
		}
	}
}

func TestLoad_BadFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Error("Load accepted a missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte(":\tnot yaml"), 0o644)
	if _, err := Load(path); err == nil {
		t.Error("Load accepted malformed YAML")
	}
}
