// Package config resolves settings from defaults, an optional YAML file,
// TABSAMMLUNG_* environment variables and command-line flags, in that
// order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/lotas/tabsammlung/internal/applog"
	"github.com/lotas/tabsammlung/internal/storage"
	"gopkg.in/yaml.v3"
)

// Tab sources for the background process.
const (
	SourceExtension = "extension"
	SourceSession   = "session"
	SourceCDP       = "cdp"
)

const DefaultPort = 19292

// Config holds resolved settings.
type Config struct {
	Port    int    `yaml:"port"`
	DB      string `yaml:"db"`
	LogDir  string `yaml:"log_dir"`
	Source  string `yaml:"source"`
	Profile string `yaml:"profile"`
	CDPURL  string `yaml:"cdp_url"`
}

// Default returns the built-in settings.
func Default() Config {
	db, _ := storage.DefaultDBPath()
	return Config{
		Port:   DefaultPort,
		DB:     db,
		LogDir: applog.DefaultDir(),
		Source: SourceExtension,
		CDPURL: "http://127.0.0.1:9222",
	}
}

// Path returns the config file location: $TABSAMMLUNG_CONFIG, else
// ~/.config/tabsammlung/config.yaml.
func Path(getenv func(string) string) string {
	if p := getenv("TABSAMMLUNG_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "tabsammlung", "config.yaml")
}

// Load layers the file at path (if it exists) and the environment over
// the defaults. Unknown YAML keys are an error.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("open config: %w", err)
		default:
			defer f.Close()
			dec := yaml.NewDecoder(f)
			dec.KnownFields(true)
			if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("TABSAMMLUNG_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TABSAMMLUNG_PORT: %w", err)
		}
		c.Port = port
	}
	for env, field := range map[string]*string{
		"TABSAMMLUNG_DB":      &c.DB,
		"TABSAMMLUNG_LOG_DIR": &c.LogDir,
		"TABSAMMLUNG_SOURCE":  &c.Source,
		"TABSAMMLUNG_PROFILE": &c.Profile,
		"TABSAMMLUNG_CDP":     &c.CDPURL,
	} {
		if v := getenv(env); v != "" {
			*field = v
		}
	}
	return nil
}

// BindFlags registers the shared flags on fs with c's values as defaults.
// Parsing fs then overrides c.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.Port, "port", c.Port, "Port of the background process")
	fs.StringVar(&c.DB, "db", c.DB, "SQLite database path")
}

// BindSourceFlags registers the tab-source flags used by serve.
func (c *Config) BindSourceFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Source, "source", c.Source, "Tab source: extension, session or cdp")
	fs.StringVar(&c.Profile, "profile", c.Profile, "Firefox profile for --source session")
	fs.StringVar(&c.CDPURL, "cdp", c.CDPURL, "DevTools endpoint for --source cdp")
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	switch c.Source {
	case SourceExtension, SourceSession, SourceCDP:
	default:
		return fmt.Errorf("unknown source %q", c.Source)
	}
	return nil
}

// Addr is the listen address of the background process.
func (c Config) Addr() string {
	return fmt.Sprintf("127.0.0.1:%d", c.Port)
}

// UIURL is the WebSocket endpoint UI processes dial.
func (c Config) UIURL() string {
	return fmt.Sprintf("ws://127.0.0.1:%d/ui", c.Port)
}
