// Package config loads basketscore settings from a YAML file, an optional
// .env file and BASKETSCORE_* environment variables, in increasing order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/LadyMermelada/basketscore/internal/db"
)

const (
	EnvRemoteURL = "BASKETSCORE_REMOTE_URL"
	EnvAnonKey   = "BASKETSCORE_ANON_KEY"
	EnvJWTSecret = "BASKETSCORE_JWT_SECRET"
	EnvDB        = "BASKETSCORE_DB"
	EnvLogLevel  = "BASKETSCORE_LOG_LEVEL"
	EnvServerDB  = "BASKETSCORE_SERVER_DB"
	EnvAddr      = "BASKETSCORE_ADDR"
)

type Config struct {
	// Dir holds the device database, the session file and the log.
	Dir      string `yaml:"-"`
	DBPath   string `yaml:"db_path"`
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`

	Remote Remote `yaml:"remote"`
	Server Server `yaml:"server"`
	Stats  Stats  `yaml:"stats"`
}

// Remote points the app at a remote record collection. An empty URL keeps
// the app in guest mode.
type Remote struct {
	URL     string        `yaml:"url"`
	AnonKey string        `yaml:"anon_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// Server configures the reference record server.
type Server struct {
	Addr      string        `yaml:"addr"`
	DBPath    string        `yaml:"db_path"`
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// Stats tunes the dashboard.
type Stats struct {
	WindowDays  int `yaml:"window_days"`
	TrendPoints int `yaml:"trend_points"`
}

// Default returns the settings used when nothing is configured, rooted at
// dir.
func Default(dir string) Config {
	return Config{
		Dir:      dir,
		DBPath:   filepath.Join(dir, "basketscore.db"),
		LogLevel: "info",
		LogFile:  filepath.Join(dir, "basketscore.log"),
		Remote: Remote{
			Timeout: 15 * time.Second,
		},
		Server: Server{
			Addr:     ":8787",
			DBPath:   filepath.Join(dir, "records.db"),
			TokenTTL: 7 * 24 * time.Hour,
		},
		Stats: Stats{
			WindowDays:  30,
			TrendPoints: 15,
		},
	}
}

// Path returns the config file location inside dir.
func Path(dir string) string {
	return filepath.Join(dir, "config.yaml")
}

// DefaultDir returns ~/.config/basketscore
func DefaultDir() (string, error) {
	return db.DefaultDir()
}

// Load reads .env from the working directory, then the config file in dir,
// then the environment.
func Load(dir string) (Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return Config{}, err
	}
	return load(dir, os.LookupEnv)
}

// LoadDotEnv copies the variables of an env file into the process
// environment without overriding ones already set. A missing file is fine.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func load(dir string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default(dir)

	data, err := os.ReadFile(Path(dir))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(EnvRemoteURL, &c.Remote.URL)
	set(EnvAnonKey, &c.Remote.AnonKey)
	set(EnvJWTSecret, &c.Server.JWTSecret)
	set(EnvDB, &c.DBPath)
	set(EnvLogLevel, &c.LogLevel)
	set(EnvServerDB, &c.Server.DBPath)
	set(EnvAddr, &c.Server.Addr)

	if v, ok := lookup("BASKETSCORE_WINDOW_DAYS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BASKETSCORE_WINDOW_DAYS: %w", err)
		}
		c.Stats.WindowDays = n
	}
	return nil
}

// Validate rejects settings the app cannot run with.
func (c Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("db_path must not be empty")
	}
	if c.Stats.WindowDays < 0 {
		return fmt.Errorf("stats.window_days must not be negative, got %d", c.Stats.WindowDays)
	}
	if c.Stats.TrendPoints < 0 {
		return fmt.Errorf("stats.trend_points must not be negative, got %d", c.Stats.TrendPoints)
	}
	if c.Remote.Timeout < 0 {
		return fmt.Errorf("remote.timeout must not be negative, got %s", c.Remote.Timeout)
	}
	return nil
}

// HasRemote reports whether a remote record collection is configured.
func (c Config) HasRemote() bool {
	return c.Remote.URL != ""
}

// Save writes cfg to the config file in its Dir.
func Save(cfg Config) error {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(Path(cfg.Dir), data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
