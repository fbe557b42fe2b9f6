package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	Workers     int           `toml:"workers"`
	MaxAttempts int           `toml:"max_attempts"`
	Timeout     time.Duration `toml:"timeout"`
	StateDB     string        `toml:"state_db"`
	LogLevel    string        `toml:"log_level"`
	LogFile     string        `toml:"log_file"`
	Listen      string        `toml:"listen"`

	MangaDex MangaDex `toml:"mangadex"`
	Podcasts Podcasts `toml:"podcasts"`
}

// MangaDex configures the mangadex command.
type MangaDex struct {
	API         string `toml:"api"`
	Language    string `toml:"language"`
	Destination string `toml:"destination"`
}

// Podcasts configures the podcasts commands.
type Podcasts struct {
	SearchURL string `toml:"search_url"`
	APIKey    string `toml:"api_key"`
	Index     string `toml:"index"`
	Poll      Poll   `toml:"poll"`
}

// Poll is the backoff schedule for batch status polling.
type Poll struct {
	InitialDelay time.Duration `toml:"initial_delay"`
	Factor       float64       `toml:"factor"`
	Ceiling      time.Duration `toml:"ceiling"`
}

// DefaultConfigPath returns the config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "get", "config.toml")
}

// DefaultDBPath returns the default state database path using XDG_CACHE_HOME.
func DefaultDBPath() string {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, _ := os.UserHomeDir()
		cacheDir = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheDir, "get", "state.db")
}

// DefaultDestination returns the default download directory.
func DefaultDestination() string {
	home, _ := os.UserHomeDir()
	return "file://" + filepath.ToSlash(filepath.Join(home, "Manga"))
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Workers:  runtime.NumCPU(),
		Timeout:  30 * time.Second,
		StateDB:  DefaultDBPath(),
		LogLevel: "info",
		MangaDex: MangaDex{
			API:         "https://api.mangadex.org/v2/",
			Language:    "gb",
			Destination: DefaultDestination(),
		},
		Podcasts: Podcasts{
			SearchURL: "http://127.0.0.1:7700",
			Index:     "episodes",
			Poll: Poll{
				InitialDelay: 250 * time.Millisecond,
				Factor:       2,
				Ceiling:      60 * time.Second,
			},
		},
	}
}

// LoadOptions says where Load looks.
type LoadOptions struct {
	// File is the TOML config. When empty DefaultConfigPath is used and may
	// be missing.
	File string

	// EnvFile is a dotenv file loaded into the environment before overrides
	// are read. Variables already set win. Default: .env, may be missing.
	EnvFile string
}

// Load builds Config from defaults, the config file, the dotenv file and
// GET_* environment variables, in that order.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	file, required := opts.File, true
	if file == "" {
		file, required = DefaultConfigPath(), false
	}
	if _, err := toml.DecodeFile(file, cfg); err != nil {
		if required || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config %s: %w", file, err)
		}
	}

	envFile, required := opts.EnvFile, true
	if envFile == "" {
		envFile, required = ".env", false
	}
	if err := godotenv.Load(envFile); err != nil {
		if required || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("env file %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"GET_STATE_DB":       &c.StateDB,
		"GET_LOG_LEVEL":      &c.LogLevel,
		"GET_LOG_FILE":       &c.LogFile,
		"GET_LISTEN":         &c.Listen,
		"GET_MANGADEX_API":   &c.MangaDex.API,
		"GET_LANGUAGE":       &c.MangaDex.Language,
		"GET_DESTINATION":    &c.MangaDex.Destination,
		"GET_SEARCH_URL":     &c.Podcasts.SearchURL,
		"GET_SEARCH_API_KEY": &c.Podcasts.APIKey,
		"GET_INDEX":          &c.Podcasts.Index,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"GET_WORKERS":      &c.Workers,
		"GET_MAX_ATTEMPTS": &c.MaxAttempts,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}

	if v := os.Getenv("GET_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("GET_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Workers <= 0:
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	case c.MaxAttempts < 0:
		return fmt.Errorf("max_attempts must not be negative, got %d", c.MaxAttempts)
	case c.Timeout <= 0:
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	case c.Podcasts.Poll.InitialDelay <= 0:
		return fmt.Errorf("poll initial_delay must be positive, got %s", c.Podcasts.Poll.InitialDelay)
	case c.Podcasts.Poll.Factor < 1:
		return fmt.Errorf("poll factor must be at least 1, got %g", c.Podcasts.Poll.Factor)
	case c.Podcasts.Poll.Ceiling <= 0:
		return fmt.Errorf("poll ceiling must be positive, got %s", c.Podcasts.Poll.Ceiling)
	}
	return nil
}
