// Package config loads service configuration from a YAML file, an optional
// .env file and DICE_* environment variables, in increasing precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

type Config struct {
	Env     string  `yaml:"env"`
	HTTP    HTTP    `yaml:"http"`
	Backend Backend `yaml:"backend"`
	Journal Journal `yaml:"journal"`
	Widgets Widgets `yaml:"widgets"`
}

type HTTP struct {
	Address        string        `yaml:"address"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// Backend configures the wagering backend client.
type Backend struct {
	URL            string        `yaml:"url"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	BaseRetryDelay time.Duration `yaml:"base_retry_delay"`
	MaxRetryDelay  time.Duration `yaml:"max_retry_delay"`
	MaxBetCents    int64         `yaml:"max_bet_cents"`
}

type Journal struct {
	Path string `yaml:"path"`
}

// Widgets controls how long idle widget sessions are kept.
type Widgets struct {
	TTL             time.Duration `yaml:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Env: EnvLocal,
		HTTP: HTTP{
			Address:        "127.0.0.1:8080",
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    60 * time.Second,
			RequestTimeout: 20 * time.Second,
			AllowedOrigins: []string{"*"},
		},
		Backend: Backend{
			URL:            "http://127.0.0.1:8000",
			ConnectTimeout: 5 * time.Second,
			Timeout:        15 * time.Second,
			MaxRetries:     3,
			BaseRetryDelay: 250 * time.Millisecond,
			MaxRetryDelay:  2 * time.Second,
			MaxBetCents:    300000_00,
		},
		Journal: Journal{Path: "dice-journal.db"},
		Widgets: Widgets{
			TTL:             30 * time.Minute,
			CleanupInterval: 5 * time.Minute,
		},
	}
}

// Load builds the configuration. path is an optional YAML file; envFile is
// an optional .env file whose variables do not override the process
// environment. Missing files are skipped.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := decodeYAML(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// MustLoad is Load for main; it exits on error.
func MustLoad(path, envFile string) Config {
	cfg, err := Load(path, envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return cfg
}

func decodeYAML(raw []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

type lookupFunc func(string) (string, bool)

// applyEnv overrides cfg from DICE_* variables.
func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		*dst = d
		return nil
	}
	integer := func(key string, dst *int64) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("DICE_ENV", &cfg.Env)
	str("DICE_HTTP_ADDRESS", &cfg.HTTP.Address)
	str("DICE_BACKEND_URL", &cfg.Backend.URL)
	str("DICE_JOURNAL_PATH", &cfg.Journal.Path)
	if v, ok := lookup("DICE_ALLOWED_ORIGINS"); ok && v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}

	retries := int64(cfg.Backend.MaxRetries)
	for _, f := range []func() error{
		func() error { return dur("DICE_HTTP_REQUEST_TIMEOUT", &cfg.HTTP.RequestTimeout) },
		func() error { return dur("DICE_BACKEND_CONNECT_TIMEOUT", &cfg.Backend.ConnectTimeout) },
		func() error { return dur("DICE_BACKEND_TIMEOUT", &cfg.Backend.Timeout) },
		func() error { return dur("DICE_WIDGET_TTL", &cfg.Widgets.TTL) },
		func() error { return integer("DICE_BACKEND_MAX_RETRIES", &retries) },
		func() error { return integer("DICE_BACKEND_MAX_BET_CENTS", &cfg.Backend.MaxBetCents) },
	} {
		if err := f(); err != nil {
			return err
		}
	}
	cfg.Backend.MaxRetries = int(retries)
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		return fmt.Errorf("config: env must be one of local, dev, prod, got %q", c.Env)
	}
	if c.HTTP.Address == "" {
		return errors.New("config: http.address is required")
	}
	u, err := url.Parse(c.Backend.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: backend.url must be an http(s) URL, got %q", c.Backend.URL)
	}
	if c.Backend.ConnectTimeout <= 0 || c.Backend.Timeout <= 0 {
		return errors.New("config: backend timeouts must be positive")
	}
	if c.Backend.ConnectTimeout > c.Backend.Timeout {
		return errors.New("config: backend.connect_timeout must not exceed backend.timeout")
	}
	if c.Backend.MaxBetCents <= 0 {
		return errors.New("config: backend.max_bet_cents must be positive")
	}
	if c.Journal.Path == "" {
		return errors.New("config: journal.path is required")
	}
	if c.Widgets.TTL <= 0 {
		return errors.New("config: widgets.ttl must be positive")
	}
	return nil
}
