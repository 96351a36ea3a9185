// Package config loads application settings. Values are layered from
// built-in defaults, an optional YAML file, KNOLDECK_ environment variables
// and explicitly set command line flags, in that order.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/conorfennell/knoldeck/internal/domain"
)

const (
	appName   = "knoldeck"
	envPrefix = "KNOLDECK_"
)

// Config holds the application settings.
type Config struct {
	DBPath    string `koanf:"db_path" validate:"required"`
	LogLevel  string `koanf:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Listen is the address the JSON API binds to in serve mode.
	Listen string `koanf:"listen" validate:"required"`
	// CheckInterval is how often serve mode runs the due check.
	CheckInterval time.Duration `koanf:"check_interval" validate:"gte=0"`
	// VerifyInterval is how often serve mode verifies the counters. Zero
	// disables it.
	VerifyInterval time.Duration `koanf:"verify_interval" validate:"gte=0"`

	// Deck seeds the configuration of a newly created collection.
	Deck domain.DeckConfig `koanf:"deck"`
}

// LoadOptions selects the sources Load reads besides the defaults.
type LoadOptions struct {
	// File is an explicit config file. It must exist when set; otherwise the
	// default file is read if present.
	File string
	// Flags are merged last; only flags changed on the command line count.
	Flags *pflag.FlagSet
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// DataDir returns the directory holding the database.
func DataDir() string {
	xdg.Reload()
	return filepath.Join(xdg.DataHome, appName)
}

// DefaultFile returns the config file read when none is given.
func DefaultFile() string {
	xdg.Reload()
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		DBPath:         filepath.Join(DataDir(), "deck.db"),
		LogLevel:       "info",
		LogFormat:      "text",
		Listen:         "127.0.0.1:8080",
		CheckInterval:  time.Minute,
		VerifyInterval: time.Hour,
		Deck:           domain.DefaultDeckConfig(),
	}
}

// Load builds the configuration and validates it.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	path, required := opts.File, true
	if path == "" {
		path, required = DefaultFile(), false
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if required || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if opts.Flags != nil {
		err := k.Load(posflag.ProviderWithFlag(opts.Flags, ".", nil, func(f *pflag.Flag) (string, any) {
			if f.Name == "config" || f.Name == "help" {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(opts.Flags, f)
		}), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings, including the seed deck configuration.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Level maps LogLevel to a slog level.
func (c Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// NewLogger builds the process logger writing to w.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level()}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
