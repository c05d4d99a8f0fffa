// Package config loads the application configuration from a yaml file,
// FLASHCARDS_* environment variables, and command-line flags, in increasing
// order of precedence, then validates the result.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	flag "github.com/spf13/pflag"
)

const envPrefix = "FLASHCARDS_"

// Config is the full application configuration.
type Config struct {
	Gateway GatewayConfig `koanf:"gateway"`
	Storage StorageConfig `koanf:"storage"`
	Server  ServerConfig  `koanf:"server"`
	Sync    SyncConfig    `koanf:"sync"`
	Logger  LoggerConfig  `koanf:"logger"`
}

// GatewayConfig selects and parameterizes the remote gateway implementation.
type GatewayConfig struct {
	// Kind picks the gateway variant: "http" for the REST API client,
	// "sqlite" for direct database access.
	Kind    string        `koanf:"kind" validate:"oneof=http sqlite"`
	BaseURL string        `koanf:"base_url" validate:"required_if=Kind http,omitempty,url"`
	DSN     string        `koanf:"dsn" validate:"required_if=Kind sqlite"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// StorageConfig locates the durable local store.
type StorageConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// ServerConfig parameterizes the JSON surface.
type ServerConfig struct {
	Addr       string `koanf:"addr" validate:"required"`
	StudyLimit int    `koanf:"study_limit" validate:"gt=0"`
}

// SyncConfig tunes the mutation queue.
type SyncConfig struct {
	// SettleDelay is the wait after an online transition before flushing,
	// to avoid racing a flapping connection.
	SettleDelay   time.Duration `koanf:"settle_delay" validate:"gte=0"`
	ProbeInterval time.Duration `koanf:"probe_interval" validate:"gt=0"`
}

// LoggerConfig controls slog output.
type LoggerConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

// defaults are the built-in settings every other source layers over.
var defaults = map[string]any{
	"gateway.kind":        "http",
	"gateway.base_url":    "http://localhost:8081/api",
	"gateway.dsn":         "",
	"gateway.timeout":     10 * time.Second,
	"storage.path":        "flashcards.db",
	"server.addr":         ":8080",
	"server.study_limit":  50,
	"sync.settle_delay":   250 * time.Millisecond,
	"sync.probe_interval": 30 * time.Second,
	"logger.level":        "info",
}

// Flags returns the flag set understood by Load. Flag names mirror the
// config keys with dots.
func Flags() *flag.FlagSet {
	f := flag.NewFlagSet("flashcards", flag.ContinueOnError)
	f.String("config", "", "path to a yaml config file")
	f.String("gateway.kind", "", "gateway implementation (http or sqlite)")
	f.String("gateway.base_url", "", "base URL of the flashcard API")
	f.String("gateway.dsn", "", "sqlite DSN for the direct gateway")
	f.Duration("gateway.timeout", 0, "remote call timeout")
	f.String("storage.path", "", "path to the local database")
	f.String("server.addr", "", "listen address of the JSON surface")
	f.Int("server.study_limit", 0, "maximum cards per study batch")
	f.Duration("sync.settle_delay", 0, "delay before flushing after reconnect")
	f.Duration("sync.probe_interval", 0, "connectivity probe interval")
	f.String("logger.level", "", "log level (debug, info, warn, error)")
	return f
}

// Load builds the configuration from defaults, an optional yaml file,
// environment, and the parsed flag set.
func Load(f *flag.FlagSet) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path, _ := f.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	} else if _, err := os.Stat("flashcards.yaml"); err == nil {
		if err := k.Load(file.Provider("flashcards.yaml"), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load flashcards.yaml: %w", err)
		}
	}

	// FLASHCARDS_GATEWAY__BASE_URL -> gateway.base_url
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return Config{}, fmt.Errorf("load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
