// Package config loads profilestencil.yaml with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/xob0t/ProfileStencil/internal/logging"
)

const (
	// FileName is the config file looked up in the working directory.
	FileName = "profilestencil.yaml"
	// EnvPrefix prefixes every environment override, e.g. PROFILESTENCIL_SERVER_ADDR.
	EnvPrefix = "PROFILESTENCIL"
	// PathEnv names an explicit config file.
	PathEnv = EnvPrefix + "_CONFIG"
)

type Config struct {
	Server  Server         `mapstructure:"server" yaml:"server"`
	Storage Storage        `mapstructure:"storage" yaml:"storage"`
	Assets  Assets         `mapstructure:"assets" yaml:"assets"`
	Upload  Upload         `mapstructure:"upload" yaml:"upload"`
	Log     logging.Config `mapstructure:"log" yaml:"log"`
}

type Server struct {
	Addr            string        `mapstructure:"addr" yaml:"addr" default:":8080" validate:"required"`
	SessionTTL      time.Duration `mapstructure:"session-ttl" yaml:"session-ttl" default:"30m" validate:"min=1s"`
	MaxSessions     int           `mapstructure:"max-sessions" yaml:"max-sessions" default:"256" validate:"min=1"`
	CORSOrigins     []string      `mapstructure:"cors-origins" yaml:"cors-origins" default:"[\"*\"]"`
	ReadTimeout     time.Duration `mapstructure:"read-timeout" yaml:"read-timeout" default:"30s"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout" yaml:"shutdown-timeout" default:"10s"`
}

type Storage struct {
	Type string `mapstructure:"type" yaml:"type" default:"memory" validate:"oneof=memory sqlite"`
	DSN  string `mapstructure:"dsn" yaml:"dsn" default:"profilestencil.db" validate:"required_if=Type sqlite"`
}

// Assets overrides the embedded badge and the built-in font. Empty means built-in.
type Assets struct {
	Badge string `mapstructure:"badge" yaml:"badge"`
	Font  string `mapstructure:"font" yaml:"font"`
}

type Upload struct {
	MaxBytes  int64 `mapstructure:"max-bytes" yaml:"max-bytes" default:"10485760" validate:"min=1"`
	MaxPixels int64 `mapstructure:"max-pixels" yaml:"max-pixels" default:"40000000" validate:"min=1"`
}

// keys lists every setting so environment overrides work without a file.
var keys = []string{
	"server.addr", "server.session-ttl", "server.max-sessions", "server.cors-origins",
	"server.read-timeout", "server.shutdown-timeout",
	"storage.type", "storage.dsn",
	"assets.badge", "assets.font",
	"upload.max-bytes", "upload.max-pixels",
	"log.level", "log.format", "log.file", "log.max-size", "log.max-backups", "log.max-age", "log.compress",
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns the configuration used when no file or env is present.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}
	return cfg, nil
}

// Load reads path (or $PROFILESTENCIL_CONFIG, or ./profilestencil.yaml if it
// exists), applies environment overrides and validates the result. A
// missing implicit file is not an error; a missing explicit one is.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	v := newViper()
	if path == "" {
		path = os.Getenv(PathEnv)
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Used reports the file Load read, for logging. Empty when none.
func Used(path string) string {
	if path == "" {
		path = os.Getenv(PathEnv)
	}
	if path != "" {
		return path
	}
	if _, err := os.Stat(FileName); err == nil {
		return FileName
	}
	return ""
}

// WriteDefault writes the default configuration to path. An existing file
// is left untouched and reported as an error.
func WriteDefault(path string) error {
	cfg, err := Default()
	if err != nil {
		return err
	}

	v := viper.New()
	for k, val := range cfg.settings() {
		v.Set(k, val)
	}
	if err := v.SafeWriteConfigAs(path); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
	return v
}

// settings flattens c into viper keys.
func (c *Config) settings() map[string]any {
	return map[string]any{
		"server.addr":             c.Server.Addr,
		"server.session-ttl":      c.Server.SessionTTL.String(),
		"server.max-sessions":     c.Server.MaxSessions,
		"server.cors-origins":     c.Server.CORSOrigins,
		"server.read-timeout":     c.Server.ReadTimeout.String(),
		"server.shutdown-timeout": c.Server.ShutdownTimeout.String(),
		"storage.type":            c.Storage.Type,
		"storage.dsn":             c.Storage.DSN,
		"assets.badge":            c.Assets.Badge,
		"assets.font":             c.Assets.Font,
		"upload.max-bytes":        c.Upload.MaxBytes,
		"upload.max-pixels":       c.Upload.MaxPixels,
		"log.level":               c.Log.Level,
		"log.format":              c.Log.Format,
		"log.file":                c.Log.File,
		"log.max-size":            c.Log.MaxSize,
		"log.max-backups":         c.Log.MaxBackups,
		"log.max-age":             c.Log.MaxAge,
		"log.compress":            c.Log.Compress,
	}
}
