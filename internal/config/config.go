// Package config loads the optional arbor.yaml project file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the project file looked up in the working directory.
const DefaultPath = "arbor.yaml"

// Config is the project configuration. Command-line flags override it.
type Config struct {
	Store    string      `yaml:"store" validate:"oneof=file redis memory"`
	Dir      string      `yaml:"dir" validate:"required_if=Store file"`
	Format   string      `yaml:"format" validate:"oneof=yaml json"`
	LogLevel string      `yaml:"log_level" validate:"oneof=debug info warn error"`
	Redis    RedisConfig `yaml:"redis"`
	Lock     LockConfig  `yaml:"lock"`
	Serve    ServeConfig `yaml:"serve"`

	Encryption EncryptionConfig `yaml:"encryption"`
}

// RedisConfig configures the redis store and locker.
type RedisConfig struct {
	Addr     string        `yaml:"addr" validate:"omitempty,hostname_port"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" validate:"gte=0,lte=15"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl" validate:"gte=0"`
}

// LockConfig configures single-editor locking.
type LockConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl" validate:"gte=0"`
	Wait    time.Duration `yaml:"wait" validate:"gte=0"`
}

// ServeConfig configures the HTTP editor.
type ServeConfig struct {
	Addr   string `yaml:"addr" validate:"required,hostname_port"`
	Reload bool   `yaml:"reload"`
}

// EncryptionConfig enables at-rest encryption of stored trees.
// Keys are base64 encoded 32-byte AES keys; fallbacks only decrypt.
type EncryptionConfig struct {
	Key          string   `yaml:"key" validate:"omitempty,base64"`
	FallbackKeys []string `yaml:"fallback_keys" validate:"omitempty,dive,base64"`
}

// Enabled reports whether a key is configured.
func (e EncryptionConfig) Enabled() bool {
	return e.Key != ""
}

// Default returns the configuration used when no project file exists.
func Default() Config {
	return Config{
		Store:    "file",
		Dir:      "trees",
		Format:   "yaml",
		LogLevel: "warn",
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "arbor:tree:",
		},
		Lock: LockConfig{
			TTL:  30 * time.Second,
			Wait: 2 * time.Second,
		},
		Serve: ServeConfig{
			Addr:   ":8080",
			Reload: true,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error unless required.
func Load(path string, required bool) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks the struct tags and the cross-field rules.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	if c.Store == "redis" && c.Redis.Addr == "" {
		return errors.New("redis.addr is required when store is redis")
	}
	if len(c.Encryption.FallbackKeys) > 0 && !c.Encryption.Enabled() {
		return errors.New("encryption.fallback_keys requires encryption.key")
	}
	if c.Lock.Enabled && c.Lock.TTL < time.Second {
		return errors.New("lock.ttl must be at least 1s when locking is enabled")
	}
	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(strings.TrimPrefix(e.Namespace(), "Config."))
	switch e.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "hostname_port":
		return fmt.Sprintf("%s must be host:port", field)
	case "base64":
		return fmt.Sprintf("%s must be base64", field)
	case "gte", "lte":
		return fmt.Sprintf("%s is out of range (%s %s)", field, e.Tag(), e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
