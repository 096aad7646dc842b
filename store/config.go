package store

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/ThatForkyDev/membase/errors"
	"github.com/ThatForkyDev/membase/metric"
)

// Type selects the store implementation.
type Type string

const (
	// TypeMemory is a plain single-goroutine store.
	TypeMemory Type = "memory"

	// TypeSynchronized guards a memory store with one mutex.
	TypeSynchronized Type = "synchronized"

	// TypeExpiring is a single-goroutine store with a timed policy.
	TypeExpiring Type = "expiring"

	// TypeExpiringSynchronized is a synchronized store with a timed policy
	// swept in the background.
	TypeExpiringSynchronized Type = "expiring_synchronized"
)

// ExpirationConfig configures the timed policy of expiring stores.
type ExpirationConfig struct {
	// TTL is how long a member lives after it was added or last fetched.
	TTL time.Duration `json:"ttl" yaml:"ttl"`

	// ResetOnAccess restarts a member's TTL whenever a query returns it.
	ResetOnAccess bool `json:"reset_on_access" yaml:"reset_on_access"`
}

// MetricsConfig configures Prometheus export.
type MetricsConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Prefix is the component label of every exported metric.
	Prefix string `json:"prefix" yaml:"prefix"`
}

// Config contains configuration for store creation.
type Config struct {
	Type       Type             `json:"type" yaml:"type"`
	Expiration ExpirationConfig `json:"expiration" yaml:"expiration"`
	Metrics    MetricsConfig    `json:"metrics" yaml:"metrics"`
}

// DefaultConfig returns a default store configuration.
func DefaultConfig() Config {
	return Config{
		Type: TypeMemory,
		Expiration: ExpirationConfig{
			TTL: 5 * time.Minute,
		},
		Metrics: MetricsConfig{
			Prefix: "store",
		},
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	switch c.Type {
	case TypeMemory, TypeSynchronized:
		// No additional validation needed
	case TypeExpiring, TypeExpiringSynchronized:
		if c.Expiration.TTL <= 0 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "store", "Validate",
				fmt.Sprintf("expiration.ttl must be positive for %s store, got %v", c.Type, c.Expiration.TTL))
		}
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "store", "Validate",
			fmt.Sprintf("unknown store type: %q", c.Type))
	}

	if c.Metrics.Enabled && c.Metrics.Prefix == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "store", "Validate",
			"metrics.prefix is required when metrics are enabled")
	}

	return nil
}

// NewFromConfig creates a store based on the provided configuration.
// When metrics are enabled and registry is non-nil, stats are exported under
// the configured prefix. Expiring types get a timed policy built from
// config.Expiration and the clock from options.
func NewFromConfig[V any](config Config, registry *metric.MetricsRegistry, options ...Option[V]) (Store[V], error) {
	if err := config.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "store", "NewFromConfig", "config validation failed")
	}

	if config.Metrics.Enabled && registry != nil {
		options = append(options, WithMetrics[V](registry, config.Metrics.Prefix))
	}

	switch config.Type {
	case TypeMemory:
		m, err := NewMemory[V](options...)
		if err != nil {
			return nil, err
		}
		return m, nil

	case TypeSynchronized:
		s, err := NewSynchronized[V](options...)
		if err != nil {
			return nil, err
		}
		return s, nil

	case TypeExpiring:
		s, err := NewExpiring[V](options...)
		if err != nil {
			return nil, err
		}
		if err := addTimedPolicy[V](s, config.Expiration, options); err != nil {
			return nil, err
		}
		return s, nil

	case TypeExpiringSynchronized:
		s, err := NewExpiringSynchronized[V](options...)
		if err != nil {
			return nil, err
		}
		if err := addTimedPolicy[V](s, config.Expiration, options); err != nil {
			return nil, err
		}
		return s, nil

	default:
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "store", "NewFromConfig",
			fmt.Sprintf("unsupported store type: %s", config.Type))
	}
}

func addTimedPolicy[V any](s ExpiringStore[V], cfg ExpirationConfig, options []Option[V]) error {
	clk := applyOptions(options...).clock
	if err := s.AddPolicy(NewTimedPolicy[V](cfg.TTL, cfg.ResetOnAccess, clk)); err != nil {
		_ = s.Close()
		return errors.WrapFatal(err, "store", "NewFromConfig", "add timed policy")
	}
	return nil
}

//go:embed config.schema.json
var configSchema []byte

// ConfigSchema returns the JSON schema configuration files are checked
// against before decoding.
func ConfigSchema() []byte {
	return slices.Clone(configSchema)
}

// LoadConfig reads a configuration file, YAML or JSON by extension, checks
// it against ConfigSchema, decodes it over DefaultConfig and validates it.
// An empty file yields the defaults.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return config, errors.WrapInvalid(err, "store", "LoadConfig", "read config file")
	}

	var unmarshal func([]byte, any) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		unmarshal = yaml.Unmarshal
	case ".json":
		unmarshal = json.Unmarshal
	default:
		return config, errors.WrapInvalid(errors.ErrInvalidConfig, "store", "LoadConfig",
			fmt.Sprintf("unsupported config extension %q", filepath.Ext(path)))
	}

	var document any
	if err := unmarshal(data, &document); err != nil {
		return config, errors.WrapInvalid(err, "store", "LoadConfig", "decode config file")
	}
	if document == nil {
		return config, config.Validate()
	}
	if err := checkSchema(document); err != nil {
		return config, err
	}

	if err := unmarshal(data, &config); err != nil {
		return config, errors.WrapInvalid(err, "store", "LoadConfig", "decode config file")
	}
	return config, config.Validate()
}

// checkSchema reports every schema violation of document in one error.
func checkSchema(document any) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(configSchema),
		gojsonschema.NewGoLoader(document),
	)
	if err != nil {
		return errors.WrapInvalid(err, "store", "LoadConfig", "check config schema")
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return errors.WrapInvalid(
		fmt.Errorf("%w: %s", errors.ErrInvalidConfig, strings.Join(problems, "; ")),
		"store", "LoadConfig", "check config schema")
}

// UnmarshalJSON implements custom JSON unmarshaling for ExpirationConfig to
// support duration strings (e.g., "1h", "5m", "30s") in addition to
// nanosecond integers.
func (c *ExpirationConfig) UnmarshalJSON(data []byte) error {
	// Use an alias to avoid infinite recursion
	type Alias ExpirationConfig

	aux := &struct {
		TTL json.RawMessage `json:"ttl,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(c),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if len(aux.TTL) > 0 {
		ttl, err := parseDurationField(aux.TTL, "ttl")
		if err != nil {
			return err
		}
		c.TTL = ttl
	}

	return nil
}

// parseDurationField parses a JSON duration field that can be either:
// - An integer (nanoseconds)
// - A string (duration like "1h", "5m", "30s")
func parseDurationField(data json.RawMessage, fieldName string) (time.Duration, error) {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		duration, err := time.ParseDuration(str)
		if err != nil {
			return 0, fmt.Errorf("invalid duration string for %s: %w", fieldName, err)
		}
		return duration, nil
	}

	var nsec int64
	if err := json.Unmarshal(data, &nsec); err != nil {
		return 0, fmt.Errorf("field %s must be either a duration string (e.g., '1h') or integer nanoseconds", fieldName)
	}
	return time.Duration(nsec), nil
}
