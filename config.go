package sdk

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the engine configuration, loadable from a YAML file.
//
// Duration fields are strings in Go duration syntax ("30s", "5m") so the file
// stays human-editable; the Get* helpers parse them with defaults.
type Config struct {
	Store      StoreConfig      `yaml:"store"`
	Sequence   SequenceConfig   `yaml:"sequence"`
	Recurrence RecurrenceConfig `yaml:"recurrence"`
}

// StoreConfig configures the document store connection.
type StoreConfig struct {
	// RedisURL is the Redis connection string.
	RedisURL string `yaml:"redis_url"`

	// ConnectTimeout is the connection timeout as a duration string.
	ConnectTimeout string `yaml:"connect_timeout"`

	// ReadTimeout is the read timeout as a duration string.
	ReadTimeout string `yaml:"read_timeout"`

	// WriteTimeout is the write timeout as a duration string.
	WriteTimeout string `yaml:"write_timeout"`
}

// SequenceConfig configures finding number allocation.
type SequenceConfig struct {
	// Prefix is the finding number prefix (e.g., "HAL").
	Prefix string `yaml:"prefix"`

	// Backend selects the counter backend: "store" (default) or "etcd".
	Backend string `yaml:"backend"`

	// MaxRetries bounds allocation retries on transient failures.
	MaxRetries int `yaml:"max_retries"`

	// Backoff is the base retry backoff as a duration string.
	Backoff string `yaml:"backoff"`

	// EtcdEndpoints lists the etcd cluster endpoints (backend "etcd" only).
	EtcdEndpoints []string `yaml:"etcd_endpoints"`

	// EtcdNamespace prefixes etcd counter keys (backend "etcd" only).
	EtcdNamespace string `yaml:"etcd_namespace"`
}

// RecurrenceConfig configures the recurrence analyzer.
type RecurrenceConfig struct {
	// Window is the trailing scan window as a duration string.
	Window string `yaml:"window"`

	// Limit caps the number of historical matches considered.
	Limit int `yaml:"limit"`

	// MatchExpression is the CEL matching policy over `target` and
	// `candidate`. Empty means the default category + process policy.
	MatchExpression string `yaml:"match_expression"`
}

// Sequence backends.
const (
	SequenceBackendStore = "store"
	SequenceBackendEtcd  = "etcd"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			RedisURL:       "redis://localhost:6379",
			ConnectTimeout: "5s",
			ReadTimeout:    "30s",
			WriteTimeout:   "5s",
		},
		Sequence: SequenceConfig{
			Prefix:     "HAL",
			Backend:    SequenceBackendStore,
			MaxRetries: 3,
			Backoff:    "50ms",
		},
		Recurrence: RecurrenceConfig{
			Window: "8760h", // one year
			Limit:  50,
		},
	}
}

// LoadConfig reads a YAML configuration file, applying defaults for any
// fields the file omits.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Sequence.Prefix == "" {
		return fmt.Errorf("sequence.prefix cannot be empty")
	}
	switch c.Sequence.Backend {
	case "", SequenceBackendStore:
	case SequenceBackendEtcd:
		if len(c.Sequence.EtcdEndpoints) == 0 {
			return fmt.Errorf("sequence.etcd_endpoints cannot be empty with backend %q", SequenceBackendEtcd)
		}
	default:
		return fmt.Errorf("unknown sequence.backend %q", c.Sequence.Backend)
	}
	if c.Recurrence.Limit < 0 {
		return fmt.Errorf("recurrence.limit cannot be negative")
	}

	for name, value := range map[string]string{
		"store.connect_timeout": c.Store.ConnectTimeout,
		"store.read_timeout":    c.Store.ReadTimeout,
		"store.write_timeout":   c.Store.WriteTimeout,
		"sequence.backoff":      c.Sequence.Backoff,
		"recurrence.window":     c.Recurrence.Window,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", name, err)
		}
	}
	return nil
}

// GetConnectTimeout parses the store connect timeout.
func (c *StoreConfig) GetConnectTimeout() time.Duration {
	return parseDuration(c.ConnectTimeout, 5*time.Second)
}

// GetReadTimeout parses the store read timeout.
func (c *StoreConfig) GetReadTimeout() time.Duration {
	return parseDuration(c.ReadTimeout, 30*time.Second)
}

// GetWriteTimeout parses the store write timeout.
func (c *StoreConfig) GetWriteTimeout() time.Duration {
	return parseDuration(c.WriteTimeout, 5*time.Second)
}

// GetBackoff parses the sequence retry backoff.
func (c *SequenceConfig) GetBackoff() time.Duration {
	return parseDuration(c.Backoff, 50*time.Millisecond)
}

// GetWindow parses the recurrence scan window.
func (c *RecurrenceConfig) GetWindow() time.Duration {
	return parseDuration(c.Window, 365*24*time.Hour)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
