package goConsole

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/MrEthical07/goConsole/guard"
	"gopkg.in/yaml.v3"
)

// ConfigEnv names the environment variable LoadConfigFromEnv reads.
const ConfigEnv = "GOCONSOLE_CONFIG"

// Config is the complete Engine configuration. Build a Config from
// DefaultConfig or LoadConfig and adjust fields before passing it to
// Builder.WithConfig; the Engine keeps its own copy.
type Config struct {
	HTTP          HTTPConfig         `yaml:"http"`
	Storage       StorageConfig      `yaml:"storage"`
	MapLoader     MapLoaderConfig    `yaml:"map_loader"`
	Guard         GuardConfig        `yaml:"guard"`
	Notifications NotificationConfig `yaml:"notifications"`
	Session       SessionConfig      `yaml:"session"`
	Audit         AuditConfig        `yaml:"audit"`
	Metrics       MetricsConfig      `yaml:"metrics"`
}

/*
====================================
HTTP CONFIG
====================================
*/

// HTTPConfig configures the request pipeline.
type HTTPConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageConfig selects the durable key-value backend. With an empty
// RedisAddr and no Builder.WithRedis/WithStorage the Engine keeps state in
// process memory.
type StorageConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPassword string `yaml:"redis_password"`
	Prefix        string `yaml:"prefix"`
}

/*
====================================
MAP LOADER CONFIG
====================================
*/

// MapLoaderConfig configures the map SDK loader.
type MapLoaderConfig struct {
	ScriptURL      string        `yaml:"script_url"`
	Version        string        `yaml:"version"`
	APIKey         string        `yaml:"api_key"`
	MaxRetries     int           `yaml:"max_retries"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
	BackoffBase    time.Duration `yaml:"backoff_base"`
}

/*
====================================
GUARD CONFIG
====================================
*/

// GuardConfig configures navigation guarding.
type GuardConfig struct {
	EntryPath       string `yaml:"entry_path"`
	LandingPath     string `yaml:"landing_path"`
	SafeDefaultPath string `yaml:"safe_default_path"`
	// ApprovalFailurePolicy is "fail_open" (default) or "fail_closed".
	ApprovalFailurePolicy string        `yaml:"approval_failure_policy"`
	BreakerFailures       uint32        `yaml:"breaker_failures"`
	BreakerCooldown       time.Duration `yaml:"breaker_cooldown"`
}

// NotificationConfig sets how long transient notifications stay visible.
type NotificationConfig struct {
	ErrorDuration         time.Duration `yaml:"error_duration"`
	SessionExpiryDuration time.Duration `yaml:"session_expiry_duration"`
	GuardDuration         time.Duration `yaml:"guard_duration"`
}

// SessionConfig configures token inspection on restore.
type SessionConfig struct {
	// ExpiryLeeway tolerates clock skew when deciding a restored token has
	// expired.
	ExpiryLeeway time.Duration `yaml:"expiry_leeway"`
	// RestoreOnBuild rehydrates the session from storage during Build.
	RestoreOnBuild bool `yaml:"restore_on_build"`
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

// DefaultConfig returns the console defaults.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		HTTP: HTTPConfig{
			BaseURL:   "http://localhost:8000/api",
			Timeout:   10 * time.Second,
			UserAgent: "goConsole",
		},
		Storage: StorageConfig{
			Prefix: "gc",
		},
		MapLoader: MapLoaderConfig{
			ScriptURL:      "https://webapi.amap.com/maps",
			Version:        "2.0",
			MaxRetries:     3,
			AttemptTimeout: 10 * time.Second,
			BackoffBase:    time.Second,
		},
		Guard: GuardConfig{
			EntryPath:             "/",
			LandingPath:           "/home",
			SafeDefaultPath:       "/home",
			ApprovalFailurePolicy: "fail_open",
			BreakerFailures:       3,
			BreakerCooldown:       30 * time.Second,
		},
		Notifications: NotificationConfig{
			ErrorDuration:         5 * time.Second,
			SessionExpiryDuration: 3 * time.Second,
			GuardDuration:         3 * time.Second,
		},
		Session: SessionConfig{
			ExpiryLeeway:   30 * time.Second,
			RestoreOnBuild: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

// LoadConfig reads a YAML file over DefaultConfig. Fields absent from the
// file keep their defaults. The result is validated.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfigFromEnv loads the file named by GOCONSOLE_CONFIG. When the
// variable is unset it returns DefaultConfig.
func LoadConfigFromEnv() (Config, error) {
	path := strings.TrimSpace(os.Getenv(ConfigEnv))
	if path == "" {
		return defaultConfig(), nil
	}
	return LoadConfig(path)
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first inconsistent setting, wrapped with
// ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) validate() error {
	// HTTP
	if c.HTTP.BaseURL == "" {
		return errors.New("HTTP BaseURL must be set")
	}
	if u, err := url.Parse(c.HTTP.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("HTTP BaseURL must be an absolute URL")
	}
	if c.HTTP.Timeout <= 0 {
		return errors.New("HTTP Timeout must be > 0")
	}

	// Storage
	if c.Storage.Prefix == "" {
		return errors.New("Storage Prefix must be set")
	}
	if c.Storage.RedisDB < 0 {
		return errors.New("Storage RedisDB must be >= 0")
	}

	// Map loader
	if c.MapLoader.ScriptURL == "" {
		return errors.New("MapLoader ScriptURL must be set")
	}
	if c.MapLoader.MaxRetries < 1 {
		return errors.New("MapLoader MaxRetries must be >= 1")
	}
	if c.MapLoader.AttemptTimeout <= 0 {
		return errors.New("MapLoader AttemptTimeout must be > 0")
	}
	if c.MapLoader.BackoffBase < 0 {
		return errors.New("MapLoader BackoffBase must be >= 0")
	}

	// Guard
	for name, p := range map[string]string{
		"EntryPath":       c.Guard.EntryPath,
		"LandingPath":     c.Guard.LandingPath,
		"SafeDefaultPath": c.Guard.SafeDefaultPath,
	} {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("Guard %s must be an absolute path", name)
		}
	}
	if c.Guard.EntryPath == c.Guard.LandingPath {
		return errors.New("Guard EntryPath and LandingPath must differ")
	}
	if _, ok := guard.ParseApprovalFailurePolicy(c.Guard.ApprovalFailurePolicy); !ok {
		return fmt.Errorf("Guard ApprovalFailurePolicy %q is invalid", c.Guard.ApprovalFailurePolicy)
	}
	if c.Guard.BreakerFailures == 0 {
		return errors.New("Guard BreakerFailures must be > 0")
	}
	if c.Guard.BreakerCooldown <= 0 {
		return errors.New("Guard BreakerCooldown must be > 0")
	}

	// Notifications
	if c.Notifications.ErrorDuration <= 0 || c.Notifications.SessionExpiryDuration <= 0 || c.Notifications.GuardDuration <= 0 {
		return errors.New("Notifications durations must be > 0")
	}

	// Session
	if c.Session.ExpiryLeeway < 0 {
		return errors.New("Session ExpiryLeeway must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}
	return nil
}

func (c *Config) approvalFailurePolicy() guard.ApprovalFailurePolicy {
	p, _ := guard.ParseApprovalFailurePolicy(c.Guard.ApprovalFailurePolicy)
	return p
}
