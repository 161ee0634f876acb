package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Vault       VaultConfig     `toml:"vault"`
	Portal      PortalConfig    `toml:"portal"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// VaultConfig carries the session-vault settings. EncryptionKey is the
// operator passphrase used to derive the AES key; it is required before any
// session can be created or decrypted.
type VaultConfig struct {
	EncryptionKey string `toml:"encryption_key"`
}

// PortalConfig describes the enrollment portal the automation drives.
type PortalConfig struct {
	BaseURL           string        `toml:"base_url"`           // e.g. https://portal.example.com
	SearchPath        string        `toml:"search_path"`        // customer-search form path
	LoginPath         string        `toml:"login_path"`         // portal login entry path
	SSOBridgePath     string        `toml:"sso_bridge_path"`    // cross-domain SSO bridge path
	IdPURLPattern     string        `toml:"idp_url_pattern"`    // substring marking the identity-provider redirect flow
	SelectorProfile   string        `toml:"selector_profile"`   // optional path to a selector profile YAML (overrides embedded default)
	AutomationTimeout time.Duration `toml:"automation_timeout"` // ceiling for a single navigation/readiness wait
	QuietWindow       time.Duration `toml:"quiet_window"`       // DOM quiescence window
	SearchRateLimit   time.Duration `toml:"search_rate_limit"`  // minimum delay between portal searches
	Headless          bool          `toml:"headless"`           // run Chrome headless
	UserAgent         string        `toml:"user_agent"`         // browser user agent
}

// SchedulerConfig configures background maintenance.
type SchedulerConfig struct {
	SessionSweepSchedule string `toml:"session_sweep_schedule"` // cron schedule for expiring stale sessions
}

// NewDefaultConfig creates a configuration with default values.
// Only user-facing settings should be exposed in fieldreach.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Vault: VaultConfig{
			EncryptionKey: "", // Operator must provide; refused at the vault boundary if empty
		},
		Portal: PortalConfig{
			SearchPath:        "/customer-search",
			LoginPath:         "/login",
			SSOBridgePath:     "/sso/bridge",
			IdPURLPattern:     "/idp/",
			AutomationTimeout: 30 * time.Second,
			QuietWindow:       750 * time.Millisecond,
			SearchRateLimit:   2 * time.Second,
			Headless:          true,
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		Scheduler: SchedulerConfig{
			SessionSweepSchedule: "*/15 * * * *", // Every 15 minutes
		},
	}
}

// LoadFromFiles loads configuration from files with priority:
// defaults -> file1 -> file2 -> ... -> env. Later files override earlier.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FIELDREACH_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("FIELDREACH_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("FIELDREACH_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if badgerPath := os.Getenv("FIELDREACH_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if level := os.Getenv("FIELDREACH_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	// The encryption key is normally provided via environment, not the file
	if key := os.Getenv("FIELDREACH_VAULT_KEY"); key != "" {
		config.Vault.EncryptionKey = key
	}

	if baseURL := os.Getenv("FIELDREACH_PORTAL_BASE_URL"); baseURL != "" {
		config.Portal.BaseURL = baseURL
	}
	if pattern := os.Getenv("FIELDREACH_PORTAL_IDP_URL_PATTERN"); pattern != "" {
		config.Portal.IdPURLPattern = pattern
	}
	if timeout := os.Getenv("FIELDREACH_PORTAL_AUTOMATION_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Portal.AutomationTimeout = d
		}
	}
	if headless := os.Getenv("FIELDREACH_PORTAL_HEADLESS"); headless != "" {
		if h, err := strconv.ParseBool(headless); err == nil {
			config.Portal.Headless = h
		}
	}

	if schedule := os.Getenv("FIELDREACH_SESSION_SWEEP_SCHEDULE"); schedule != "" {
		config.Scheduler.SessionSweepSchedule = schedule
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}
