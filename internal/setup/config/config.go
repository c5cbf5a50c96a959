package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
)

// RepositoryVersion is the repository version tag for config file references.
const RepositoryVersion = "v0.1.0"

// Current version of the config file.
const (
	CurrentCommonVersion = 1
	CurrentWorkerVersion = 1
)

// Config represents the entire application configuration.
type Config struct {
	Common CommonConfig
	Worker WorkerConfig
}

// CommonConfig contains configuration shared by every binary.
type CommonConfig struct {
	// Version of the common config.
	Version    int        `koanf:"version"`
	Debug      Debug      `koanf:"debug"`
	Retry      Retry      `koanf:"retry"`
	PostgreSQL PostgreSQL `koanf:"postgresql"`
	Redis      Redis      `koanf:"redis"`
}

// WorkerConfig contains monitor worker specific configuration.
type WorkerConfig struct {
	// Version of the worker config.
	Version int `koanf:"version"`
	// Request timeout in milliseconds.
	RequestTimeout int `koanf:"request_timeout"`
	// Target seconds between polling cycle starts.
	PollInterval int `koanf:"poll_interval"`
	// Seconds to wait after a failed cycle before polling resumes.
	RecoveryCooldown int `koanf:"recovery_cooldown"`
	// Search behavior for one hashtag group fetch.
	Search SearchConfig `koanf:"search"`
	// Account login behavior.
	Login LoginConfig `koanf:"login"`
	// Detector windows and thresholds.
	Detectors DetectorConfig `koanf:"detectors"`
}

// SearchConfig bounds one hashtag group fetch.
type SearchConfig struct {
	// Maximum posts fetched per hashtag group per cycle.
	PageSize int `koanf:"page_size"`
	// Seconds to pause after a transient search failure.
	GroupRetryDelay int `koanf:"group_retry_delay"`
}

// LoginConfig shapes the account login state machine.
type LoginConfig struct {
	// Login strategy: "browser" or "flow".
	Strategy string `koanf:"strategy"`
	// Endpoint driving flow logins. Empty uses the platform default.
	FlowURL string `koanf:"flow_url"`
	// Maximum login attempts per account per acquisition.
	MaxAttempts int `koanf:"max_attempts"`
	// Base delay between login attempts in milliseconds.
	RetryDelay int `koanf:"retry_delay"`
	// Random extra added to each login delay in milliseconds.
	RetryJitter int `koanf:"retry_jitter"`
	// Wait after a reactivation sweep before retrying in milliseconds.
	ReactivationDelay int `koanf:"reactivation_delay"`
}

// DetectorConfig bounds the flagged-account and surge detectors.
type DetectorConfig struct {
	// Trailing window for the flagged-account detector in minutes.
	FlagWindow int `koanf:"flag_window"`
	// Minimum posts per author inside the window.
	FlagThreshold int `koanf:"flag_threshold"`
	// Trailing days loaded by the surge detector.
	SurgeWindowDays int `koanf:"surge_window_days"`
	// Minimum newest-day volume for a surge.
	SurgeThreshold int `koanf:"surge_threshold"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Enable pprof debugging.
	EnablePprof bool `koanf:"enable_pprof"`
	// pprof server port.
	PprofPort int `koanf:"pprof_port"`
}

// Retry contains HTTP retry configuration.
type Retry struct {
	// Maximum retry attempts.
	MaxRetries uint64 `koanf:"max_retries"`
	// Initial retry delay in milliseconds.
	Delay int `koanf:"delay"`
	// Maximum retry delay in milliseconds.
	MaxDelay int `koanf:"max_delay"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	// Database hostname.
	Host string `koanf:"host"`
	// Database port.
	Port int `koanf:"port"`
	// Database username.
	User string `koanf:"user"`
	// Database password.
	Password string `koanf:"password"`
	// Database name.
	DBName string `koanf:"db_name"`
	// Maximum open connections.
	MaxOpenConns int `koanf:"max_open_conns"`
	// Maximum idle connections.
	MaxIdleConns int `koanf:"max_idle_conns"`
	// Connection lifetime in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	// Idle timeout in minutes.
	MaxIdleTime int `koanf:"max_idle_time"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	// Redis hostname.
	Host string `koanf:"host"`
	// Redis port.
	Port int `koanf:"port"`
	// Redis username.
	Username string `koanf:"username"`
	// Redis password.
	Password string `koanf:"password"`
}

// LoadConfig loads the configuration from the first search path carrying the
// config files. Returns the config along with the used config directory.
func LoadConfig() (*Config, string, error) {
	k := koanf.New(".")

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configPaths := []string{
		".tagwatch",
		homeDir + "/.tagwatch/config",
		"/etc/tagwatch/config",
		"/app/config",
		"config",
		".",
	}

	var usedConfigPath string

	configFiles := []string{"common", "worker"}
	for _, configName := range configFiles {
		configLoaded := false

		for _, path := range configPaths {
			configPath := fmt.Sprintf("%s/%s.toml", path, configName)
			if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
				configLoaded = true

				if usedConfigPath == "" {
					usedConfigPath = path
				}

				break
			}
		}

		if !configLoaded {
			return nil, "", fmt.Errorf("%w: %s.toml", ErrConfigFileNotFound, configName)
		}
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := checkConfigVersion("common", config.Common.Version, CurrentCommonVersion); err != nil {
		return nil, "", err
	}

	if err := checkConfigVersion("worker", config.Worker.Version, CurrentWorkerVersion); err != nil {
		return nil, "", err
	}

	return &config, usedConfigPath, nil
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(name string, current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: %s.toml", ErrConfigVersionMissing, name)
	}

	if current != expected {
		return fmt.Errorf(
			"%w: %s.toml (got: %d, expected: %d)\n"+
				"Please update your config file from: https://github.com/tagwatch/tagwatch/tree/%s/config/%s.toml",
			ErrConfigVersionMismatch,
			name,
			current,
			expected,
			RepositoryVersion,
			name,
		)
	}

	return nil
}
