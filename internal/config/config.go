package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// HomeEnv overrides the per-user configuration directory.
	HomeEnv = "HUEBACKUP_HOME"

	// DefaultAppName is the application identifier sent to the bridge on registration.
	DefaultAppName = "huebackup"

	settingsFile = "settings.yaml"
	bridgeFile   = "config.json"
	backupsDir   = "backups"
	historyFile  = "history.db"
)

// ErrInvalidSettings is returned by Load when the settings file cannot be read or parsed.
var ErrInvalidSettings = errors.New("invalid settings")

// Config represents the tool settings
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Hue       HueConfig       `yaml:"hue"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	History   HistoryConfig   `yaml:"history"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Colors     *bool `yaml:"colors"`
	JSON       bool  `yaml:"json"`
	Timestamps *bool `yaml:"timestamps"`
}

// UseColors returns whether console output is colored (default: true)
func (c *LogConfig) UseColors() bool {
	return c.Colors == nil || *c.Colors
}

// UseTimestamps returns whether log lines carry a timestamp (default: true)
func (c *LogConfig) UseTimestamps() bool {
	return c.Timestamps == nil || *c.Timestamps
}

// HueConfig contains Hue bridge access settings
type HueConfig struct {
	Timeout Duration `yaml:"timeout"`  // HTTP timeout for bridge requests
	AppName string   `yaml:"app_name"` // Application part of the registration device type
}

// DiscoveryConfig contains bridge discovery settings
type DiscoveryConfig struct {
	MDNSTimeout Duration `yaml:"mdns_timeout"` // How long to listen for mDNS answers
	MDNSService string   `yaml:"mdns_service"`
	MDNSDomain  string   `yaml:"mdns_domain"`
	Probe       *bool    `yaml:"probe"` // Query each candidate's public config (default: true)
}

// ProbeEnabled returns whether discovered candidates are probed for reachability
func (c *DiscoveryConfig) ProbeEnabled() bool {
	return c.Probe == nil || *c.Probe
}

// HistoryConfig contains run history settings
type HistoryConfig struct {
	Enabled *bool `yaml:"enabled"`
}

// IsEnabled returns whether the run history is recorded (default: true)
func (c *HistoryConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Default returns the settings used when no settings file exists
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// Load reads and parses the settings file.
// A missing file is not an error: defaults are returned.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}

	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Hue.Timeout == 0 {
		cfg.Hue.Timeout = Duration(10 * time.Second)
	}
	if cfg.Hue.AppName == "" {
		cfg.Hue.AppName = DefaultAppName
	}

	if cfg.Discovery.MDNSTimeout == 0 {
		cfg.Discovery.MDNSTimeout = Duration(3 * time.Second)
	}
	if cfg.Discovery.MDNSService == "" {
		cfg.Discovery.MDNSService = "_hue._tcp"
	}
	if cfg.Discovery.MDNSDomain == "" {
		cfg.Discovery.MDNSDomain = "local"
	}
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}

// Paths contains every file location used by the tool.
type Paths struct {
	Home     string // Per-user directory (~/.huebackup)
	Settings string // Optional YAML settings
	Bridge   string // Stored bridge configuration (config.json)
	Backups  string // Root of the backup artifacts
	History  string // SQLite run history
}

// GetPaths returns the paths rooted at home.
// Empty home resolves to HomeDir().
func GetPaths(home string) Paths {
	if home == "" {
		home = HomeDir()
	}
	return Paths{
		Home:     home,
		Settings: filepath.Join(home, settingsFile),
		Bridge:   filepath.Join(home, bridgeFile),
		Backups:  filepath.Join(home, backupsDir),
		History:  filepath.Join(home, historyFile),
	}
}

// HomeDir returns the per-user directory, honoring HUEBACKUP_HOME.
func HomeDir() string {
	if dir := strings.TrimSpace(os.Getenv(HomeEnv)); dir != "" {
		return dir
	}
	userHome, _ := os.UserHomeDir()
	return filepath.Join(userHome, "."+DefaultAppName)
}
