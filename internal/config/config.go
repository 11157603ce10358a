package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"dario.cat/mergo"
	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Player  PlayerConfig  `yaml:"player,omitempty"`
	Master  MasterConfig  `yaml:"master,omitempty"`
	Catalog CatalogConfig `yaml:"catalog,omitempty"`
	State   StateConfig   `yaml:"state,omitempty"`
	UI      UIConfig      `yaml:"ui,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// PlayerConfig contains player engine settings
type PlayerConfig struct {
	Type       string `yaml:"type,omitempty"` // "mpv", "beep"
	Path       string `yaml:"path,omitempty"`
	Args       string `yaml:"args,omitempty"`
	SocketPath string `yaml:"socket_path,omitempty"`
}

// MasterConfig contains renderer arbitration settings
type MasterConfig struct {
	// MaxActive caps how many playables hold a renderer at once.  Negative means no cap.  Zero keeps the default
	// because an empty value never overrides it.
	MaxActive int `yaml:"max_active,omitempty"`
	// MaxPlaybacksPerPlayable caps live playbacks per playable.  0 means no cap.
	MaxPlaybacksPerPlayable int    `yaml:"max_playbacks_per_playable,omitempty"`
	TieBreak                string `yaml:"tie_break,omitempty"` // "recent", "oldest"
	// ReleaseGrace is a Go duration string, e.g. "5s"
	ReleaseGrace string `yaml:"release_grace,omitempty"`
}

// Grace parses ReleaseGrace.  Empty means no grace.
func (m MasterConfig) Grace() (time.Duration, error) {
	if m.ReleaseGrace == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(m.ReleaseGrace)
	if err != nil {
		return 0, fmt.Errorf("invalid release_grace %q: %w", m.ReleaseGrace, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid release_grace %q: must not be negative", m.ReleaseGrace)
	}
	return d, nil
}

// CatalogConfig selects where the media feed comes from
type CatalogConfig struct {
	Source   string `yaml:"source,omitempty"` // "file", "graphql"
	FilePath string `yaml:"file_path,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
	Token    string `yaml:"token,omitempty"`
}

// StateConfig contains saved session settings
type StateConfig struct {
	Disabled bool   `yaml:"disabled,omitempty"`
	DBPath   string `yaml:"db_path,omitempty"`
}

// UIConfig contains UI display preferences
type UIConfig struct {
	// FeedHeight is the number of rows each surface takes in the feed
	FeedHeight int `yaml:"feed_height,omitempty"`
}

// LoggingConfig contains log related settings
type LoggingConfig struct {
	Level    string `yaml:"level,omitempty"`
	FilePath string `yaml:"file_path,omitempty"`
}

// Load builds a configuration struct from multiple sources using these steps:
// 1. Create a base config with default values
// 2. If no config file exists on disk, save the default config to that location
// 3. Apply 'dynamic' properties.  Dynamic properties are those that are determined at runtime, for example log file location which is different per OS.
// 4. Load & merge the config file, overwriting any defaults with user-specified values
// 5. Apply environment variable overrides
func Load() (*Config, error) {
	// 1. Start with base defaults
	cfg := createBaseDefaultConfig()

	configPath, err := getConfigPath()
	if err != nil {
		return nil, fmt.Errorf("unable to determine config file path: %w", err)
	}

	// 2. If no config file exists on disk, then write a default one
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		// If there is an error saving the default config, then still let the application startup using the defaults.
		_ = save(cfg, configPath)
	}

	// 3. Apply dynamic defaults if necessary
	applyDynamicDefaults(cfg)

	// 4. Load the config from disk and merge it into the base defaults
	fileConfig, err := loadFromDisk(configPath)
	if err != nil {
		return nil, err
	}
	if err = mergo.Merge(cfg, fileConfig, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("error merging config loaded from disk: %w", err)
	}

	// 5. Apply the environment variable overrides which take precedence
	if err = applyEnvVarOverrides(cfg); err != nil {
		return nil, err
	}

	if _, err = cfg.Master.Grace(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDynamicDefaults sets runtime-determined default values for any properties that haven't been explicitly configured.
func applyDynamicDefaults(cfg *Config) {
	cfg.Logging.FilePath = defaultLogFilePath()
	cfg.State.DBPath = filepath.Join(xdg.DataHome, "reel", "state.db")
}

// loadFromDisk loads the YAML config from disk and returns the unmarshalled Config
func loadFromDisk(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unable to parse config file: %w", err)
	}

	return cfg, nil
}

func save(cfg *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0600)
}

// UpdateConfig reads the existing config, applies the update function, and saves it back to disk
func UpdateConfig(updateFn func(*Config)) error {
	configPath, err := getConfigPath()
	if err != nil {
		return fmt.Errorf("unable to determine config file path: %w", err)
	}

	cfg, err := loadFromDisk(configPath)
	if err != nil {
		return fmt.Errorf("error loading config file from disk: %w", err)
	}

	updateFn(cfg)

	return save(cfg, configPath)
}

// getConfigPath returns the path to the config file.  Uses the environment variable override if present, else the
// XDG config home.
func getConfigPath() (string, error) {
	if configPath := os.Getenv("REEL_CONFIG_PATH"); configPath != "" {
		return configPath, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "reel", "config.yaml"), nil
}

// createBaseDefaultConfig creates a config with all default values
func createBaseDefaultConfig() *Config {
	return &Config{
		Player: PlayerConfig{
			Type: "mpv",
			Path: "mpv",
		},
		Master: MasterConfig{
			MaxActive:    1,
			TieBreak:     "recent",
			ReleaseGrace: "5s",
		},
		Catalog: CatalogConfig{
			Source: "file",
		},
		UI: UIConfig{
			FeedHeight: 3,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// defaultLogFilePath returns the path to the log file.  Tries to use expected OS location defaults.
func defaultLogFilePath() string {
	var basePath string
	homedir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "reel.log")
	}

	switch runtime.GOOS {
	case "windows":
		// Windows:  %LOCALAPPDATA%\reel\logs
		if appData := os.Getenv("LOCALAPPDATA"); appData != "" {
			basePath = filepath.Join(appData, "reel", "logs")
		} else {
			basePath = filepath.Join(homedir, "AppData", "local", "reel", "logs")
		}
	case "darwin":
		// macOS:  ~/Library/Logs/reel
		basePath = filepath.Join(homedir, "Library", "Logs", "reel")
	default:
		// Linux/BSD:  XDG_STATE_HOME
		basePath = filepath.Join(xdg.StateHome, "reel", "logs")
	}

	if err = os.MkdirAll(basePath, 0700); err != nil {
		return filepath.Join(".", "reel.log")
	}
	return filepath.Join(basePath, "reel.log")
}
