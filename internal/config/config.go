package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppName names the config directory, the control port hash and the tray.
const AppName = "timerpanel"

const configFileName = "config.yaml"

// Config holds the daemon configuration.
type Config struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`

	Store struct {
		Backend string `yaml:"backend"`
		Path    string `yaml:"path"`
		DSN     string `yaml:"dsn"`
	} `yaml:"store"`

	Control struct {
		Address string `yaml:"address"`
	} `yaml:"control"`

	Sound struct {
		File   string `yaml:"file"`
		Player string `yaml:"player"`
	} `yaml:"sound"`

	Wake struct {
		TickInterval time.Duration `yaml:"tick_interval"`
	} `yaml:"wake"`

	Presence struct {
		IdleThreshold time.Duration `yaml:"idle_threshold"`
		PollInterval  time.Duration `yaml:"poll_interval"`
	} `yaml:"presence"`

	Badge struct {
		Text  string `yaml:"text"`
		Color string `yaml:"color"`
	} `yaml:"badge"`
}

// Default returns the configuration used when no file is present.
func Default(dataDir string) *Config {
	cfg := &Config{
		Env:      "production",
		LogLevel: "info",
	}
	cfg.Store.Backend = "file"
	cfg.Store.Path = filepath.Join(dataDir, "state.json")
	cfg.Sound.File = "sounds/alarm.wav"
	cfg.Wake.TickInterval = time.Second
	cfg.Presence.IdleThreshold = 5 * time.Minute
	cfg.Presence.PollInterval = 2 * time.Second
	cfg.Badge.Text = "!"
	cfg.Badge.Color = "#FF0000"
	return cfg
}

// Load reads .env, then the YAML file at path (missing is fine), expands
// ${VAR} placeholders, applies TIMERPANEL_* overrides and validates.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default(filepath.Dir(path))

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal([]byte(expandEnv(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate rejects combinations the daemon cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "memory":
	case "file":
		if c.Store.Path == "" {
			return errors.New("store.path is required when store.backend=file")
		}
	case "postgres":
		if c.Store.DSN == "" {
			return errors.New("store.dsn is required when store.backend=postgres")
		}
	default:
		return fmt.Errorf("store.backend must be one of: memory, file, postgres (got %q)", c.Store.Backend)
	}
	if c.Env != "development" && c.Env != "production" {
		return errors.New("env must be one of: development, production")
	}
	if c.Wake.TickInterval <= 0 {
		return errors.New("wake.tick_interval must be positive")
	}
	return nil
}

// Save writes cfg to path as YAML, creating the directory. Existing files
// are replaced.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	serialized, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config yaml: %w", err)
	}

	if err := os.WriteFile(path, serialized, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// EnsureFile writes the default configuration to path if nothing is there
// yet, so users have a file to edit. It reports whether it wrote one.
func EnsureFile(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat config file: %w", err)
	}
	if err := Save(path, Default(filepath.Dir(path))); err != nil {
		return false, err
	}
	return true, nil
}

// DefaultPath returns <UserConfigDir>/timerpanel/config.yaml.
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return "", fmt.Errorf("resolve user config dir: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, AppName, configFileName), nil
}

func expandEnv(content string) string {
	for _, env := range os.Environ() {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 {
			continue
		}
		content = strings.ReplaceAll(content, "${"+pair[0]+"}", pair[1])
	}
	return content
}

func applyEnv(cfg *Config) {
	overrides := map[string]*string{
		"TIMERPANEL_ENV":             &cfg.Env,
		"TIMERPANEL_LOG_LEVEL":       &cfg.LogLevel,
		"TIMERPANEL_STORE_BACKEND":   &cfg.Store.Backend,
		"TIMERPANEL_STORE_PATH":      &cfg.Store.Path,
		"TIMERPANEL_POSTGRES_DSN":    &cfg.Store.DSN,
		"TIMERPANEL_CONTROL_ADDRESS": &cfg.Control.Address,
		"TIMERPANEL_SOUND_FILE":      &cfg.Sound.File,
	}
	for key, target := range overrides {
		if value := os.Getenv(key); value != "" {
			*target = value
		}
	}
}
