// Package config loads haven settings from ~/.haven/config.toml and HAVEN_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/haven-app/haven/internal/grocery"
)

// EnvPrefix is prepended to every environment override, e.g. HAVEN_DATA_DIR.
const EnvPrefix = "HAVEN"

// Config is the resolved configuration.
type Config struct {
	DataDir   string          `toml:"data_dir" mapstructure:"data_dir"`
	Owner     string          `toml:"owner" mapstructure:"owner"`
	Grocery   GroceryConfig   `toml:"grocery" mapstructure:"grocery"`
	Dashboard DashboardConfig `toml:"dashboard" mapstructure:"dashboard"`
	Daemon    DaemonConfig    `toml:"daemon" mapstructure:"daemon"`
	Log       LogConfig       `toml:"log" mapstructure:"log"`
}

type GroceryConfig struct {
	WindowDays int `toml:"window_days" mapstructure:"window_days"`
}

type DashboardConfig struct {
	Port int `toml:"port" mapstructure:"port"`
}

// DaemonConfig controls the file watcher. Empty paths are resolved against
// DataDir.
type DaemonConfig struct {
	Debounce    time.Duration `toml:"debounce" mapstructure:"debounce"`
	InboxDir    string        `toml:"inbox_dir" mapstructure:"inbox_dir"`
	SessionFile string        `toml:"session_file" mapstructure:"session_file"`
}

// LogConfig controls where loggers write. File is rotated by size.
type LogConfig struct {
	File       string `toml:"file" mapstructure:"file"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	Quiet      bool   `toml:"quiet" mapstructure:"quiet"`
}

// HomeDir returns ~/.haven, falling back to ./.haven when the home
// directory is unknown.
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".haven"
	}
	return filepath.Join(home, ".haven")
}

// DefaultPath is the config file read when --config is not given.
func DefaultPath() string {
	return filepath.Join(HomeDir(), "config.toml")
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir:   HomeDir(),
		Grocery:   GroceryConfig{WindowDays: grocery.DefaultWindow},
		Dashboard: DashboardConfig{Port: 8080},
		Daemon:    DaemonConfig{Debounce: 500 * time.Millisecond},
		Log:       LogConfig{MaxSizeMB: 10, MaxBackups: 3},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("owner", d.Owner)
	v.SetDefault("grocery.window_days", d.Grocery.WindowDays)
	v.SetDefault("dashboard.port", d.Dashboard.Port)
	v.SetDefault("daemon.debounce", d.Daemon.Debounce)
	v.SetDefault("daemon.inbox_dir", "")
	v.SetDefault("daemon.session_file", "")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.quiet", d.Log.Quiet)
}

// Load reads path (DefaultPath when empty) and applies environment
// overrides. A missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound), errors.Is(err, os.ErrNotExist):
			if explicit {
				return Config{}, fmt.Errorf("config file %s not found", path)
			}
		default:
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.resolve()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) resolve() {
	c.DataDir = expandHome(c.DataDir)
	if c.Daemon.InboxDir == "" {
		c.Daemon.InboxDir = filepath.Join(c.DataDir, "inbox")
	}
	if c.Daemon.SessionFile == "" {
		c.Daemon.SessionFile = filepath.Join(c.DataDir, "session.toml")
	}
	c.Daemon.InboxDir = expandHome(c.Daemon.InboxDir)
	c.Daemon.SessionFile = expandHome(c.Daemon.SessionFile)
	c.Log.File = expandHome(c.Log.File)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if err := grocery.ValidateWindow(c.Grocery.WindowDays); err != nil {
		return fmt.Errorf("grocery.window_days: %w", err)
	}
	if c.Dashboard.Port <= 0 || c.Dashboard.Port > 65535 {
		return fmt.Errorf("dashboard.port %d out of range", c.Dashboard.Port)
	}
	if c.Daemon.Debounce < 0 {
		return fmt.Errorf("daemon.debounce must not be negative")
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 {
		return fmt.Errorf("log.max_size_mb and log.max_backups must not be negative")
	}
	return nil
}

// DBPath is the Local Store database file.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "haven.db")
}

// WriteDefault writes a starter config file. It refuses to overwrite an
// existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	fmt.Fprintln(f, "# haven configuration. Every key can be overridden with HAVEN_<KEY>,")
	fmt.Fprintln(f, "# e.g. HAVEN_GROCERY_WINDOW_DAYS=14.")
	fmt.Fprintln(f)

	d := Default()
	starter := struct {
		DataDir   string          `toml:"data_dir"`
		Grocery   GroceryConfig   `toml:"grocery"`
		Dashboard DashboardConfig `toml:"dashboard"`
		Daemon    struct {
			Debounce string `toml:"debounce"`
		} `toml:"daemon"`
		Log struct {
			MaxSizeMB  int  `toml:"max_size_mb"`
			MaxBackups int  `toml:"max_backups"`
			Quiet      bool `toml:"quiet"`
		} `toml:"log"`
	}{
		DataDir:   d.DataDir,
		Grocery:   d.Grocery,
		Dashboard: d.Dashboard,
	}
	starter.Daemon.Debounce = d.Daemon.Debounce.String()
	starter.Log.MaxSizeMB = d.Log.MaxSizeMB
	starter.Log.MaxBackups = d.Log.MaxBackups

	if err := toml.NewEncoder(f).Encode(starter); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
