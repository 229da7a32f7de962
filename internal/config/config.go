package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/jask/annotator/internal/style"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig
	Log      LogConfig
	Metrics  MetricsConfig
	Editor   EditorConfig
	// Theme holds overrides layered on style.DefaultTheme.
	Theme style.Theme
	// Keys maps an editor action to the keys that trigger it.
	Keys map[string][]string
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

type LogConfig struct {
	Level string
	File  string
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string
}

// EditorConfig holds the initial editor state.
type EditorConfig struct {
	Shape     string
	Mode      string
	Active    bool
	Tolerance float64
}

// Path returns the config file location. ANNOTATOR_CONFIG overrides it.
func Path() string {
	if p := os.Getenv("ANNOTATOR_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "annotator", "config.toml")
}

// Load reads configuration from file and env. Env var overrides use prefix ANNOTATOR_.
func Load() (Config, error) {
	return LoadFile(Path())
}

// LoadFile reads configuration from path. A missing file yields the defaults.
func LoadFile(path string) (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "annotator", "annotator.db"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", filepath.Join(os.TempDir(), "annotator.log"))
	v.SetDefault("metrics.addr", "")
	v.SetDefault("editor.shape", "rect")
	v.SetDefault("editor.mode", "list")
	v.SetDefault("editor.active", true)
	v.SetDefault("editor.tolerance", 0.02)

	v.SetConfigType("toml")
	v.SetConfigFile(path)

	v.SetEnvPrefix("ANNOTATOR")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// a missing file is fine, a broken one is not
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// ResolvedTheme is the default theme with the configured overrides applied.
func (c Config) ResolvedTheme() style.Theme {
	return style.DefaultTheme().Override(c.Theme)
}

// SlogLevel parses Log.Level, falling back to info.
func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Save writes the non-theme settings to path, creating the directory if needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("database.path", cfg.Database.Path)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.file", cfg.Log.File)
	v.Set("metrics.addr", cfg.Metrics.Addr)
	v.Set("editor.shape", cfg.Editor.Shape)
	v.Set("editor.mode", cfg.Editor.Mode)
	v.Set("editor.active", cfg.Editor.Active)
	v.Set("editor.tolerance", cfg.Editor.Tolerance)
	for action, keys := range cfg.Keys {
		v.Set("keys."+action, keys)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
