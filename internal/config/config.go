package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	LibrarySources []string `koanf:"library_sources"` // paths the media index covers
	ArtworkDir     string   `koanf:"artwork_dir"`     // extracted cover art cache
	MinDurationMs  int64    `koanf:"min_duration_ms"` // entries shorter than this are skipped
	LogLevel       string   `koanf:"log_level"`       // "debug", "info", "warn", "error"

	History HistoryConfig `koanf:"history"`
	Watch   WatchConfig   `koanf:"watch"`
}

// HistoryConfig holds listen-history settings.
type HistoryConfig struct {
	DedupMinutes int `koanf:"dedup_minutes"` // trailing window suppressing repeat listens (default: 5)
	Limit        int `koanf:"limit"`         // default size of the recent-history read (default: 50)
}

// WatchConfig holds library-watcher settings.
type WatchConfig struct {
	Enabled    *bool `koanf:"enabled"`     // watch library sources for changes (default: true)
	DebounceMs int   `koanf:"debounce_ms"` // quiet period before a change triggers a sync (default: 2000)
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	for i, src := range cfg.LibrarySources {
		cfg.LibrarySources[i] = expandPath(src)
	}
	if cfg.ArtworkDir != "" {
		cfg.ArtworkDir = expandPath(cfg.ArtworkDir)
	}

	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/cadenza/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "cadenza", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// GetMinDuration returns the scan duration filter with the default applied.
func (c *Config) GetMinDuration() time.Duration {
	if c.MinDurationMs <= 0 {
		return time.Second
	}
	return time.Duration(c.MinDurationMs) * time.Millisecond
}

// GetArtworkDir returns the artwork cache directory, defaulting to the XDG
// cache path.
func (c *Config) GetArtworkDir() string {
	if c.ArtworkDir != "" {
		return c.ArtworkDir
	}
	return filepath.Join(xdg.CacheHome, "cadenza", "artwork")
}

// GetLogLevel returns the configured log level, defaulting to "info".
func (c *Config) GetLogLevel() string {
	if c.LogLevel == "" {
		return "info"
	}
	return c.LogLevel
}

// GetHistoryConfig returns the history configuration with defaults applied.
func (c *Config) GetHistoryConfig() HistoryConfig {
	cfg := c.History
	if cfg.DedupMinutes <= 0 {
		cfg.DedupMinutes = 5
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 50
	}
	return cfg
}

// GetWatchConfig returns the watcher configuration with defaults applied.
func (c *Config) GetWatchConfig() WatchConfig {
	cfg := c.Watch
	if cfg.Enabled == nil {
		enabled := true
		cfg.Enabled = &enabled
	}
	if cfg.DebounceMs <= 0 {
		cfg.DebounceMs = 2000
	}
	return cfg
}
