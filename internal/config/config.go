package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds all sitewise configuration.
type Config struct {
	DataDir   string `toml:"data_dir"`
	RulesPath string `toml:"rules_path"` // TOML rule overrides; empty = shipped defaults
	StorePath string `toml:"store_path"` // run-history database; empty = <data_dir>/runs.db
	Workers   int    `toml:"workers"`    // parallel resolution; <= 1 runs serially

	Archive ArchiveConfig `toml:"archive"`
	Watch   WatchConfig   `toml:"watch"`
}

type ArchiveConfig struct {
	Compress bool `toml:"compress"`
}

type WatchConfig struct {
	DebounceSeconds int `toml:"debounce_seconds"`
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DataDir: "~/sitewise-data",
		Workers: 4,
		Archive: ArchiveConfig{
			Compress: true,
		},
		Watch: WatchConfig{
			DebounceSeconds: 2,
		},
	}
}

// Load reads config from the standard path, falling back to defaults.
func Load() (Config, error) {
	cfg := DefaultConfig()

	for _, p := range configPaths() {
		if _, err := os.Stat(p); err == nil {
			if _, err := toml.DecodeFile(p, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", p, err)
			}
			break
		}
	}

	cfg.DataDir = expandHome(cfg.DataDir)
	cfg.RulesPath = expandHome(cfg.RulesPath)
	cfg.StorePath = expandHome(cfg.StorePath)
	if cfg.StorePath == "" {
		cfg.StorePath = filepath.Join(cfg.DataDir, "runs.db")
	}

	return cfg, nil
}

func configPaths() []string {
	var paths []string

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "sitewise", "config.toml"))
	}

	home, _ := os.UserHomeDir()
	if home != "" {
		paths = append(paths, filepath.Join(home, ".config", "sitewise", "config.toml"))
	}

	return paths
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// ArchiveDir returns the data dir's archive subdirectory.
func (c Config) ArchiveDir() string {
	return filepath.Join(c.DataDir, "archive")
}
