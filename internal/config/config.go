package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go-wallpaper-fetch/internal/models"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"
)

// DefaultPath returns ~/.config/wallfetch/config.toml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".config", "wallfetch", "config.toml")
}

// LoadConfig reads the TOML configuration from the given path. A missing
// file is not an error; defaults are applied either way so commands can run
// with a bare environment.
func LoadConfig(configFilePath string) (models.Config, error) {
	if configFilePath == "" {
		configFilePath = DefaultPath()
	}
	var cfg models.Config
	if _, err := os.Stat(configFilePath); os.IsNotExist(err) {
		log.Debugf("No config file at %s, using defaults", configFilePath)
		cfg.ApplyDefaults()
		return cfg, nil
	}
	_, err := toml.DecodeFile(configFilePath, &cfg)
	if err != nil {
		return models.Config{}, fmt.Errorf("error loading config file %s: %w", configFilePath, err)
	}
	cfg.ApplyDefaults()

	if cfg.WallpaperDir == "" {
		log.Warn("Warning: WallpaperDir is not set in config")
	}

	log.Infof("Configuration loaded from %s", configFilePath)
	return cfg, nil
}

// SaveConfig writes the configuration back to disk, creating the parent
// directory if needed. Used by the schedule and config commands to persist
// values like the cron expression.
func SaveConfig(configFilePath string, cfg models.Config) error {
	if configFilePath == "" {
		configFilePath = DefaultPath()
	}
	dir := filepath.Dir(configFilePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	f, err := os.OpenFile(configFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening config file %s for writing: %w", configFilePath, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config to %s: %w", configFilePath, err)
	}
	log.Debugf("Configuration saved to %s", configFilePath)
	return nil
}

// ApplyEnvOverrides applies provider credential environment variables.
// Precedence is flag > env > config file, so this runs after the file is
// loaded and before flag overrides are applied.
func ApplyEnvOverrides(cfg *models.Config) {
	if v := os.Getenv("WALLHAVEN_API_KEY"); v != "" {
		cfg.WallhavenAPIKey = v
		log.Debug("WallhavenAPIKey overridden from environment")
	}
	if v := os.Getenv("UNSPLASH_ACCESS_KEY"); v != "" {
		cfg.UnsplashAccessKey = v
		log.Debug("UnsplashAccessKey overridden from environment")
	}
}
