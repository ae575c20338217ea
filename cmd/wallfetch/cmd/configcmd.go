package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go-wallpaper-fetch/internal/config"
	"go-wallpaper-fetch/internal/models"
)

// configCmd is the parent for configuration operations
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and manage the configuration file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Prints the configuration after defaults, environment variables and flag
overrides have been applied. Credentials are redacted.`,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the current effective values",
	RunE:  runConfigInit,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set one configuration value and save the file",
	Long: `Sets a single configuration key and writes the file back. Keys use the
field names from the config file, e.g. 'config set DefaultTheme nord'.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	redacted := globalConfig
	if redacted.WallhavenAPIKey != "" {
		redacted.WallhavenAPIKey = "<set>"
	}
	if redacted.UnsplashAccessKey != "" {
		redacted.UnsplashAccessKey = "<set>"
	}
	return toml.NewEncoder(os.Stdout).Encode(redacted)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = config.DefaultPath()
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := config.SaveConfig(path, globalConfig); err != nil {
		return err
	}
	log.Infof("Wrote config to %s", path)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	// Reload from disk so a set does not bake in env or flag overrides.
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return err
	}
	if err := setConfigField(&cfg, key, value); err != nil {
		return err
	}
	if err := config.SaveConfig(cfgFile, cfg); err != nil {
		return err
	}
	log.Infof("Set %s = %s", key, value)
	return nil
}

// setConfigField assigns one editable config field by its TOML name.
// Derived paths and list fields are excluded; edit those in the file.
func setConfigField(cfg *models.Config, key, value string) error {
	switch key {
	case "DefaultSource":
		cfg.DefaultSource = value
	case "WallpaperDir":
		cfg.WallpaperDir = value
	case "WallhavenAPIKey":
		cfg.WallhavenAPIKey = value
	case "UnsplashAccessKey":
		cfg.UnsplashAccessKey = value
	case "Query":
		cfg.Query = value
	case "Resolution":
		cfg.Resolution = value
	case "Categories":
		cfg.Categories = value
	case "Purity":
		cfg.Purity = value
	case "Sorting":
		cfg.Sorting = value
	case "DefaultTheme":
		cfg.DefaultTheme = value
	case "Cron":
		cfg.Cron = value
	case "Concurrency":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("value for %s must be an integer: %w", key, err)
		}
		cfg.Concurrency = n
	default:
		return fmt.Errorf("unknown or read-only config key %q", key)
	}
	return nil
}
