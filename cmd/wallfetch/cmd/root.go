package cmd

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go-wallpaper-fetch/internal/api"
	"go-wallpaper-fetch/internal/config"
	"go-wallpaper-fetch/internal/models"
)

// cfgFile holds the path to the config file specified by the user
var cfgFile string

// logApiFlag holds the value of the --log-api flag
var logApiFlag bool

// savePathFlag holds the value of the --save-path flag
var savePathFlag string

// logLevel and logFormat configure logrus for every command
var logLevel string
var logFormat string

// globalConfig holds the loaded configuration
var globalConfig models.Config

// globalHttpTransport holds the globally configured HTTP transport (base or logging-wrapped)
var globalHttpTransport http.RoundTripper

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wallfetch",
	Short: "Fetch, convert and apply desktop wallpapers",
	Long: `Wallfetch downloads wallpapers from remote sources like Wallhaven and
Unsplash, recolors them to a terminal theme via gowall, and applies them
to the desktop. It can also install itself into the crontab for periodic
rotation.`,
	PersistentPreRunE: loadGlobalConfig, // Load config before any command runs
	SilenceUsage:      true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). The process exit code is
// derived from the returned error's category.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		// os.Exit skips deferred cleanup in main, so flush here.
		api.CloseAllLoggingTransports()
		os.Exit(exitCodeFor(err))
	}
}

func init() {
	// Add persistent flags that apply to all commands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Configuration file path (default ~/.config/wallfetch/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&logApiFlag, "log-api", false, "Log API requests/responses to api.log (overrides config)")
	rootCmd.PersistentFlags().StringVar(&savePathFlag, "save-path", "", "Directory to save wallpapers (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Logging format (text, json)")

	// Hook to configure logging before any command runs
	cobra.OnInitialize(initLogging)
}

// initLogging configures logrus based on persistent flags
func initLogging() {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		log.WithError(err).Warnf("Invalid log level '%s', using default 'info'", logLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)

	switch logFormat {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		log.Warnf("Invalid log format '%s', using default 'text'", logFormat)
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// loadGlobalConfig attempts to load the configuration and applies env and
// flag overrides. It also sets up the global HTTP transport based on
// logging settings.
func loadGlobalConfig(cmd *cobra.Command, args []string) error {
	var err error
	globalConfig, err = config.LoadConfig(cfgFile)
	if err != nil {
		// Log a warning but don't make it fatal here; commands check the
		// fields they need from globalConfig.
		log.WithError(err).Warnf("Failed to load configuration from %s", cfgFile)
	}

	// Credentials from the environment beat the config file.
	config.ApplyEnvOverrides(&globalConfig)

	// Override LogApiRequests if flag was used
	if cmd.Flags().Changed("log-api") {
		globalConfig.LogApiRequests = logApiFlag
		log.Debugf("Overriding LogApiRequests based on --log-api flag: %t", logApiFlag)
	}

	// Override WallpaperDir if flag was used
	if cmd.Flags().Changed("save-path") {
		if savePathFlag != "" {
			globalConfig.WallpaperDir = savePathFlag
			log.Debugf("Overriding WallpaperDir based on --save-path flag: %s", savePathFlag)
		} else {
			log.Warn("--save-path flag provided but value is empty, ignoring.")
		}
	}

	if globalConfig.WallpaperDir == "" {
		home, homeErr := os.UserHomeDir()
		if homeErr == nil {
			globalConfig.WallpaperDir = filepath.Join(home, "Pictures", "wallpapers")
			log.Debugf("WallpaperDir not configured, defaulting to %s", globalConfig.WallpaperDir)
		}
	}
	if globalConfig.DatabasePath == "" && globalConfig.WallpaperDir != "" {
		globalConfig.DatabasePath = filepath.Join(globalConfig.WallpaperDir, ".wallfetch.db")
	}
	if globalConfig.IndexPath == "" && globalConfig.WallpaperDir != "" {
		globalConfig.IndexPath = filepath.Join(globalConfig.WallpaperDir, ".wallfetch.bleve")
	}

	// --- Setup Global HTTP Transport ---
	baseTransport := http.DefaultTransport

	globalHttpTransport = baseTransport
	if globalConfig.LogApiRequests {
		log.Debug("API request logging enabled, wrapping global HTTP transport.")
		logFilePath := "api.log"
		if globalConfig.WallpaperDir != "" {
			if _, statErr := os.Stat(globalConfig.WallpaperDir); statErr == nil {
				logFilePath = filepath.Join(globalConfig.WallpaperDir, logFilePath)
			}
		}
		log.Infof("API logging to file: %s", logFilePath)

		loggingTransport, err := api.NewLoggingTransport(baseTransport, logFilePath)
		if err != nil {
			log.WithError(err).Error("Failed to initialize API logging transport, logging disabled.")
		} else {
			globalHttpTransport = loggingTransport
		}
	}

	return nil
}

// createApiClient creates an HTTP client using the globally configured
// transport (which may include logging) and the configured API timeout.
func createApiClient() *http.Client {
	clientTimeout := time.Duration(globalConfig.ApiClientTimeoutSec) * time.Second
	if clientTimeout <= 0 {
		clientTimeout = 60 * time.Second
	}

	if globalHttpTransport == nil {
		log.Error("Global HTTP transport not initialized, using default transport without logging.")
		globalHttpTransport = http.DefaultTransport
	}

	return &http.Client{
		Timeout:   clientTimeout,
		Transport: globalHttpTransport,
	}
}
