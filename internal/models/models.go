package models

type (
	Config struct {
		// Default provider used when --source is not given.
		DefaultSource string `toml:"DefaultSource"`

		// Paths
		WallpaperDir  string   `toml:"WallpaperDir"`
		ConvertedDirs []string `toml:"ConvertedDirs"`
		DatabasePath  string   `toml:"DatabasePath"`
		IndexPath     string   `toml:"IndexPath"`

		// Provider credentials. Env vars and flags take precedence,
		// see config.ApplyEnvOverrides.
		WallhavenAPIKey   string `toml:"WallhavenAPIKey"`
		UnsplashAccessKey string `toml:"UnsplashAccessKey"`

		// Search defaults
		Query      string `toml:"Query"`
		Resolution string `toml:"Resolution"`
		Categories string `toml:"Categories"`
		Purity     string `toml:"Purity"`
		Sorting    string `toml:"Sorting"`

		// Conversion
		DefaultTheme string `toml:"DefaultTheme"`

		// Downloader behavior
		Concurrency         int `toml:"Concurrency"`
		ApiDelayMs          int `toml:"ApiDelayMs"`
		ApiClientTimeoutSec int `toml:"ApiClientTimeoutSec"`

		// Schedule
		Cron string `toml:"Cron"`

		// Other
		LogApiRequests bool `toml:"LogApiRequests"`
	}

	// WallpaperRecord is the download-history entry stored in the database,
	// keyed by "<source>-<id>".
	WallpaperRecord struct {
		Key          string `json:"key"`
		Source       string `json:"source"`
		ID           string `json:"id"`
		Query        string `json:"query,omitempty"`
		Resolution   string `json:"resolution,omitempty"`
		Path         string `json:"path"`
		BLAKE3       string `json:"blake3,omitempty"`
		DownloadedAt string `json:"downloadedAt"`
	}
)

// Defaults used when the config file is missing or leaves fields unset.
const (
	DefaultResolution  = "2560x1440"
	DefaultCategories  = "111"
	DefaultPurity      = "100"
	DefaultSorting     = "relevance"
	DefaultConcurrency = 4
)

// ApplyDefaults fills zero-valued fields with sane defaults.
func (c *Config) ApplyDefaults() {
	if c.DefaultSource == "" {
		c.DefaultSource = "wallhaven"
	}
	if c.Resolution == "" {
		c.Resolution = DefaultResolution
	}
	if c.Categories == "" {
		c.Categories = DefaultCategories
	}
	if c.Purity == "" {
		c.Purity = DefaultPurity
	}
	if c.Sorting == "" {
		c.Sorting = DefaultSorting
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.ApiClientTimeoutSec <= 0 {
		c.ApiClientTimeoutSec = 60
	}
	if c.ApiDelayMs < 0 {
		c.ApiDelayMs = 200
	}
}
