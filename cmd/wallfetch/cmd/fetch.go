package cmd

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go-wallpaper-fetch/index"
	"go-wallpaper-fetch/internal/database"
	"go-wallpaper-fetch/internal/fetcher"
	"go-wallpaper-fetch/internal/helpers"
	"go-wallpaper-fetch/internal/models"
	"go-wallpaper-fetch/internal/source"
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download wallpapers from a remote source",
	Long: `Searches the configured source for wallpapers matching the query and
downloads them until the requested count is reached. Wallpapers already
present in the download directory are skipped, and every commit is
recorded in the local database and search index.`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringP("source", "s", "", "Wallpaper source (wallhaven, unsplash). Overrides config.")
	fetchCmd.Flags().StringP("query", "q", "", "Search query string. Overrides config.")
	fetchCmd.Flags().IntP("count", "n", 1, "Number of wallpapers to download.")
	fetchCmd.Flags().StringP("resolution", "r", "", "Minimum resolution, e.g. 2560x1440. Overrides config.")
	fetchCmd.Flags().String("categories", "", "Wallhaven category mask (general/anime/people), e.g. 111.")
	fetchCmd.Flags().String("purity", "", "Wallhaven purity mask, e.g. 100.")
	fetchCmd.Flags().String("sorting", "", "Result ordering (relevance, latest, random, toplist).")
	fetchCmd.Flags().IntP("concurrency", "c", 0, "Number of concurrent downloads. Overrides config.")

	// Bind flags to Viper
	viper.BindPFlag("fetch.source", fetchCmd.Flags().Lookup("source"))
	viper.BindPFlag("fetch.query", fetchCmd.Flags().Lookup("query"))
	viper.BindPFlag("fetch.count", fetchCmd.Flags().Lookup("count"))
	viper.BindPFlag("fetch.resolution", fetchCmd.Flags().Lookup("resolution"))
	viper.BindPFlag("fetch.categories", fetchCmd.Flags().Lookup("categories"))
	viper.BindPFlag("fetch.purity", fetchCmd.Flags().Lookup("purity"))
	viper.BindPFlag("fetch.sorting", fetchCmd.Flags().Lookup("sorting"))
	viper.BindPFlag("fetch.concurrency", fetchCmd.Flags().Lookup("concurrency"))
}

// setupSearchQuery builds the provider query from the viper keys bound
// under prefix, falling back to config for anything unset.
func setupSearchQuery(prefix string, cfg *models.Config) source.SearchQuery {
	pick := func(name, fallback string) string {
		if v := viper.GetString(prefix + "." + name); v != "" {
			return v
		}
		return fallback
	}
	return source.SearchQuery{
		Query:      pick("query", cfg.Query),
		Resolution: pick("resolution", cfg.Resolution),
		Categories: pick("categories", cfg.Categories),
		Purity:     pick("purity", cfg.Purity),
		Sorting:    pick("sorting", cfg.Sorting),
	}
}

func runFetch(cmd *cobra.Command, args []string) error {
	sourceName := viper.GetString("fetch.source")
	if sourceName == "" {
		sourceName = globalConfig.DefaultSource
	}
	count := viper.GetInt("fetch.count")
	concurrency := viper.GetInt("fetch.concurrency")
	if concurrency <= 0 {
		concurrency = globalConfig.Concurrency
	}

	provider, err := source.ForName(sourceName, globalConfig, createApiClient())
	if err != nil {
		return err
	}

	query := setupSearchQuery("fetch", &globalConfig)
	log.Infof("Fetching %d wallpaper(s) from %s (query: %q)", count, provider.Name(), query.Query)

	// Database and index are best-effort: a failure to open either must
	// not block the download itself.
	db, err := database.Open(globalConfig.DatabasePath)
	if err != nil {
		log.WithError(err).Warnf("Failed to open database at %s, history disabled", globalConfig.DatabasePath)
		db = nil
	} else {
		defer db.Close()
	}

	idx, err := index.OpenOrCreateIndex(globalConfig.IndexPath)
	if err != nil {
		log.WithError(err).Warnf("Failed to open index at %s, search disabled", globalConfig.IndexPath)
		idx = nil
	} else {
		defer idx.Close()
	}

	onCommit := func(c source.Candidate, path string) {
		hash, hashErr := helpers.FileBLAKE3(path)
		if hashErr != nil {
			log.WithError(hashErr).Warnf("Failed to hash %s", path)
		}
		now := time.Now().Format(time.RFC3339)

		if db != nil {
			rec := models.WallpaperRecord{
				Key:          c.Key(),
				Source:       c.Source,
				ID:           c.ID,
				Query:        query.Query,
				Resolution:   c.Resolution,
				Path:         path,
				BLAKE3:       hash,
				DownloadedAt: now,
			}
			if putErr := db.PutRecord(rec); putErr != nil {
				log.WithError(putErr).Warnf("Failed to record %s in database", rec.Key)
			}
		}

		if idx != nil {
			item := index.Item{
				ID:           c.Key(),
				Source:       c.Source,
				Query:        query.Query,
				Resolution:   c.Resolution,
				FilePath:     path,
				DownloadedAt: time.Now(),
			}
			if idxErr := index.IndexItem(idx, item); idxErr != nil {
				log.WithError(idxErr).Warnf("Failed to index %s", item.ID)
			}
		}
	}

	var known func(string) bool
	if db != nil {
		known = func(key string) bool { return db.Has([]byte(key)) }
	}

	f := fetcher.New(provider, onCommit)
	result, err := f.Fetch(cmd.Context(), query, fetcher.Options{
		DestDir:     globalConfig.WallpaperDir,
		Count:       count,
		Concurrency: concurrency,
		Known:       known,
	})
	if err != nil {
		return err
	}

	log.Infof("Fetch complete: %d downloaded, %d skipped, %d failed",
		len(result.Committed), result.Skipped, result.Failed)
	for _, p := range result.Committed {
		fmt.Println(p)
	}

	if result.Failed > 0 {
		return fmt.Errorf("%w: %d of %d", errPartial, result.Failed, result.Failed+len(result.Committed))
	}
	return nil
}
