package cmd

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go-wallpaper-fetch/internal/converter"
	"go-wallpaper-fetch/internal/fetcher"
	"go-wallpaper-fetch/internal/setter"
	"go-wallpaper-fetch/internal/source"
)

// runCmd represents the full fetch-convert-apply pipeline. This is the
// command the cron entry invokes.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch one wallpaper, convert it and apply it",
	Long: `Runs the full pipeline: downloads one fresh wallpaper, recolors it to
the configured theme, and sets the result as the desktop wallpaper. If
conversion fails the unconverted original is applied instead, so a broken
gowall install never leaves the desktop without a new wallpaper.`,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("source", "s", "", "Wallpaper source (wallhaven, unsplash). Overrides config.")
	runCmd.Flags().StringP("query", "q", "", "Search query string. Overrides config.")
	runCmd.Flags().StringP("theme", "t", "", "Theme to convert to. Overrides config.")
	runCmd.Flags().Bool("no-convert", false, "Skip the conversion step.")
	runCmd.Flags().Bool("no-apply", false, "Skip setting the wallpaper.")

	// Bind flags to Viper
	viper.BindPFlag("run.source", runCmd.Flags().Lookup("source"))
	viper.BindPFlag("run.query", runCmd.Flags().Lookup("query"))
	viper.BindPFlag("run.theme", runCmd.Flags().Lookup("theme"))
	viper.BindPFlag("run.noconvert", runCmd.Flags().Lookup("no-convert"))
	viper.BindPFlag("run.noapply", runCmd.Flags().Lookup("no-apply"))
}

func runPipeline(cmd *cobra.Command, args []string) error {
	sourceName := viper.GetString("run.source")
	if sourceName == "" {
		sourceName = globalConfig.DefaultSource
	}
	noConvert := viper.GetBool("run.noconvert")
	noApply := viper.GetBool("run.noapply")

	provider, err := source.ForName(sourceName, globalConfig, createApiClient())
	if err != nil {
		return err
	}

	query := setupSearchQuery("run", &globalConfig)
	log.Infof("Pipeline: fetching one wallpaper from %s", provider.Name())

	f := fetcher.New(provider, nil)
	result, err := f.Fetch(cmd.Context(), query, fetcher.Options{
		DestDir:     globalConfig.WallpaperDir,
		Count:       1,
		Concurrency: 1,
	})
	if err != nil {
		return err
	}
	if len(result.Committed) == 0 {
		return fetcher.ErrNoCommits
	}
	original := result.Committed[0]
	applyPath := original

	// Conversion failure must not lose the wallpaper: the original stays
	// on disk and gets applied, and the failure is reported via the exit
	// code afterwards.
	var convertErr error
	theme := viper.GetString("run.theme")
	if theme == "" {
		theme = globalConfig.DefaultTheme
	}
	if !noConvert && theme != "" {
		outputDirs := globalConfig.ConvertedDirs
		if len(outputDirs) == 0 {
			outputDirs = []string{globalConfig.WallpaperDir}
		}

		cv := converter.New()
		if convertErr = cv.CheckInstalled(); convertErr == nil {
			var artifacts []converter.Artifact
			artifacts, convertErr = cv.Convert(original, theme, outputDirs)
			indexArtifacts(artifacts)
			if convertErr == nil && len(artifacts) > 0 {
				applyPath = artifacts[0].Path
			}
		}
		if convertErr != nil {
			log.WithError(convertErr).Warnf("Conversion failed, keeping original %s", original)
		}
	}

	if !noApply {
		if err := setter.Apply(applyPath); err != nil {
			return err
		}
		log.Infof("Wallpaper set: %s", applyPath)
	}

	fmt.Println(applyPath)
	return convertErr
}
