package cmd

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go-wallpaper-fetch/index"
	"go-wallpaper-fetch/internal/converter"
)

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert [IMAGE]",
	Short: "Recolor a wallpaper to a terminal theme via gowall",
	Long: `Runs the external gowall tool to recolor the given image to a theme
palette. One converted copy is written per configured output directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

// themesCmd lists the themes gowall knows about
var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "List themes available to the converter",
	RunE:  runThemes,
}

func init() {
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(themesCmd)

	convertCmd.Flags().StringP("theme", "t", "", "Theme to convert to. Overrides config.")
	convertCmd.Flags().StringSliceP("output", "o", nil, "Output directories (default from config).")
}

func runConvert(cmd *cobra.Command, args []string) error {
	theme, _ := cmd.Flags().GetString("theme")
	if theme == "" {
		theme = globalConfig.DefaultTheme
	}
	if theme == "" {
		return fmt.Errorf("no theme given: use --theme or set DefaultTheme in config")
	}

	outputDirs, _ := cmd.Flags().GetStringSlice("output")
	if len(outputDirs) == 0 {
		outputDirs = globalConfig.ConvertedDirs
	}
	if len(outputDirs) == 0 {
		outputDirs = []string{globalConfig.WallpaperDir}
	}

	cv := converter.New()
	if err := cv.CheckInstalled(); err != nil {
		return err
	}

	artifacts, err := cv.Convert(args[0], theme, outputDirs)
	indexArtifacts(artifacts)
	for _, a := range artifacts {
		fmt.Println(a.Path)
	}
	if err != nil {
		return err
	}

	log.Infof("Converted %s to theme %s (%d output(s))", args[0], theme, len(artifacts))
	return nil
}

// indexArtifacts records converted copies in the search index so theme
// queries find them. Index failures only warn.
func indexArtifacts(artifacts []converter.Artifact) {
	if len(artifacts) == 0 {
		return
	}
	idx, err := index.OpenOrCreateIndex(globalConfig.IndexPath)
	if err != nil {
		log.WithError(err).Debug("Index unavailable, skipping converted-copy entries")
		return
	}
	defer idx.Close()

	for _, a := range artifacts {
		item := index.Item{
			ID:           fmt.Sprintf("converted-%s-%s", a.Theme, a.Path),
			Source:       "converted",
			Theme:        a.Theme,
			FilePath:     a.Path,
			DownloadedAt: time.Now(),
		}
		if err := index.IndexItem(idx, item); err != nil {
			log.WithError(err).Warnf("Failed to index converted copy %s", a.Path)
		}
	}
}

func runThemes(cmd *cobra.Command, args []string) error {
	cv := converter.New()
	if err := cv.CheckInstalled(); err != nil {
		return err
	}
	themes, err := cv.ListThemes()
	if err != nil {
		return err
	}
	for _, t := range themes {
		fmt.Println(t)
	}
	return nil
}
