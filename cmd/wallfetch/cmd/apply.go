package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go-wallpaper-fetch/internal/helpers"
	"go-wallpaper-fetch/internal/setter"
)

// applyCmd represents the apply command
var applyCmd = &cobra.Command{
	Use:   "apply [IMAGE]",
	Short: "Set an image as the desktop wallpaper",
	Long: `Applies the given image as the desktop wallpaper for the detected
desktop environment. Without an argument, the most recently downloaded
wallpaper is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	var path string
	if len(args) == 1 {
		path = args[0]
	} else {
		latest, err := latestWallpaper(globalConfig.WallpaperDir)
		if err != nil {
			return err
		}
		path = latest
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving wallpaper path: %w", err)
	}

	if err := setter.Apply(abs); err != nil {
		return err
	}
	log.Infof("Wallpaper set: %s", abs)
	return nil
}

// latestWallpaper returns the most recently modified image file in dir.
func latestWallpaper(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("reading wallpaper directory %s: %w", dir, err)
	}

	type candidate struct {
		path string
		mod  int64
	}
	var candidates []candidate
	for _, e := range entries {
		if e.IsDir() || !helpers.IsImageFile(e.Name()) {
			continue
		}
		info, infoErr := e.Info()
		if infoErr != nil {
			continue
		}
		candidates = append(candidates, candidate{
			path: filepath.Join(dir, e.Name()),
			mod:  info.ModTime().UnixNano(),
		})
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no wallpapers found in %s", dir)
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].mod > candidates[j].mod })
	return candidates[0].path, nil
}
