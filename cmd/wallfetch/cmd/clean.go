package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cleanCmd)

	cleanCmd.Flags().Bool("converted", false, "Also scan the converted output directories")
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove temporary (.tmp) files from the wallpaper directory",
	Long: `Recursively scans the wallpaper directory and removes any files ending
with the .tmp extension. These are partial downloads left behind by an
interrupted fetch; completed wallpapers are never touched.`,
	RunE: runClean,
}

func runClean(cmd *cobra.Command, args []string) error {
	cleanConverted, _ := cmd.Flags().GetBool("converted")

	dirs := []string{globalConfig.WallpaperDir}
	if cleanConverted {
		dirs = append(dirs, globalConfig.ConvertedDirs...)
	}

	var removed, failed int64
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		info, err := os.Stat(dir)
		if os.IsNotExist(err) {
			log.Debugf("Directory does not exist, skipping: %s", dir)
			continue
		}
		if err != nil {
			log.Warnf("Error accessing %q: %v", dir, err)
			continue
		}
		if !info.IsDir() {
			log.Warnf("Not a directory, skipping: %s", dir)
			continue
		}

		log.Infof("Scanning for .tmp files in %s...", dir)
		walkErr := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				log.Warnf("Error accessing path %q during scan: %v", path, err)
				return nil
			}
			if info.IsDir() {
				return nil
			}
			if !strings.HasSuffix(strings.ToLower(info.Name()), ".tmp") {
				return nil
			}

			if rmErr := os.Remove(path); rmErr != nil {
				if os.IsNotExist(rmErr) {
					log.Warnf("Attempted to remove %q, but it was already gone.", path)
				} else {
					log.Errorf("Failed to remove %q: %v", path, rmErr)
					failed++
				}
			} else {
				log.Infof("Removed: %s", path)
				removed++
			}
			return nil
		})
		if walkErr != nil {
			log.Errorf("Error during directory walk of %q: %v", dir, walkErr)
			failed++
		}
	}

	log.Infof("Clean complete. Removed %d file(s).", removed)
	if failed > 0 {
		return fmt.Errorf("failed to remove %d file(s)", failed)
	}
	return nil
}
