package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go-wallpaper-fetch/internal/helpers"
	"go-wallpaper-fetch/internal/setter"
	"go-wallpaper-fetch/internal/terminal"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List downloaded wallpapers",
	Long: `Lists the image files in the wallpaper directory and any configured
converted directories. With --fzf, an interactive picker with image
previews opens and the selection is applied as the wallpaper.`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().Bool("fzf", false, "Pick a wallpaper interactively with fzf and apply it.")
	listCmd.Flags().Bool("converted", false, "Include converted copies in the listing.")
}

func runList(cmd *cobra.Command, args []string) error {
	pick, _ := cmd.Flags().GetBool("fzf")
	includeConverted, _ := cmd.Flags().GetBool("converted")

	dirs := []string{globalConfig.WallpaperDir}
	if includeConverted || pick {
		dirs = append(dirs, globalConfig.ConvertedDirs...)
	}

	files := collectImages(dirs)
	if len(files) == 0 {
		return fmt.Errorf("no wallpapers found in %s", strings.Join(dirs, ", "))
	}

	if !pick {
		for _, f := range files {
			fmt.Println(f)
		}
		return nil
	}

	selection, err := pickWithFzf(files)
	if err != nil {
		return err
	}
	if selection == "" {
		log.Debug("Picker cancelled, nothing applied")
		return nil
	}

	if err := setter.Apply(selection); err != nil {
		return err
	}
	log.Infof("Wallpaper set: %s", selection)
	return nil
}

// collectImages gathers image files from dirs, newest first, deduped.
func collectImages(dirs []string) []string {
	type entry struct {
		path string
		mod  int64
	}
	seen := make(map[string]bool)
	var entries []entry

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		dirEntries, err := os.ReadDir(dir)
		if err != nil {
			log.Debugf("Skipping unreadable directory %s: %v", dir, err)
			continue
		}
		for _, e := range dirEntries {
			if e.IsDir() || !helpers.IsImageFile(e.Name()) {
				continue
			}
			p := filepath.Join(dir, e.Name())
			if seen[p] {
				continue
			}
			seen[p] = true
			info, infoErr := e.Info()
			if infoErr != nil {
				continue
			}
			entries = append(entries, entry{path: p, mod: info.ModTime().UnixNano()})
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].mod > entries[j].mod })
	files := make([]string, len(entries))
	for i, e := range entries {
		files[i] = e.path
	}
	return files
}

// pickWithFzf runs fzf over the file list with an image preview matched
// to the terminal's capabilities. fzf owns the tty, so the selection is
// captured through a temp file instead of a pipe. An empty return with a
// nil error means the user cancelled.
func pickWithFzf(files []string) (string, error) {
	if _, err := exec.LookPath("fzf"); err != nil {
		return "", fmt.Errorf("fzf is not installed: %w", err)
	}

	cap := terminal.Detect(terminal.SnapshotEnv())
	cols, rows := terminal.WindowSize()
	preview := terminal.PreviewCommand(cap, cols, rows)
	log.Debugf("Preview capability %s, command: %s", cap, preview)

	selFile, err := os.CreateTemp("", "wallfetch-pick-*.txt")
	if err != nil {
		return "", fmt.Errorf("creating selection file: %w", err)
	}
	selFile.Close()
	defer os.Remove(selFile.Name())

	shellCmd := fmt.Sprintf("fzf --preview %s --preview-window=right:60%% > %s",
		shellQuote(preview), shellQuote(selFile.Name()))
	fzf := exec.Command("sh", "-c", shellCmd)
	fzf.Stdin = strings.NewReader(strings.Join(files, "\n"))
	fzf.Stderr = os.Stderr

	if err := fzf.Run(); err != nil {
		// fzf exits 130 on cancel; treat any failure with an empty
		// selection file as a cancel rather than an error.
		selection, _ := os.ReadFile(selFile.Name())
		if len(strings.TrimSpace(string(selection))) == 0 {
			return "", nil
		}
		return "", fmt.Errorf("fzf failed: %w", err)
	}

	selection, err := os.ReadFile(selFile.Name())
	if err != nil {
		return "", fmt.Errorf("reading selection: %w", err)
	}
	return strings.TrimSpace(string(selection)), nil
}

// shellQuote single-quotes s for sh -c embedding.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
