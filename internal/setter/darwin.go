//go:build darwin
// +build darwin

package setter

import (
	"fmt"
	"os/exec"
)

type macDesktop struct{}

func currentDesktop() desktop {
	return &macDesktop{}
}

func (m *macDesktop) set(imagePath string) error {
	script := fmt.Sprintf(`
		tell application "Finder"
			set desktop picture to POSIX file "%s"
		end tell
	`, imagePath)
	if err := exec.Command("osascript", "-e", script).Run(); err != nil {
		return fmt.Errorf("osascript failed: %w", err)
	}
	return nil
}
