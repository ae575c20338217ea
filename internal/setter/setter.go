// Package setter applies an image as the desktop wallpaper. Platform
// differences live behind the desktop interface; the platform files
// each provide currentDesktop() for their build.
package setter

import (
	"errors"
	"fmt"
	"os"
)

// ErrUnsupported is returned when no known desktop environment was
// detected on this platform.
var ErrUnsupported = errors.New("unsupported desktop environment")

// desktop is one platform's way of setting the wallpaper.
type desktop interface {
	set(imagePath string) error
}

// Apply sets imagePath as the desktop wallpaper for the detected
// environment. The path must point at an existing regular file.
func Apply(imagePath string) error {
	info, err := os.Stat(imagePath)
	if err != nil {
		return fmt.Errorf("wallpaper file not accessible: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("wallpaper path is a directory: %s", imagePath)
	}
	return currentDesktop().set(imagePath)
}
