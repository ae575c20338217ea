//go:build linux
// +build linux

package setter

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	log "github.com/sirupsen/logrus"
)

type linuxDesktop struct{}

func currentDesktop() desktop {
	return &linuxDesktop{}
}

// set dispatches on XDG_CURRENT_DESKTOP / DESKTOP_SESSION and the
// display server. Wayland compositors other than GNOME and sway are
// rejected rather than guessed at.
func (l *linuxDesktop) set(imagePath string) error {
	env := os.Getenv("XDG_CURRENT_DESKTOP")
	if env == "" {
		env = os.Getenv("DESKTOP_SESSION")
	}
	env = strings.ToLower(env)
	log.Debugf("Detected desktop environment: %q (wayland=%v)", env, isWayland())

	if isWayland() {
		switch {
		case strings.Contains(env, "gnome") || strings.Contains(env, "mutter"):
			return l.setGNOME(imagePath)
		case strings.Contains(env, "sway"):
			return l.setSway(imagePath)
		default:
			return fmt.Errorf("%w: wayland compositor %q", ErrUnsupported, env)
		}
	}

	switch {
	case strings.Contains(env, "gnome") || strings.Contains(env, "unity") || strings.Contains(env, "cinnamon"):
		return l.setGNOME(imagePath)
	case strings.Contains(env, "kde"):
		return l.setKDE(imagePath)
	case strings.Contains(env, "xfce"):
		return l.setXFCE(imagePath)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupported, env)
	}
}

func isWayland() bool {
	return os.Getenv("WAYLAND_DISPLAY") != ""
}

func (l *linuxDesktop) setGNOME(imagePath string) error {
	uri := fmt.Sprintf("file://%s", imagePath)
	for _, key := range []string{"picture-uri", "picture-uri-dark"} {
		cmd := exec.Command("gsettings", "set", "org.gnome.desktop.background", key, uri)
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("gsettings set %s failed: %w", key, err)
		}
	}
	return nil
}

func (l *linuxDesktop) setKDE(imagePath string) error {
	script := fmt.Sprintf(`
		var allDesktops = desktops();
		for (i=0;i<allDesktops.length;i++) {
			d = allDesktops[i];
			d.wallpaperPlugin = "org.kde.image";
			d.currentConfigGroup = Array("Wallpaper", "org.kde.image", "General");
			d.writeConfig("Image", "file://%s");
		}
	`, imagePath)
	cmd := exec.Command("qdbus", "org.kde.plasmashell", "/PlasmaShell",
		"org.kde.PlasmaShell.evaluateScript", script)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("plasmashell script failed: %w", err)
	}
	return nil
}

func (l *linuxDesktop) setXFCE(imagePath string) error {
	cmd := exec.Command("xfconf-query",
		"--channel", "xfce4-desktop",
		"--property", "/backdrop/screen0/monitor0/workspace0/last-image",
		"--set", imagePath)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("xfconf-query failed: %w", err)
	}
	return nil
}

// setSway prefers swww when installed since swaybg blocks; swaybg is
// started detached as a fallback.
func (l *linuxDesktop) setSway(imagePath string) error {
	if _, err := exec.LookPath("swww"); err == nil {
		if err := exec.Command("swww", "img", imagePath).Run(); err != nil {
			return fmt.Errorf("swww failed: %w", err)
		}
		return nil
	}
	cmd := exec.Command("swaybg", "-i", imagePath, "-m", "fill")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("swaybg failed: %w", err)
	}
	return nil
}
