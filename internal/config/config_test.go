package config

import (
	"os"
	"path/filepath"
	"testing"

	"go-wallpaper-fetch/internal/models"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing config file should not be an error, got %v", err)
	}
	if cfg.DefaultSource != "wallhaven" {
		t.Errorf("DefaultSource = %q, want wallhaven", cfg.DefaultSource)
	}
	if cfg.Resolution != models.DefaultResolution {
		t.Errorf("Resolution = %q, want %q", cfg.Resolution, models.DefaultResolution)
	}
	if cfg.Concurrency != models.DefaultConcurrency {
		t.Errorf("Concurrency = %d, want %d", cfg.Concurrency, models.DefaultConcurrency)
	}
}

func TestSaveAndLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	in := models.Config{
		DefaultSource: "unsplash",
		WallpaperDir:  "/walls",
		ConvertedDirs: []string{"/walls/nord", "/walls/catppuccin"},
		Query:         "mountains",
		Resolution:    "3840x2160",
		DefaultTheme:  "nord",
		Concurrency:   8,
		Cron:          "0 * * * *",
	}
	if err := SaveConfig(path, in); err != nil {
		t.Fatalf("SaveConfig returned error: %v", err)
	}

	out, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if out.DefaultSource != "unsplash" || out.WallpaperDir != "/walls" {
		t.Errorf("roundtrip lost fields: %+v", out)
	}
	if len(out.ConvertedDirs) != 2 || out.ConvertedDirs[0] != "/walls/nord" {
		t.Errorf("ConvertedDirs = %v", out.ConvertedDirs)
	}
	if out.Query != "mountains" || out.Resolution != "3840x2160" || out.Cron != "0 * * * *" {
		t.Errorf("roundtrip lost search fields: %+v", out)
	}
	// Defaults fill what was left unset.
	if out.Categories != models.DefaultCategories {
		t.Errorf("Categories = %q, want default %q", out.Categories, models.DefaultCategories)
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := SaveConfig(path, models.Config{}); err != nil {
		t.Fatal(err)
	}
	// Corrupt it.
	if err := os.WriteFile(path, []byte("DefaultSource = [broken"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for malformed TOML")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("WALLHAVEN_API_KEY", "env-wh")
	t.Setenv("UNSPLASH_ACCESS_KEY", "env-us")

	cfg := models.Config{WallhavenAPIKey: "file-wh", UnsplashAccessKey: "file-us"}
	ApplyEnvOverrides(&cfg)
	if cfg.WallhavenAPIKey != "env-wh" {
		t.Errorf("WallhavenAPIKey = %q, want env value", cfg.WallhavenAPIKey)
	}
	if cfg.UnsplashAccessKey != "env-us" {
		t.Errorf("UnsplashAccessKey = %q, want env value", cfg.UnsplashAccessKey)
	}
}

func TestApplyEnvOverridesEmptyEnvKeepsFile(t *testing.T) {
	t.Setenv("WALLHAVEN_API_KEY", "")
	t.Setenv("UNSPLASH_ACCESS_KEY", "")

	cfg := models.Config{WallhavenAPIKey: "file-wh"}
	ApplyEnvOverrides(&cfg)
	if cfg.WallhavenAPIKey != "file-wh" {
		t.Errorf("empty env var clobbered file value: %q", cfg.WallhavenAPIKey)
	}
}
