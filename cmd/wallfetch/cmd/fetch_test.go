package cmd

import (
	"testing"

	"github.com/spf13/viper"

	"go-wallpaper-fetch/internal/models"
)

func TestSetupSearchQueryViperPrecedence(t *testing.T) {
	cfg := models.Config{
		Query:      "mountains",
		Resolution: "2560x1440",
		Categories: "111",
		Purity:     "100",
		Sorting:    "relevance",
	}

	viper.Set("fetch.query", "forest")
	viper.Set("fetch.sorting", "toplist")
	t.Cleanup(func() {
		viper.Set("fetch.query", "")
		viper.Set("fetch.sorting", "")
	})

	q := setupSearchQuery("fetch", &cfg)
	if q.Query != "forest" {
		t.Errorf("query = %q, want the bound value to win", q.Query)
	}
	if q.Sorting != "toplist" {
		t.Errorf("sorting = %q, want the bound value to win", q.Sorting)
	}
	// Unbound keys fall through to config.
	if q.Resolution != "2560x1440" || q.Categories != "111" || q.Purity != "100" {
		t.Errorf("config fallbacks not applied: %+v", q)
	}
}

func TestSetupSearchQueryConfigFallback(t *testing.T) {
	cfg := models.Config{Query: "lakes", Resolution: "1920x1080"}
	q := setupSearchQuery("run", &cfg)
	if q.Query != "lakes" || q.Resolution != "1920x1080" {
		t.Errorf("expected config values, got %+v", q)
	}
}
