// Package converter wraps the external gowall binary, which applies a
// named color theme to an image. Conversion failures are distinct from
// filesystem and fetch errors so composite pipelines can report them
// separately and keep the downloaded original intact.
package converter

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go-wallpaper-fetch/internal/helpers"

	log "github.com/sirupsen/logrus"
)

// Custom Converter Errors
var (
	ErrNotInstalled  = errors.New("gowall is not installed or not executable")
	ErrConvertFailed = errors.New("gowall conversion failed")
)

// Artifact is one themed output file.
type Artifact struct {
	Theme string
	Path  string
}

// Converter invokes gowall. The binary name is a field so tests can
// point it at a stub.
type Converter struct {
	Binary string
}

// New returns a Converter using the gowall binary from PATH.
func New() *Converter {
	return &Converter{Binary: "gowall"}
}

// CheckInstalled verifies the gowall binary is present and runnable.
func (cv *Converter) CheckInstalled() error {
	cmd := exec.Command(cv.Binary, "--version")
	if out, err := cmd.Output(); err != nil {
		log.WithError(err).Debugf("gowall --version failed (output: %q)", string(out))
		return fmt.Errorf("%w: install it from https://github.com/Achno/gowall", ErrNotInstalled)
	}
	return nil
}

// Convert applies theme to inputPath, writing one themed copy into each
// output directory. gowall is invoked once per directory. Output names
// carry the wallfetch prefix and the theme so repeated conversions of
// the same image under different themes coexist.
func (cv *Converter) Convert(inputPath, theme string, outputDirs []string) ([]Artifact, error) {
	if err := cv.CheckInstalled(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(inputPath); err != nil {
		return nil, fmt.Errorf("input image %s: %w", inputPath, err)
	}
	if len(outputDirs) == 0 {
		return nil, errors.New("no output directories configured")
	}

	artifacts := make([]Artifact, 0, len(outputDirs))
	for _, dir := range outputDirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return artifacts, fmt.Errorf("creating output directory %s: %w", dir, err)
		}
		outPath := filepath.Join(dir, OutputName(inputPath, theme))

		cmd := exec.Command(cv.Binary, "convert", inputPath, "-t", theme, "--output", outPath)
		out, err := cmd.CombinedOutput()
		if err != nil {
			log.WithError(err).Errorf("gowall convert failed for %s -> %s", inputPath, outPath)
			return artifacts, fmt.Errorf("%w: %s", ErrConvertFailed, strings.TrimSpace(string(out)))
		}

		log.Infof("Converted %s with theme %s -> %s", filepath.Base(inputPath), theme, outPath)
		artifacts = append(artifacts, Artifact{Theme: theme, Path: outPath})
	}
	return artifacts, nil
}

// ListThemes parses `gowall list`, one theme per line.
func (cv *Converter) ListThemes() ([]string, error) {
	if err := cv.CheckInstalled(); err != nil {
		return nil, err
	}
	out, err := exec.Command(cv.Binary, "list").Output()
	if err != nil {
		return nil, fmt.Errorf("%w: listing themes: %v", ErrConvertFailed, err)
	}

	var themes []string
	for _, line := range strings.Split(string(out), "\n") {
		if t := strings.TrimSpace(line); t != "" {
			themes = append(themes, t)
		}
	}
	return themes, nil
}

// OutputName derives the themed filename from the input. A
// wallfetch-wallhaven-xyz.jpg input becomes
// wallfetch-<theme>-wallhaven-xyz.jpg; other inputs get the prefix and
// theme prepended. Theme names are slugged since gowall themes may
// contain spaces or capitals.
func OutputName(inputPath, theme string) string {
	base := filepath.Base(inputPath)
	slug := helpers.ConvertToSlug(theme)
	const prefix = "wallfetch-"
	if strings.HasPrefix(base, prefix) {
		return prefix + slug + "-" + strings.TrimPrefix(base, prefix)
	}
	return prefix + slug + "-" + base
}
