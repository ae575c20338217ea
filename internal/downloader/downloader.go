package downloader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go-wallpaper-fetch/internal/helpers"

	log "github.com/sirupsen/logrus"
)

// Custom Downloader Errors
var (
	ErrFileSystem = errors.New("filesystem error") // Covers create, remove, rename
	ErrTruncated  = errors.New("download truncated before declared length")
)

// Commit streams body into a temporary file next to targetFilepath and
// atomically renames it into place once the full stream is received.
// declaredLen is the Content-Length reported by the server (-1 when
// unknown); a short read against a declared length aborts the commit.
// On any failure the temporary file is removed, so a partially written
// file is never visible under the final name.
func Commit(targetFilepath string, body io.Reader, declaredLen int64) (string, error) {
	targetDir := filepath.Dir(targetFilepath)
	baseName := filepath.Base(targetFilepath)

	if err := os.MkdirAll(targetDir, 0700); err != nil {
		return "", fmt.Errorf("%w: creating target directory %s: %v", ErrFileSystem, targetDir, err)
	}

	tempFile, err := os.CreateTemp(targetDir, baseName+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("%w: creating temporary file for %s: %v", ErrFileSystem, targetFilepath, err)
	}
	shouldCleanupTemp := true
	defer func() {
		if shouldCleanupTemp {
			log.Debugf("Cleaning up temporary file: %s", tempFile.Name())
			if removeErr := os.Remove(tempFile.Name()); removeErr != nil && !os.IsNotExist(removeErr) {
				log.WithError(removeErr).Warnf("Failed to remove temporary file %s", tempFile.Name())
			}
		}
	}()

	written, err := io.Copy(tempFile, body)
	if err != nil {
		tempFile.Close()
		return "", fmt.Errorf("%w: writing temporary file %s: %v", ErrFileSystem, tempFile.Name(), err)
	}

	if err := tempFile.Close(); err != nil {
		return "", fmt.Errorf("%w: closing temp file %s: %v", ErrFileSystem, tempFile.Name(), err)
	}

	if declaredLen > 0 && written != declaredLen {
		log.Errorf("Short download for %s: got %d of %d bytes", targetFilepath, written, declaredLen)
		return "", fmt.Errorf("%w: got %d of %d bytes", ErrTruncated, written, declaredLen)
	}

	if err := os.Rename(tempFile.Name(), targetFilepath); err != nil {
		return "", fmt.Errorf("%w: renaming %s to %s: %v", ErrFileSystem, tempFile.Name(), targetFilepath, err)
	}
	shouldCleanupTemp = false

	log.Debugf("Committed %s to %s", helpers.BytesToSize(uint64(written)), targetFilepath)
	return targetFilepath, nil
}
