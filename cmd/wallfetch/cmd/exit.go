package cmd

import (
	"errors"
	"net"

	"go-wallpaper-fetch/internal/converter"
	"go-wallpaper-fetch/internal/fetcher"
	"go-wallpaper-fetch/internal/schedule"
	"go-wallpaper-fetch/internal/source"
)

// Process exit codes. Scripts and the cron entry key off these, so the
// numbering is stable.
const (
	exitOK         = 0
	exitGeneric    = 1
	exitAuth       = 2
	exitRateLimit  = 3
	exitNoResults  = 4
	exitConversion = 5
	exitSchedule   = 6
	exitPartial    = 7
)

// errPartial marks a batch where some but not all downloads succeeded.
var errPartial = errors.New("some downloads failed")

// exitCodeFor maps a command error to the process exit code.
func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}

	var netErr net.Error
	switch {
	case errors.Is(err, source.ErrAuth):
		return exitAuth
	case errors.Is(err, source.ErrRateLimited):
		return exitRateLimit
	case errors.Is(err, errPartial):
		return exitPartial
	case errors.Is(err, fetcher.ErrNoCommits),
		errors.Is(err, source.ErrNotFound),
		errors.Is(err, source.ErrServerError),
		errors.As(err, &netErr):
		return exitNoResults
	case errors.Is(err, converter.ErrNotInstalled),
		errors.Is(err, converter.ErrConvertFailed):
		return exitConversion
	case errors.Is(err, schedule.ErrWrite),
		errors.Is(err, schedule.ErrInvalidExpr):
		return exitSchedule
	default:
		return exitGeneric
	}
}
