// Package source defines the wallpaper provider abstraction and its
// Wallhaven and Unsplash implementations. Providers differ in auth
// (optional vs mandatory key), pagination encoding, and which query
// options they support; everything above this package works with the
// uniform Candidate/Pager contract.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go-wallpaper-fetch/internal/models"
)

// Custom Error Types
var (
	ErrRateLimited = errors.New("API rate limit exceeded")
	ErrAuth        = errors.New("API credential missing or rejected")
	ErrNotFound    = errors.New("API resource not found")
	ErrServerError = errors.New("API server error")
	ErrUnknown     = errors.New("unknown wallpaper source")
)

// Candidate is one searchable wallpaper before download. IDs are only
// unique within a provider, so dedup keys must include the source tag.
type Candidate struct {
	ID         string
	URL        string
	ThumbURL   string
	Resolution string
	Source     string

	// downloadLocation is Unsplash's download-tracking endpoint, which
	// must be hit before fetching the actual bytes.
	downloadLocation string
}

// Key returns the dedup key "<source>-<id>".
func (c Candidate) Key() string {
	return c.Source + "-" + c.ID
}

// SearchQuery carries the provider-portable search options. Fields a
// provider does not support (e.g. Purity on Unsplash) are ignored, not
// rejected.
type SearchQuery struct {
	Query      string
	Resolution string
	Categories string
	Purity     string
	Sorting    string
}

// Pager is a lazy, finite, restartable page sequence. Each Next call
// performs at most one HTTP request and returns the next page of
// candidates; it returns (nil, nil) once the provider reports no further
// results.
type Pager struct {
	fetch func(ctx context.Context, page int) ([]Candidate, bool, error)
	page  int
	done  bool
}

// NewPager builds a Pager from a page-fetch function. Pages are numbered
// from 1.
func NewPager(fetch func(ctx context.Context, page int) ([]Candidate, bool, error)) *Pager {
	return &Pager{fetch: fetch}
}

// Next advances the sequence by one page.
func (p *Pager) Next(ctx context.Context) ([]Candidate, error) {
	if p.done {
		return nil, nil
	}
	p.page++
	candidates, more, err := p.fetch(ctx, p.page)
	if err != nil {
		p.done = true
		return nil, err
	}
	if !more || len(candidates) == 0 {
		p.done = true
	}
	return candidates, nil
}

// Reset rewinds the sequence to the first page.
func (p *Pager) Reset() {
	p.page = 0
	p.done = false
}

// Provider is the capability interface every wallpaper source implements.
type Provider interface {
	// Name returns the provider tag used in filenames and dedup keys.
	Name() string

	// RequiresKey reports whether a credential is mandatory. Providers
	// with a mandatory key fail fast with ErrAuth before any network
	// call when it is absent.
	RequiresKey() bool

	// Search returns the lazy candidate sequence for a query.
	Search(query SearchQuery) *Pager

	// Fetch opens the full-resolution byte stream for a candidate and
	// returns it together with the declared content length (-1 when
	// unknown).
	Fetch(ctx context.Context, c Candidate) (io.ReadCloser, int64, error)
}

// ForName constructs the provider for a source name, paced by the
// configured inter-request delay. The provider set is closed; adding a
// source means adding a case here.
func ForName(name string, cfg models.Config, client *http.Client) (Provider, error) {
	delay := time.Duration(cfg.ApiDelayMs) * time.Millisecond
	switch name {
	case "wallhaven":
		p := NewWallhaven(cfg.WallhavenAPIKey, client)
		p.delay = delay
		return p, nil
	case "unsplash":
		p := NewUnsplash(cfg.UnsplashAccessKey, client)
		p.delay = delay
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
}

// pace waits out the provider's inter-request delay before an API call
// so bursts of page fetches stay under the provider's rate limits.
func pace(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retryAfterLimit performs one bounded exponential-backoff retry when fn
// reports a rate limit. Providers call it around their page fetches so a
// single 429 does not surface immediately.
func retryAfterLimit(ctx context.Context, fn func() error) error {
	err := fn()
	if !errors.Is(err, ErrRateLimited) {
		return err
	}
	select {
	case <-time.After(2 * time.Second):
	case <-ctx.Done():
		return ctx.Err()
	}
	return fn()
}

// statusError maps an HTTP status to the package error taxonomy.
// keyed reports whether the request carried a credential: a 403 on a
// keyed request is treated as throttling (Wallhaven does this), on a
// bare request as an auth failure.
func statusError(status int, keyed bool) error {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status == http.StatusForbidden && keyed:
		return ErrRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrAuth
	case status == http.StatusNotFound:
		return ErrNotFound
	case status >= 500:
		return fmt.Errorf("%w (status code %d)", ErrServerError, status)
	default:
		return fmt.Errorf("API request failed with status %d", status)
	}
}
