// Package fetcher drives provider searches and concurrent downloads.
// A bounded worker pool pulls candidates from the provider's page
// sequence until the requested number of files is committed or the
// sequence is exhausted. Files become visible only via atomic rename,
// so concurrent readers of the wallpaper directory never observe a
// partial download.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go-wallpaper-fetch/internal/downloader"
	"go-wallpaper-fetch/internal/helpers"
	"go-wallpaper-fetch/internal/source"

	"github.com/gosuri/uilive"
	log "github.com/sirupsen/logrus"
)

// FilePrefix tags every file this tool writes so clean can find them.
const FilePrefix = "wallfetch-"

// maxAttempts bounds retries for transient download failures.
const maxAttempts = 3

// ErrNoCommits is returned when the candidate supply is exhausted with
// nothing committed.
var ErrNoCommits = errors.New("no wallpapers could be downloaded")

// Result summarizes one fetch batch. Committed paths are in completion
// order, which need not match candidate order.
type Result struct {
	Committed []string
	Skipped   int
	Failed    int
	FirstErr  error
}

// Options configures a fetch batch.
type Options struct {
	DestDir     string
	Count       int
	Concurrency int

	// Known reports whether a dedup key was downloaded before, backed by
	// the history database. Optional; the destination directory is always
	// checked regardless, so dedup still works when the database is
	// unavailable.
	Known func(key string) bool
}

// CommitHook is called once per committed file, outside the worker pool.
type CommitHook func(c source.Candidate, path string)

// Fetcher runs fetch batches against a provider.
type Fetcher struct {
	provider source.Provider
	onCommit CommitHook

	mu        sync.Mutex
	reserved  int
	committed []string
	skipped   int
	failed    int
	firstErr  error
}

// New creates a Fetcher. onCommit may be nil.
func New(provider source.Provider, onCommit CommitHook) *Fetcher {
	return &Fetcher{provider: provider, onCommit: onCommit}
}

// reserve claims one of the remaining commit slots. Workers that fail a
// download release their slot so a later candidate can take it; this is
// what keeps the final committed count exact with no overshoot.
func (f *Fetcher) reserve(count int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reserved >= count {
		return false
	}
	f.reserved++
	return true
}

func (f *Fetcher) release() {
	f.mu.Lock()
	f.reserved--
	f.mu.Unlock()
}

func (f *Fetcher) commit(path string) {
	f.mu.Lock()
	f.committed = append(f.committed, path)
	f.mu.Unlock()
}

func (f *Fetcher) recordSkip() {
	f.mu.Lock()
	f.skipped++
	f.mu.Unlock()
}

func (f *Fetcher) recordFailure(err error) {
	f.mu.Lock()
	f.failed++
	if f.firstErr == nil {
		f.firstErr = err
	}
	f.mu.Unlock()
}

func (f *Fetcher) committedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.committed)
}

// Fetch searches the provider and downloads until opts.Count files are
// committed or the candidate sequence is exhausted. A credential failure
// from a provider requiring a key surfaces immediately; per-candidate
// failures are recorded and never abort the batch. The returned error is
// non-nil only when nothing at all was committed.
func (f *Fetcher) Fetch(ctx context.Context, query source.SearchQuery, opts Options) (Result, error) {
	if opts.Count <= 0 {
		opts.Count = 1
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if !helpers.CheckAndMakeDir(opts.DestDir) {
		return Result{}, fmt.Errorf("%w: cannot create destination %s", downloader.ErrFileSystem, opts.DestDir)
	}

	// Reset per-batch state so a Fetcher can be reused.
	f.mu.Lock()
	f.reserved = 0
	f.committed = nil
	f.skipped = 0
	f.failed = 0
	f.firstErr = nil
	f.mu.Unlock()

	jobs := make(chan source.Candidate)
	writer := uilive.New()
	writer.Start()
	defer writer.Stop()

	var wg sync.WaitGroup
	log.Infof("Starting %d download workers...", opts.Concurrency)
	for w := 1; w <= opts.Concurrency; w++ {
		wg.Add(1)
		go f.worker(ctx, w, jobs, opts, writer, &wg)
	}

	pager := f.provider.Search(query)
	feedErr := f.feed(ctx, pager, jobs, opts.Count)
	close(jobs)
	wg.Wait()

	f.mu.Lock()
	result := Result{
		Committed: f.committed,
		Skipped:   f.skipped,
		Failed:    f.failed,
		FirstErr:  f.firstErr,
	}
	f.mu.Unlock()

	// A credential failure means the search never ran; surface it as-is
	// rather than reporting an empty batch.
	if feedErr != nil && errors.Is(feedErr, source.ErrAuth) {
		return result, feedErr
	}

	if len(result.Committed) == 0 {
		if feedErr != nil {
			return result, feedErr
		}
		if result.FirstErr != nil {
			return result, fmt.Errorf("%w: %v", ErrNoCommits, result.FirstErr)
		}
		if result.Skipped == 0 {
			return result, ErrNoCommits
		}
	}
	return result, nil
}

// feed paginates the candidate sequence into the jobs channel. It stops
// when the commit target is reached, the sequence is exhausted, or the
// context is cancelled.
func (f *Fetcher) feed(ctx context.Context, pager *source.Pager, jobs chan<- source.Candidate, count int) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if f.committedCount() >= count {
			return nil
		}

		page, err := pager.Next(ctx)
		if err != nil {
			log.WithError(err).Error("Candidate search failed")
			return err
		}
		if page == nil {
			log.Debug("Candidate sequence exhausted")
			return nil
		}

		for _, c := range page {
			if f.committedCount() >= count {
				return nil
			}
			select {
			case jobs <- c:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// worker processes candidates: dedup check, slot reservation, download
// with bounded retry, atomic commit.
func (f *Fetcher) worker(ctx context.Context, id int, jobs <-chan source.Candidate, opts Options, writer *uilive.Writer, wg *sync.WaitGroup) {
	defer wg.Done()
	log.Debugf("Worker %d starting", id)
	for c := range jobs {
		if ctx.Err() != nil {
			continue
		}

		target := TargetPath(opts.DestDir, c)
		if existing := existingFile(opts.DestDir, c); existing != "" {
			log.Infof("Worker %d: %s already present as %s, skipping", id, c.Key(), filepath.Base(existing))
			f.recordSkip()
			continue
		}
		if opts.Known != nil && opts.Known(c.Key()) {
			log.Infof("Worker %d: %s already in download history, skipping", id, c.Key())
			f.recordSkip()
			continue
		}

		if !f.reserve(opts.Count) {
			// Enough downloads are committed or in flight.
			continue
		}

		fmt.Fprintf(writer.Newline(), "Worker %d: Downloading %s (%s)...\n", id, c.Key(), c.Resolution)
		path, err := f.download(ctx, c, target)
		if err != nil {
			f.release()
			if errors.Is(err, context.Canceled) {
				continue
			}
			f.recordFailure(err)
			log.WithError(err).Errorf("Worker %d: Failed to download %s", id, c.Key())
			fmt.Fprintf(writer.Newline(), "Worker %d: Error downloading %s: %v\n", id, c.Key(), err)
			continue
		}

		f.commit(path)
		fmt.Fprintf(writer.Newline(), "Worker %d: Committed %s\n", id, filepath.Base(path))
		if f.onCommit != nil {
			f.onCommit(c, path)
		}
	}
	log.Debugf("Worker %d finished", id)
}

// download fetches one candidate with retries for transient failures.
// Permanent failures (404 and other non-throttle 4xx) are not retried.
func (f *Fetcher) download(ctx context.Context, c source.Candidate, target string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		body, declaredLen, err := f.provider.Fetch(ctx, c)
		if err == nil {
			var path string
			path, err = downloader.Commit(target, body, declaredLen)
			body.Close()
			if err == nil {
				return path, nil
			}
		}
		lastErr = err

		// A dead parent context means the batch is being torn down, not
		// that this request timed out; stop retrying immediately.
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !isTransient(err) || attempt == maxAttempts {
			return "", lastErr
		}

		backoff := time.Duration(attempt) * 2 * time.Second
		log.WithError(err).Warnf("Transient failure for %s, retrying (%d/%d) after %s...", c.Key(), attempt, maxAttempts, backoff)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", lastErr
}

// isTransient reports whether a download error is worth retrying:
// timeouts, connection resets, truncated bodies and server errors are;
// 404s and other client errors are not. http.Client timeouts unwrap to
// context.DeadlineExceeded, so cancellation of the batch context is
// filtered in download rather than here.
func isTransient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, source.ErrNotFound), errors.Is(err, source.ErrAuth), errors.Is(err, source.ErrRateLimited):
		return false
	case errors.Is(err, source.ErrServerError), errors.Is(err, downloader.ErrTruncated):
		return true
	}
	// Client timeouts and syscall-level resets come through as
	// *url.Error values implementing net.Error.
	var netErr net.Error
	return errors.As(err, &netErr)
}

// TargetPath builds the committed filename for a candidate:
// wallfetch-<source>-<id><ext>. The extension comes from the URL path
// (Unsplash URLs carry imgix query strings), defaulting to .jpg.
func TargetPath(destDir string, c source.Candidate) string {
	ext := ""
	if u, err := url.Parse(c.URL); err == nil {
		ext = strings.ToLower(filepath.Ext(u.Path))
	}
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		ext = ".jpg"
	}
	return filepath.Join(destDir, fmt.Sprintf("%s%s-%s%s", FilePrefix, c.Source, c.ID, ext))
}

// existingFile looks for an already-committed file for the candidate's
// (source, id) key regardless of extension.
func existingFile(destDir string, c source.Candidate) string {
	pattern := filepath.Join(destDir, FilePrefix+c.Source+"-"+c.ID+".*")
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return ""
	}
	return matches[0]
}
