package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go-wallpaper-fetch/internal/source"
)

// fakeProvider serves candidate pages from memory and fails downloads
// for selected IDs. Failures use non-retryable errors so tests never
// sit in backoff sleeps.
type fakeProvider struct {
	name    string
	pages   [][]source.Candidate
	failIDs map[string]error

	mu      sync.Mutex
	fetched []string
}

func (p *fakeProvider) Name() string      { return p.name }
func (p *fakeProvider) RequiresKey() bool { return false }

func (p *fakeProvider) Search(q source.SearchQuery) *source.Pager {
	return source.NewPager(func(ctx context.Context, page int) ([]source.Candidate, bool, error) {
		if page > len(p.pages) {
			return nil, false, nil
		}
		return p.pages[page-1], page < len(p.pages), nil
	})
}

func (p *fakeProvider) Fetch(ctx context.Context, c source.Candidate) (io.ReadCloser, int64, error) {
	p.mu.Lock()
	p.fetched = append(p.fetched, c.ID)
	p.mu.Unlock()

	if err, ok := p.failIDs[c.ID]; ok {
		return nil, 0, err
	}
	content := "image-" + c.ID
	return io.NopCloser(strings.NewReader(content)), int64(len(content)), nil
}

func candidates(src string, ids ...string) []source.Candidate {
	out := make([]source.Candidate, len(ids))
	for i, id := range ids {
		out[i] = source.Candidate{
			ID:         id,
			URL:        "https://cdn.example/" + id + ".jpg",
			Resolution: "2560x1440",
			Source:     src,
		}
	}
	return out
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading dir: %v", err)
	}
	return len(entries)
}

func TestFetchExactCount(t *testing.T) {
	dir := t.TempDir()
	p := &fakeProvider{
		name:  "fake",
		pages: [][]source.Candidate{candidates("fake", "a", "b", "c", "d", "e", "f")},
	}

	f := New(p, nil)
	result, err := f.Fetch(context.Background(), source.SearchQuery{}, Options{
		DestDir:     dir,
		Count:       3,
		Concurrency: 4,
	})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if len(result.Committed) != 3 {
		t.Errorf("committed %d files, want exactly 3", len(result.Committed))
	}
	if got := countFiles(t, dir); got != 3 {
		t.Errorf("%d files on disk, want exactly 3", got)
	}
	for _, path := range result.Committed {
		if !strings.HasPrefix(filepath.Base(path), FilePrefix+"fake-") {
			t.Errorf("committed file %q missing prefix", path)
		}
		if _, statErr := os.Stat(path); statErr != nil {
			t.Errorf("committed path does not exist: %v", statErr)
		}
	}
}

func TestFetchSkipsExisting(t *testing.T) {
	dir := t.TempDir()
	p := &fakeProvider{
		name:  "fake",
		pages: [][]source.Candidate{candidates("fake", "a", "b")},
	}

	// Pre-commit candidate "a".
	existing := filepath.Join(dir, FilePrefix+"fake-a.jpg")
	if err := os.WriteFile(existing, []byte("old"), 0600); err != nil {
		t.Fatal(err)
	}

	f := New(p, nil)
	result, err := f.Fetch(context.Background(), source.SearchQuery{}, Options{
		DestDir:     dir,
		Count:       2,
		Concurrency: 1,
	})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if result.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", result.Skipped)
	}
	if len(result.Committed) != 1 {
		t.Errorf("committed = %d, want 1 (only candidate b)", len(result.Committed))
	}
	// The pre-existing file is untouched.
	data, _ := os.ReadFile(existing)
	if string(data) != "old" {
		t.Error("existing file was overwritten")
	}
	// "a" was never fetched.
	for _, id := range p.fetched {
		if id == "a" {
			t.Error("provider fetched an already-present candidate")
		}
	}
}

func TestFetchSkipsKnown(t *testing.T) {
	dir := t.TempDir()
	p := &fakeProvider{
		name:  "fake",
		pages: [][]source.Candidate{candidates("fake", "a", "b")},
	}

	f := New(p, nil)
	result, err := f.Fetch(context.Background(), source.SearchQuery{}, Options{
		DestDir:     dir,
		Count:       2,
		Concurrency: 1,
		Known:       func(key string) bool { return key == "fake-a" },
	})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if result.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", result.Skipped)
	}
	if len(result.Committed) != 1 {
		t.Errorf("committed = %d, want 1", len(result.Committed))
	}
	for _, id := range p.fetched {
		if id == "a" {
			t.Error("provider fetched a candidate already in history")
		}
	}
}

func TestFetchPartialFailure(t *testing.T) {
	dir := t.TempDir()
	p := &fakeProvider{
		name:    "fake",
		pages:   [][]source.Candidate{candidates("fake", "good1", "bad", "good2")},
		failIDs: map[string]error{"bad": source.ErrNotFound},
	}

	f := New(p, nil)
	result, err := f.Fetch(context.Background(), source.SearchQuery{}, Options{
		DestDir:     dir,
		Count:       3,
		Concurrency: 1,
	})
	// Partial success is not an error at this level; the caller decides.
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(result.Committed) != 2 {
		t.Errorf("committed = %d, want 2", len(result.Committed))
	}
	if result.Failed != 1 {
		t.Errorf("failed = %d, want 1", result.Failed)
	}
	if !errors.Is(result.FirstErr, source.ErrNotFound) {
		t.Errorf("FirstErr = %v, want ErrNotFound", result.FirstErr)
	}
}

func TestFetchAllFailed(t *testing.T) {
	dir := t.TempDir()
	p := &fakeProvider{
		name:    "fake",
		pages:   [][]source.Candidate{candidates("fake", "x", "y")},
		failIDs: map[string]error{"x": source.ErrNotFound, "y": source.ErrNotFound},
	}

	f := New(p, nil)
	_, err := f.Fetch(context.Background(), source.SearchQuery{}, Options{
		DestDir:     dir,
		Count:       2,
		Concurrency: 2,
	})
	if !errors.Is(err, ErrNoCommits) {
		t.Fatalf("expected ErrNoCommits, got %v", err)
	}
	if got := countFiles(t, dir); got != 0 {
		t.Errorf("%d files on disk, want 0", got)
	}
}

func TestFetchExhaustionBelowCount(t *testing.T) {
	dir := t.TempDir()
	p := &fakeProvider{
		name:  "fake",
		pages: [][]source.Candidate{candidates("fake", "only")},
	}

	f := New(p, nil)
	result, err := f.Fetch(context.Background(), source.SearchQuery{}, Options{
		DestDir:     dir,
		Count:       5,
		Concurrency: 2,
	})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(result.Committed) != 1 {
		t.Errorf("committed = %d, want 1", len(result.Committed))
	}
}

func TestFetchCommitHook(t *testing.T) {
	dir := t.TempDir()
	p := &fakeProvider{
		name:  "fake",
		pages: [][]source.Candidate{candidates("fake", "a", "b")},
	}

	var mu sync.Mutex
	seen := make(map[string]string)
	f := New(p, func(c source.Candidate, path string) {
		mu.Lock()
		seen[c.Key()] = path
		mu.Unlock()
	})

	result, err := f.Fetch(context.Background(), source.SearchQuery{}, Options{
		DestDir:     dir,
		Count:       2,
		Concurrency: 2,
	})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(seen) != len(result.Committed) {
		t.Errorf("hook called %d times for %d commits", len(seen), len(result.Committed))
	}
	for key, path := range seen {
		if path == "" {
			t.Errorf("hook got empty path for %s", key)
		}
	}
}

func TestFetchAuthErrorSurfaces(t *testing.T) {
	dir := t.TempDir()
	p := &authFailProvider{}

	f := New(p, nil)
	_, err := f.Fetch(context.Background(), source.SearchQuery{}, Options{
		DestDir: dir,
		Count:   1,
	})
	if !errors.Is(err, source.ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
}

type authFailProvider struct{}

func (authFailProvider) Name() string      { return "fake" }
func (authFailProvider) RequiresKey() bool { return true }

func (authFailProvider) Search(q source.SearchQuery) *source.Pager {
	return source.NewPager(func(ctx context.Context, page int) ([]source.Candidate, bool, error) {
		return nil, false, fmt.Errorf("%w: key missing", source.ErrAuth)
	})
}

func (authFailProvider) Fetch(ctx context.Context, c source.Candidate) (io.ReadCloser, int64, error) {
	return nil, 0, source.ErrAuth
}

func TestTargetPath(t *testing.T) {
	tests := []struct {
		name string
		c    source.Candidate
		want string
	}{
		{
			"Plain CDN URL",
			source.Candidate{ID: "abc", Source: "wallhaven", URL: "https://w.wallhaven.cc/full/ab/wallhaven-abc.png"},
			"wallfetch-wallhaven-abc.png",
		},
		{
			"URL with imgix query string",
			source.Candidate{ID: "ph1", Source: "unsplash", URL: "https://images.unsplash.com/photo-ph1?ixid=x&w=2560&fm=jpg"},
			"wallfetch-unsplash-ph1.jpg",
		},
		{
			"Unknown extension falls back to jpg",
			source.Candidate{ID: "z", Source: "fake", URL: "https://cdn.example/z.tiff"},
			"wallfetch-fake-z.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TargetPath("/walls", tt.c)
			if filepath.Base(got) != tt.want {
				t.Errorf("TargetPath = %q, want base %q", got, tt.want)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"Nil", nil, false},
		{"Canceled", context.Canceled, false},
		{"Not found", source.ErrNotFound, false},
		{"Auth", source.ErrAuth, false},
		{"Rate limited", source.ErrRateLimited, false},
		{"Server error", source.ErrServerError, true},
		{"Wrapped server error", fmt.Errorf("page: %w", source.ErrServerError), true},
		{"Generic", errors.New("weird"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTransient(tt.err); got != tt.want {
				t.Errorf("isTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTransientClientTimeout(t *testing.T) {
	// A real http.Client timeout unwraps to context.DeadlineExceeded but
	// must still count as retryable.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	client := &http.Client{Timeout: 20 * time.Millisecond}
	_, err := client.Get(srv.URL)
	if err == nil {
		t.Fatal("expected a client timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("timeout error did not unwrap to DeadlineExceeded: %v", err)
	}
	if !isTransient(err) {
		t.Errorf("isTransient(%v) = false, want true", err)
	}
}

func TestNoTempFilesSurvive(t *testing.T) {
	dir := t.TempDir()
	p := &fakeProvider{
		name:    "fake",
		pages:   [][]source.Candidate{candidates("fake", "a", "b", "c")},
		failIDs: map[string]error{"b": source.ErrNotFound},
	}

	f := New(p, nil)
	if _, err := f.Fetch(context.Background(), source.SearchQuery{}, Options{
		DestDir:     dir,
		Count:       3,
		Concurrency: 2,
	}); err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	tmps, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(tmps) != 0 {
		t.Errorf("temp files left behind: %v", tmps)
	}
}
