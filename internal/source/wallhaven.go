package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
)

const wallhavenBaseURL = "https://wallhaven.cc/api/v1"

// Wallhaven implements Provider for wallhaven.cc. The API key is optional:
// without it searches are limited to SFW content and tighter rate limits.
type Wallhaven struct {
	apiKey  string
	baseURL string
	client  *http.Client
	delay   time.Duration
}

// NewWallhaven creates a Wallhaven provider.
func NewWallhaven(apiKey string, client *http.Client) *Wallhaven {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Wallhaven{
		apiKey:  apiKey,
		baseURL: wallhavenBaseURL,
		client:  client,
	}
}

func (w *Wallhaven) Name() string { return "wallhaven" }

func (w *Wallhaven) RequiresKey() bool { return false }

type wallhavenSearchResponse struct {
	Data []struct {
		ID     string `json:"id"`
		Path   string `json:"path"`
		Thumbs struct {
			Small string `json:"small"`
		} `json:"thumbs"`
		Resolution string `json:"resolution"`
	} `json:"data"`
	Meta struct {
		CurrentPage int `json:"current_page"`
		LastPage    int `json:"last_page"`
	} `json:"meta"`
}

// Search returns a pager over /search. Wallhaven paginates with a simple
// page number and reports last_page in the response meta.
func (w *Wallhaven) Search(query SearchQuery) *Pager {
	return NewPager(func(ctx context.Context, page int) ([]Candidate, bool, error) {
		var candidates []Candidate
		var more bool
		err := retryAfterLimit(ctx, func() error {
			var err error
			candidates, more, err = w.searchPage(ctx, query, page)
			return err
		})
		return candidates, more, err
	})
}

func (w *Wallhaven) searchPage(ctx context.Context, query SearchQuery, page int) ([]Candidate, bool, error) {
	if page > 1 {
		if err := pace(ctx, w.delay); err != nil {
			return nil, false, err
		}
	}

	values := url.Values{}
	values.Set("resolutions", query.Resolution)
	values.Set("categories", query.Categories)
	values.Set("purity", query.Purity)
	values.Set("sorting", query.Sorting)
	values.Set("page", fmt.Sprintf("%d", page))
	if query.Query != "" {
		values.Set("q", query.Query)
	}
	if w.apiKey != "" {
		values.Set("apikey", w.apiKey)
	}

	reqURL := fmt.Sprintf("%s/search?%s", w.baseURL, values.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("wallhaven search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false, statusError(resp.StatusCode, w.apiKey != "")
	}

	var sr wallhavenSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, false, fmt.Errorf("error unmarshalling wallhaven response: %w", err)
	}

	candidates := make([]Candidate, 0, len(sr.Data))
	for _, d := range sr.Data {
		candidates = append(candidates, Candidate{
			ID:         d.ID,
			URL:        d.Path,
			ThumbURL:   d.Thumbs.Small,
			Resolution: d.Resolution,
			Source:     w.Name(),
		})
	}
	log.Debugf("Wallhaven page %d/%d returned %d candidates", sr.Meta.CurrentPage, sr.Meta.LastPage, len(candidates))

	more := sr.Meta.LastPage == 0 || sr.Meta.CurrentPage < sr.Meta.LastPage
	return candidates, more, nil
}

// Fetch opens the full-resolution image stream. Wallhaven serves full
// images from a plain CDN URL so no auth header is needed here. The CDN
// throttles too, so a 429 gets the same bounded retry as search.
func (w *Wallhaven) Fetch(ctx context.Context, c Candidate) (io.ReadCloser, int64, error) {
	var body io.ReadCloser
	var length int64
	err := retryAfterLimit(ctx, func() error {
		var err error
		body, length, err = w.fetchOnce(ctx, c)
		return err
	})
	return body, length, err
}

func (w *Wallhaven) fetchOnce(ctx context.Context, c Candidate) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("error creating download request: %w", err)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("wallhaven download request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, statusError(resp.StatusCode, false)
	}
	return resp.Body, resp.ContentLength, nil
}
