package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const unsplashBaseURL = "https://api.unsplash.com"

// unsplashPerPage is the API maximum for /search/photos.
const unsplashPerPage = 30

// Unsplash implements Provider for unsplash.com. The access key is
// mandatory and passed as a Client-ID Authorization header. Per the
// Unsplash API guidelines the download_location endpoint must be hit
// before fetching actual image bytes.
type Unsplash struct {
	accessKey string
	baseURL   string
	client    *http.Client
	delay     time.Duration
}

// NewUnsplash creates an Unsplash provider.
func NewUnsplash(accessKey string, client *http.Client) *Unsplash {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Unsplash{
		accessKey: accessKey,
		baseURL:   unsplashBaseURL,
		client:    client,
	}
}

func (u *Unsplash) Name() string { return "unsplash" }

func (u *Unsplash) RequiresKey() bool { return true }

func (u *Unsplash) authHeader() string {
	return "Client-ID " + u.accessKey
}

type unsplashSearchResponse struct {
	TotalPages int `json:"total_pages"`
	Results    []struct {
		ID     string `json:"id"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
		Urls   struct {
			Raw   string `json:"raw"`
			Thumb string `json:"thumb"`
		} `json:"urls"`
		Links struct {
			DownloadLocation string `json:"download_location"`
		} `json:"links"`
	} `json:"results"`
}

// Search returns a pager over /search/photos. The purity/categories
// options have no Unsplash equivalent and are ignored. A missing access
// key fails fast before any network call.
func (u *Unsplash) Search(query SearchQuery) *Pager {
	return NewPager(func(ctx context.Context, page int) ([]Candidate, bool, error) {
		if u.accessKey == "" {
			return nil, false, fmt.Errorf("%w: Unsplash access key not configured (set UNSPLASH_ACCESS_KEY or config)", ErrAuth)
		}
		var candidates []Candidate
		var more bool
		err := retryAfterLimit(ctx, func() error {
			var err error
			candidates, more, err = u.searchPage(ctx, query, page)
			return err
		})
		return candidates, more, err
	})
}

func (u *Unsplash) searchPage(ctx context.Context, query SearchQuery, page int) ([]Candidate, bool, error) {
	if page > 1 {
		if err := pace(ctx, u.delay); err != nil {
			return nil, false, err
		}
	}

	q := query.Query
	if q == "" {
		q = "wallpaper"
	}

	// Unsplash only supports relevant/latest ordering; other sort
	// values degrade to relevant.
	orderBy := "relevant"
	switch query.Sorting {
	case "latest", "date_added":
		orderBy = "latest"
	}

	values := url.Values{}
	values.Set("query", q)
	values.Set("per_page", strconv.Itoa(unsplashPerPage))
	values.Set("page", strconv.Itoa(page))
	values.Set("order_by", orderBy)
	values.Set("orientation", "landscape")

	reqURL := fmt.Sprintf("%s/search/photos?%s", u.baseURL, values.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", u.authHeader())

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("unsplash search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false, statusError(resp.StatusCode, true)
	}

	var sr unsplashSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, false, fmt.Errorf("error unmarshalling unsplash response: %w", err)
	}

	reqW, reqH := parseResolution(query.Resolution)
	candidates := make([]Candidate, 0, len(sr.Results))
	for _, p := range sr.Results {
		// Imgix parameters on the raw URL request the target
		// resolution; without one we just pin format and quality.
		downloadURL := p.Urls.Raw + "&fm=jpg&q=85"
		if reqW > 0 && reqH > 0 {
			downloadURL = fmt.Sprintf("%s&w=%d&h=%d&fit=crop&cs=srgb&fm=jpg", p.Urls.Raw, reqW, reqH)
		}
		candidates = append(candidates, Candidate{
			ID:               p.ID,
			URL:              downloadURL,
			ThumbURL:         p.Urls.Thumb,
			Resolution:       fmt.Sprintf("%dx%d", p.Width, p.Height),
			Source:           u.Name(),
			downloadLocation: p.Links.DownloadLocation,
		})
	}
	log.Debugf("Unsplash page %d/%d returned %d candidates", page, sr.TotalPages, len(candidates))

	more := sr.TotalPages == 0 || page < sr.TotalPages
	return candidates, more, nil
}

// Fetch resolves the tracked download URL and opens the byte stream.
// Both the download_location call and the byte fetch count against the
// API quota, so a 429 gets the same bounded retry as search.
func (u *Unsplash) Fetch(ctx context.Context, c Candidate) (io.ReadCloser, int64, error) {
	if u.accessKey == "" {
		return nil, 0, fmt.Errorf("%w: Unsplash access key not configured", ErrAuth)
	}

	var body io.ReadCloser
	var length int64
	err := retryAfterLimit(ctx, func() error {
		var err error
		body, length, err = u.fetchOnce(ctx, c)
		return err
	})
	return body, length, err
}

func (u *Unsplash) fetchOnce(ctx context.Context, c Candidate) (io.ReadCloser, int64, error) {
	downloadURL := c.URL
	if c.downloadLocation != "" {
		resolved, err := u.resolveDownload(ctx, c.downloadLocation)
		if err != nil {
			return nil, 0, err
		}
		downloadURL = resolved
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("error creating download request: %w", err)
	}
	resp, err := u.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("unsplash download request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, statusError(resp.StatusCode, true)
	}
	return resp.Body, resp.ContentLength, nil
}

// resolveDownload hits the download_location endpoint, which both records
// the download for Unsplash's stats and returns the signed file URL.
func (u *Unsplash) resolveDownload(ctx context.Context, location string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return "", fmt.Errorf("error creating download-location request: %w", err)
	}
	req.Header.Set("Authorization", u.authHeader())

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("unsplash download-location request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp.StatusCode, true)
	}

	var dr struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return "", fmt.Errorf("error unmarshalling download-location response: %w", err)
	}
	if dr.URL == "" {
		return "", fmt.Errorf("unsplash download-location returned no url")
	}
	return dr.URL, nil
}

// parseResolution parses "WxH"; returns (0, 0) on malformed input so the
// search degrades instead of failing.
func parseResolution(res string) (int, int) {
	parts := strings.SplitN(res, "x", 2)
	if len(parts) != 2 {
		return 0, 0
	}
	w, errW := strconv.Atoi(parts[0])
	h, errH := strconv.Atoi(parts[1])
	if errW != nil || errH != nil {
		return 0, 0
	}
	return w, h
}
