package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWallhavenSearchPagination(t *testing.T) {
	var gotParams []string
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotParams = append(gotParams, q.Get("page"))

		if q.Get("q") != "mountains" {
			t.Errorf("query param q = %q, want %q", q.Get("q"), "mountains")
		}
		if q.Get("resolutions") != "2560x1440" {
			t.Errorf("resolutions = %q", q.Get("resolutions"))
		}
		if q.Get("apikey") != "secret" {
			t.Errorf("apikey = %q, want secret", q.Get("apikey"))
		}

		page := q.Get("page")
		fmt.Fprintf(w, `{
			"data": [{"id": "id%s", "path": "%s/full/id%s.jpg", "resolution": "2560x1440", "thumbs": {"small": "t"}}],
			"meta": {"current_page": %s, "last_page": 2}
		}`, page, srv.URL, page, page)
	}))
	defer srv.Close()

	wh := NewWallhaven("secret", srv.Client())
	wh.baseURL = srv.URL

	pager := wh.Search(SearchQuery{
		Query:      "mountains",
		Resolution: "2560x1440",
		Categories: "111",
		Purity:     "100",
		Sorting:    "relevance",
	})

	ctx := context.Background()
	p1, err := pager.Next(ctx)
	if err != nil || len(p1) != 1 {
		t.Fatalf("page 1: %v candidates, err %v", len(p1), err)
	}
	if p1[0].ID != "id1" || p1[0].Source != "wallhaven" {
		t.Errorf("unexpected candidate: %+v", p1[0])
	}

	p2, err := pager.Next(ctx)
	if err != nil || len(p2) != 1 {
		t.Fatalf("page 2: %v candidates, err %v", len(p2), err)
	}

	// last_page reached, pager must be done without another request.
	p3, err := pager.Next(ctx)
	if p3 != nil || err != nil {
		t.Fatalf("page 3 should be exhausted, got (%v, %v)", p3, err)
	}
	if len(gotParams) != 2 {
		t.Errorf("expected 2 HTTP requests, got %d (%v)", len(gotParams), gotParams)
	}
}

func TestWallhavenSearchAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	wh := NewWallhaven("", srv.Client())
	wh.baseURL = srv.URL

	_, err := wh.Search(SearchQuery{}).Next(context.Background())
	if !errors.Is(err, ErrAuth) {
		t.Errorf("expected ErrAuth, got %v", err)
	}
}

func TestWallhavenSearchRetriesRateLimit(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"data": [{"id": "x", "path": "p", "resolution": "1x1", "thumbs": {"small": "t"}}], "meta": {"current_page": 1, "last_page": 1}}`)
	}))
	defer srv.Close()

	wh := NewWallhaven("", srv.Client())
	wh.baseURL = srv.URL

	candidates, err := wh.Search(SearchQuery{}).Next(context.Background())
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if len(candidates) != 1 || attempts != 2 {
		t.Errorf("candidates=%d attempts=%d, want 1 and 2", len(candidates), attempts)
	}
}

func TestWallhavenFetch(t *testing.T) {
	payload := []byte("jpegbytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(payload)
	}))
	defer srv.Close()

	wh := NewWallhaven("", srv.Client())

	body, length, err := wh.Fetch(context.Background(), Candidate{URL: srv.URL + "/full.jpg"})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	defer body.Close()
	data, _ := io.ReadAll(body)
	if string(data) != string(payload) || length != int64(len(payload)) {
		t.Errorf("got %d bytes (declared %d), want %d", len(data), length, len(payload))
	}

	_, _, err = wh.Fetch(context.Background(), Candidate{URL: srv.URL + "/missing.jpg"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestWallhavenFetchRetriesRateLimit(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("jpegbytes"))
	}))
	defer srv.Close()

	wh := NewWallhaven("", srv.Client())

	body, _, err := wh.Fetch(context.Background(), Candidate{URL: srv.URL + "/full.jpg"})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	defer body.Close()
	data, _ := io.ReadAll(body)
	if string(data) != "jpegbytes" || attempts != 2 {
		t.Errorf("got %q after %d attempts, want jpegbytes and 2", data, attempts)
	}
}
