// internal/scraper/search_test.go
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
)

func TestSearchURL(t *testing.T) {
	base := "https://www.marktplaats.nl"

	tests := []struct {
		keyword string
		page    int
		want    string
	}{
		{"fiets", 1, "https://www.marktplaats.nl/q/fiets/"},
		{"fiets", 3, "https://www.marktplaats.nl/q/fiets/p/3/"},
		{"race fiets", 1, "https://www.marktplaats.nl/q/race+fiets/"},
		{"fiets", 0, "https://www.marktplaats.nl/q/fiets/"},
	}

	for _, tt := range tests {
		if got := SearchURL(base, tt.keyword, tt.page); got != tt.want {
			t.Errorf("SearchURL(%q, %d) = %q, want %q", tt.keyword, tt.page, got, tt.want)
		}
	}
}

func TestProbeTotalPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
<span class="hz-PaginationControls-pagination-amountOfPages">1 van 42</span>
</body></html>`)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{RetryAttempts: 1})
	pages, err := ProbeTotalPages(context.Background(), client, server.URL, "fiets")
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if pages != 42 {
		t.Errorf("expected 42 pages, got %d", pages)
	}
}

func TestProbeTotalPagesMissingIndicator(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>geen resultaten</p></body></html>`)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{RetryAttempts: 1})
	if _, err := ProbeTotalPages(context.Background(), client, server.URL, "fiets"); err == nil {
		t.Fatal("expected error when indicator is missing")
	}
}

func TestExtractListingLinks(t *testing.T) {
	html := `<html><body>
<a class="hz-Link hz-Link--block hz-Listing-coverLink" href="/v/fietsen/a1">one</a>
<a class="hz-Link hz-Link--block hz-Listing-coverLink" href="/v/fietsen/a2">two</a>
<a class="hz-Link hz-Link--block hz-Listing-coverLink" href="/v/fietsen/a1">dup</a>
<a href="/v/fietsen/a3">not a cover link</a>
</body></html>`

	got := ExtractListingLinks(html, "https://www.marktplaats.nl")
	want := []string{
		"https://www.marktplaats.nl/v/fietsen/a1",
		"https://www.marktplaats.nl/v/fietsen/a2",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractListingLinks = %v, want %v", got, want)
	}
}

// searchPageHandler serves numbered search result pages with two listing
// links each.
func searchPageHandler(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		page := 1
		fmt.Sscanf(r.URL.Path, "/q/fiets/p/%d/", &page)
		fmt.Fprintf(w, `<html><body>
<a class="hz-Link hz-Link--block hz-Listing-coverLink" href="/v/fietsen/p%d-a">x</a>
<a class="hz-Link hz-Link--block hz-Listing-coverLink" href="/v/fietsen/p%d-b">y</a>
</body></html>`, page, page)
	}
}

func TestHarvestLinksOrdered(t *testing.T) {
	server := httptest.NewServer(searchPageHandler(t))
	defer server.Close()

	res := HarvestLinks(context.Background(), "fiets", HarvestOptions{
		BaseURL:  server.URL,
		Pages:    3,
		MaxLinks: 100,
		Workers:  1, // sequential keeps page order deterministic
		Client:   ClientConfig{RetryAttempts: 1},
	})

	want := []string{
		server.URL + "/v/fietsen/p1-a",
		server.URL + "/v/fietsen/p1-b",
		server.URL + "/v/fietsen/p2-a",
		server.URL + "/v/fietsen/p2-b",
		server.URL + "/v/fietsen/p3-a",
		server.URL + "/v/fietsen/p3-b",
	}
	if !reflect.DeepEqual(res.Links, want) {
		t.Errorf("harvested links = %v, want %v", res.Links, want)
	}
	if res.PagesFetched != 3 {
		t.Errorf("expected 3 pages fetched, got %d", res.PagesFetched)
	}
	if res.FetchErrors != 0 {
		t.Errorf("expected no fetch errors, got %d", res.FetchErrors)
	}
}

func TestHarvestLinksRespectsCap(t *testing.T) {
	server := httptest.NewServer(searchPageHandler(t))
	defer server.Close()

	res := HarvestLinks(context.Background(), "fiets", HarvestOptions{
		BaseURL:  server.URL,
		Pages:    5,
		MaxLinks: 3,
		Workers:  4,
		Client:   ClientConfig{RetryAttempts: 1},
	})

	if len(res.Links) != 3 {
		t.Fatalf("expected exactly 3 links, got %d", len(res.Links))
	}
	seen := make(map[string]bool)
	for _, l := range res.Links {
		if seen[l] {
			t.Errorf("duplicate link %s", l)
		}
		seen[l] = true
	}
}

func TestHarvestLinksPageFailuresDropped(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1)%2 == 0 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `<html><body>
<a class="hz-Link hz-Link--block hz-Listing-coverLink" href="/v/fietsen/ok">x</a>
</body></html>`)
	}))
	defer server.Close()

	res := HarvestLinks(context.Background(), "fiets", HarvestOptions{
		BaseURL:  server.URL,
		Pages:    2,
		MaxLinks: 100,
		Workers:  1,
		Client:   ClientConfig{RetryAttempts: 1},
	})

	// One page succeeds, one fails after retries; the failure is silent
	// apart from the counter.
	if len(res.Links) != 1 {
		t.Fatalf("expected 1 link, got %v", res.Links)
	}
	if res.FetchErrors != 1 {
		t.Errorf("expected 1 fetch error, got %d", res.FetchErrors)
	}
}
