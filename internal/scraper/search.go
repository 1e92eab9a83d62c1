// internal/scraper/search.go
package scraper

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/MarktScout/internal/proxy"
)

// Marktplaats search result markup. These selectors track the site's
// hz- design system class names.
const (
	paginationSelector  = "span.hz-PaginationControls-pagination-amountOfPages"
	listingLinkSelector = "a.hz-Link.hz-Link--block.hz-Listing-coverLink"
)

// totalPagesRe matches the "1 van 42" pagination indicator.
var totalPagesRe = regexp.MustCompile(`(?i)van\s+(\d+)`)

// SearchURL builds the search result URL for a keyword and page number.
// Page 1 uses the bare search path; later pages append a /p/{page}/ suffix.
func SearchURL(baseURL, keyword string, page int) string {
	token := url.QueryEscape(keyword)
	if page <= 1 {
		return fmt.Sprintf("%s/q/%s/", baseURL, token)
	}
	return fmt.Sprintf("%s/q/%s/p/%d/", baseURL, token, page)
}

// ProbeTotalPages fetches the first result page for a keyword and reads the
// total page count from the pagination indicator. Returns 0 and an error
// when the count cannot be determined; callers fall back to a default.
func ProbeTotalPages(ctx context.Context, client *Client, baseURL, keyword string) (int, error) {
	body, err := client.Fetch(ctx, SearchURL(baseURL, keyword, 1))
	if err != nil {
		return 0, fmt.Errorf("probe fetch: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("probe parse: %w", err)
	}

	text := strings.TrimSpace(doc.Find(paginationSelector).First().Text())
	if text == "" {
		return 0, fmt.Errorf("pagination indicator not found")
	}

	m := totalPagesRe.FindStringSubmatch(text)
	if m == nil {
		return 0, fmt.Errorf("unparsable pagination text %q", text)
	}

	pages, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("invalid page count %q: %w", m[1], err)
	}
	return pages, nil
}

// ExtractListingLinks scans a search result page body for listing detail
// anchors and returns their absolute URLs in document order, deduplicated.
func ExtractListingLinks(body, baseURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	var links []string
	seen := make(map[string]bool)
	doc.Find(listingLinkSelector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		full := base.ResolveReference(ref).String()
		if !seen[full] {
			seen[full] = true
			links = append(links, full)
		}
	})
	return links
}

// HarvestOptions controls a link harvest for one keyword.
type HarvestOptions struct {
	BaseURL  string
	Pages    int
	MaxLinks int
	Workers  int
	Delay    time.Duration
	Proxies  *proxy.Pool
	Client   ClientConfig // template; Proxy is set per task
}

// HarvestResult carries the harvested links and fetch accounting.
type HarvestResult struct {
	Links        []string
	PagesFetched int
	FetchErrors  int
}

type pageTask struct {
	index int
	url   string
}

type pageResult struct {
	links  []string
	failed bool
}

// HarvestLinks fetches all search result pages for a keyword through a
// bounded worker pool and collects listing links in first-seen order.
// Each task uses its own client with a proxy picked round-robin by task
// index. Once MaxLinks is reached no further links are admitted, but
// already-dispatched fetches are drained rather than cancelled. Individual
// page failures contribute no links and are not fatal.
func HarvestLinks(ctx context.Context, keyword string, opts HarvestOptions) *HarvestResult {
	res := &HarvestResult{}
	if opts.Pages < 1 {
		return res
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if opts.Pages < workers {
		workers = opts.Pages
	}

	jobs := make(chan pageTask, opts.Pages)
	pages := make(chan pageResult, opts.Pages)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for task := range jobs {
				clientCfg := opts.Client
				clientCfg.Proxy = opts.Proxies.PickFor(task.index)
				client := NewClient(clientCfg)

				if opts.Delay > 0 {
					select {
					case <-time.After(opts.Delay):
					case <-ctx.Done():
						pages <- pageResult{failed: true}
						continue
					}
				}

				body, err := client.Fetch(ctx, task.url)
				if err != nil {
					pages <- pageResult{failed: true}
					continue
				}
				pages <- pageResult{links: ExtractListingLinks(body, opts.BaseURL)}
			}
		}()
	}

	for page := 1; page <= opts.Pages; page++ {
		jobs <- pageTask{index: page - 1, url: SearchURL(opts.BaseURL, keyword, page)}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(pages)
	}()

	seen := make(map[string]bool)
	for page := range pages {
		if page.failed {
			res.FetchErrors++
			continue
		}
		res.PagesFetched++
		if len(res.Links) >= opts.MaxLinks {
			// Cap reached: keep draining so no goroutine is abandoned.
			continue
		}
		for _, link := range page.links {
			if seen[link] {
				continue
			}
			seen[link] = true
			res.Links = append(res.Links, link)
			if len(res.Links) >= opts.MaxLinks {
				break
			}
		}
	}

	return res
}
