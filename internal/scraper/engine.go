// internal/scraper/engine.go
package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/valpere/MarktScout/internal/config"
	"github.com/valpere/MarktScout/internal/monitoring"
	"github.com/valpere/MarktScout/internal/proxy"
	"github.com/valpere/MarktScout/internal/utils"
)

// Pause between consecutive keyword batches.
const keywordPause = 1 * time.Second

// Progress checkpoint granularity for listing processing.
const progressEvery = 50

// maxListingNameLen is the cut-off beyond which listing names are
// ellipsis-truncated in output records.
const maxListingNameLen = 80

// OutputRecord is one row of the full export.
type OutputRecord struct {
	ListingName string
	SellerName  string
	Location    string
	Phone       string
	Price       float64
	HasPrice    bool
	WhatsApp    string
	URL         string
}

// Results aggregates everything a session produced.
type Results struct {
	Records []OutputRecord
	Phones  []string
	Links   []string
	Stats   SkipSnapshot
}

// ProgressFunc receives plain status strings at run checkpoints. The
// engine never depends on anything the callback does.
type ProgressFunc func(msg string)

// Engine drives the crawl→extract→classify→dedup pipeline across all
// keywords of a session.
type Engine struct {
	cfg      *config.Config
	logger   utils.Logger
	proxies  *proxy.Pool
	metrics  *monitoring.Metrics
	ledger   *Ledger
	stats    *SkipStats
	limiter  *rate.Limiter
	progress ProgressFunc
}

// NewEngine creates an engine. proxies, metrics and progress may be nil.
// One rate limiter is shared by every worker client so the configured
// ceiling holds across the whole run, not per client.
func NewEngine(cfg *config.Config, logger utils.Logger, proxies *proxy.Pool, metrics *monitoring.Metrics, progress ProgressFunc) *Engine {
	if logger == nil {
		logger = utils.NewLogger()
	}
	if progress == nil {
		progress = func(string) {}
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Engine{
		cfg:      cfg,
		logger:   logger,
		proxies:  proxies,
		metrics:  metrics,
		ledger:   NewLedger(),
		stats:    NewSkipStats(),
		limiter:  limiter,
		progress: progress,
	}
}

// Run processes every configured keyword in order and returns the
// aggregated results. Keywords run sequentially; fetching inside each
// phase is concurrent. Fetch failures never abort the run.
func (e *Engine) Run(ctx context.Context) (*Results, error) {
	results := &Results{}

	for i, keyword := range e.cfg.Keywords {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		e.progressf("Keyword %d/%d: %q", i+1, len(e.cfg.Keywords), keyword)
		e.runKeyword(ctx, keyword, results)
		e.progressf("Keyword %d/%d complete, %d valid records so far", i+1, len(e.cfg.Keywords), len(results.Records))

		if i < len(e.cfg.Keywords)-1 {
			select {
			case <-time.After(keywordPause):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	results.Stats = e.stats.Snapshot()
	return results, nil
}

func (e *Engine) progressf(format string, args ...interface{}) {
	e.logger.Infof(format, args...)
	e.progress(fmt.Sprintf(format, args...))
}

// resolvePages combines the configured page count with the probed site
// maximum: the smaller of the two when both are known.
func (e *Engine) resolvePages(ctx context.Context, keyword string) int {
	pages := e.cfg.PagesFor(keyword)

	probeClient := NewClient(ClientConfig{
		Timeout:       e.cfg.RequestTimeout,
		RetryAttempts: 2,
		RetryDelay:    e.cfg.RetryDelay,
		UserAgent:     e.cfg.UserAgent,
		Proxy:         e.proxies.PickFor(0),
		Limiter:       e.limiter,
	})

	detected, err := ProbeTotalPages(ctx, probeClient, e.cfg.BaseURL, keyword)
	if err != nil {
		e.logger.WithField("keyword", keyword).Debugf("page probe failed: %v", err)
		return pages
	}
	if detected > 0 && detected < pages {
		return detected
	}
	return pages
}

func (e *Engine) runKeyword(ctx context.Context, keyword string, results *Results) {
	pages := e.resolvePages(ctx, keyword)
	e.logger.Infof("gathering listing links for %q across %d page(s)", keyword, pages)

	harvest := HarvestLinks(ctx, keyword, HarvestOptions{
		BaseURL:  e.cfg.BaseURL,
		Pages:    pages,
		MaxLinks: e.cfg.MaxLinksPerKeyword,
		Workers:  e.cfg.Workers,
		Delay:    e.cfg.RequestDelay,
		Proxies:  e.proxies,
		Client: ClientConfig{
			Timeout:       e.cfg.RequestTimeout,
			RetryAttempts: e.cfg.RetryAttempts,
			RetryDelay:    e.cfg.RetryDelay,
			UserAgent:     e.cfg.UserAgent,
			Limiter:       e.limiter,
		},
	})
	e.metrics.PagesFetched(harvest.PagesFetched)
	e.metrics.FetchFailures(harvest.FetchErrors)

	if len(harvest.Links) == 0 {
		e.logger.Warnf("no listings found for %q", keyword)
		return
	}

	e.progressf("Found %d listings for %q, scraping with %d workers", len(harvest.Links), keyword, e.cfg.Workers)
	e.processListings(ctx, harvest.Links, results)
}

type listingTask struct {
	index int
	url   string
}

// processListings fetches and extracts every harvested listing through a
// bounded worker pool. Listing fetches use half the search-page delay.
func (e *Engine) processListings(ctx context.Context, links []string, results *Results) {
	workers := e.cfg.Workers
	if len(links) < workers {
		workers = len(links)
	}

	jobs := make(chan listingTask, len(links))
	records := make(chan *Record, len(links))
	listingDelay := e.cfg.RequestDelay / 2

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for task := range jobs {
				records <- e.scrapeListing(ctx, task, listingDelay)
			}
		}()
	}

	for i, link := range links {
		jobs <- listingTask{index: i, url: link}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(records)
	}()

	done := 0
	for rec := range records {
		done++
		if rec != nil {
			e.admit(rec, results)
		}
		if done%progressEvery == 0 || done == len(links) {
			e.progressf("Progress: %d/%d | valid: %d", done, len(links), len(results.Records))
		}
	}
}

// scrapeListing fetches and extracts a single listing. Returns nil when
// the page could not be fetched; the failure is tallied separately from
// extraction-level skips.
func (e *Engine) scrapeListing(ctx context.Context, task listingTask, delay time.Duration) *Record {
	client := NewClient(ClientConfig{
		Timeout:       e.cfg.RequestTimeout,
		RetryAttempts: e.cfg.RetryAttempts,
		RetryDelay:    e.cfg.RetryDelay,
		UserAgent:     e.cfg.UserAgent,
		Proxy:         e.proxies.PickFor(task.index),
		Limiter:       e.limiter,
	})

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil
		}
	}

	body, err := client.Fetch(ctx, task.url)
	if err != nil {
		e.logger.WithField("url", task.url).Debugf("listing fetch failed: %v", err)
		e.stats.Add(SkipFetchFailed)
		e.metrics.FetchFailed()
		return nil
	}

	rec, err := ExtractListing(body, task.url)
	if err != nil {
		e.logger.WithField("url", task.url).Debugf("listing parse failed: %v", err)
		e.stats.Add(SkipFetchFailed)
		e.metrics.FetchFailed()
		return nil
	}

	e.metrics.ListingProcessed()
	return rec
}

// admit runs the classification, validation and dedup gates for one
// extracted record and appends it to the results when all pass.
func (e *Engine) admit(rec *Record, results *Results) {
	if len(rec.SkipReasons) > 0 {
		e.stats.AddAll(rec.SkipReasons)
		for _, r := range rec.SkipReasons {
			e.metrics.Skip(string(r))
		}
		return
	}

	if rec.PhoneRaw == "" || !IsDutchMobile(rec.PhoneRaw) {
		e.stats.Add(SkipNoPhone)
		e.metrics.Skip(string(SkipNoPhone))
		return
	}

	normalized := NormalizePhone(rec.PhoneRaw)
	if normalized == "" {
		e.stats.Add(SkipNoPhone)
		e.metrics.Skip(string(SkipNoPhone))
		return
	}

	if !e.ledger.Admit(normalized, rec.URL) {
		e.stats.Add(SkipDuplicate)
		e.metrics.Skip(string(SkipDuplicate))
		return
	}

	results.Phones = append(results.Phones, normalized)
	results.Links = append(results.Links, rec.URL)
	results.Records = append(results.Records, OutputRecord{
		ListingName: TruncateName(rec.ListingName),
		SellerName:  rec.SellerName,
		Location:    rec.Location,
		Phone:       normalized,
		Price:       rec.Price,
		HasPrice:    rec.HasPrice,
		WhatsApp:    WhatsAppLink(normalized, rec.SellerName, rec.ListingName, rec.Price, rec.HasPrice),
		URL:         rec.URL,
	})
	e.metrics.RecordAdmitted()
}

// TruncateName shortens a listing name to at most 80 runes plus an
// ellipsis marker.
func TruncateName(name string) string {
	runes := []rune(name)
	if len(runes) <= maxListingNameLen {
		return name
	}
	return string(runes[:maxListingNameLen]) + "..."
}
