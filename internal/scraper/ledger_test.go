// internal/scraper/ledger_test.go
package scraper

import (
	"fmt"
	"sync"
	"testing"
)

func TestLedgerAdmit(t *testing.T) {
	ledger := NewLedger()

	if !ledger.Admit("+31612345678", "https://example.com/v/1") {
		t.Fatal("first admission must succeed")
	}
	if ledger.Admit("+31612345678", "https://example.com/v/2") {
		t.Error("duplicate phone must be rejected")
	}
	if ledger.Admit("+31687654321", "https://example.com/v/1") {
		t.Error("duplicate URL must be rejected")
	}
	if !ledger.Admit("+31687654321", "https://example.com/v/2") {
		t.Error("fresh pair must be admitted")
	}

	phones, urls := ledger.Counts()
	if phones != 2 || urls != 2 {
		t.Errorf("expected 2 phones and 2 urls recorded, got %d/%d", phones, urls)
	}
}

func TestLedgerRejectionRecordsNothing(t *testing.T) {
	ledger := NewLedger()
	ledger.Admit("+31612345678", "https://example.com/v/1")

	// Rejected pair must not poison the URL set
	ledger.Admit("+31612345678", "https://example.com/v/9")
	if !ledger.Admit("+31611111111", "https://example.com/v/9") {
		t.Error("URL from a rejected admission must stay admissible")
	}
}

func TestLedgerConcurrentAdmission(t *testing.T) {
	const workers = 64
	ledger := NewLedger()

	var wg sync.WaitGroup
	admitted := make(chan bool, workers)

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			// Same phone from every worker, distinct URLs
			admitted <- ledger.Admit("+31612345678", fmt.Sprintf("https://example.com/v/%d", i))
		}(i)
	}
	wg.Wait()
	close(admitted)

	count := 0
	for ok := range admitted {
		if ok {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one admission under concurrency, got %d", count)
	}
}

func TestSkipStats(t *testing.T) {
	stats := NewSkipStats()
	stats.Add(SkipNoPhone)
	stats.Add(SkipNoPhone)
	stats.AddAll([]SkipReason{SkipWebsiteButton, SkipBusinessSeller})

	if got := stats.Get(SkipNoPhone); got != 2 {
		t.Errorf("expected 2 no_phone, got %d", got)
	}
	if got := stats.Total(); got != 4 {
		t.Errorf("expected total 4, got %d", got)
	}

	snap := stats.Snapshot()
	stats.Add(SkipDuplicate)
	if snap[SkipDuplicate] != 0 {
		t.Error("snapshot must not track later mutations")
	}
}

func TestSkipStatsConcurrent(t *testing.T) {
	const perReason = 100
	stats := NewSkipStats()

	var wg sync.WaitGroup
	for _, reason := range AllSkipReasons {
		for i := 0; i < perReason; i++ {
			wg.Add(1)
			go func(r SkipReason) {
				defer wg.Done()
				stats.Add(r)
			}(reason)
		}
	}
	wg.Wait()

	for _, reason := range AllSkipReasons {
		if got := stats.Get(reason); got != perReason {
			t.Errorf("expected %d for %s, got %d", perReason, reason, got)
		}
	}
}
