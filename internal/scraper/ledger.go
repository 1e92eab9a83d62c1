// internal/scraper/ledger.go
package scraper

import "sync"

// Ledger tracks phone numbers and listing URLs already emitted during a
// session. It is shared by every worker across every keyword, so the
// membership check and insert form one critical section: unguarded
// check-then-insert would admit the same contact twice under concurrency.
type Ledger struct {
	mu         sync.Mutex
	seenPhones map[string]bool
	seenURLs   map[string]bool
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		seenPhones: make(map[string]bool),
		seenURLs:   make(map[string]bool),
	}
}

// Admit records the phone/URL pair if neither has been seen this session.
// Returns false when either is a duplicate; in that case nothing is
// recorded.
func (l *Ledger) Admit(phone, url string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.seenPhones[phone] || l.seenURLs[url] {
		return false
	}
	l.seenPhones[phone] = true
	l.seenURLs[url] = true
	return true
}

// Counts returns the number of recorded phones and URLs.
func (l *Ledger) Counts() (phones, urls int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seenPhones), len(l.seenURLs)
}

// SkipStats counts skipped listings per reason, summed across keywords.
type SkipStats struct {
	mu     sync.Mutex
	counts map[SkipReason]int
}

// SkipSnapshot is a point-in-time copy of the counters.
type SkipSnapshot map[SkipReason]int

// NewSkipStats creates a zeroed counter set.
func NewSkipStats() *SkipStats {
	return &SkipStats{counts: make(map[SkipReason]int)}
}

// Add increments the counter for one reason.
func (s *SkipStats) Add(reason SkipReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[reason]++
}

// AddAll increments the counter for each given reason.
func (s *SkipStats) AddAll(reasons []SkipReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range reasons {
		s.counts[r]++
	}
}

// Get returns the current count for a reason.
func (s *SkipStats) Get(reason SkipReason) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[reason]
}

// Total returns the sum over all reasons.
func (s *SkipStats) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.counts {
		total += n
	}
	return total
}

// Snapshot returns a copy of all counters.
func (s *SkipStats) Snapshot() SkipSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := make(SkipSnapshot, len(s.counts))
	for k, v := range s.counts {
		snap[k] = v
	}
	return snap
}
