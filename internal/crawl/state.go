package crawl

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/nmoretto/jobharvest/internal/models"
)

// State is the run-scoped dedup and budget ledger shared by every worker. It
// is created at run start, mutated through these methods only, and discarded
// when the run ends. Admit and the reservation methods are each a single
// atomic step so concurrent workers can neither admit the same URL twice nor
// over-commit the budget.
type State struct {
	seen   mapset.Set[string]
	dedupe bool
	wanted int

	mu       sync.Mutex
	saved    int
	reserved int
	pages    map[string]int
	stats    models.RunStats
}

// NewState builds a ledger for one run. wanted <= 0 means no budget ceiling.
func NewState(wanted int, dedupe bool) *State {
	return &State{
		seen:   mapset.NewSet[string](),
		dedupe: dedupe,
		wanted: wanted,
		pages:  map[string]int{},
	}
}

// Admit returns true exactly once per distinct URL for the lifetime of the
// run. With dedupe disabled it always admits.
func (s *State) Admit(url string) bool {
	if !s.dedupe {
		return true
	}
	return s.seen.Add(url)
}

// TryReserve claims one budget slot ahead of a fetch. The claim is settled by
// CommitSaved or returned by Release, so at most wanted slots are ever in
// flight or saved.
func (s *State) TryReserve() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wanted > 0 && s.saved+s.reserved >= s.wanted {
		return false
	}
	s.reserved++
	return true
}

// CommitSaved converts a reservation into a saved record.
func (s *State) CommitSaved() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reserved--
	s.saved++
	s.stats.Saved++
}

// Release returns an unused reservation to the budget.
func (s *State) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reserved--
}

// RemainingBudget is wanted minus saved, floored at zero.
func (s *State) RemainingBudget() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wanted <= 0 {
		return int(^uint(0) >> 1)
	}
	remaining := s.wanted - s.saved
	if remaining < 0 {
		return 0
	}
	return remaining
}

// BudgetExhausted reports whether every budget slot is saved or in flight.
// Reaching this state is a cooperative stop signal: in-flight work finishes,
// nothing new starts.
func (s *State) BudgetExhausted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wanted > 0 && s.saved+s.reserved >= s.wanted
}

// Saved returns the number of records saved so far.
func (s *State) Saved() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved
}

// VisitPage increments and returns the pages-visited count for a seed.
func (s *State) VisitPage(seed string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[seed]++
	return s.pages[seed]
}

func (s *State) addPageFetched() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.PagesFetched++
}

func (s *State) addDetailFetched() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.DetailsFetched++
}

func (s *State) addDuplicate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Duplicates++
}

func (s *State) addFailure(blocked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Failures++
	if blocked {
		s.stats.Blocked++
	}
}

// Stats returns a snapshot of the run counters.
func (s *State) Stats() models.RunStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
