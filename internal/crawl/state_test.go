package crawl

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestAdmitExactlyOnce(t *testing.T) {
	state := NewState(100, true)

	const workers = 64
	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if state.Admit("https://example.com/jobview/1") {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	if admitted.Load() != 1 {
		t.Fatalf("expected exactly one admit, got %d", admitted.Load())
	}
	if state.Admit("https://example.com/jobview/1") {
		t.Fatalf("repeat admit must return false")
	}
	if !state.Admit("https://example.com/jobview/2") {
		t.Fatalf("distinct URL must be admitted")
	}
}

func TestAdmitWithDedupeDisabled(t *testing.T) {
	state := NewState(100, false)
	for i := 0; i < 3; i++ {
		if !state.Admit("https://example.com/jobview/1") {
			t.Fatalf("dedupe disabled should always admit")
		}
	}
}

func TestTryReserveCapsConcurrentClaims(t *testing.T) {
	state := NewState(3, true)

	const workers = 32
	var claims atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if state.TryReserve() {
				claims.Add(1)
			}
		}()
	}
	wg.Wait()

	if claims.Load() != 3 {
		t.Fatalf("expected 3 successful claims, got %d", claims.Load())
	}
	if !state.BudgetExhausted() {
		t.Fatalf("budget should be exhausted while claims are in flight")
	}

	state.Release()
	if !state.TryReserve() {
		t.Fatalf("released claim should be reusable")
	}
}

func TestRemainingBudgetFloorsAtZero(t *testing.T) {
	state := NewState(2, true)
	for i := 0; i < 3; i++ {
		if state.TryReserve() {
			state.CommitSaved()
		}
	}
	if got := state.RemainingBudget(); got != 0 {
		t.Fatalf("RemainingBudget = %d, want 0", got)
	}
	if got := state.Saved(); got != 2 {
		t.Fatalf("Saved = %d, want 2", got)
	}
}

func TestVisitPageCountsPerSeed(t *testing.T) {
	state := NewState(10, true)
	if state.VisitPage("a") != 1 || state.VisitPage("a") != 2 {
		t.Fatalf("per-seed page counter broken")
	}
	if state.VisitPage("b") != 1 {
		t.Fatalf("seeds must not share page counters")
	}
}
