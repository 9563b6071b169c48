package crawl

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/nmoretto/jobharvest/internal/fetch"
	"github.com/nmoretto/jobharvest/internal/models"
	"github.com/nmoretto/jobharvest/internal/sink"
)

const seedURL = "https://www.careerone.com.au/jobs/in-melbourne"

type fakeFetcher struct {
	mu     sync.Mutex
	pages  map[string]string
	errs   map[string]error
	visits map[string]int
}

func newFakeFetcher(pages map[string]string) *fakeFetcher {
	return &fakeFetcher{pages: pages, errs: map[string]error{}, visits: map[string]int{}}
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*goquery.Document, error) {
	f.mu.Lock()
	f.visits[url]++
	html, ok := f.pages[url]
	err := f.errs[url]
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if !ok {
		html = "<html><body></body></html>"
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (f *fakeFetcher) Close() error { return nil }

func (f *fakeFetcher) count(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visits[url]
}

func (f *fakeFetcher) countWithPrefix(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for url, n := range f.visits {
		if strings.HasPrefix(url, prefix) {
			total += n
		}
	}
	return total
}

// resultsPage builds a listing page with n detail anchors numbered from start,
// optionally linking to a next page.
func resultsPage(n, start int, next string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<a href="/jobview/job-%03d">Job %03d</a>`, start+i, start+i)
	}
	if next != "" {
		fmt.Fprintf(&b, `<a rel="next" href="%s">Next</a>`, next)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func newRunner(fetcher *fakeFetcher, memory *sink.Memory, opts models.RunOptions) *Runner {
	return &Runner{
		Fetcher: fetcher,
		Sink:    memory,
		Logger:  zerolog.Nop(),
		Options: opts,
	}
}

func TestRunStopsAtResultsWanted(t *testing.T) {
	fetcher := newFakeFetcher(map[string]string{
		seedURL: resultsPage(20, 0, ""),
	})
	memory := sink.NewMemory()
	runner := newRunner(fetcher, memory, models.RunOptions{
		ResultsWanted:  5,
		MaxPages:       20,
		CollectDetails: true,
		Dedupe:         true,
		Workers:        4,
	})

	stats, err := runner.Run(context.Background(), models.SearchParams{DirectURL: seedURL})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.Saved != 5 {
		t.Fatalf("saved = %d, want 5", stats.Saved)
	}
	if stats.DetailsFetched != 5 {
		t.Fatalf("details fetched = %d, want 5: surplus candidates must never be enqueued", stats.DetailsFetched)
	}
	if got := fetcher.countWithPrefix("https://www.careerone.com.au/jobview/"); got != 5 {
		t.Fatalf("detail page fetches = %d, want 5", got)
	}
	if fetcher.count(seedURL) != 1 {
		t.Fatalf("seed fetched %d times, want 1", fetcher.count(seedURL))
	}
	if len(memory.Records()) != 5 {
		t.Fatalf("sink holds %d records, want 5", len(memory.Records()))
	}
}

func TestRunHonorsMaxPages(t *testing.T) {
	fetcher := newFakeFetcher(map[string]string{
		seedURL:             resultsPage(1, 0, seedURL+"?page=2"),
		seedURL + "?page=2": resultsPage(1, 1, seedURL+"?page=3"),
		seedURL + "?page=3": resultsPage(1, 2, seedURL+"?page=4"),
	})
	memory := sink.NewMemory()
	runner := newRunner(fetcher, memory, models.RunOptions{
		ResultsWanted: 100,
		MaxPages:      2,
		Dedupe:        true,
		Workers:       1,
	})

	stats, err := runner.Run(context.Background(), models.SearchParams{DirectURL: seedURL})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.PagesFetched != 2 {
		t.Fatalf("pages fetched = %d, want 2", stats.PagesFetched)
	}
	if fetcher.count(seedURL+"?page=3") != 0 {
		t.Fatalf("page 3 fetched despite max_pages=2")
	}
	if stats.Saved != 2 {
		t.Fatalf("saved = %d, want 2", stats.Saved)
	}
}

func TestRunEmptyPageGetsOneFallback(t *testing.T) {
	// The seed page has no listings and no pagination markup; the runner
	// tries exactly one synthesized next page and then gives up.
	fetcher := newFakeFetcher(map[string]string{
		seedURL: "<html><body><p>no jobs today</p></body></html>",
	})
	memory := sink.NewMemory()
	runner := newRunner(fetcher, memory, models.RunOptions{
		ResultsWanted: 10,
		MaxPages:      20,
		Dedupe:        true,
		Workers:       1,
	})

	stats, err := runner.Run(context.Background(), models.SearchParams{DirectURL: seedURL})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.PagesFetched != 2 {
		t.Fatalf("pages fetched = %d, want 2 (seed plus one fallback)", stats.PagesFetched)
	}
	if stats.Saved != 0 {
		t.Fatalf("saved = %d, want 0", stats.Saved)
	}
}

func TestRunDeduplicatesAcrossPages(t *testing.T) {
	pageOne := `<html><body>
	  <a href="/jobview/alpha">Alpha</a>
	  <a href="/jobview/beta">Beta</a>
	  <a rel="next" href="?page=2">Next</a>
	</body></html>`
	pageTwo := `<html><body>
	  <a href="/jobview/beta">Beta again</a>
	  <a href="/jobview/gamma">Gamma</a>
	</body></html>`

	fetcher := newFakeFetcher(map[string]string{
		seedURL:             pageOne,
		seedURL + "?page=2": pageTwo,
	})
	memory := sink.NewMemory()
	runner := newRunner(fetcher, memory, models.RunOptions{
		ResultsWanted: 100,
		MaxPages:      2,
		Dedupe:        true,
		Workers:       1,
	})

	stats, err := runner.Run(context.Background(), models.SearchParams{DirectURL: seedURL})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.Saved != 3 {
		t.Fatalf("saved = %d, want 3 unique records", stats.Saved)
	}
	if stats.Duplicates != 1 {
		t.Fatalf("duplicates = %d, want 1", stats.Duplicates)
	}

	seen := map[string]bool{}
	for _, record := range memory.Records() {
		if seen[record.URL] {
			t.Fatalf("duplicate URL reached the sink: %q", record.URL)
		}
		seen[record.URL] = true
	}
}

func TestRunWithoutDetailsSavesBareRecords(t *testing.T) {
	fetcher := newFakeFetcher(map[string]string{
		seedURL: resultsPage(3, 0, ""),
	})
	memory := sink.NewMemory()
	runner := newRunner(fetcher, memory, models.RunOptions{
		ResultsWanted: 10,
		MaxPages:      20,
		Dedupe:        true,
		Workers:       2,
	})
	captured := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	runner.now = func() time.Time { return captured }

	stats, err := runner.Run(context.Background(), models.SearchParams{
		DirectURL: seedURL,
		Keyword:   "data analyst",
		Location:  "Melbourne",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.DetailsFetched != 0 {
		t.Fatalf("details fetched = %d, want 0 when detail collection is off", stats.DetailsFetched)
	}
	records := memory.Records()
	if len(records) != 3 {
		t.Fatalf("saved %d records, want 3", len(records))
	}
	for _, record := range records {
		if record.URL == "" || record.Title != "" {
			t.Fatalf("expected bare URL-only record, got %+v", record)
		}
		if record.Keyword != "data analyst" || record.SearchLocation != "Melbourne" {
			t.Fatalf("request context not stamped: %+v", record)
		}
		if record.Source != "careerone" {
			t.Fatalf("source = %q", record.Source)
		}
		if !record.CapturedAt.Equal(captured) {
			t.Fatalf("captured_at = %v, want %v", record.CapturedAt, captured)
		}
	}
}

func TestRunInlineRecordsSkipDetailFetch(t *testing.T) {
	page := `<html><body>
	  <script id="__NEXT_DATA__" type="application/json">
	  {"props": {"pageProps": {"searchResult": {"jobs": [
	    {"title": "Data Analyst", "companyName": "Acme", "url": "/jobview/data-analyst/1"},
	    {"title": "Data Engineer", "companyName": "Beta", "url": "/jobview/data-engineer/2"}
	  ]}}}}
	  </script>
	</body></html>`

	fetcher := newFakeFetcher(map[string]string{seedURL: page})
	memory := sink.NewMemory()
	runner := newRunner(fetcher, memory, models.RunOptions{
		ResultsWanted:  10,
		MaxPages:       1,
		CollectDetails: true,
		Dedupe:         true,
		Workers:        2,
	})

	stats, err := runner.Run(context.Background(), models.SearchParams{DirectURL: seedURL})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.Saved != 2 {
		t.Fatalf("saved = %d, want 2", stats.Saved)
	}
	if stats.DetailsFetched != 0 {
		t.Fatalf("inline records must not trigger detail fetches, got %d", stats.DetailsFetched)
	}
	for _, record := range memory.Records() {
		if record.Title == "" || record.Company == "" {
			t.Fatalf("inline fields lost: %+v", record)
		}
	}
}

func TestRunCountsBlockedFailures(t *testing.T) {
	fetcher := newFakeFetcher(nil)
	fetcher.pages = map[string]string{}
	fetcher.errs[seedURL] = fmt.Errorf("%s: %w", seedURL, fetch.ErrBlocked)

	memory := sink.NewMemory()
	runner := newRunner(fetcher, memory, models.RunOptions{
		ResultsWanted: 10,
		MaxPages:      5,
		Dedupe:        true,
		Workers:       1,
	})

	stats, err := runner.Run(context.Background(), models.SearchParams{DirectURL: seedURL})
	if err != nil {
		t.Fatalf("Run should isolate fetch errors, got %v", err)
	}
	if stats.Failures != 1 || stats.Blocked != 1 {
		t.Fatalf("failures=%d blocked=%d, want 1/1", stats.Failures, stats.Blocked)
	}
	if stats.Saved != 0 || stats.PagesFetched != 0 {
		t.Fatalf("unexpected progress: %+v", stats)
	}
}
