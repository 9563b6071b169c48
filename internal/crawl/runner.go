package crawl

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nmoretto/jobharvest/internal/fetch"
	"github.com/nmoretto/jobharvest/internal/models"
	"github.com/nmoretto/jobharvest/internal/scrape"
	"github.com/nmoretto/jobharvest/internal/sink"
)

// Runner drives a crawl: seeds fan out concurrently, each seed walks its
// result pages sequentially, and detail fetches go through a fixed worker
// pool. Only seed resolution can fail; every per-URL error is logged,
// counted and isolated to that one record.
type Runner struct {
	Fetcher fetch.Fetcher
	Sink    sink.Sink
	Logger  zerolog.Logger
	Options models.RunOptions

	now func() time.Time
}

type detailTask struct {
	url  string
	seed string
}

func (r *Runner) Run(ctx context.Context, params models.SearchParams) (models.RunStats, error) {
	seeds, err := scrape.BuildSeeds(params)
	if err != nil {
		return models.RunStats{}, err
	}

	state := NewState(r.Options.ResultsWanted, r.Options.Dedupe)
	workers := r.Options.Workers
	if workers <= 0 {
		workers = 1
	}

	tasks := make(chan detailTask, workers*2)
	var workerWG sync.WaitGroup
	for i := 0; i < workers; i++ {
		workerWG.Add(1)
		go func() {
			defer workerWG.Done()
			r.detailWorker(ctx, state, params, tasks)
		}()
	}

	var seedWG sync.WaitGroup
	for _, seed := range seeds {
		seedWG.Add(1)
		go func(seed string) {
			defer seedWG.Done()
			r.crawlSeed(ctx, state, params, seed, tasks)
		}(seed)
	}
	seedWG.Wait()
	close(tasks)
	workerWG.Wait()

	stats := state.Stats()
	if stats.Saved == 0 {
		// Distinguishes "the site layout changed" from an empty result set
		// for whoever reads the logs.
		r.Logger.Warn().
			Int("pages_fetched", stats.PagesFetched).
			Int("failures", stats.Failures).
			Msg("no records produced; site layout may have changed or the search is legitimately empty")
	}
	return stats, nil
}

func (r *Runner) crawlSeed(ctx context.Context, state *State, params models.SearchParams, seed string, tasks chan<- detailTask) {
	pageURL := seed
	pageNo := 1
	emptyPages := 0

	for {
		if ctx.Err() != nil || state.BudgetExhausted() {
			return
		}
		if r.Options.MaxPages > 0 && state.VisitPage(seed) > r.Options.MaxPages {
			return
		}

		doc, err := r.Fetcher.Fetch(ctx, pageURL)
		if err != nil {
			state.addFailure(errors.Is(err, fetch.ErrBlocked))
			r.Logger.Warn().Err(err).Str("url", pageURL).Msg("results page fetch failed")
			return
		}
		state.addPageFetched()
		r.Logger.Debug().Str("url", pageURL).Int("page", pageNo).Msg("results page fetched")

		listings := scrape.ExtractListings(doc, pageURL)
		r.admitInline(state, params, listings.Inline)
		r.admitDetails(ctx, state, params, seed, listings.DetailURLs, tasks)

		// An empty page still earns exactly one fallback attempt before the
		// seed gives up; two empty pages in a row end it.
		if listings.Empty() {
			emptyPages++
			if emptyPages >= 2 {
				return
			}
		} else {
			emptyPages = 0
		}

		next, ok := scrape.NextPage(doc, pageURL, pageNo, state.Saved(), r.Options.ResultsWanted, r.Options.MaxPages)
		if !ok {
			r.Logger.Debug().Str("url", pageURL).Int("page", pageNo).Msg("pagination exhausted")
			return
		}
		pageNo++
		pageURL = next
	}
}

func (r *Runner) admitInline(state *State, params models.SearchParams, records []models.JobRecord) {
	for _, record := range records {
		if record.URL == "" {
			continue
		}
		if !state.Admit(record.URL) {
			state.addDuplicate()
			continue
		}
		if !state.TryReserve() {
			return
		}
		r.push(state, params, record)
	}
}

func (r *Runner) admitDetails(ctx context.Context, state *State, params models.SearchParams, seed string, urls []string, tasks chan<- detailTask) {
	for _, detailURL := range urls {
		if !state.Admit(detailURL) {
			state.addDuplicate()
			continue
		}
		if !state.TryReserve() {
			return
		}

		if !r.Options.CollectDetails {
			r.push(state, params, models.JobRecord{URL: detailURL, Source: scrape.Source})
			continue
		}

		select {
		case tasks <- detailTask{url: detailURL, seed: seed}:
		case <-ctx.Done():
			state.Release()
			return
		}
	}
}

func (r *Runner) detailWorker(ctx context.Context, state *State, params models.SearchParams, tasks <-chan detailTask) {
	for task := range tasks {
		if ctx.Err() != nil {
			state.Release()
			continue
		}

		doc, err := r.Fetcher.Fetch(ctx, task.url)
		if err != nil {
			state.Release()
			state.addFailure(errors.Is(err, fetch.ErrBlocked))
			r.Logger.Warn().Err(err).Str("url", task.url).Msg("detail fetch failed")
			continue
		}
		state.addDetailFetched()

		r.push(state, params, scrape.ExtractDetail(doc, task.url))
	}
}

// push finalizes a record with its request context and hands it to the sink,
// settling the budget reservation either way.
func (r *Runner) push(state *State, params models.SearchParams, record models.JobRecord) {
	record.Keyword = params.Keyword
	record.SearchLocation = params.Location
	record.Category = params.Category
	if record.Source == "" {
		record.Source = scrape.Source
	}
	record.CapturedAt = r.clock()
	if record.DescriptionText == "" && record.DescriptionHTML != "" {
		record.DescriptionText = scrape.StripMarkup(record.DescriptionHTML)
	}

	if err := r.Sink.Push(record); err != nil {
		state.Release()
		state.addFailure(false)
		r.Logger.Warn().Err(err).Str("url", record.URL).Msg("sink push failed")
		return
	}
	state.CommitSaved()
}

func (r *Runner) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now().UTC()
}
