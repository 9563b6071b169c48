package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/muesli/termenv"

	"github.com/nmoretto/jobharvest/internal/config"
	"github.com/nmoretto/jobharvest/internal/crawl"
	"github.com/nmoretto/jobharvest/internal/export"
	"github.com/nmoretto/jobharvest/internal/fetch"
	"github.com/nmoretto/jobharvest/internal/models"
	"github.com/nmoretto/jobharvest/internal/network"
	"github.com/nmoretto/jobharvest/internal/seen"
	"github.com/nmoretto/jobharvest/internal/sink"
)

type SearchCmd struct {
	Keyword string `arg:"" optional:"" help:"Search keyword, e.g. \"data analyst\"."`

	Location  string `help:"Search location." env:"JOBHARVEST_LOCATION"`
	Category  string `help:"Job category (best effort; the board may ignore it)."`
	URL       string `name:"url" help:"Direct results URL; overrides everything else."`
	StartURL  string `help:"Explicit start URL; overrides keyword/location synthesis."`
	StartURLs string `help:"Comma-separated list of start URLs."`

	ResultsWanted int    `help:"Saved-record budget." env:"JOBHARVEST_RESULTS_WANTED"`
	MaxPages      int    `help:"Result-page ceiling per seed (default depends on engine)."`
	Details       bool   `help:"Fetch per-listing detail pages." default:"true" negatable:""`
	Dedupe        bool   `help:"Skip URLs already seen in this run." default:"true" negatable:""`
	Engine        string `help:"Fetch engine: http or browser." enum:",http,browser" default:"" env:"JOBHARVEST_ENGINE"`
	Workers       int    `help:"Concurrent detail fetchers." env:"JOBHARVEST_WORKERS"`
	Timeout       int    `help:"Per-request timeout in seconds." default:"30"`
	Proxies       string `help:"Comma-separated proxy URLs." env:"JOBHARVEST_PROXIES"`

	Format string `help:"Output format: csv, json, md, tsv, table." enum:",csv,json,md,tsv,table" default:""`
	Links  string `help:"Table link display: short or full." enum:"short,full" default:"full"`
	Output string `name:"output" short:"o" help:"Write output to a file."`
	JSONL  string `name:"jsonl" help:"Stream records to a JSON Lines file as they are saved."`

	Seen       string `help:"Path to seen records JSON file."`
	NewOnly    bool   `help:"Output only unseen records (requires --seen)."`
	NewOut     string `help:"Write unseen records JSON to a file (requires --seen)."`
	SeenUpdate bool   `help:"Merge newly discovered unseen records into --seen after the run."`
}

// Page ceilings per engine; the browser engine is an order of magnitude
// slower, so it defaults lower.
const (
	defaultMaxPagesHTTP    = 20
	defaultMaxPagesBrowser = 10
)

func (s *SearchCmd) Run(ctx *Context) error {
	if s.NewOnly && strings.TrimSpace(s.Seen) == "" {
		return fmt.Errorf("--new-only requires --seen")
	}
	if strings.TrimSpace(s.NewOut) != "" && strings.TrimSpace(s.Seen) == "" {
		return fmt.Errorf("--new-out requires --seen")
	}
	if s.SeenUpdate && strings.TrimSpace(s.Seen) == "" {
		return fmt.Errorf("--seen-update requires --seen")
	}

	cfg := ctx.Config
	params := models.SearchParams{
		Keyword:   strings.TrimSpace(s.Keyword),
		Location:  firstNonEmpty(s.Location, cfg.DefaultLocation),
		Category:  strings.TrimSpace(s.Category),
		DirectURL: s.URL,
		StartURL:  s.StartURL,
		StartURLs: splitCSV(s.StartURLs),
	}

	engine := firstNonEmpty(s.Engine, cfg.DefaultEngine, "http")
	options := models.RunOptions{
		ResultsWanted:  defaultInt(s.ResultsWanted, cfg.DefaultResultsWanted),
		MaxPages:       s.MaxPages,
		CollectDetails: s.Details,
		Dedupe:         s.Dedupe,
		Workers:        defaultInt(s.Workers, cfg.DefaultWorkers),
		Timeout:        time.Duration(s.Timeout) * time.Second,
	}
	if options.MaxPages <= 0 {
		options.MaxPages = defaultMaxPagesHTTP
		if engine == "browser" {
			options.MaxPages = defaultMaxPagesBrowser
		}
	}

	fetcher, err := buildFetcher(ctx, engine, s.Proxies, options.Timeout)
	if err != nil {
		return err
	}
	defer fetcher.Close()

	memory := sink.NewMemory()
	runSink := sink.Sink(memory)
	if path := strings.TrimSpace(s.JSONL); path != "" {
		stream, err := sink.NewJSONL(path)
		if err != nil {
			return fmt.Errorf("open --jsonl: %w", err)
		}
		runSink = sink.Multi{memory, stream}
	}
	defer runSink.Close()

	stopIndicator := startSearchIndicator(ctx)
	if stopIndicator != nil {
		defer stopIndicator()
	}

	runner := &crawl.Runner{
		Fetcher: fetcher,
		Sink:    runSink,
		Logger:  ctx.Logger,
		Options: options,
	}
	stats, err := runner.Run(context.Background(), params)
	if err != nil {
		return err
	}
	if stopIndicator != nil {
		stopIndicator()
	}

	records := memory.Records()

	var unseenRecords []models.JobRecord
	if strings.TrimSpace(s.Seen) != "" {
		seenRecords, err := seen.ReadRecordsAllowMissing(s.Seen)
		if err != nil {
			return fmt.Errorf("read --seen: %w", err)
		}
		unseenRecords, _ = seen.Diff(records, seenRecords)
	}

	outputRecords := records
	if s.NewOnly {
		outputRecords = unseenRecords
	}

	outputPath := strings.TrimSpace(s.Output)
	if strings.TrimSpace(s.NewOut) != "" && pathsEqual(outputPath, s.NewOut) {
		return fmt.Errorf("--new-out path must differ from --output")
	}
	if strings.TrimSpace(s.Seen) != "" && pathsEqual(outputPath, s.Seen) {
		return fmt.Errorf("--output path must differ from --seen")
	}
	if strings.TrimSpace(s.NewOut) != "" && pathsEqual(s.NewOut, s.Seen) {
		return fmt.Errorf("--new-out path must differ from --seen")
	}

	if strings.TrimSpace(s.NewOut) != "" {
		if err := seen.WriteRecords(s.NewOut, unseenRecords); err != nil {
			return fmt.Errorf("write --new-out: %w", err)
		}
	}

	format, err := resolveFormat(ctx, s.Format, outputPath)
	if err != nil {
		return err
	}

	writer := ctx.Out
	if outputPath != "" {
		file, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer file.Close()
		writer = file
	}

	colorEnabled := ctx.UI != nil && ctx.UI.ColorEnabled
	hyperlinks := colorEnabled && isTTY(writer)
	linkStyle := export.LinkStyleShort
	if strings.EqualFold(s.Links, string(export.LinkStyleFull)) {
		linkStyle = export.LinkStyleFull
	}
	if err := export.WriteRecords(writer, outputRecords, format, export.WriteOptions{
		ColorEnabled: colorEnabled,
		Hyperlinks:   hyperlinks,
		LinkStyle:    linkStyle,
	}); err != nil {
		return err
	}

	if s.SeenUpdate && strings.TrimSpace(s.Seen) != "" {
		if err := updateSeenHistory(s.Seen, unseenRecords); err != nil {
			return err
		}
	}

	printSearchSummary(ctx, stats)
	if stats.Saved == 0 && ctx.UI != nil {
		ctx.UI.Warnf("No records produced. The site layout may have changed, or the search returned no results.")
	}

	return nil
}

func buildFetcher(ctx *Context, engine string, proxiesFlag string, timeout time.Duration) (fetch.Fetcher, error) {
	if engine == "browser" {
		return fetch.NewBrowser(timeout, ctx.Logger), nil
	}

	proxies, err := config.LoadProxies(proxiesFlag)
	if err != nil {
		return nil, err
	}
	var rotator *network.Rotator
	if len(proxies) > 0 {
		rotator, err = network.NewRotator(proxies, 10*time.Minute)
		if err != nil {
			return nil, err
		}
	}
	return fetch.NewHTTP(rotator, timeout, ctx.Logger)
}

func pathsEqual(a, b string) bool {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return false
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil {
		return absA == absB
	}
	return filepath.Clean(a) == filepath.Clean(b)
}

func updateSeenHistory(seenPath string, inputRecords []models.JobRecord) error {
	seenRecords, err := seen.ReadRecordsAllowMissing(seenPath)
	if err != nil {
		return fmt.Errorf("read --seen: %w", err)
	}

	mergedRecords, _ := seen.Merge(seenRecords, inputRecords)
	if err := seen.WriteRecords(seenPath, mergedRecords); err != nil {
		return fmt.Errorf("write --seen: %w", err)
	}

	return nil
}

func printSearchSummary(ctx *Context, stats models.RunStats) {
	if ctx == nil || ctx.Err == nil {
		return
	}
	_, _ = fmt.Fprintf(ctx.Err, "%s\n", formatSearchSummary(stats))
}

func formatSearchSummary(stats models.RunStats) string {
	return fmt.Sprintf(
		"summary: saved=%d pages=%d details=%d duplicates=%d failures=%d blocked=%d",
		stats.Saved,
		stats.PagesFetched,
		stats.DetailsFetched,
		stats.Duplicates,
		stats.Failures,
		stats.Blocked,
	)
}

func resolveFormat(ctx *Context, flagFormat string, outputPath string) (export.Format, error) {
	if ctx.JSONOutput {
		return export.FormatJSON, nil
	}
	if ctx.PlainText {
		return export.FormatTSV, nil
	}
	if flagFormat != "" {
		return parseFormat(flagFormat)
	}
	if outputPath != "" {
		return export.FormatCSV, nil
	}
	if isTTY(ctx.Out) {
		return export.FormatTable, nil
	}
	return export.FormatCSV, nil
}

func parseFormat(value string) (export.Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "csv":
		return export.FormatCSV, nil
	case "json":
		return export.FormatJSON, nil
	case "md", "markdown":
		return export.FormatMarkdown, nil
	case "tsv":
		return export.FormatTSV, nil
	case "table", "":
		return export.FormatTable, nil
	default:
		return "", fmt.Errorf("unknown format: %s", value)
	}
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func defaultInt(value, fallback int) int {
	if value == 0 {
		return fallback
	}
	return value
}

func isTTY(out io.Writer) bool {
	output := termenv.NewOutput(out)
	return output.ColorProfile() != termenv.Ascii
}

func startSearchIndicator(ctx *Context) func() {
	if ctx == nil || ctx.Err == nil || ctx.UI == nil {
		return nil
	}
	if !isTTY(ctx.Err) {
		return nil
	}

	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		start := time.Now()
		frames := []string{"|", "/", "-", "\\"}
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		index := 0

		for {
			select {
			case <-done:
				fmt.Fprint(ctx.Err, "\r\033[2K")
				return
			case <-ticker.C:
				seconds := int(time.Since(start).Seconds())
				frame := frames[index%len(frames)]
				fmt.Fprintf(ctx.Err, "\r\033[2KScraping... %ds %s", seconds, frame)
				index++
			}
		}
	}()

	var once bool
	return func() {
		if once {
			return
		}
		once = true
		close(done)
		<-stopped
	}
}
