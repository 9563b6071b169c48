package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Selector that appears once the results list has rendered.
const listingSelector = "a[href*='/jobview/']"

// Browser renders pages in headless Chrome before parsing. The wait for the
// listing selector is bounded: on timeout the page is parsed anyway and
// treated as having no listings.
type Browser struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	limiter     *rate.Limiter
	logger      zerolog.Logger
	waitTimeout time.Duration
}

func NewBrowser(waitTimeout time.Duration, logger zerolog.Logger) *Browser {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	if waitTimeout <= 0 {
		waitTimeout = 10 * time.Second
	}
	return &Browser{
		allocCtx:    allocCtx,
		allocCancel: cancel,
		limiter:     rate.NewLimiter(rate.Limit(defaultRequestRate), 1),
		logger:      logger,
		waitTimeout: waitTimeout,
	}
}

func (f *Browser) Fetch(ctx context.Context, target string) (*goquery.Document, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	taskCtx, cancel := chromedp.NewContext(f.allocCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		taskCtx, cancelDeadline = context.WithDeadline(taskCtx, deadline)
		defer cancelDeadline()
	}

	if err := chromedp.Run(taskCtx, chromedp.Navigate(target)); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", target, err)
	}

	waitCtx, cancelWait := context.WithTimeout(taskCtx, f.waitTimeout)
	err := chromedp.Run(waitCtx, chromedp.WaitVisible(listingSelector, chromedp.ByQuery))
	cancelWait()
	if err != nil {
		if !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("wait %s: %w", target, err)
		}
		f.logger.Debug().Str("url", target).Msg("listing selector never appeared; parsing page as-is")
	}

	var html string
	if err := chromedp.Run(taskCtx, chromedp.OuterHTML("html", &html)); err != nil {
		return nil, fmt.Errorf("render %s: %w", target, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	if blockedContent(doc) {
		return nil, fmt.Errorf("%s: %w", target, ErrBlocked)
	}
	return doc, nil
}

func (f *Browser) Close() error {
	f.allocCancel()
	return nil
}
