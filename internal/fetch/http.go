package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/nmoretto/jobharvest/internal/network"
)

// Requests per second across both engines; polite by default.
const defaultRequestRate = 2

const blockedRetries = 2

// HTTP fetches pages with a browser-grade TLS profile and no rendering. A
// blocked response discards the session (fresh cookie jar, next proxy) and
// retries the same URL a bounded number of times.
type HTTP struct {
	client  *network.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

func NewHTTP(rotator *network.Rotator, timeout time.Duration, logger zerolog.Logger) (*HTTP, error) {
	client, err := network.NewClient(rotator, timeout)
	if err != nil {
		return nil, err
	}
	return &HTTP{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(defaultRequestRate), 1),
		logger:  logger,
	}, nil
}

func (f *HTTP) Fetch(ctx context.Context, target string) (*goquery.Document, error) {
	for attempt := 0; ; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		doc, err := f.fetchOnce(ctx, target)
		if err == nil {
			return doc, nil
		}
		if err != errBlockedAttempt || attempt >= blockedRetries {
			if err == errBlockedAttempt {
				return nil, fmt.Errorf("%s: %w", target, ErrBlocked)
			}
			return nil, err
		}

		f.logger.Debug().Str("url", target).Int("attempt", attempt+1).Msg("blocked; rotating session")
		f.client.ResetSession()
	}
}

// Sentinel for one blocked attempt, distinct from the terminal ErrBlocked.
var errBlockedAttempt = fmt.Errorf("blocked attempt")

func (f *HTTP) fetchOnce(ctx context.Context, target string) (*goquery.Document, error) {
	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("accept-language", "en-AU,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == 403 || resp.StatusCode == 429:
		return nil, errBlockedAttempt
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}
	if blockedContent(doc) {
		return nil, errBlockedAttempt
	}
	return doc, nil
}

func (f *HTTP) Close() error {
	return nil
}
