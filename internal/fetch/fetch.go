package fetch

import (
	"context"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrBlocked marks a response that is an anti-bot wall rather than content.
// The engines retry it transparently with a fresh session before giving up.
var ErrBlocked = errors.New("request blocked")

// Fetcher turns a URL into a parsed document. Implementations own all
// transport concerns: TLS fingerprinting, proxies, rendering, pacing. The
// extraction core only ever sees a *goquery.Document, so it stays testable
// against static HTML.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
	Close() error
}

// Content signatures of the usual interstitial walls.
var blockedSignatures = []string{
	"just a moment",
	"attention required",
	"verify you are human",
	"access denied",
	"captcha",
}

// blockedContent reports whether a page that returned 200 is actually an
// anti-bot interstitial.
func blockedContent(doc *goquery.Document) bool {
	probe := strings.ToLower(cleanDocText(doc.Find("title").First().Text()))
	if probe == "" {
		body := cleanDocText(doc.Find("body").Text())
		if len(body) > 256 {
			body = body[:256]
		}
		probe = strings.ToLower(body)
	}
	for _, signature := range blockedSignatures {
		if strings.Contains(probe, signature) {
			return true
		}
	}
	return false
}

func cleanDocText(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
