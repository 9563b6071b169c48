package scrape

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Visible anchor texts that mean "next page" on the board and its mirrors.
var nextPageLabels = map[string]struct{}{
	"next":      {},
	"next page": {},
	">":         {},
	"»":         {},
	"more jobs": {},
}

// NextPage decides whether another results page should be fetched and which
// URL it lives at. It stops once the saved-record budget or the page ceiling
// is reached, then tries in order: a rel="next" link, an anchor labelled like
// a next-page control, and a page query-parameter bump. A candidate is only
// accepted when it differs from the current URL, which guards against sites
// that ignore the parameter and would otherwise loop forever.
func NextPage(doc *goquery.Document, currentURL string, pageNo, saved, wanted, maxPages int) (string, bool) {
	if wanted > 0 && saved >= wanted {
		return "", false
	}
	if maxPages > 0 && pageNo >= maxPages {
		return "", false
	}

	candidates := []string{
		relNextURL(doc, currentURL),
		labelledNextURL(doc, currentURL),
		bumpPageParam(currentURL, pageNo+1),
	}
	for _, candidate := range candidates {
		if candidate != "" && candidate != currentURL {
			return candidate, true
		}
	}
	return "", false
}

func relNextURL(doc *goquery.Document, currentURL string) string {
	for _, selector := range []string{"a[rel='next']", "link[rel='next']"} {
		if href := strings.TrimSpace(doc.Find(selector).First().AttrOr("href", "")); href != "" {
			return absoluteURL(currentURL, href)
		}
	}
	return ""
}

func labelledNextURL(doc *goquery.Document, currentURL string) string {
	var next string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		label := strings.ToLower(cleanText(s.Text()))
		if label == "" {
			label = strings.ToLower(cleanText(s.AttrOr("aria-label", "")))
		}
		if _, ok := nextPageLabels[label]; !ok {
			return true
		}
		if href := strings.TrimSpace(s.AttrOr("href", "")); href != "" {
			next = absoluteURL(currentURL, href)
			return false
		}
		return true
	})
	return next
}

func bumpPageParam(currentURL string, page int) string {
	u, err := url.Parse(currentURL)
	if err != nil {
		return ""
	}
	query := u.Query()
	query.Set("page", strconv.Itoa(page))
	u.RawQuery = query.Encode()
	return u.String()
}
