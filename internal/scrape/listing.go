package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nmoretto/jobharvest/internal/models"
)

// Listings is the yield of one results page: either detail-page URLs to
// visit, or records lifted straight out of embedded application state.
type Listings struct {
	DetailURLs []string
	Inline     []models.JobRecord
}

func (l Listings) Empty() bool {
	return len(l.DetailURLs) == 0 && len(l.Inline) == 0
}

// ExtractListings pulls listing candidates from a results page. The embedded
// app-state blob is tried first because it carries full records without
// per-listing fetches; the anchor scan is the fallback. A page that matches
// neither yields an empty result, never an error.
func ExtractListings(doc *goquery.Document, pageURL string) Listings {
	if inline := extractAppStateJobs(doc, pageURL); len(inline) > 0 {
		return Listings{Inline: inline}
	}
	return Listings{DetailURLs: scanDetailLinks(doc, pageURL)}
}

func scanDetailLinks(doc *goquery.Document, pageURL string) []string {
	var urls []string
	seen := map[string]struct{}{}

	doc.Find("a[href*='" + detailPathPart + "']").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" {
			return
		}
		link := canonicalURL(pageURL, href)
		if link == "" || !strings.Contains(link, detailPathPart) {
			return
		}
		if _, ok := seen[link]; ok {
			return
		}
		seen[link] = struct{}{}
		urls = append(urls, link)
	})

	return urls
}
