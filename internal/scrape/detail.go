package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nmoretto/jobharvest/internal/models"
)

const (
	// Elements shorter than this are treated as chrome, not body copy.
	minDescriptionChars = 30
	// Cap on elements collected by the heuristic description fallback.
	maxDescriptionNodes = 80
)

// ExtractDetail builds a record from a job-detail page via a layered cascade:
// JSON-LD JobPosting first, then site markup regions, then the heuristic
// description fallback. Each layer fills only fields the previous layers left
// empty. Missing fields are the expected common case, never an error.
func ExtractDetail(doc *goquery.Document, pageURL string) models.JobRecord {
	record := models.JobRecord{URL: pageURL, Source: Source}

	for _, node := range jobPostingNodes(doc) {
		applyJobPosting(&record, node)
	}

	applyMarkupRegions(&record, doc)

	if record.DescriptionHTML == "" {
		record.DescriptionHTML = fallbackDescription(doc)
	}
	if record.DescriptionText == "" && record.DescriptionHTML != "" {
		record.DescriptionText = StripMarkup(record.DescriptionHTML)
	}

	return record
}

// Per-field selector cascades for the board's detail markup, tried in order
// until one yields text.
var markupRegions = []struct {
	target    func(*models.JobRecord) *string
	selectors []string
}{
	{func(r *models.JobRecord) *string { return &r.Title }, []string{"[data-testid='job-title']", "h1"}},
	{func(r *models.JobRecord) *string { return &r.Company }, []string{"[data-testid='company-name']", "[data-testid='job-header'] a:first-of-type"}},
	{func(r *models.JobRecord) *string { return &r.Location }, []string{"[data-testid='job-location']", "[data-testid='job-header'] a:nth-of-type(2)"}},
	{func(r *models.JobRecord) *string { return &r.Salary }, []string{"[data-testid='job-salary']", "[class*='salary']"}},
	{func(r *models.JobRecord) *string { return &r.JobType }, []string{"[data-testid='work-type']", "[class*='work-type']"}},
	{func(r *models.JobRecord) *string { return &r.DatePosted }, []string{"[data-testid='date-posted']", "time"}},
}

func applyMarkupRegions(record *models.JobRecord, doc *goquery.Document) {
	for _, region := range markupRegions {
		fill(region.target(record), firstText(doc, region.selectors...))
	}
	fill(&record.DescriptionHTML, firstHTML(doc, "[data-testid='job-description']", "[class*='job-description']"))
}

func firstText(doc *goquery.Document, selectors ...string) string {
	for _, selector := range selectors {
		if text := cleanText(doc.Find(selector).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func firstHTML(doc *goquery.Document, selectors ...string) string {
	for _, selector := range selectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		if markup, err := sel.Html(); err == nil && strings.TrimSpace(markup) != "" {
			return strings.TrimSpace(markup)
		}
	}
	return ""
}

// Candidate containers for the description fallback, widest last. The first
// container that yields any matching elements wins.
var descriptionContainers = []string{"main", "article", "[role='main']", "body"}

// fallbackDescription collects long-enough paragraph, list and div elements
// from the first candidate container that has any, bounded so a pathological
// page cannot blow up extraction cost.
func fallbackDescription(doc *goquery.Document) string {
	for _, container := range descriptionContainers {
		root := doc.Find(container).First()
		if root.Length() == 0 {
			continue
		}

		var parts []string
		root.Find("p, li, div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if len(parts) >= maxDescriptionNodes {
				return false
			}
			if len(cleanText(s.Text())) <= minDescriptionChars {
				return true
			}
			markup, err := goquery.OuterHtml(s)
			if err != nil {
				return true
			}
			parts = append(parts, strings.TrimSpace(markup))
			return true
		})

		if len(parts) > 0 {
			return strings.Join(parts, "\n")
		}
	}
	return ""
}
