package scrape

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nmoretto/jobharvest/internal/models"
)

// Nested paths under which the board's embedded state has been observed to
// carry the results array. Layout drift just adds a path here.
var appStateJobPaths = [][]string{
	{"props", "pageProps", "searchResult", "jobs"},
	{"props", "pageProps", "results", "jobs"},
	{"jobSearch", "results", "jobs"},
	{"search", "jobs"},
}

// extractAppStateJobs reads the client-side application state embedded in a
// results page and maps its job objects straight to records, skipping the
// per-listing fetch entirely. Returns nil when no known blob or path matches.
func extractAppStateJobs(doc *goquery.Document, pageURL string) []models.JobRecord {
	state := decodeAppState(doc)
	if state == nil {
		return nil
	}

	for _, path := range appStateJobPaths {
		items, ok := walkPath(state, path).([]any)
		if !ok || len(items) == 0 {
			continue
		}

		var records []models.JobRecord
		seen := map[string]struct{}{}
		for _, item := range items {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			record := jobFromAppState(obj, pageURL)
			if record.URL == "" {
				continue
			}
			if _, dup := seen[record.URL]; dup {
				continue
			}
			seen[record.URL] = struct{}{}
			records = append(records, record)
		}
		if len(records) > 0 {
			return records
		}
	}

	return nil
}

func decodeAppState(doc *goquery.Document) any {
	if raw := strings.TrimSpace(doc.Find("script#__NEXT_DATA__[type='application/json']").First().Text()); raw != "" {
		var state any
		if err := json.Unmarshal([]byte(raw), &state); err == nil {
			return state
		}
	}

	// Older pages assign the same blob to a window global instead.
	var state any
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		marker := "window.__APP_STATE__"
		idx := strings.Index(raw, marker)
		if idx < 0 {
			return true
		}
		raw = raw[idx+len(marker):]
		raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "="))
		raw = strings.TrimSuffix(strings.TrimSpace(raw), ";")
		if err := json.Unmarshal([]byte(raw), &state); err != nil {
			state = nil
			return true
		}
		return false
	})
	return state
}

func walkPath(value any, path []string) any {
	for _, key := range path {
		obj, ok := value.(map[string]any)
		if !ok {
			return nil
		}
		value = obj[key]
	}
	return value
}

func jobFromAppState(obj map[string]any, pageURL string) models.JobRecord {
	record := models.JobRecord{Source: Source}
	record.Title = stringValue(obj["title"], obj["jobTitle"])
	record.Company = stringValue(obj["companyName"], mapValue(obj["company"], "name"))
	record.Location = stringValue(obj["location"], obj["suburb"], mapValue(obj["location"], "label"))
	record.Salary = stringValue(obj["salary"], obj["salaryText"])
	record.JobType = stringValue(obj["workType"], obj["jobType"])
	record.DatePosted = stringValue(obj["listedDate"], obj["postedDate"], obj["datePosted"])

	if markup := strings.TrimSpace(stringValue(obj["description"])); markup != "" {
		record.DescriptionHTML = markup
		record.DescriptionText = StripMarkup(markup)
	}

	href := stringValue(obj["url"], obj["jobViewUrl"], obj["jobUrl"])
	if href == "" {
		if id := stringValue(obj["id"], obj["jobId"]); id != "" {
			href = detailPathPart + id
		}
	}
	record.URL = canonicalURL(pageURL, href)
	return record
}
