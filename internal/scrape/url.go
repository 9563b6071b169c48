package scrape

import (
	"errors"
	"net/url"
	"strings"

	"github.com/nmoretto/jobharvest/internal/models"
)

// ErrNoSeed is returned when no branch of seed resolution yields a URL. It is
// the only error that aborts a run before fetching.
var ErrNoSeed = errors.New("no seed URL could be resolved")

// BuildSeeds resolves the seed URLs for a run. Explicit inputs win over
// synthesis: a direct URL beats a start URL, which beats a start-URL list,
// which beats a URL built from keyword/location/category.
func BuildSeeds(params models.SearchParams) ([]string, error) {
	if direct := strings.TrimSpace(params.DirectURL); direct != "" {
		return []string{direct}, nil
	}
	if start := strings.TrimSpace(params.StartURL); start != "" {
		return []string{start}, nil
	}
	if seeds := dedupeStrings(params.StartURLs); len(seeds) > 0 {
		return seeds, nil
	}
	return synthesizeSeed(params)
}

func synthesizeSeed(params models.SearchParams) ([]string, error) {
	keyword := strings.TrimSpace(params.Keyword)
	location := strings.TrimSpace(params.Location)
	category := strings.TrimSpace(params.Category)
	if keyword == "" && location == "" && category == "" {
		return nil, ErrNoSeed
	}

	slug := locationSlug(location)
	if slug == "" {
		slug = wholeRegionSlug
	}

	seed := BaseURL + "/jobs/in-" + slug
	var query []string
	if keyword != "" {
		query = append(query, "keywords="+encodeQueryComponent(keyword))
	}
	if category != "" {
		query = append(query, "category="+encodeQueryComponent(category))
	}
	if len(query) > 0 {
		seed += "?" + strings.Join(query, "&")
	}
	return []string{seed}, nil
}

// The board expects %20 for spaces in query values, not the form-encoded +.
func encodeQueryComponent(value string) string {
	return strings.ReplaceAll(url.QueryEscape(value), "+", "%20")
}

func dedupeStrings(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
