package scrape

import (
	"html"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

func cleanText(value string) string {
	value = html.UnescapeString(value)
	return strings.Join(strings.Fields(value), " ")
}

func absoluteURL(base string, href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}

// canonicalURL resolves href against base and strips query and fragment, so
// tracking parameters never produce two keys for the same listing.
func canonicalURL(base string, href string) string {
	abs := absoluteURL(base, href)
	if abs == "" {
		return ""
	}
	u, err := url.Parse(abs)
	if err != nil {
		return abs
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// StripMarkup renders a markup fragment down to plain text with whitespace
// runs collapsed to single spaces.
func StripMarkup(markup string) string {
	if strings.TrimSpace(markup) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return cleanText(markup)
	}
	return cleanText(doc.Text())
}
