package scrape

// Site constants for the one board this tool targets.
const (
	Source  = "careerone"
	BaseURL = "https://www.careerone.com.au"

	// Detail pages all share this path segment; anchors pointing anywhere
	// else are navigation, not listings.
	detailPathPart = "/jobview/"

	// Slug used when no location is given: the board treats it as a
	// country-wide search.
	wholeRegionSlug = "australia"
)
