package models

// SearchParams captures the inputs that resolve to seed URLs. Explicit URLs
// win over synthesis: DirectURL > StartURL > StartURLs > keyword/location.
type SearchParams struct {
	Keyword   string
	Location  string
	Category  string
	DirectURL string
	StartURL  string
	StartURLs []string
}
