package models

import "time"

// JobRecord is the normalized listing produced by a run. URL is the only
// required field and acts as the record's natural key; every other field is
// best-effort and omitted from JSON output when empty.
type JobRecord struct {
	Title           string    `json:"title,omitempty"`
	Company         string    `json:"company,omitempty"`
	Location        string    `json:"location,omitempty"`
	Salary          string    `json:"salary,omitempty"`
	JobType         string    `json:"job_type,omitempty"`
	DatePosted      string    `json:"date_posted,omitempty"`
	DescriptionHTML string    `json:"description_html,omitempty"`
	DescriptionText string    `json:"description_text,omitempty"`
	URL             string    `json:"url"`
	Keyword         string    `json:"keyword,omitempty"`
	SearchLocation  string    `json:"search_location,omitempty"`
	Category        string    `json:"category,omitempty"`
	Source          string    `json:"source,omitempty"`
	CapturedAt      time.Time `json:"captured_at,omitempty"`
}
