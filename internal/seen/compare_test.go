package seen

import (
	"testing"

	"github.com/nmoretto/jobharvest/internal/models"
)

func TestNormalize(t *testing.T) {
	got := Normalize("  Senior   Data\tAnalyst  ")
	want := "senior data analyst"
	if got != want {
		t.Fatalf("Normalize() = %q, want %q", got, want)
	}
}

func TestKeyPrefersURL(t *testing.T) {
	record := models.JobRecord{
		Title:   "Senior Analyst",
		Company: "Acme",
		URL:     "https://www.careerone.com.au/jobview/senior-analyst/1",
	}
	got, ok := Key(record)
	if !ok {
		t.Fatalf("expected valid key")
	}
	if got != record.URL {
		t.Fatalf("Key() = %q, want the URL", got)
	}
}

func TestKeyFallsBackToTitleCompany(t *testing.T) {
	record := models.JobRecord{Title: "  Senior Analyst ", Company: " ACME   Corp "}
	got, ok := Key(record)
	if !ok {
		t.Fatalf("expected valid key")
	}
	want := "senior analyst::acme corp"
	if got != want {
		t.Fatalf("Key() = %q, want %q", got, want)
	}

	if _, ok := Key(models.JobRecord{Title: "No Company"}); ok {
		t.Fatalf("record without URL and company must be invalid")
	}
}

func TestDiff(t *testing.T) {
	newRecords := []models.JobRecord{
		{Title: "Senior Analyst", Company: "Acme", URL: "https://example.com/jobview/1"},
		{Title: "Senior Analyst (repost)", Company: "Acme", URL: "https://example.com/jobview/1"},
		{Title: "Platform Engineer", Company: "Beta", URL: "https://example.com/jobview/2"},
		{Title: "", Company: "Invalid"},
	}
	seenRecords := []models.JobRecord{
		{Title: "Senior Analyst", Company: "Acme", URL: "https://example.com/jobview/1"},
		{Title: "No Company", Company: "   "},
	}

	unseen, stats := Diff(newRecords, seenRecords)

	if len(unseen) != 1 {
		t.Fatalf("expected 1 unseen record, got %d", len(unseen))
	}
	if unseen[0].Title != "Platform Engineer" {
		t.Fatalf("unexpected unseen record: %+v", unseen[0])
	}

	if stats.TotalNew != 4 {
		t.Fatalf("TotalNew = %d, want 4", stats.TotalNew)
	}
	if stats.TotalSeen != 2 {
		t.Fatalf("TotalSeen = %d, want 2", stats.TotalSeen)
	}
	if stats.InvalidNew != 1 {
		t.Fatalf("InvalidNew = %d, want 1", stats.InvalidNew)
	}
	if stats.InvalidSeen != 1 {
		t.Fatalf("InvalidSeen = %d, want 1", stats.InvalidSeen)
	}
	if stats.InvalidSkipped() != 2 {
		t.Fatalf("InvalidSkipped = %d, want 2", stats.InvalidSkipped())
	}
	if stats.Unseen != 1 {
		t.Fatalf("Unseen = %d, want 1", stats.Unseen)
	}
}

func TestMergeAndIdempotency(t *testing.T) {
	existing := []models.JobRecord{
		{Title: "Senior Analyst", Company: "Acme", URL: "https://example.com/jobview/1"},
		{Title: "", Company: "Unknown"},
	}
	input := []models.JobRecord{
		{Title: "Senior Analyst", Company: "Acme", URL: "https://example.com/jobview/1"},
		{Title: "Platform Engineer", Company: "Beta", URL: "https://example.com/jobview/2"},
		{Title: "", Company: "Broken"},
	}

	merged, stats := Merge(existing, input)
	if len(merged) != 3 {
		t.Fatalf("expected merged len=3, got %d", len(merged))
	}
	if stats.Added != 1 {
		t.Fatalf("Added = %d, want 1", stats.Added)
	}
	if stats.InvalidSeen != 1 {
		t.Fatalf("InvalidSeen = %d, want 1", stats.InvalidSeen)
	}
	if stats.InvalidInput != 1 {
		t.Fatalf("InvalidInput = %d, want 1", stats.InvalidInput)
	}
	if stats.TotalOut != 3 {
		t.Fatalf("TotalOut = %d, want 3", stats.TotalOut)
	}

	mergedAgain, statsAgain := Merge(merged, input)
	if len(mergedAgain) != len(merged) {
		t.Fatalf("expected idempotent merge length %d, got %d", len(merged), len(mergedAgain))
	}
	if statsAgain.Added != 0 {
		t.Fatalf("expected second merge Added=0, got %d", statsAgain.Added)
	}
}
