package scrape

import (
	"errors"
	"strings"
	"testing"

	"github.com/nmoretto/jobharvest/internal/models"
)

func TestBuildSeedsPriority(t *testing.T) {
	params := models.SearchParams{
		Keyword:   "data analyst",
		Location:  "Melbourne",
		DirectURL: "https://www.careerone.com.au/jobs/in-sydney",
		StartURL:  "https://www.careerone.com.au/jobs/in-brisbane",
		StartURLs: []string{"https://www.careerone.com.au/jobs/in-perth"},
	}

	seeds, err := BuildSeeds(params)
	if err != nil {
		t.Fatalf("BuildSeeds: %v", err)
	}
	if len(seeds) != 1 || seeds[0] != params.DirectURL {
		t.Fatalf("direct URL should win, got %v", seeds)
	}

	params.DirectURL = ""
	seeds, _ = BuildSeeds(params)
	if seeds[0] != params.StartURL {
		t.Fatalf("start URL should win over start URLs, got %v", seeds)
	}

	params.StartURL = ""
	seeds, _ = BuildSeeds(params)
	if len(seeds) != 1 || seeds[0] != "https://www.careerone.com.au/jobs/in-perth" {
		t.Fatalf("start URLs should win over synthesis, got %v", seeds)
	}
}

func TestBuildSeedsStartURLsDeduped(t *testing.T) {
	seeds, err := BuildSeeds(models.SearchParams{
		StartURLs: []string{
			"https://www.careerone.com.au/jobs/in-perth",
			" https://www.careerone.com.au/jobs/in-perth ",
			"https://www.careerone.com.au/jobs/in-hobart",
		},
	})
	if err != nil {
		t.Fatalf("BuildSeeds: %v", err)
	}
	if len(seeds) != 2 {
		t.Fatalf("expected 2 deduped seeds, got %v", seeds)
	}
	if seeds[0] != "https://www.careerone.com.au/jobs/in-perth" || seeds[1] != "https://www.careerone.com.au/jobs/in-hobart" {
		t.Fatalf("order should be preserved, got %v", seeds)
	}
}

func TestBuildSeedsSynthesis(t *testing.T) {
	seeds, err := BuildSeeds(models.SearchParams{Keyword: "data analyst", Location: "Melbourne"})
	if err != nil {
		t.Fatalf("BuildSeeds: %v", err)
	}
	seed := seeds[0]
	if !strings.Contains(seed, "/jobs/in-melbourne") {
		t.Fatalf("expected melbourne slug in path, got %q", seed)
	}
	if !strings.Contains(seed, "keywords=data%20analyst") {
		t.Fatalf("expected %%20-encoded keyword, got %q", seed)
	}
	if strings.Contains(seed, "category=") {
		t.Fatalf("category parameter should be absent, got %q", seed)
	}
}

func TestBuildSeedsSynthesisDefaults(t *testing.T) {
	seeds, err := BuildSeeds(models.SearchParams{Keyword: "nurse"})
	if err != nil {
		t.Fatalf("BuildSeeds: %v", err)
	}
	if !strings.Contains(seeds[0], "/jobs/in-australia") {
		t.Fatalf("expected whole-region slug when location empty, got %q", seeds[0])
	}

	seeds, err = BuildSeeds(models.SearchParams{Location: "Gold Coast", Category: "Engineering"})
	if err != nil {
		t.Fatalf("BuildSeeds: %v", err)
	}
	if !strings.Contains(seeds[0], "/jobs/in-gold-coast") {
		t.Fatalf("expected hyphenated slug, got %q", seeds[0])
	}
	if !strings.Contains(seeds[0], "category=Engineering") {
		t.Fatalf("expected category parameter, got %q", seeds[0])
	}
	if strings.Contains(seeds[0], "keywords=") {
		t.Fatalf("keyword parameter should be absent, got %q", seeds[0])
	}
}

func TestBuildSeedsNoInput(t *testing.T) {
	_, err := BuildSeeds(models.SearchParams{})
	if !errors.Is(err, ErrNoSeed) {
		t.Fatalf("expected ErrNoSeed, got %v", err)
	}
}

func TestLocationSlug(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Melbourne", "melbourne"},
		{"  Gold   Coast  ", "gold-coast"},
		{"St. Kilda", "st-kilda"},
		{"Müllheim", "mullheim"},
		{"São Paulo", "sao-paulo"},
		{"---", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := locationSlug(tc.in); got != tc.want {
			t.Fatalf("locationSlug(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
