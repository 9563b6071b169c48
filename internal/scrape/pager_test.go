package scrape

import (
	"strings"
	"testing"
)

func TestNextPageStopsOnBudget(t *testing.T) {
	doc := mustDoc(t, `<html><body><a rel="next" href="?page=2">Next</a></body></html>`)
	if _, ok := NextPage(doc, "https://example.com/jobs", 1, 10, 10, 20); ok {
		t.Fatalf("should stop when saved >= wanted")
	}
	if _, ok := NextPage(doc, "https://example.com/jobs", 20, 0, 10, 20); ok {
		t.Fatalf("should stop when pageNo >= maxPages")
	}
}

func TestNextPageRelNext(t *testing.T) {
	doc := mustDoc(t, `<html><body><a rel="next" href="/jobs/in-melbourne?page=2">›</a></body></html>`)
	next, ok := NextPage(doc, "https://www.careerone.com.au/jobs/in-melbourne", 1, 0, 100, 20)
	if !ok {
		t.Fatalf("expected a next page")
	}
	if next != "https://www.careerone.com.au/jobs/in-melbourne?page=2" {
		t.Fatalf("next = %q", next)
	}
}

func TestNextPageLabelledAnchor(t *testing.T) {
	doc := mustDoc(t, `<html><body>
	  <a href="/jobs/in-melbourne?page=1">1</a>
	  <a href="/jobs/in-melbourne?page=2">Next</a>
	</body></html>`)
	next, ok := NextPage(doc, "https://www.careerone.com.au/jobs/in-melbourne", 1, 0, 100, 20)
	if !ok || !strings.HasSuffix(next, "page=2") {
		t.Fatalf("expected labelled next anchor, got %q ok=%v", next, ok)
	}
}

func TestNextPageParamFallback(t *testing.T) {
	doc := mustDoc(t, `<html><body><p>no pagination markup</p></body></html>`)
	next, ok := NextPage(doc, "https://www.careerone.com.au/jobs/in-melbourne", 1, 0, 100, 20)
	if !ok {
		t.Fatalf("expected page-param fallback")
	}
	if !strings.Contains(next, "page=2") {
		t.Fatalf("fallback should bump page param, got %q", next)
	}
}

func TestNextPageGuardsAgainstLoops(t *testing.T) {
	// The current URL already carries page=2 and the page offers nothing
	// better, so the only candidate is identical and must be rejected.
	doc := mustDoc(t, `<html><body></body></html>`)
	if next, ok := NextPage(doc, "https://www.careerone.com.au/jobs/in-melbourne?page=2", 1, 0, 100, 20); ok {
		t.Fatalf("identical fallback URL should be rejected, got %q", next)
	}
}
