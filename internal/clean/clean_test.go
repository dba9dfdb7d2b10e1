package clean

import (
	"context"
	"testing"

	"github.com/peterhagen/jobpulse/internal/database"
)

func ptr(s string) *string { return &s }

func fptr(f float64) *float64 { return &f }

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Sr. Software Engineer", "Senior Software Engineer"},
		{"Jr. Developer", "Junior Developer"},
		{"SWE II", "Software Engineer II"},
		{"SRE", "Site Reliability Engineer"},
		{"ML Engineer", "Machine Learning Engineer"},
		{"  Backend   Engineer ", "Backend Engineer"},
	}
	for _, tt := range tests {
		if got := NormalizeTitle(tt.in); got != tt.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeCompany(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Acme, Inc.", "Acme"},
		{"Globex LLC", "Globex"},
		{"Initech Corp", "Initech"},
		{"Umbrella Ltd.", "Umbrella"},
		{"Plain Company", "Plain Company"},
	}
	for _, tt := range tests {
		if got := NormalizeCompany(tt.in); got != tt.want {
			t.Errorf("NormalizeCompany(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeLocation(t *testing.T) {
	if got := NormalizeLocation("Austin", "TX", "USA"); got != "Austin, TX, United States" {
		t.Errorf("got %q", got)
	}
	if got := NormalizeLocation("London", "", "UK"); got != "London, United Kingdom" {
		t.Errorf("got %q", got)
	}
	if got := NormalizeLocation("", "", ""); got != "" {
		t.Errorf("expected empty location, got %q", got)
	}
}

func TestNormalizeSalaryCurrency(t *testing.T) {
	n := NewNormalizer(nil)

	p := database.Posting{ID: "a:1", Title: "Engineer", Source: "jsearch",
		SalaryMin: fptr(100000), Currency: ptr("THB")}
	np := n.Normalize(p)
	if np.SalaryMin != nil || np.Currency != "" {
		t.Error("expected salary dropped for unsupported currency")
	}

	p.Currency = nil
	np = n.Normalize(p)
	if np.SalaryMin == nil || np.Currency != "USD" {
		t.Error("expected missing currency with salary to default to USD")
	}

	p.Currency = ptr("eur")
	np = n.Normalize(p)
	if np.Currency != "EUR" {
		t.Errorf("expected EUR, got %q", np.Currency)
	}
}

func TestNormalizeAllDeduplicates(t *testing.T) {
	n := NewNormalizer(nil)

	postings := []database.Posting{
		{ID: "jsearch:1", Title: "Sr. Engineer", Company: ptr("Acme, Inc."), City: ptr("Austin"), Source: "jsearch"},
		{ID: "usajobs:9", Title: "Senior Engineer", Company: ptr("Acme"), City: ptr("Austin"), Source: "usajobs"},
		{ID: "feed:x", Title: "Senior Engineer", Company: ptr("Globex"), City: ptr("Austin"), Source: "feeds"},
	}

	result := n.NormalizeAll(postings)
	if len(result) != 2 {
		t.Fatalf("expected 2 postings after dedupe, got %d", len(result))
	}
	// First occurrence wins.
	if result[0].ID != "jsearch:1" {
		t.Errorf("expected jsearch:1 kept, got %s", result[0].ID)
	}
}

func TestNormalizeAllIdempotent(t *testing.T) {
	n := NewNormalizer(nil)
	postings := []database.Posting{
		{ID: "a:1", Title: "Engineer", Company: ptr("Acme"), Source: "jsearch"},
		{ID: "a:2", Title: "Analyst", Company: ptr("Globex"), Source: "jsearch"},
	}

	first := n.NormalizeAll(postings)
	second := n.NormalizeAll(postings)
	if len(first) != len(second) {
		t.Errorf("expected stable output, got %d then %d", len(first), len(second))
	}
}

type fakeGeocoder struct{ calls int }

func (g *fakeGeocoder) Locate(ctx context.Context, location string) (float64, float64, error) {
	g.calls++
	return 30.27, -97.74, nil
}

func TestGeocodeCachesByLocation(t *testing.T) {
	geo := &fakeGeocoder{}
	n := NewNormalizer(geo)

	postings := []NormalizedPosting{
		{ID: "a:1", Location: "Austin, TX, United States"},
		{ID: "a:2", Location: "Austin, TX, United States"},
		{ID: "a:3"},
	}
	n.Geocode(context.Background(), postings)

	if geo.calls != 1 {
		t.Errorf("expected 1 geocoder call, got %d", geo.calls)
	}
	if postings[0].Lat == nil || postings[1].Lat == nil {
		t.Error("expected coordinates on located postings")
	}
	if postings[2].Lat != nil {
		t.Error("expected no coordinates without a location")
	}
}
