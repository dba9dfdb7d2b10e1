package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestReason(t *testing.T) {
	typed := &Error{Source: "jsearch", Reason: ReasonRateLimited}
	if got := Reason(typed); got != ReasonRateLimited {
		t.Errorf("Reason(typed) = %s, want rate_limited", got)
	}
	if got := Reason(errors.New("boom")); got != ReasonTransportError {
		t.Errorf("Reason(untyped) = %s, want transport_error", got)
	}
}

// --- JSearch ---

func TestJSearchFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-RapidAPI-Key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") != "1" {
			fmt.Fprint(w, `{"status":"OK","data":[]}`)
			return
		}
		fmt.Fprint(w, `{"status":"OK","data":[
			{"job_id":"a1","job_title":"Go Developer","employer_name":"Acme",
			 "job_city":"Berlin","job_country":"DE","job_apply_link":"https://acme.example/a1",
			 "job_min_salary":70000,"job_max_salary":90000,"job_salary_currency":"EUR",
			 "job_posted_at_datetime_utc":"2026-02-09T08:30:00Z"},
			{"job_id":"","job_title":"Missing ID"},
			{"job_id":"a2","job_title":"Data Engineer","employer_name":"Beta"}
		]}`)
	}))
	defer srv.Close()

	t.Setenv("TEST_JSEARCH_KEY", "test-key")
	c := NewJSearchClient("TEST_JSEARCH_KEY", "", "software engineer", 3)
	c.SetBaseURL(srv.URL)

	postings, err := c.Fetch(context.Background(), "2026-02-10")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(postings) != 2 {
		t.Fatalf("expected 2 postings, got %d", len(postings))
	}

	p := postings[0]
	if p.ID != "jsearch:a1" {
		t.Errorf("ID = %s, want jsearch:a1", p.ID)
	}
	if p.Title != "Go Developer" || p.Company != "Acme" {
		t.Errorf("unexpected posting: %+v", p)
	}
	if p.PostedDate != "2026-02-09" {
		t.Errorf("PostedDate = %s, want 2026-02-09", p.PostedDate)
	}
	if p.SalaryMin == nil || *p.SalaryMin != 70000 {
		t.Errorf("SalaryMin = %v, want 70000", p.SalaryMin)
	}
	if p.Currency != "EUR" {
		t.Errorf("Currency = %s, want EUR", p.Currency)
	}
}

func TestJSearchMissingKey(t *testing.T) {
	c := NewJSearchClient("TEST_JSEARCH_UNSET_KEY", "", "go", 1)

	_, err := c.Fetch(context.Background(), "2026-02-10")
	if Reason(err) != ReasonAuthError {
		t.Errorf("expected auth_error, got %v", err)
	}
}

func TestJSearchStatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   FailureReason
	}{
		{http.StatusUnauthorized, ReasonAuthError},
		{http.StatusForbidden, ReasonAuthError},
		{http.StatusTooManyRequests, ReasonRateLimited},
		{http.StatusInternalServerError, ReasonTransportError},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		t.Setenv("TEST_JSEARCH_KEY", "test-key")
		c := NewJSearchClient("TEST_JSEARCH_KEY", "", "go", 1)
		c.SetBaseURL(srv.URL)

		_, err := c.Fetch(context.Background(), "2026-02-10")
		if Reason(err) != tt.want {
			t.Errorf("HTTP %d: reason = %s, want %s", tt.status, Reason(err), tt.want)
		}
		srv.Close()
	}
}

func TestJSearchEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"OK","data":[]}`)
	}))
	defer srv.Close()

	t.Setenv("TEST_JSEARCH_KEY", "test-key")
	c := NewJSearchClient("TEST_JSEARCH_KEY", "", "go", 2)
	c.SetBaseURL(srv.URL)

	_, err := c.Fetch(context.Background(), "2026-02-10")
	if Reason(err) != ReasonEmptyResult {
		t.Errorf("expected empty_result, got %v", err)
	}
}

// --- USAJobs ---

func TestUSAJobsFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization-Key") != "usa-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("Page") != "1" {
			fmt.Fprint(w, `{"SearchResult":{"SearchResultItems":[]}}`)
			return
		}
		fmt.Fprint(w, `{"SearchResult":{"SearchResultItems":[
			{"MatchedObjectId":"123","MatchedObjectDescriptor":{
				"PositionTitle":"IT Specialist",
				"PositionURI":"https://usajobs.example/123",
				"OrganizationName":"Department of Examples",
				"PositionLocation":[{"CityName":"Washington","CountrySubDivisionCode":"DC","CountryCode":"United States"}],
				"PositionRemuneration":[{"MinimumRange":"88000","MaximumRange":"120000"}],
				"PublicationStartDate":"2026-02-08",
				"UserArea":{"Details":{"JobSummary":"Keep the federal systems running."}}
			}}
		]}}`)
	}))
	defer srv.Close()

	t.Setenv("TEST_USAJOBS_KEY", "usa-key")
	c := NewUSAJobsClient("TEST_USAJOBS_KEY", "", "specialist", 2)
	c.SetBaseURL(srv.URL)

	postings, err := c.Fetch(context.Background(), "2026-02-10")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(postings) != 1 {
		t.Fatalf("expected 1 posting, got %d", len(postings))
	}

	p := postings[0]
	if p.ID != "usajobs:123" {
		t.Errorf("ID = %s, want usajobs:123", p.ID)
	}
	if p.City != "Washington" || p.State != "DC" || p.Country != "United States" {
		t.Errorf("unexpected location: %s / %s / %s", p.City, p.State, p.Country)
	}
	if p.SalaryMin == nil || *p.SalaryMin != 88000 {
		t.Errorf("SalaryMin = %v, want 88000", p.SalaryMin)
	}
	if p.Currency != "USD" {
		t.Errorf("Currency = %s, want USD", p.Currency)
	}
	if p.PostedDate != "2026-02-08" {
		t.Errorf("PostedDate = %s, want 2026-02-08", p.PostedDate)
	}
	if p.Description != "Keep the federal systems running." {
		t.Errorf("Description = %q", p.Description)
	}
}

func TestUSAJobsEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"SearchResult":{"SearchResultItems":[]}}`)
	}))
	defer srv.Close()

	t.Setenv("TEST_USAJOBS_KEY", "usa-key")
	c := NewUSAJobsClient("TEST_USAJOBS_KEY", "", "specialist", 1)
	c.SetBaseURL(srv.URL)

	_, err := c.Fetch(context.Background(), "2026-02-10")
	if Reason(err) != ReasonEmptyResult {
		t.Errorf("expected empty_result, got %v", err)
	}
}

// --- Feeds ---

const testFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
	<title>Remote Jobs</title>
	<item>
		<title>Acme: Senior Go Developer</title>
		<link>https://board.example/jobs/1</link>
		<description>&lt;p&gt;Build &amp;amp; ship backend services.&lt;/p&gt;</description>
		<pubDate>Mon, 09 Feb 2026 10:00:00 GMT</pubDate>
	</item>
	<item>
		<title>Beta: Data Engineer</title>
		<link>https://board.example/jobs/2</link>
		<pubDate>Thu, 01 Jan 2026 10:00:00 GMT</pubDate>
	</item>
	<item>
		<title>No link here</title>
	</item>
</channel></rss>`

func TestFeedAdapterFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, testFeedXML)
	}))
	defer srv.Close()

	a := NewFeedAdapter([]FeedConfig{{URL: srv.URL, Name: "Remote Jobs"}}, 7)
	postings, err := a.Fetch(context.Background(), "2026-02-10")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	// The January item falls outside the 7-day window; the linkless item is
	// dropped.
	if len(postings) != 1 {
		t.Fatalf("expected 1 posting, got %d", len(postings))
	}

	p := postings[0]
	if p.ID != "feed:https://board.example/jobs/1" {
		t.Errorf("ID = %s", p.ID)
	}
	if p.Company != "Acme" || p.Title != "Senior Go Developer" {
		t.Errorf("title split failed: company=%q title=%q", p.Company, p.Title)
	}
	if p.Description != "Build & ship backend services." {
		t.Errorf("Description = %q", p.Description)
	}
	if p.PostedDate != "2026-02-09" {
		t.Errorf("PostedDate = %s, want 2026-02-09", p.PostedDate)
	}
	if p.Source != "Remote Jobs" {
		t.Errorf("Source = %s, want Remote Jobs", p.Source)
	}
}

func TestFeedAdapterAllFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewFeedAdapter([]FeedConfig{{URL: srv.URL}}, 7)
	_, err := a.Fetch(context.Background(), "2026-02-10")
	if Reason(err) != ReasonTransportError {
		t.Errorf("expected transport_error, got %v", err)
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<p>Hello <b>world</b></p>", "Hello world"},
		{"plain text", "plain text"},
		{"a &amp; b", "a & b"},
		{"<div>spaced</div><div>out</div>", "spaced out"},
	}
	for _, tt := range tests {
		if got := stripHTML(tt.in); got != tt.want {
			t.Errorf("stripHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFeedSourceName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://weworkremotely.com/categories/remote-programming-jobs.rss", "Weworkremotely"},
		{"https://jobs.github.io/feed.xml", "Github"},
		{"https://www.boards.example.com/jobs.rss", "Example"},
		{"not a url", "feed"},
	}
	for _, tt := range tests {
		if got := feedSourceName(tt.url); got != tt.want {
			t.Errorf("feedSourceName(%s) = %s, want %s", tt.url, got, tt.want)
		}
	}
}
