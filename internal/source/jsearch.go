package source

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

const jsearchSource = "jsearch"

// JSearchClient fetches postings from the JSearch API via RapidAPI.
type JSearchClient struct {
	apiKey string
	host   string
	query  string
	pages  int
	client *resty.Client
}

// NewJSearchClient creates a JSearch adapter. The API key is read from the
// environment variable named by apiKeyEnv.
func NewJSearchClient(apiKeyEnv, host, query string, pages int) *JSearchClient {
	if host == "" {
		host = "jsearch.p.rapidapi.com"
	}
	if pages <= 0 {
		pages = 3
	}
	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetBaseURL("https://" + host)
	return &JSearchClient{
		apiKey: os.Getenv(apiKeyEnv),
		host:   host,
		query:  query,
		pages:  pages,
		client: client,
	}
}

// SetBaseURL overrides the endpoint, used by tests.
func (c *JSearchClient) SetBaseURL(u string) { c.client.SetBaseURL(u) }

func (c *JSearchClient) Name() string { return jsearchSource }

type jsearchJob struct {
	JobID          string   `json:"job_id"`
	JobTitle       string   `json:"job_title"`
	EmployerName   string   `json:"employer_name"`
	JobCity        string   `json:"job_city"`
	JobState       string   `json:"job_state"`
	JobCountry     string   `json:"job_country"`
	JobDescription string   `json:"job_description"`
	JobApplyLink   string   `json:"job_apply_link"`
	JobMinSalary   *float64 `json:"job_min_salary"`
	JobMaxSalary   *float64 `json:"job_max_salary"`
	JobCurrency    string   `json:"job_salary_currency"`
	JobPostedAt    string   `json:"job_posted_at_datetime_utc"`
}

type jsearchResponse struct {
	Status string       `json:"status"`
	Data   []jsearchJob `json:"data"`
}

// Fetch pulls up to the configured number of pages of recent postings.
// JSearch filters by recency window; the batch day is assigned by the
// orchestrator, not the adapter.
func (c *JSearchClient) Fetch(ctx context.Context, day string) ([]Posting, error) {
	if c.apiKey == "" {
		return nil, &Error{Source: jsearchSource, Reason: ReasonAuthError, Err: fmt.Errorf("API key not configured")}
	}

	var postings []Posting
	for page := 1; page <= c.pages; page++ {
		var body jsearchResponse
		resp, err := c.client.R().
			SetContext(ctx).
			SetHeader("X-RapidAPI-Key", c.apiKey).
			SetHeader("X-RapidAPI-Host", c.host).
			SetQueryParams(map[string]string{
				"query":       c.query,
				"page":        strconv.Itoa(page),
				"date_posted": "week",
			}).
			SetResult(&body).
			Get("/search")
		if err != nil {
			return nil, &Error{Source: jsearchSource, Reason: ReasonTransportError, Err: err}
		}

		switch resp.StatusCode() {
		case http.StatusOK:
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, &Error{Source: jsearchSource, Reason: ReasonAuthError, Err: fmt.Errorf("HTTP %d", resp.StatusCode())}
		case http.StatusTooManyRequests:
			return nil, &Error{Source: jsearchSource, Reason: ReasonRateLimited, Err: fmt.Errorf("HTTP 429")}
		default:
			return nil, &Error{Source: jsearchSource, Reason: ReasonTransportError, Err: fmt.Errorf("HTTP %d", resp.StatusCode())}
		}

		if len(body.Data) == 0 {
			log.Printf("JSearch: no more results at page %d", page)
			break
		}

		for _, j := range body.Data {
			if j.JobID == "" || j.JobTitle == "" {
				continue
			}
			postings = append(postings, Posting{
				ID:          jsearchSource + ":" + j.JobID,
				Title:       j.JobTitle,
				Company:     j.EmployerName,
				City:        j.JobCity,
				State:       j.JobState,
				Country:     j.JobCountry,
				URL:         j.JobApplyLink,
				Description: j.JobDescription,
				SalaryMin:   j.JobMinSalary,
				SalaryMax:   j.JobMaxSalary,
				Currency:    j.JobCurrency,
				PostedDate:  parseUTCDate(j.JobPostedAt),
				Source:      jsearchSource,
			})
		}
	}

	if len(postings) == 0 {
		return nil, &Error{Source: jsearchSource, Reason: ReasonEmptyResult}
	}
	return postings, nil
}

// parseUTCDate normalizes an RFC3339 timestamp to YYYY-MM-DD.
func parseUTCDate(s string) string {
	if s == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		if len(s) >= 10 {
			return s[:10]
		}
		return ""
	}
	return t.Format("2006-01-02")
}
