package source

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	usajobsSource  = "usajobs"
	usajobsBaseURL = "https://data.usajobs.gov"

	// USAJobs rejects requests without a User-Agent identifying the caller.
	defaultUserAgent = "jobpulse/1.0"

	postedWithinDays = 30
)

// USAJobsClient fetches federal postings from the USAJobs search API.
type USAJobsClient struct {
	apiKey    string
	userAgent string
	query     string
	pages     int
	perPage   int
	client    *resty.Client
}

// NewUSAJobsClient creates a USAJobs adapter. The API key is read from the
// environment variable named by apiKeyEnv.
func NewUSAJobsClient(apiKeyEnv, userAgent, query string, pages int) *USAJobsClient {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if pages <= 0 {
		pages = 5
	}
	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetBaseURL(usajobsBaseURL)
	return &USAJobsClient{
		apiKey:    os.Getenv(apiKeyEnv),
		userAgent: userAgent,
		query:     query,
		pages:     pages,
		perPage:   25,
		client:    client,
	}
}

// SetBaseURL overrides the endpoint, used by tests.
func (c *USAJobsClient) SetBaseURL(u string) { c.client.SetBaseURL(u) }

func (c *USAJobsClient) Name() string { return usajobsSource }

type usajobsResponse struct {
	SearchResult struct {
		SearchResultItems []struct {
			MatchedObjectID         string `json:"MatchedObjectId"`
			MatchedObjectDescriptor struct {
				PositionTitle    string `json:"PositionTitle"`
				PositionURI      string `json:"PositionURI"`
				OrganizationName string `json:"OrganizationName"`
				PositionLocation []struct {
					CityName string `json:"CityName"`
					State    string `json:"CountrySubDivisionCode"`
					Country  string `json:"CountryCode"`
				} `json:"PositionLocation"`
				PositionRemuneration []struct {
					MinimumRange string `json:"MinimumRange"`
					MaximumRange string `json:"MaximumRange"`
				} `json:"PositionRemuneration"`
				PublicationStartDate string `json:"PublicationStartDate"`
				UserArea             struct {
					Details struct {
						JobSummary string `json:"JobSummary"`
					} `json:"Details"`
				} `json:"UserArea"`
			} `json:"MatchedObjectDescriptor"`
		} `json:"SearchResultItems"`
	} `json:"SearchResult"`
}

// Fetch pulls postings published within the trailing month.
func (c *USAJobsClient) Fetch(ctx context.Context, day string) ([]Posting, error) {
	if c.apiKey == "" {
		return nil, &Error{Source: usajobsSource, Reason: ReasonAuthError, Err: fmt.Errorf("API key not configured")}
	}

	var postings []Posting
	for page := 1; page <= c.pages; page++ {
		var body usajobsResponse
		resp, err := c.client.R().
			SetContext(ctx).
			SetHeader("Authorization-Key", c.apiKey).
			SetHeader("User-Agent", c.userAgent).
			SetQueryParams(map[string]string{
				"Keyword":        c.query,
				"ResultsPerPage": strconv.Itoa(c.perPage),
				"Page":           strconv.Itoa(page),
				"DatePosted":     strconv.Itoa(postedWithinDays),
			}).
			SetResult(&body).
			Get("/api/search")
		if err != nil {
			return nil, &Error{Source: usajobsSource, Reason: ReasonTransportError, Err: err}
		}

		switch resp.StatusCode() {
		case http.StatusOK:
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, &Error{Source: usajobsSource, Reason: ReasonAuthError, Err: fmt.Errorf("HTTP %d", resp.StatusCode())}
		case http.StatusTooManyRequests:
			return nil, &Error{Source: usajobsSource, Reason: ReasonRateLimited, Err: fmt.Errorf("HTTP 429")}
		default:
			return nil, &Error{Source: usajobsSource, Reason: ReasonTransportError, Err: fmt.Errorf("HTTP %d", resp.StatusCode())}
		}

		items := body.SearchResult.SearchResultItems
		if len(items) == 0 {
			break
		}

		for _, item := range items {
			d := item.MatchedObjectDescriptor
			if item.MatchedObjectID == "" || d.PositionTitle == "" {
				continue
			}
			p := Posting{
				ID:          usajobsSource + ":" + item.MatchedObjectID,
				Title:       d.PositionTitle,
				Company:     d.OrganizationName,
				URL:         d.PositionURI,
				Description: d.UserArea.Details.JobSummary,
				Currency:    "USD",
				PostedDate:  parseUTCDate(d.PublicationStartDate),
				Source:      usajobsSource,
			}
			if len(d.PositionLocation) > 0 {
				loc := d.PositionLocation[0]
				p.City = loc.CityName
				p.State = loc.State
				p.Country = loc.Country
			}
			if len(d.PositionRemuneration) > 0 {
				rem := d.PositionRemuneration[0]
				if v, err := strconv.ParseFloat(rem.MinimumRange, 64); err == nil && v > 0 {
					min := v
					p.SalaryMin = &min
				}
				if v, err := strconv.ParseFloat(rem.MaximumRange, 64); err == nil && v > 0 {
					max := v
					p.SalaryMax = &max
				}
			}
			postings = append(postings, p)
		}
	}

	if len(postings) == 0 {
		return nil, &Error{Source: usajobsSource, Reason: ReasonEmptyResult}
	}
	return postings, nil
}
