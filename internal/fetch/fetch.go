package fetch

import (
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/peterhagen/jobpulse/internal/database"
)

// Result holds the results of a description fetch run.
type Result struct {
	Fetched int
	Failed  int
}

// DescriptionFetcher backfills posting descriptions via HTTP + readability
// extraction. Feed sources often carry only a title and link; the full
// description improves skill tagging downstream.
type DescriptionFetcher struct {
	db     *database.DB
	client *http.Client
}

// NewDescriptionFetcher creates a new description fetcher.
func NewDescriptionFetcher(db *database.DB, timeout time.Duration) *DescriptionFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &DescriptionFetcher{
		db: db,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// FetchMissingDescriptions fills in descriptions for postings that have none.
// Once a domain returns an HTTP error, the rest of its postings are skipped
// for this run.
func (f *DescriptionFetcher) FetchMissingDescriptions() *Result {
	postings, err := f.db.GetPostingsNeedingDescription()
	if err != nil {
		log.Printf("Error getting postings needing descriptions: %v", err)
		return &Result{}
	}

	if len(postings) == 0 {
		log.Println("No postings need description fetching")
		return &Result{}
	}

	result := &Result{}
	failedDomains := make(map[string]struct{})

	for _, posting := range postings {
		postingURL := ""
		if posting.URL != nil {
			postingURL = *posting.URL
		}

		u, _ := url.Parse(postingURL)
		domain := ""
		if u != nil {
			domain = strings.ToLower(u.Host)
		}

		if _, failed := failedDomains[domain]; failed {
			result.Failed++
			continue
		}

		description, httpErr := f.fetchDescription(postingURL)
		if httpErr != nil {
			result.Failed++
			if domain != "" {
				failedDomains[domain] = struct{}{}
			}
			log.Printf("HTTP error for %s — skipping remaining from %s", postingURL, domain)
			continue
		}

		if description != "" {
			f.db.UpdatePostingDescription(posting.ID, &description)
			result.Fetched++
			log.Printf("Fetched description for: %s", posting.Title)
		} else {
			result.Failed++
			log.Printf("No extractable description from: %s", postingURL)
		}
	}

	log.Printf("Description fetch complete: %d fetched, %d failed", result.Fetched, result.Failed)
	return result
}

func (f *DescriptionFetcher) fetchDescription(postingURL string) (string, error) {
	req, err := http.NewRequest("GET", postingURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "jobpulse/1.0 (job market aggregator)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", nil // connection error, not HTTP error
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &httpError{code: resp.StatusCode}
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil
	}

	parsedURL, _ := url.Parse(postingURL)
	page, err := readability.FromReader(strings.NewReader(string(bodyBytes)), parsedURL)
	if err != nil {
		return "", nil
	}

	text := strings.TrimSpace(page.TextContent)
	if len(text) > 100 {
		return text, nil
	}
	return "", nil
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return http.StatusText(e.code)
}
