package source

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

const maxPerFeed = 50

// FeedConfig describes one RSS or Atom job board feed.
type FeedConfig struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

// FeedAdapter collects postings from RSS/Atom job board feeds.
type FeedAdapter struct {
	feeds  []FeedConfig
	window int
	parser *gofeed.Parser
}

// NewFeedAdapter creates a feed adapter that keeps items published within
// windowDays of the fetch day.
func NewFeedAdapter(feeds []FeedConfig, windowDays int) *FeedAdapter {
	if windowDays <= 0 {
		windowDays = 7
	}
	return &FeedAdapter{
		feeds:  feeds,
		window: windowDays,
		parser: gofeed.NewParser(),
	}
}

func (a *FeedAdapter) Name() string { return "feeds" }

// Fetch parses every configured feed. Individual feed failures are skipped;
// only a fully empty harvest is reported as an error.
func (a *FeedAdapter) Fetch(ctx context.Context, day string) ([]Posting, error) {
	end, err := time.Parse("2006-01-02", day)
	if err != nil {
		end = time.Now().UTC()
	}
	cutoff := end.AddDate(0, 0, -a.window)

	var postings []Posting
	var lastErr error
	for _, feed := range a.feeds {
		parsed, err := a.parser.ParseURLWithContext(feed.URL, ctx)
		if err != nil {
			lastErr = fmt.Errorf("feed %s: %w", feed.URL, err)
			continue
		}
		name := feed.Name
		if name == "" {
			name = feedSourceName(feed.URL)
		}
		count := 0
		for _, item := range parsed.Items {
			if count >= maxPerFeed {
				break
			}
			if item.Link == "" || item.Title == "" {
				continue
			}
			if !withinWindow(item, cutoff) {
				continue
			}
			postings = append(postings, feedPosting(item, name))
			count++
		}
	}

	if len(postings) == 0 {
		if lastErr != nil {
			return nil, &Error{Source: "feeds", Reason: ReasonTransportError, Err: lastErr}
		}
		return nil, &Error{Source: "feeds", Reason: ReasonEmptyResult}
	}
	return postings, nil
}

func feedPosting(item *gofeed.Item, sourceName string) Posting {
	title := strings.TrimSpace(item.Title)
	company := ""
	// Many job feeds format titles as "Company: Title".
	if idx := strings.Index(title, ":"); idx > 0 {
		company = strings.TrimSpace(title[:idx])
		title = strings.TrimSpace(title[idx+1:])
	}

	posted := ""
	if item.PublishedParsed != nil {
		posted = item.PublishedParsed.UTC().Format("2006-01-02")
	} else if item.UpdatedParsed != nil {
		posted = item.UpdatedParsed.UTC().Format("2006-01-02")
	}

	body := item.Content
	if body == "" {
		body = item.Description
	}

	return Posting{
		ID:          "feed:" + item.Link,
		Title:       title,
		Company:     company,
		URL:         item.Link,
		Description: stripHTML(body),
		PostedDate:  posted,
		Source:      sourceName,
	}
}

// withinWindow keeps items with no parseable date; boards that omit dates
// usually serve only current openings.
func withinWindow(item *gofeed.Item, cutoff time.Time) bool {
	ts := item.PublishedParsed
	if ts == nil {
		ts = item.UpdatedParsed
	}
	if ts == nil {
		return true
	}
	return !ts.Before(cutoff)
}

func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			b.WriteRune(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(html.UnescapeString(b.String())), " ")
}

// feedSourceName derives a readable source label from the feed host.
func feedSourceName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "feed"
	}
	host := u.Hostname()
	for _, prefix := range []string{"www.", "jobs.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}
	parts := strings.Split(host, ".")
	name := parts[0]
	if len(parts) > 2 {
		name = parts[len(parts)-2]
	}
	if name == "" {
		return "feed"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
