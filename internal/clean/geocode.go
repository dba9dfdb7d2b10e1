package clean

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Geocoder resolves a location string to coordinates.
type Geocoder interface {
	Locate(ctx context.Context, location string) (lat, lon float64, err error)
}

// NominatimClient geocodes locations against a Nominatim endpoint.
type NominatimClient struct {
	client *resty.Client
}

// NewNominatimClient creates a geocoder for the given Nominatim base URL.
func NewNominatimClient(baseURL string) *NominatimClient {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(15 * time.Second)
	// Nominatim's usage policy requires an identifying User-Agent.
	client.SetHeader("User-Agent", "jobpulse/1.0")
	return &NominatimClient{client: client}
}

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Locate resolves a free-form location to coordinates.
func (c *NominatimClient) Locate(ctx context.Context, location string) (float64, float64, error) {
	var results []nominatimResult
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":      location,
			"format": "json",
			"limit":  "1",
		}).
		SetResult(&results).
		Get("/search")
	if err != nil {
		return 0, 0, fmt.Errorf("geocoding %q: %w", location, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return 0, 0, fmt.Errorf("geocoding %q: HTTP %d", location, resp.StatusCode())
	}
	if len(results) == 0 {
		return 0, 0, fmt.Errorf("no match for %q", location)
	}

	var lat, lon float64
	if _, err := fmt.Sscanf(results[0].Lat, "%f", &lat); err != nil {
		return 0, 0, fmt.Errorf("parsing latitude %q: %w", results[0].Lat, err)
	}
	if _, err := fmt.Sscanf(results[0].Lon, "%f", &lon); err != nil {
		return 0, 0, fmt.Errorf("parsing longitude %q: %w", results[0].Lon, err)
	}
	return lat, lon, nil
}

// Geocode fills in coordinates for postings with a location, caching by
// location string so each distinct place is resolved once. Failures are
// logged and skipped; coordinates are a nice-to-have.
func (n *Normalizer) Geocode(ctx context.Context, postings []NormalizedPosting) {
	if n.geocoder == nil {
		return
	}

	type coords struct {
		lat, lon float64
		ok       bool
	}
	cache := make(map[string]coords)

	for i := range postings {
		loc := postings[i].Location
		if loc == "" {
			continue
		}
		c, cached := cache[loc]
		if !cached {
			lat, lon, err := n.geocoder.Locate(ctx, loc)
			if err != nil {
				log.Printf("geocode %q: %v", loc, err)
				cache[loc] = coords{}
				continue
			}
			c = coords{lat: lat, lon: lon, ok: true}
			cache[loc] = c
		}
		if c.ok {
			lat, lon := c.lat, c.lon
			postings[i].Lat = &lat
			postings[i].Lon = &lon
		}
	}
}
