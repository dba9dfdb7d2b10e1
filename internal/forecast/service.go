package forecast

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/peterhagen/jobpulse/internal/aggregate"
)

// ServiceClient talks to the forecasting sidecar over HTTP. The sidecar is a
// black box; only its request and response shapes matter here.
type ServiceClient struct {
	client *resty.Client
}

// NewServiceClient creates a client for the forecast service at baseURL.
func NewServiceClient(baseURL string) *ServiceClient {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(60 * time.Second)
	return &ServiceClient{client: client}
}

type serviceObservation struct {
	Date  string  `json:"ds"`
	Value float64 `json:"y"`
}

type serviceRequest struct {
	History []serviceObservation `json:"history"`
	Horizon int                  `json:"horizon"`
}

type servicePoint struct {
	Date  string  `json:"ds"`
	Yhat  float64 `json:"yhat"`
	Lower float64 `json:"yhat_lower"`
	Upper float64 `json:"yhat_upper"`
}

type serviceResponse struct {
	Forecast []servicePoint `json:"forecast"`
}

// Forecast posts the observed series and returns the predicted points.
func (c *ServiceClient) Forecast(ctx context.Context, history []aggregate.DailyCount, horizon int) ([]Point, error) {
	req := serviceRequest{Horizon: horizon}
	for _, point := range history {
		req.History = append(req.History, serviceObservation{
			Date:  point.Date,
			Value: float64(point.Count),
		})
	}

	var body serviceResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&body).
		Post("/forecast")
	if err != nil {
		return nil, fmt.Errorf("forecast service: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("forecast service returned %d", resp.StatusCode())
	}

	points := make([]Point, len(body.Forecast))
	for i, p := range body.Forecast {
		points[i] = Point{Date: p.Date, Forecast: p.Yhat, Lower: p.Lower, Upper: p.Upper}
	}
	return points, nil
}
