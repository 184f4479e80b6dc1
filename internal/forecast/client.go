// Package forecast fetches per-day consumption predictions for a tank from
// the forecast API and adapts them for the depletion calculator.
package forecast

import (
	"context"
	"fmt"
	"time"

	"aquaflow/internal/watercalc"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// prediction wire format of one forecast entry
type prediction struct {
	Date                 string  `json:"date"` // YYYY-MM-DD
	PredictedConsumption float64 `json:"predicted_consumption"`
}

// Client forecast API client
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

func NewClient(baseURL string, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetHeader("Accept", "application/json")

	return &Client{httpClient: client, logger: logger}
}

// DailyPredictions returns the ordered consumption predictions for a tank.
func (c *Client) DailyPredictions(ctx context.Context, uid string) ([]watercalc.Prediction, error) {
	var raw []prediction
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("uid", uid).
		SetResult(&raw).
		Get("/predictions")
	if err != nil {
		return nil, fmt.Errorf("failed to call forecast API: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("forecast API returned %d", resp.StatusCode())
	}

	predictions := make([]watercalc.Prediction, 0, len(raw))
	for _, p := range raw {
		date, err := time.Parse("2006-01-02", p.Date)
		if err != nil {
			return nil, fmt.Errorf("forecast API returned malformed date %q: %w", p.Date, err)
		}
		predictions = append(predictions, watercalc.Prediction{
			Date:        date,
			Consumption: p.PredictedConsumption,
		})
	}
	return predictions, nil
}
