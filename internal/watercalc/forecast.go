package watercalc

import "time"

// Prediction one day's predicted consumption from the forecast API.
type Prediction struct {
	Date        time.Time
	Consumption float64 // liters
}

// ForecastPoint remaining volume at the end of one forecast day. Days past
// the known predictions are synthetic: the day-of-month keeps incrementing
// while the month label carries forward unchanged, matching what the app
// has always displayed.
type ForecastPoint struct {
	Month     string  `json:"month"`
	Day       int     `json:"day"`
	Remaining float64 `json:"remaining"`
}

// DepletionForecast projects how the current volume depletes day by day.
// Each prediction is subtracted from a running remainder floored at 0; once
// predictions run out, the mean of the known predictions is applied to
// synthetic days until the remainder reaches exactly 0. The result is
// always finite: if the mean consumption is not positive the projection
// stops at the last known day rather than looping forever.
func DepletionForecast(volume float64, predictions []Prediction) []ForecastPoint {
	var points []ForecastPoint
	remaining := volume
	if remaining < 0 {
		remaining = 0
	}

	var (
		sum   float64
		month string
		day   int
	)

	for _, p := range predictions {
		sum += p.Consumption
		month = p.Date.Month().String()[:3]
		day = p.Date.Day()

		remaining -= p.Consumption
		if remaining < 0 {
			remaining = 0
		}
		points = append(points, ForecastPoint{Month: month, Day: day, Remaining: remaining})
		if remaining == 0 {
			return points
		}
	}

	if len(predictions) == 0 {
		return points
	}
	mean := sum / float64(len(predictions))
	if mean <= 0 {
		return points
	}

	for remaining > 0 {
		day++
		remaining -= mean
		if remaining < 0 {
			remaining = 0
		}
		points = append(points, ForecastPoint{Month: month, Day: day, Remaining: remaining})
	}
	return points
}
