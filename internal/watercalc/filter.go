package watercalc

import "time"

// Filter decay parameters. A filter degrades from 100% to 0% over
// BaselineDays under clean water; poor quality (acidic pH, high turbidity)
// accelerates the decay through the impact factor.
const (
	BaselineDays       = 60.0
	PHThreshold        = 6.5
	TurbidityThreshold = 5.0
	AlphaPH            = 2.0
	BetaTurbidity      = 1.5
)

// FilterHealthInput inputs for the health calculation. Reading is nil when
// no quality sample exists yet; a zero Expiry means the expiry record is
// missing.
type FilterHealthInput struct {
	PH        float64
	Turbidity float64
	HasSample bool
	Now       time.Time
	Expiry    time.Time
}

// FilterHealth computes the remaining filter life as a percentage in
// [0, 100]. Missing inputs return 100, keeping the historical fail-open
// behavior of the mobile app.
func FilterHealth(in FilterHealthInput) float64 {
	if !in.HasSample || in.Expiry.IsZero() || in.Now.IsZero() {
		return 100
	}

	daysLeft := in.Expiry.Sub(in.Now).Hours() / 24

	totalDays := daysLeft
	if totalDays > BaselineDays {
		totalDays = BaselineDays
	}
	passedDays := BaselineDays - totalDays
	if passedDays < 0 {
		passedDays = 0
	}

	// Water-quality impact: only deviations past the thresholds count.
	var k float64
	if d := PHThreshold - in.PH; d > 0 {
		k += AlphaPH * d
	}
	if d := in.Turbidity - TurbidityThreshold; d > 0 {
		k += BetaTurbidity * d
	}

	baselineDecayRate := 100.0 / BaselineDays
	decay := baselineDecayRate*passedDays + k*passedDays/BaselineDays

	return clampPercent(100 - decay)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
