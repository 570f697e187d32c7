package domain

import (
	"math"
	"time"
)

// Market is one snapshot of a Polymarket prediction market's listing data,
// as served by the Gamma API. Values are immutable once constructed.
type Market struct {
	ID           string     `json:"id"`
	Question     string     `json:"question"`
	Slug         string     `json:"slug"`
	Category     string     `json:"category"`
	YesPrice     float64    `json:"yesPrice"`
	NoPrice      float64    `json:"noPrice"`
	Probability  float64    `json:"probability"`
	EndDate      *time.Time `json:"endDate"`
	OpenInterest float64    `json:"openInterest"`
	Volume24h    float64    `json:"volume24hr"`
}

// HoursLeft returns the hours remaining until the market's end date, rounded
// to two decimals. Markets without an end date report -1 so any non-negative
// min-hours filter excludes them.
func (m Market) HoursLeft(now time.Time) float64 {
	if m.EndDate == nil {
		return -1
	}
	h := m.EndDate.Sub(now).Hours()
	return math.Round(h*100) / 100
}

// ImpliedProbability returns the larger of the yes/no outcome prices, clamped
// to [0, 1]. The dominant side's price is what the dashboard treats as the
// market's implied probability.
func ImpliedProbability(yesPrice, noPrice float64) float64 {
	p := math.Max(yesPrice, noPrice)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
