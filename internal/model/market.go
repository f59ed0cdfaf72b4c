package model

import "time"

// DateLayout is the canonical date format for price rows and API output.
const DateLayout = "2006-01-02"

// OHLCV represents a single daily (or resampled weekly) price bar.
type OHLCV struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// DateOnly truncates t to midnight UTC so bars and sync windows compare
// by calendar date regardless of the wall-clock component.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
