package fetcher

import (
	"context"
	"time"

	"scannerpro/internal/model"
)

// Fetcher defines the interface for fetching daily bars from an external
// price source. Start is inclusive, end exclusive; both are calendar dates.
type Fetcher interface {
	FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error)
	Name() string
}

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Bars []model.OHLCV
	Err  error
	// Calls counts FetchDaily invocations, for retry assertions.
	Calls int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDaily(_ context.Context, _ string, start, end time.Time) ([]model.OHLCV, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	var out []model.OHLCV
	for _, b := range m.Bars {
		if !b.Date.Before(start) && b.Date.Before(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

// GenerateBars produces count synthetic daily bars ending the day before
// `end`, drifting slowly around basePrice.
func GenerateBars(basePrice float64, count int, end time.Time) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Date:   model.DateOnly(end).AddDate(0, 0, -(count - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
