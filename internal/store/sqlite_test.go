package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"scannerpro/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testBars(start time.Time, n int) []model.OHLCV {
	bars := make([]model.OHLCV, n)
	for i := 0; i < n; i++ {
		bars[i] = model.OHLCV{
			Date:   start.AddDate(0, 0, i),
			Open:   100 + float64(i),
			High:   105 + float64(i),
			Low:    95 + float64(i),
			Close:  102 + float64(i),
			Volume: 1000000,
		}
	}
	return bars
}

func TestCreateTickerDuplicateSymbol(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateTicker(ctx, &model.Ticker{Symbol: "AAPL", IsActive: true}))
	err := s.CreateTicker(ctx, &model.Ticker{Symbol: "AAPL", IsActive: true})
	assert.ErrorIs(t, err, ErrDuplicateSymbol)
}

func TestTickerLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tk := &model.Ticker{Symbol: "JPM", Name: "JPMorgan", Sector: "Financials", IsActive: true}
	require.NoError(t, s.CreateTicker(ctx, tk))
	require.NotZero(t, tk.ID)

	got, err := s.TickerByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, "JPM", got.Symbol)
	assert.Equal(t, "Financials", got.Sector)
	assert.Nil(t, got.LastSync)

	_, err = s.TickerByID(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)

	bySym, err := s.TickerBySymbol(ctx, "JPM")
	require.NoError(t, err)
	assert.Equal(t, tk.ID, bySym.ID)
}

func TestInsertPricesIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tk := &model.Ticker{Symbol: "FDX", IsActive: true}
	require.NoError(t, s.CreateTicker(ctx, tk))

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := testBars(start, 10)

	n, err := s.InsertPrices(ctx, tk.ID, bars, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	// Same rows again: the uniqueness constraint absorbs every duplicate.
	n, err = s.InsertPrices(ctx, tk.ID, bars, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	prices, err := s.Prices(ctx, tk.ID)
	require.NoError(t, err)
	assert.Len(t, prices, 10)
}

func TestInsertPricesUpdatesLastSync(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tk := &model.Ticker{Symbol: "GLW", IsActive: true}
	require.NoError(t, s.CreateTicker(ctx, tk))

	syncedAt := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)
	_, err := s.InsertPrices(ctx, tk.ID, nil, syncedAt)
	require.NoError(t, err)

	got, err := s.TickerByID(ctx, tk.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastSync)
	assert.Equal(t, syncedAt.Unix(), got.LastSync.Unix())
}

func TestLatestPriceDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tk := &model.Ticker{Symbol: "GS", IsActive: true}
	require.NoError(t, s.CreateTicker(ctx, tk))

	_, ok, err := s.LatestPriceDate(ctx, tk.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	_, err = s.InsertPrices(ctx, tk.ID, testBars(start, 5), time.Now())
	require.NoError(t, err)

	latest, ok, err := s.LatestPriceDate(ctx, tk.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, start.AddDate(0, 0, 4), latest)
}

func TestDeleteTickerCascadesPrices(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tk := &model.Ticker{Symbol: "TSLA", IsActive: true}
	require.NoError(t, s.CreateTicker(ctx, tk))
	_, err := s.InsertPrices(ctx, tk.ID, testBars(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 3), time.Now())
	require.NoError(t, err)

	require.NoError(t, s.DeleteTicker(ctx, tk.ID))

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.TotalTickers)
	assert.Zero(t, st.TotalPrices)

	assert.ErrorIs(t, s.DeleteTicker(ctx, tk.ID), ErrNotFound)
}

func TestDeleteEmptyTickers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Synced but empty: removable.
	empty := &model.Ticker{Symbol: "EMPT", IsActive: true}
	require.NoError(t, s.CreateTicker(ctx, empty))
	_, err := s.InsertPrices(ctx, empty.ID, nil, time.Now())
	require.NoError(t, err)

	// Never synced: kept, it just has not had a chance yet.
	fresh := &model.Ticker{Symbol: "NEW", IsActive: true}
	require.NoError(t, s.CreateTicker(ctx, fresh))

	// Synced with data: kept.
	full := &model.Ticker{Symbol: "FULL", IsActive: true}
	require.NoError(t, s.CreateTicker(ctx, full))
	_, err = s.InsertPrices(ctx, full.ID, testBars(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 2), time.Now())
	require.NoError(t, err)

	n, err := s.DeleteEmptyTickers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.TickerBySymbol(ctx, "EMPT")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.TickerBySymbol(ctx, "NEW")
	assert.NoError(t, err)
}

func TestListTickersFilterSortPaginate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seed := []model.Ticker{
		{Symbol: "AAA", Sector: "Tech", IsActive: true},
		{Symbol: "BBB", Sector: "Tech", IsActive: false},
		{Symbol: "CCC", Sector: "Energy", IsActive: true},
		{Symbol: "DDD", Sector: "Tech", IsActive: true},
	}
	for i := range seed {
		require.NoError(t, s.CreateTicker(ctx, &seed[i]))
	}

	active := true
	got, total, err := s.ListTickers(ctx, ListOptions{
		Page: 1, PerPage: 10, IsActive: &active, Sector: "Tech",
		SortBy: "symbol", SortOrder: "desc",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, got, 2)
	assert.Equal(t, "DDD", got[0].Symbol)
	assert.Equal(t, "AAA", got[1].Symbol)

	got, total, err = s.ListTickers(ctx, ListOptions{Page: 2, PerPage: 3, SortBy: "symbol"})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, got, 1)
	assert.Equal(t, "DDD", got[0].Symbol)
}
