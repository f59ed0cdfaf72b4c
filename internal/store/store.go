package store

import (
	"context"
	"errors"
	"time"

	"scannerpro/internal/model"
)

var (
	// ErrNotFound is returned when a ticker lookup matches nothing.
	ErrNotFound = errors.New("ticker not found")
	// ErrDuplicateSymbol is returned when creating a ticker whose symbol
	// already exists.
	ErrDuplicateSymbol = errors.New("ticker already exists")
)

// ListOptions controls ticker listing: pagination, filters and ordering.
type ListOptions struct {
	Page      int
	PerPage   int
	IsActive  *bool
	Sector    string
	SortBy    string
	SortOrder string
}

// Stats summarizes the store for gauge export.
type Stats struct {
	TotalTickers  int
	ActiveTickers int
	TotalPrices   int
}

// Store persists tickers and their append-only price history. Price rows are
// unique per (ticker, date); that uniqueness is enforced by the storage
// engine so concurrent syncs of the same ticker cannot duplicate rows.
type Store interface {
	CreateTicker(ctx context.Context, t *model.Ticker) error
	TickerByID(ctx context.Context, id int64) (*model.Ticker, error)
	TickerBySymbol(ctx context.Context, symbol string) (*model.Ticker, error)
	ListTickers(ctx context.Context, opts ListOptions) ([]model.Ticker, int, error)
	DeleteTicker(ctx context.Context, id int64) error
	// DeleteEmptyTickers removes tickers that were synced at least once but
	// hold no price rows, and returns how many were removed.
	DeleteEmptyTickers(ctx context.Context) (int, error)

	// LatestPriceDate returns the most recent stored date for a ticker;
	// ok is false when the ticker has never stored a row.
	LatestPriceDate(ctx context.Context, tickerID int64) (date time.Time, ok bool, err error)
	// PriceDates returns all stored dates for a ticker, keyed by
	// model.DateLayout strings, loaded in one query.
	PriceDates(ctx context.Context, tickerID int64) (map[string]struct{}, error)
	// Prices returns the ticker's full series ordered ascending by date.
	Prices(ctx context.Context, tickerID int64) ([]model.OHLCV, error)
	// InsertPrices writes the staged bars and the new last_sync timestamp in
	// one transaction and returns the number of rows actually inserted.
	// Duplicate (ticker, date) rows are absorbed, not errors.
	InsertPrices(ctx context.Context, tickerID int64, bars []model.OHLCV, syncedAt time.Time) (int, error)

	Stats(ctx context.Context) (Stats, error)
	Close() error
}
