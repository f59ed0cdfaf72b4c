// Package syncer keeps each ticker's stored price history current against
// the external source, fetching only the missing date range.
package syncer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"scannerpro/internal/fetcher"
	"scannerpro/internal/metrics"
	"scannerpro/internal/model"
	"scannerpro/internal/store"
)

// Config bounds the fetch-with-retry loop.
type Config struct {
	LookbackDays  int
	RetryAttempts int
	RetryDelay    time.Duration
	FetchTimeout  time.Duration
}

// Result reports the outcome of syncing one ticker.
type Result struct {
	Symbol     string `json:"symbol"`
	NewRecords int    `json:"new_records"`
	Error      string `json:"error,omitempty"`
}

// Syncer plans and executes incremental syncs.
type Syncer struct {
	store   store.Store
	fetcher fetcher.Fetcher
	log     *zap.Logger
	metrics *metrics.Metrics
	cfg     Config

	// now is swappable for tests.
	now func() time.Time
}

// New creates a Syncer.
func New(st store.Store, f fetcher.Fetcher, log *zap.Logger, m *metrics.Metrics, cfg Config) *Syncer {
	return &Syncer{
		store:   st,
		fetcher: f,
		log:     log,
		metrics: m,
		cfg:     cfg,
		now:     time.Now,
	}
}

// SyncTicker brings one ticker's series current and returns the number of
// newly inserted rows. Zero is a normal result: the series may already be
// current, or the source may have produced nothing after the retry budget
// (a recoverable outcome, logged and counted rather than returned as an
// error). Only storage failures surface as errors.
func (s *Syncer) SyncTicker(ctx context.Context, t *model.Ticker) (int, error) {
	started := time.Now()
	today := model.DateOnly(s.now())

	latest, ok, err := s.store.LatestPriceDate(ctx, t.ID)
	if err != nil {
		return 0, err
	}
	var start time.Time
	if ok {
		start = latest.AddDate(0, 0, 1)
	} else {
		// No history: long lookback so indicators have context.
		start = today.AddDate(0, 0, -s.cfg.LookbackDays)
	}
	if !start.Before(today) {
		return 0, nil // already current, skip the network call
	}

	symbol := fetcher.NormalizeSymbol(t.Symbol)
	bars := s.fetchWithRetry(ctx, symbol, start, today)
	if len(bars) == 0 {
		s.log.Warn("sync produced no data",
			zap.String("symbol", t.Symbol),
			zap.String("source_symbol", symbol),
			zap.Int("attempts", s.cfg.RetryAttempts))
		s.metrics.SyncErrorsTotal.WithLabelValues(t.Symbol, "no_data").Inc()
		s.metrics.SyncOperationsTotal.WithLabelValues(t.Symbol, "empty").Inc()
		return 0, nil
	}

	// One query for the whole stored-date set instead of an existence check
	// per fetched row.
	stored, err := s.store.PriceDates(ctx, t.ID)
	if err != nil {
		return 0, err
	}
	staged := make([]model.OHLCV, 0, len(bars))
	for _, b := range bars {
		if _, exists := stored[b.Date.Format(model.DateLayout)]; !exists {
			staged = append(staged, b)
		}
	}

	syncedAt := s.now()
	inserted, err := s.store.InsertPrices(ctx, t.ID, staged, syncedAt)
	if err != nil {
		s.metrics.SyncErrorsTotal.WithLabelValues(t.Symbol, "storage").Inc()
		s.metrics.SyncOperationsTotal.WithLabelValues(t.Symbol, "error").Inc()
		return 0, err
	}
	t.LastSync = &syncedAt

	s.metrics.SyncDuration.WithLabelValues(t.Symbol).Observe(time.Since(started).Seconds())
	s.metrics.SyncOperationsTotal.WithLabelValues(t.Symbol, "success").Inc()
	s.log.Info("ticker synced",
		zap.String("symbol", t.Symbol),
		zap.Int("fetched", len(bars)),
		zap.Int("inserted", inserted),
		zap.Duration("took", time.Since(started)))
	return inserted, nil
}

// fetchWithRetry attempts the fetch up to the configured budget with a fixed
// delay between attempts. Transport failures and empty results are both
// retryable; each attempt is bounded by its own timeout. Returns nil when the
// budget is exhausted.
func (s *Syncer) fetchWithRetry(ctx context.Context, symbol string, start, end time.Time) []model.OHLCV {
	for attempt := 1; attempt <= s.cfg.RetryAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
		bars, err := s.fetcher.FetchDaily(attemptCtx, symbol, start, end)
		cancel()

		if err == nil && len(bars) > 0 {
			return bars
		}
		if err != nil {
			s.log.Warn("fetch attempt failed",
				zap.String("symbol", symbol),
				zap.Int("attempt", attempt),
				zap.Error(err))
		} else {
			s.log.Warn("fetch attempt returned no rows",
				zap.String("symbol", symbol),
				zap.Int("attempt", attempt))
		}

		if attempt < s.cfg.RetryAttempts {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(s.cfg.RetryDelay):
			}
		}
	}
	return nil
}

// SyncAll synchronizes every active ticker sequentially. Recoverable per-
// ticker failures are recorded in the result and do not stop the loop.
func (s *Syncer) SyncAll(ctx context.Context) []Result {
	tickers, err := s.activeTickers(ctx)
	if err != nil {
		s.log.Error("list tickers for sync", zap.Error(err))
		return nil
	}

	results := make([]Result, 0, len(tickers))
	for i := range tickers {
		t := &tickers[i]
		count, err := s.SyncTicker(ctx, t)
		r := Result{Symbol: t.Symbol, NewRecords: count}
		if err != nil {
			s.log.Error("sync failed", zap.String("symbol", t.Symbol), zap.Error(err))
			r.Error = err.Error()
		}
		results = append(results, r)
	}
	return results
}

func (s *Syncer) activeTickers(ctx context.Context) ([]model.Ticker, error) {
	active := true
	var all []model.Ticker
	for page := 1; ; page++ {
		batch, total, err := s.store.ListTickers(ctx, store.ListOptions{
			Page:     page,
			PerPage:  100,
			IsActive: &active,
			SortBy:   "symbol",
		})
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(all) >= total || len(batch) == 0 {
			return all, nil
		}
	}
}
