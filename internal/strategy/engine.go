// Package strategy evaluates technical-analysis strategies over stored price
// series and produces signal records.
package strategy

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"scannerpro/internal/metrics"
	"scannerpro/internal/model"
	"scannerpro/internal/store"
)

// MinBars is the minimum stored history required before any indicator is
// computed. Below it a scan yields no record, which is an outcome, not an
// error.
const MinBars = 30

// Evaluator turns a price series into a signal record. Implementations are
// pure: all state comes from the arguments.
type Evaluator interface {
	Name() string
	Evaluate(t *model.Ticker, bars []model.OHLCV, today time.Time) *model.SignalRecord
}

// Engine dispatches scans to the registered evaluators.
type Engine struct {
	store      store.Store
	log        *zap.Logger
	metrics    *metrics.Metrics
	evaluators map[string]Evaluator

	// now is swappable for tests.
	now func() time.Time
}

// NewEngine creates an Engine with the built-in strategies registered.
func NewEngine(st store.Store, log *zap.Logger, m *metrics.Metrics) *Engine {
	e := &Engine{
		store:      st,
		log:        log,
		metrics:    m,
		evaluators: make(map[string]Evaluator),
		now:        time.Now,
	}
	e.register(rsiMACD{})
	e.register(threeEMAs{})
	return e
}

func (e *Engine) register(ev Evaluator) {
	e.evaluators[ev.Name()] = ev
}

// Strategies returns the registered strategy names, sorted.
func (e *Engine) Strategies() []string {
	names := make([]string, 0, len(e.evaluators))
	for name := range e.evaluators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Signals evaluates one strategy for one ticker. A nil record (no error)
// means no result: unknown strategy or insufficient stored history.
func (e *Engine) Signals(ctx context.Context, t *model.Ticker, strategy string) (*model.SignalRecord, error) {
	ev, ok := e.evaluators[strategy]
	if !ok {
		e.log.Debug("unknown strategy", zap.String("strategy", strategy))
		return nil, nil
	}

	bars, err := e.store.Prices(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	if len(bars) < MinBars {
		return nil, nil
	}

	started := time.Now()
	rec := ev.Evaluate(t, bars, model.DateOnly(e.now()))
	if rec != nil {
		e.metrics.SignalDuration.WithLabelValues(strategy).Observe(time.Since(started).Seconds())
		e.metrics.SignalsCalculatedTotal.WithLabelValues(strategy, t.Symbol).Inc()
	}
	return rec, nil
}

// ScanAll evaluates the strategy for every ticker, skipping those without a
// result.
func (e *Engine) ScanAll(ctx context.Context, strategy string) ([]*model.SignalRecord, error) {
	var records []*model.SignalRecord
	for page := 1; ; page++ {
		batch, total, err := e.store.ListTickers(ctx, store.ListOptions{
			Page:    page,
			PerPage: 100,
			SortBy:  "symbol",
		})
		if err != nil {
			return nil, err
		}
		for i := range batch {
			rec, err := e.Signals(ctx, &batch[i], strategy)
			if err != nil {
				return nil, err
			}
			if rec != nil {
				records = append(records, rec)
			}
		}
		if page*100 >= total || len(batch) == 0 {
			return records, nil
		}
	}
}

// baseRecord fills the fields common to every strategy.
func baseRecord(t *model.Ticker, bars []model.OHLCV, strategy string) *model.SignalRecord {
	last := bars[len(bars)-1]
	return &model.SignalRecord{
		Symbol:    t.Symbol,
		Strategy:  strategy,
		Price:     last.Close,
		PriceDate: last.Date.Format(model.DateLayout),
		LastSync:  t.LastSyncString(),
	}
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
