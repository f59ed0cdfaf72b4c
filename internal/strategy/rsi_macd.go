package strategy

import (
	"math"
	"time"

	"github.com/moznion/go-optional"

	"scannerpro/internal/indicator"
	"scannerpro/internal/model"
	"scannerpro/internal/streak"
)

const (
	rsiLength        = 14
	rsiSMALength     = 14
	rsiOversold      = 30.0
	oversoldWindow   = 365 // days
	macdWindow       = 30  // days
	macdFast         = 12
	macdSlow         = 26
	macdSignalLength = 9
)

// rsiMACD flags oversold recoveries: the most recent RSI drop below 30
// within the trailing year, the first RSI cross back above its own moving
// average after that drop, and a bullish-but-still-below-zero MACD entry in
// the trailing month.
type rsiMACD struct{}

func (rsiMACD) Name() string { return "rsi_macd" }

func (rsiMACD) Evaluate(t *model.Ticker, bars []model.OHLCV, today time.Time) *model.SignalRecord {
	closes := indicator.Closes(bars)
	rsi := indicator.RSI(closes, rsiLength)
	rsiSMA := indicator.SMA(rsi, rsiSMALength)
	macdLine, macdSignal := indicator.MACD(closes, macdFast, macdSlow, macdSignalLength)

	rec := baseRecord(t, bars, "rsi_macd")
	last := len(bars) - 1
	if !math.IsNaN(rsi[last]) {
		rec.RSI = optional.Some(rsi[last])
	}

	// Most recent oversold event in the trailing year. NaN warm-up values
	// compare false and are skipped naturally.
	yearAgo := today.AddDate(0, 0, -oversoldWindow)
	oversold := -1
	for i := last; i >= 0 && !bars[i].Date.Before(yearAgo); i-- {
		if rsi[i] < rsiOversold {
			oversold = i
			break
		}
	}

	if oversold >= 0 {
		d := bars[oversold].Date
		rec.DateRSI30 = optional.Some(d.Format(model.DateLayout))
		rec.DaysSinceRSI30 = optional.Some(daysBetween(d, today))

		// Earliest bullish recovery strictly after the oversold event: the
		// first reversal following it, not the most recent one.
		for i := oversold + 1; i <= last; i++ {
			if rsi[i] > rsiSMA[i] {
				rd := bars[i].Date
				rec.DateRSIBullish = optional.Some(rd.Format(model.DateLayout))
				rec.DaysSinceRSIBullish = optional.Some(daysBetween(rd, today))
				break
			}
		}
	}

	// MACD opportunity over the trailing month: line above signal while the
	// line itself has not crossed zero yet.
	cutoff := today.AddDate(0, 0, -macdWindow)
	var points []streak.Point
	for i, b := range bars {
		if b.Date.Before(cutoff) {
			continue
		}
		points = append(points, streak.Point{
			Date: b.Date,
			OK:   macdLine[i] > macdSignal[i] && macdLine[i] <= 0,
		})
	}
	res := streak.Detect(points, today)
	rec.MACDStatus = res.Status
	if res.Status != model.StreakNone {
		rec.MACDDate = optional.Some(res.Boundary.Format(model.DateLayout))
		rec.MACDDays = optional.Some(res.Days)
	}

	return rec
}
