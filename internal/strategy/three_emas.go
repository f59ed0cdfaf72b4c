package strategy

import (
	"math"
	"time"

	"github.com/moznion/go-optional"

	"scannerpro/internal/indicator"
	"scannerpro/internal/model"
	"scannerpro/internal/streak"
)

var emaLengths = [3]int{4, 9, 18}

// threeEMAs flags trend alignment: how long the close has stayed above the
// 4/9/18 EMAs on the daily series, and independently on the weekly resample.
// The weekly indicators are recomputed from the weekly bars, never resampled
// from daily values.
type threeEMAs struct{}

func (threeEMAs) Name() string { return "3_emas" }

func (threeEMAs) Evaluate(t *model.Ticker, bars []model.OHLCV, today time.Time) *model.SignalRecord {
	rec := baseRecord(t, bars, "3_emas")

	dailyPoints, dailyEMAs := aboveAllEMAs(bars)
	daily := streak.Detect(dailyPoints, today)
	rec.EMAsDailyActive = optional.Some(daily.Status == model.StreakActive)
	if daily.Status != model.StreakNone {
		rec.EMAsDailyDate = optional.Some(daily.Boundary.Format(model.DateLayout))
		rec.EMAsDailyDays = optional.Some(daily.Days)
	}

	weeklyPoints, _ := aboveAllEMAs(indicator.ResampleWeekly(bars))
	weekly := streak.Detect(weeklyPoints, today)
	rec.EMAsWeeklyActive = optional.Some(weekly.Status == model.StreakActive)
	if weekly.Status != model.StreakNone {
		rec.EMAsWeeklyDate = optional.Some(weekly.Boundary.Format(model.DateLayout))
		rec.EMAsWeeklyDays = optional.Some(weekly.Days)
	}

	last := len(bars) - 1
	rec.EMA4Daily = optionalValue(dailyEMAs[0][last])
	rec.EMA9Daily = optionalValue(dailyEMAs[1][last])
	rec.EMA18Daily = optionalValue(dailyEMAs[2][last])

	return rec
}

// aboveAllEMAs computes the 4/9/18 EMAs over the series and the per-date
// condition "close above all three". An EMA still warming up makes the
// condition false for that date, never true by default.
func aboveAllEMAs(bars []model.OHLCV) ([]streak.Point, [3][]float64) {
	closes := indicator.Closes(bars)
	var emas [3][]float64
	for i, length := range emaLengths {
		emas[i] = indicator.EMA(closes, length)
	}

	points := make([]streak.Point, len(bars))
	for i, b := range bars {
		above := true
		for _, ema := range emas {
			if !(b.Close > ema[i]) { // NaN compares false
				above = false
				break
			}
		}
		points[i] = streak.Point{Date: b.Date, OK: above}
	}
	return points, emas
}

func optionalValue(v float64) optional.Option[float64] {
	if math.IsNaN(v) {
		return optional.None[float64]()
	}
	return optional.Some(v)
}
