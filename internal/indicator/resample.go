package indicator

import (
	"time"

	"scannerpro/internal/model"
)

// ResampleWeekly groups daily bars into calendar weeks ending on Friday and
// emits one synthetic bar per week: open of the first day, max high, min low,
// close of the last day, summed volume. The bar is labeled with the week's
// Friday, which lies in the future while the current week is still open.
// Weekly indicators must be recomputed on this series, not resampled from
// daily indicator values.
func ResampleWeekly(bars []model.OHLCV) []model.OHLCV {
	if len(bars) == 0 {
		return nil
	}

	var weekly []model.OHLCV
	var cur model.OHLCV
	var curWeek time.Time
	open := false

	for _, b := range bars {
		wk := weekEnd(b.Date)
		if !open || !wk.Equal(curWeek) {
			if open {
				weekly = append(weekly, cur)
			}
			curWeek = wk
			cur = model.OHLCV{
				Date:   wk,
				Open:   b.Open,
				High:   b.High,
				Low:    b.Low,
				Close:  b.Close,
				Volume: b.Volume,
			}
			open = true
			continue
		}
		if b.High > cur.High {
			cur.High = b.High
		}
		if b.Low < cur.Low {
			cur.Low = b.Low
		}
		cur.Close = b.Close
		cur.Volume += b.Volume
	}
	weekly = append(weekly, cur)
	return weekly
}

// weekEnd returns the Friday that closes the week containing d. Saturday and
// Sunday roll forward into the following week.
func weekEnd(d time.Time) time.Time {
	d = model.DateOnly(d)
	offset := (int(time.Friday) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset)
}
