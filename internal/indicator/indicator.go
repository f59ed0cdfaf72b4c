package indicator

import (
	"math"

	"scannerpro/internal/model"
)

// All functions operate column-wise over a series ordered ascending by date
// and return a slice of the same length. Positions where the indicator has
// not warmed up yet hold NaN; callers must treat NaN as "value unavailable",
// never as zero.

// Closes extracts the close column from a bar series.
func Closes(bars []model.OHLCV) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

// SMA computes the simple moving average with the given period. A window that
// is incomplete or contains NaN input yields NaN, so gaps in an upstream
// indicator column (e.g. RSI warm-up) propagate instead of skewing the mean.
func SMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		sum := 0.0
		ok := true
		for j := i - period + 1; j <= i; j++ {
			if math.IsNaN(values[j]) {
				ok = false
				break
			}
			sum += values[j]
		}
		if ok {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA computes the exponential moving average with the given period, seeded
// with the SMA of the first full window. Leading NaN input (another
// indicator's warm-up region) is skipped, so EMA-of-MACD works unchanged.
func EMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 {
		return out
	}

	// First index with real data.
	start := 0
	for start < len(values) && math.IsNaN(values[start]) {
		start++
	}
	if len(values)-start < period {
		return out
	}

	seed := 0.0
	for i := start; i < start+period; i++ {
		seed += values[i]
	}
	seed /= float64(period)
	out[start+period-1] = seed

	alpha := 2.0 / (float64(period) + 1.0)
	prev := seed
	for i := start + period; i < len(values); i++ {
		prev = values[i]*alpha + prev*(1-alpha)
		out[i] = prev
	}
	return out
}

// RSI computes the Wilder-smoothed relative strength index. The first
// `period` positions are NaN (insufficient history).
func RSI(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	if period <= 0 || len(closes) < period+1 {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

// MACD computes the MACD line (fast EMA minus slow EMA) and its signal line
// (an EMA of the MACD line itself).
func MACD(closes []float64, fast, slow, signal int) (line, signalLine []float64) {
	fastEMA := EMA(closes, fast)
	slowEMA := EMA(closes, slow)

	line = nanSlice(len(closes))
	for i := range closes {
		if !math.IsNaN(fastEMA[i]) && !math.IsNaN(slowEMA[i]) {
			line[i] = fastEMA[i] - slowEMA[i]
		}
	}
	signalLine = EMA(line, signal)
	return line, signalLine
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
