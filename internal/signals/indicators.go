// Package signals provides technical indicator calculations. All
// functions take close prices ordered oldest to newest and report ok=false
// when the series is too short for the indicator.
package signals

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/bobmcallan/mapletrade/internal/models"
)

// SMA calculates the Simple Moving Average over the trailing period
func SMA(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period {
		return 0, false
	}
	window := closes[len(closes)-period:]
	return floats.Sum(window) / float64(period), true
}

// EMA calculates the Exponential Moving Average with the given span,
// seeded from the first close and smoothed across the whole series
func EMA(closes []float64, span int) (float64, bool) {
	if span <= 0 || len(closes) < span {
		return 0, false
	}
	series := emaSeries(closes, span)
	return series[len(series)-1], true
}

// emaSeries computes the running EMA over the full series with
// alpha = 2/(span+1), seeded from the first value.
func emaSeries(values []float64, span int) []float64 {
	alpha := 2.0 / float64(span+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RSI calculates the Relative Strength Index using simple rolling means
// of gains and losses over the trailing period. Needs period+1 closes.
// A zero average loss is floored at 0.0001 instead of dividing by zero.
func RSI(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period+1 {
		return 0, false
	}

	var gains, losses float64
	for i := len(closes) - period; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		avgLoss = 0.0001
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), true
}

// MACD calculates Moving Average Convergence Divergence: the 12-26 EMA
// spread, its 9-span signal line, and their difference. Needs 26 closes.
func MACD(closes []float64) (*models.MACDResult, bool) {
	if len(closes) < 26 {
		return nil, false
	}

	ema12 := emaSeries(closes, 12)
	ema26 := emaSeries(closes, 26)

	macdLine := make([]float64, len(closes))
	for i := range closes {
		macdLine[i] = ema12[i] - ema26[i]
	}
	signalLine := emaSeries(macdLine, 9)

	macd := macdLine[len(macdLine)-1]
	signal := signalLine[len(signalLine)-1]
	return &models.MACDResult{
		MACD:      macd,
		Signal:    signal,
		Histogram: macd - signal,
	}, true
}

// Bollinger calculates the period-SMA band at ±2 sample standard
// deviations, with band width and the current price's position inside
// the band (0.5 when the band has no width).
func Bollinger(closes []float64, period int) (*models.BollingerBands, bool) {
	if period <= 0 || len(closes) < period {
		return nil, false
	}

	window := closes[len(closes)-period:]
	middle := floats.Sum(window) / float64(period)
	std := stat.StdDev(window, nil)

	upper := middle + 2*std
	lower := middle - 2*std
	width := upper - lower

	current := closes[len(closes)-1]
	position := 0.5
	if width > 0 {
		position = (current - lower) / width
	}

	return &models.BollingerBands{
		Upper:    upper,
		Middle:   middle,
		Lower:    lower,
		Width:    width,
		Position: position,
	}, true
}
