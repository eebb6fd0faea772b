package signals

import (
	"math"

	"github.com/bobmcallan/mapletrade/internal/models"
)

// Trend classifies the current price against its 20, 50, and 200 day
// moving averages. Needs 50 closes; the long-term view and golden/death
// cross detection additionally need 200. A crossover is reported when
// the 50 and 200 day averages swapped order between the previous and
// current bar.
func Trend(closes []float64) (*models.TrendAnalysis, bool) {
	if len(closes) < 50 {
		return nil, false
	}

	current := closes[len(closes)-1]
	sma20, _ := SMA(closes, 20)
	sma50, _ := SMA(closes, 50)

	trend := &models.TrendAnalysis{
		CurrentPrice: current,
		ShortTerm:    classify(current, sma20),
		MediumTerm:   classify(current, sma50),
	}

	if len(closes) >= 200 {
		sma200, _ := SMA(closes, 200)
		trend.LongTerm = classify(current, sma200)

		prev50, _ := SMA(closes[:len(closes)-1], 50)
		prev200, _ := SMA(closes[:len(closes)-1], 200)
		switch {
		case prev50 < prev200 && sma50 > sma200:
			trend.Signal = "golden_cross"
		case prev50 > prev200 && sma50 < sma200:
			trend.Signal = "death_cross"
		}
	}

	return trend, true
}

func classify(price, average float64) string {
	if price > average {
		return "bullish"
	}
	return "bearish"
}

// SupportResistance derives support and resistance from the highest high
// and lowest low over the trailing lookback window, a pivot as the mean
// of both levels and the current close, and per-level touch strength
// counted across the whole series.
func SupportResistance(bars []models.EODBar, lookback int) (*models.SupportResistance, bool) {
	if lookback <= 0 || len(bars) < lookback {
		return nil, false
	}

	recent := bars[len(bars)-lookback:]
	current := bars[len(bars)-1].Close

	resistance := recent[0].High
	support := recent[0].Low
	for _, bar := range recent[1:] {
		if bar.High > resistance {
			resistance = bar.High
		}
		if bar.Low < support {
			support = bar.Low
		}
	}

	return &models.SupportResistance{
		Support:            support,
		Resistance:         resistance,
		Pivot:              (resistance + support + current) / 3,
		SupportStrength:    levelStrength(bars, support, 0.02),
		ResistanceStrength: levelStrength(bars, resistance, 0.02),
	}, true
}

// levelStrength counts bars whose high or low came within tolerance of
// the level. Series shorter than 10 bars report zero.
func levelStrength(bars []models.EODBar, level, tolerance float64) int {
	if len(bars) < 10 || level == 0 {
		return 0
	}

	touches := 0
	for _, bar := range bars {
		if math.Abs(bar.Low-level)/level <= tolerance ||
			math.Abs(bar.High-level)/level <= tolerance {
			touches++
		}
	}
	return touches
}
