package signals

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/bobmcallan/mapletrade/internal/models"
)

// tradingDaysPerYear annualizes daily statistics.
const tradingDaysPerYear = 252

// PctChanges returns day-over-day fractional changes. Entries following a
// zero close are skipped since the change is undefined.
func PctChanges(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	changes := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		changes = append(changes, (closes[i]-closes[i-1])/closes[i-1])
	}
	return changes
}

// Volatility calculates annualized volatility as a percentage: the sample
// standard deviation of daily returns scaled by √252. Needs at least two
// daily returns; a flat series reports ok=false rather than zero.
func Volatility(closes []float64) (float64, bool) {
	changes := PctChanges(closes)
	if len(changes) < 2 {
		return 0, false
	}

	daily := stat.StdDev(changes, nil)
	if math.IsNaN(daily) || daily == 0 {
		return 0, false
	}
	return daily * math.Sqrt(tradingDaysPerYear) * 100, true
}

// Returns calculates period return metrics: total return and average
// daily return as percentages, plus an annualized Sharpe ratio with a
// zero risk-free rate.
func Returns(closes []float64) (*models.ReturnMetrics, bool) {
	if len(closes) < 2 || closes[0] == 0 {
		return nil, false
	}

	totalReturn := (closes[len(closes)-1] - closes[0]) / closes[0]

	changes := PctChanges(closes)
	if len(changes) == 0 {
		return &models.ReturnMetrics{TotalReturn: totalReturn * 100}, true
	}

	avgDaily := stat.Mean(changes, nil)

	sharpe := 0.0
	if len(changes) >= 2 {
		if std := stat.StdDev(changes, nil); std > 0 {
			sharpe = avgDaily / std * math.Sqrt(tradingDaysPerYear)
		}
	}

	return &models.ReturnMetrics{
		TotalReturn:    totalReturn * 100,
		AvgDailyReturn: avgDaily * 100,
		SharpeRatio:    sharpe,
	}, true
}
