package signals

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPctChanges(t *testing.T) {
	changes := PctChanges([]float64{100, 110, 99})

	assert.Len(t, changes, 2)
	assert.InDelta(t, 0.10, changes[0], 0.0001)
	assert.InDelta(t, -0.10, changes[1], 0.0001)
}

func TestPctChangesSkipsZeroBase(t *testing.T) {
	changes := PctChanges([]float64{100, 0, 50})

	// The change off a zero close is undefined and dropped.
	assert.Len(t, changes, 1)
	assert.InDelta(t, -1.0, changes[0], 0.0001)
}

func TestVolatility(t *testing.T) {
	t.Run("known alternating series", func(t *testing.T) {
		// Daily returns alternate +10% and roughly -9.09%; the sample
		// deviation annualized lands near 159%.
		closes := []float64{100, 110, 100, 110, 100, 110}
		vol, ok := Volatility(closes)
		assert.True(t, ok)
		assert.Greater(t, vol, 100.0)
		assert.Less(t, vol, 200.0)
	})

	t.Run("flat series has no volatility", func(t *testing.T) {
		_, ok := Volatility(flat(100, 10))
		assert.False(t, ok)
	})

	t.Run("needs at least two returns", func(t *testing.T) {
		_, ok := Volatility([]float64{100, 110})
		assert.False(t, ok)
	})

	t.Run("scales with dispersion", func(t *testing.T) {
		calm := []float64{100, 101, 100, 101, 100, 101}
		wild := []float64{100, 120, 95, 125, 90, 130}

		calmVol, ok := Volatility(calm)
		assert.True(t, ok)
		wildVol, ok := Volatility(wild)
		assert.True(t, ok)
		assert.Greater(t, wildVol, calmVol)
	})
}

func TestReturns(t *testing.T) {
	t.Run("simple gain", func(t *testing.T) {
		metrics, ok := Returns([]float64{100, 105, 110})
		assert.True(t, ok)
		assert.InDelta(t, 10.0, metrics.TotalReturn, 0.0001)
		assert.Greater(t, metrics.AvgDailyReturn, 0.0)
		assert.Greater(t, metrics.SharpeRatio, 0.0)
	})

	t.Run("loss produces negative metrics", func(t *testing.T) {
		metrics, ok := Returns([]float64{100, 90, 80})
		assert.True(t, ok)
		assert.InDelta(t, -20.0, metrics.TotalReturn, 0.0001)
		assert.Less(t, metrics.AvgDailyReturn, 0.0)
		assert.Less(t, metrics.SharpeRatio, 0.0)
	})

	t.Run("single return has no sharpe", func(t *testing.T) {
		metrics, ok := Returns([]float64{100, 110})
		assert.True(t, ok)
		assert.InDelta(t, 10.0, metrics.TotalReturn, 0.0001)
		assert.InDelta(t, 10.0, metrics.AvgDailyReturn, 0.0001)
		assert.Zero(t, metrics.SharpeRatio)
	})

	t.Run("zero first close is rejected", func(t *testing.T) {
		_, ok := Returns([]float64{0, 110})
		assert.False(t, ok)
	})

	t.Run("too short", func(t *testing.T) {
		_, ok := Returns([]float64{100})
		assert.False(t, ok)
	})

	t.Run("sharpe is finite for steady growth", func(t *testing.T) {
		metrics, ok := Returns(ramp(100, 1, 50))
		assert.True(t, ok)
		assert.False(t, math.IsNaN(metrics.SharpeRatio))
		assert.False(t, math.IsInf(metrics.SharpeRatio, 0))
	})
}
