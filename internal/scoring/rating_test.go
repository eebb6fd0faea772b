package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatePerformance(t *testing.T) {
	tests := []struct {
		returnPct float64
		expected  string
	}{
		{25, "excellent"},
		{20.01, "excellent"},
		{20, "good"},
		{10.5, "good"},
		{10, "satisfactory"},
		{0.1, "satisfactory"},
		{0, "poor"},
		{-5, "poor"},
		{-10, "very_poor"},
		{-35, "very_poor"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, RatePerformance(tt.returnPct))
		})
	}
}

func TestCategorizeVolatility(t *testing.T) {
	tests := []struct {
		volatility float64
		expected   string
	}{
		{5, "low"},
		{19.99, "low"},
		{20, "moderate"},
		{34.99, "moderate"},
		{35, "high"},
		{49.99, "high"},
		{50, "very_high"},
		{120, "very_high"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, CategorizeVolatility(tt.volatility))
		})
	}
}
