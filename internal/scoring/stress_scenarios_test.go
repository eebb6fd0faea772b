package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStressTestProjections(t *testing.T) {
	results := StressTest(1000)

	assert.Len(t, results, 3)

	correction := results["market_correction"]
	assert.InDelta(t, -10.0, correction.PercentageDrop, 0.0001)
	assert.InDelta(t, 900.0, correction.NewValue, 0.0001)
	assert.InDelta(t, 100.0, correction.LossAmount, 0.0001)

	bear := results["bear_market"]
	assert.InDelta(t, -20.0, bear.PercentageDrop, 0.0001)
	assert.InDelta(t, 800.0, bear.NewValue, 0.0001)
	assert.InDelta(t, 200.0, bear.LossAmount, 0.0001)

	crisis := results["financial_crisis"]
	assert.InDelta(t, -30.0, crisis.PercentageDrop, 0.0001)
	assert.InDelta(t, 700.0, crisis.NewValue, 0.0001)
	assert.InDelta(t, 300.0, crisis.LossAmount, 0.0001)
}

func TestStressTestZeroValue(t *testing.T) {
	results := StressTest(0)

	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestStressTestLossConsistency(t *testing.T) {
	for _, value := range []float64{1, 250.5, 87000, 1e9} {
		for name, result := range StressTest(value) {
			assert.InDelta(t, value, result.NewValue+result.LossAmount, 0.01,
				"new value plus loss must equal starting value for %s", name)
		}
	}
}
