package scoring

import (
	"github.com/bobmcallan/mapletrade/internal/models"
)

// Fixed adverse scenarios and their percentage drops.
var stressScenarios = map[string]float64{
	"market_correction": -10,
	"bear_market":       -20,
	"financial_crisis":  -30,
}

// StressTest projects the portfolio value under each fixed scenario.
// A zero current value yields an empty map.
func StressTest(currentValue float64) map[string]models.StressScenarioResult {
	results := make(map[string]models.StressScenarioResult)
	if currentValue == 0 {
		return results
	}

	for name, drop := range stressScenarios {
		newValue := currentValue * (1 + drop/100)
		results[name] = models.StressScenarioResult{
			PercentageDrop: drop,
			NewValue:       newValue,
			LossAmount:     currentValue - newValue,
		}
	}
	return results
}
