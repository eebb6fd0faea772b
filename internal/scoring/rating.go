package scoring

// RatePerformance buckets a total return percentage into a rating label.
// Note a flat 0% return rates "poor", not "satisfactory".
func RatePerformance(returnPct float64) string {
	switch {
	case returnPct > 20:
		return "excellent"
	case returnPct > 10:
		return "good"
	case returnPct > 0:
		return "satisfactory"
	case returnPct > -10:
		return "poor"
	default:
		return "very_poor"
	}
}

// CategorizeVolatility buckets annualized volatility (percent) into a
// coarse level label.
func CategorizeVolatility(volatility float64) string {
	switch {
	case volatility < 20:
		return "low"
	case volatility < 35:
		return "moderate"
	case volatility < 50:
		return "high"
	default:
		return "very_high"
	}
}
