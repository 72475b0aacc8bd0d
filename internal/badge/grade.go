package badge

const (
	IndicatorGood = "🟢"
	IndicatorFair = "🟡"
	IndicatorPoor = "🔴"
)

// Indicator maps a 0-1 score onto a traffic-light emoji.
func Indicator(score float64) string {
	switch {
	case score >= 0.90:
		return IndicatorGood
	case score >= 0.50:
		return IndicatorFair
	default:
		return IndicatorPoor
	}
}

// Grade maps a 0-1 score onto a letter grade and a shields.io color name.
func Grade(score float64) (grade string, color string) {
	switch {
	case score >= 0.97:
		return "A+", "brightgreen"
	case score >= 0.90:
		return "A", "green"
	case score >= 0.80:
		return "B", "yellowgreen"
	case score >= 0.65:
		return "C", "yellow"
	case score >= 0.50:
		return "D", "orange"
	default:
		return "F", "red"
	}
}
