package rules

// MonthlyScore computes the month-end score: +5 per successful Sunday
// encounter, -5 once if the madness tracker maxed out during the month.
func MonthlyScore(sundaySuccessCount int, madnessMaxedOut bool) int {
	score := sundaySuccessCount * 5
	if madnessMaxedOut {
		score -= 5
	}
	return score
}

// MadnessDescription labels the investigator's mental state for chapter
// records and prompts.
func MadnessDescription(level int) string {
	switch {
	case MadnessMaxedOut(level):
		return "severe delirium"
	case level > 5:
		return "shaken and paranoid"
	case level >= 3:
		return "uneasy"
	default:
		return "lucid"
	}
}
