package report

// recommendationBand is one rung of the recommendation ladder.
type recommendationBand struct {
	min     int
	actions []string
}

// ladder is ordered from the highest band down; the first band whose min is
// at or below the score applies.
var ladder = []recommendationBand{
	{min: 80, actions: []string{
		"Avoid this project; the risk profile matches known scams and rug pulls.",
		"Do not connect wallets or approve token allowances for its contracts.",
		"Report the project to the platforms where it is promoted.",
	}},
	{min: 60, actions: []string{
		"Do not invest without independent verification of the team and contracts.",
		"Review the highest-contributing red flags with the project directly.",
		"If already exposed, reduce the position and revoke unused approvals.",
	}},
	{min: 40, actions: []string{
		"Proceed only after manual due diligence on the flagged metrics.",
		"Limit position size and avoid locking funds in long vesting schedules.",
		"Re-scan after the next major release or token unlock.",
	}},
	{min: 20, actions: []string{
		"Risk is modest; standard due diligence is sufficient.",
		"Add the project to a watchlist to catch changes in team or token distribution.",
	}},
	{min: 0, actions: []string{
		"No significant risk indicators found.",
		"Continue periodic monitoring as the project matures.",
	}},
}

// Recommendations returns the ordered action list for a composite score.
// The result is a fresh slice the caller may modify.
func Recommendations(score int) []string {
	for _, band := range ladder {
		if score >= band.min {
			return append([]string(nil), band.actions...)
		}
	}
	return append([]string(nil), ladder[len(ladder)-1].actions...)
}
