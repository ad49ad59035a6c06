package scoring

import "fmt"

// Thresholds is the single table every verdict and tier decision is read from.
// Each value is the inclusive lower bound of its class.
type Thresholds struct {
	// Verdict: pass below FlagAt, flag below RejectAt, reject otherwise.
	FlagAt   int `yaml:"flag_at" json:"flagAt"`
	RejectAt int `yaml:"reject_at" json:"rejectAt"`

	// Tier: LOW below ModerateAt, then MODERATE, ELEVATED, HIGH.
	ModerateAt int `yaml:"moderate_at" json:"moderateAt"`
	ElevatedAt int `yaml:"elevated_at" json:"elevatedAt"`
	HighAt     int `yaml:"high_at" json:"highAt"`
}

// DefaultThresholds returns the canonical thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		FlagAt:   30,
		RejectAt: 60,

		ModerateAt: 25,
		ElevatedAt: 50,
		HighAt:     75,
	}
}

// Validate checks that both ladders are strictly increasing inside (0,100],
// so every class is non-empty and together they cover [0,100] exactly once.
func (t Thresholds) Validate() error {
	if !ascending(t.FlagAt, t.RejectAt) {
		return fmt.Errorf("%w: verdict bounds flag=%d reject=%d", ErrInvalidThresholds, t.FlagAt, t.RejectAt)
	}
	if !ascending(t.ModerateAt, t.ElevatedAt, t.HighAt) {
		return fmt.Errorf("%w: tier bounds moderate=%d elevated=%d high=%d",
			ErrInvalidThresholds, t.ModerateAt, t.ElevatedAt, t.HighAt)
	}
	return nil
}

func ascending(bounds ...int) bool {
	prev := 0
	for _, b := range bounds {
		if b <= prev || b > 100 {
			return false
		}
		prev = b
	}
	return true
}

// Verdict classifies a composite score. Non-decreasing in score.
func (t Thresholds) Verdict(score int) Verdict {
	switch {
	case score >= t.RejectAt:
		return VerdictReject
	case score >= t.FlagAt:
		return VerdictFlag
	default:
		return VerdictPass
	}
}

// Tier maps a composite score to its display tier.
func (t Thresholds) Tier(score int) Tier {
	switch {
	case score >= t.HighAt:
		return TierHigh
	case score >= t.ElevatedAt:
		return TierElevated
	case score >= t.ModerateAt:
		return TierModerate
	default:
		return TierLow
	}
}
