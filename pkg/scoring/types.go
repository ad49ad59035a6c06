// Package scoring implements the riskscope composite scoring engine.
// It aggregates one observation per catalog metric into a composite risk score,
// a verdict and a display tier.
package scoring

import (
	"errors"

	"github.com/riskscope/riskscope/pkg/catalog"
	"github.com/riskscope/riskscope/pkg/evidence"
)

var (
	ErrEmptyObservationSet  = errors.New("empty observation set")
	ErrMissingMetric        = errors.New("missing metric observation")
	ErrDuplicateObservation = errors.New("duplicate metric observation")
	ErrScoreOutOfRange      = errors.New("score out of range")
	ErrConfidenceOutOfRange = errors.New("confidence out of range")
	ErrInvalidThresholds    = errors.New("invalid thresholds")
)

// Observation is one metric reading supplied by the data collector.
type Observation struct {
	Key        string         `json:"key"`
	Score      float64        `json:"score"`      // 0-100
	Confidence float64        `json:"confidence"` // 0-100
	Flags      []string       `json:"flags"`
	Facts      evidence.Facts `json:"facts"`
}

// Verdict is the actionable classification of a composite score.
type Verdict string

const (
	VerdictPass   Verdict = "pass"
	VerdictFlag   Verdict = "flag"
	VerdictReject Verdict = "reject"
)

// Tier is the four-level display classification, distinct from the verdict.
type Tier string

const (
	TierLow      Tier = "LOW"
	TierModerate Tier = "MODERATE"
	TierElevated Tier = "ELEVATED"
	TierHigh     Tier = "HIGH"
)

// Contribution is the weighted share of one metric in the composite.
type Contribution struct {
	Key          string         `json:"key"`
	Name         string         `json:"name"`
	Score        float64        `json:"score"`
	Weight       int            `json:"weight"`
	Confidence   float64        `json:"confidence"`
	Contribution float64        `json:"contribution"` // score * weight / 100
	Status       catalog.Status `json:"status"`
	Flags        []string       `json:"flags"`
}

// CompositeResult is the output of scoring one project. Immutable once computed.
type CompositeResult struct {
	Score      int     `json:"score"`
	Verdict    Verdict `json:"verdict"`
	Tier       Tier    `json:"tier"`
	Confidence float64 `json:"confidence"`
	// Contributions are sorted by contribution descending; ties keep catalog order.
	Contributions []Contribution `json:"contributions"`
}
