package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/riskscope/riskscope/pkg/catalog"
)

var hundred = decimal.NewFromInt(100)

// Engine computes composite results against a fixed catalog and threshold table.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	catalog    *catalog.Catalog
	thresholds Thresholds
}

// NewEngine creates a scoring engine. The catalog weights and the thresholds
// are validated once here rather than on every call.
func NewEngine(cat *catalog.Catalog, thresholds Thresholds) (*Engine, error) {
	if cat == nil {
		return nil, fmt.Errorf("catalog is nil")
	}
	if err := cat.ValidateWeights(); err != nil {
		return nil, fmt.Errorf("validating catalog: %w", err)
	}
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	return &Engine{catalog: cat, thresholds: thresholds}, nil
}

// Default returns an engine over the canonical catalog and thresholds.
func Default() *Engine {
	e, err := NewEngine(catalog.Default(), DefaultThresholds())
	if err != nil {
		panic(fmt.Sprintf("scoring: default engine is invalid: %v", err))
	}
	return e
}

// Catalog returns the metric catalog the engine scores against.
func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// Thresholds returns the verdict and tier table.
func (e *Engine) Thresholds() Thresholds { return e.thresholds }

// ComputeComposite scores a complete observation set. Exactly one observation
// per catalog metric is required; a missing metric is an error, never a zero.
func (e *Engine) ComputeComposite(observations []Observation) (*CompositeResult, error) {
	byKey, err := e.validate(observations)
	if err != nil {
		return nil, err
	}

	defs := e.catalog.All()
	total := decimal.Zero
	confidence := decimal.Zero
	contributions := make([]Contribution, 0, len(defs))

	for _, def := range defs {
		obs := byKey[def.Key]
		weighted := decimal.NewFromFloat(obs.Score).Mul(decimal.NewFromInt(int64(def.Weight)))
		total = total.Add(weighted)
		confidence = confidence.Add(decimal.NewFromFloat(obs.Confidence))

		contributions = append(contributions, Contribution{
			Key:          def.Key,
			Name:         def.DisplayName,
			Score:        obs.Score,
			Weight:       def.Weight,
			Confidence:   obs.Confidence,
			Contribution: weighted.Div(hundred).InexactFloat64(),
			Status:       def.Status(obs.Score),
			Flags:        flagsOrEmpty(obs.Flags),
		})
	}

	// Stable sort keeps catalog declaration order for equal contributions.
	sort.SliceStable(contributions, func(i, j int) bool {
		return contributions[i].Contribution > contributions[j].Contribution
	})

	score := int(total.Div(hundred).Round(0).IntPart())
	meanConfidence := confidence.Div(decimal.NewFromInt(int64(len(defs)))).Round(1).InexactFloat64()

	return &CompositeResult{
		Score:         score,
		Verdict:       e.thresholds.Verdict(score),
		Tier:          e.thresholds.Tier(score),
		Confidence:    meanConfidence,
		Contributions: contributions,
	}, nil
}

func (e *Engine) validate(observations []Observation) (map[string]Observation, error) {
	if len(observations) == 0 {
		return nil, ErrEmptyObservationSet
	}

	byKey := make(map[string]Observation, len(observations))
	for _, obs := range observations {
		if _, err := e.catalog.Lookup(obs.Key); err != nil {
			return nil, err
		}
		if _, dup := byKey[obs.Key]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateObservation, obs.Key)
		}
		if math.IsNaN(obs.Score) || obs.Score < 0 || obs.Score > 100 {
			return nil, fmt.Errorf("%w: %s=%v", ErrScoreOutOfRange, obs.Key, obs.Score)
		}
		if math.IsNaN(obs.Confidence) || obs.Confidence < 0 || obs.Confidence > 100 {
			return nil, fmt.Errorf("%w: %s=%v", ErrConfidenceOutOfRange, obs.Key, obs.Confidence)
		}
		byKey[obs.Key] = obs
	}

	var missing []string
	for _, def := range e.catalog.All() {
		if _, ok := byKey[def.Key]; !ok {
			missing = append(missing, def.Key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingMetric, strings.Join(missing, ", "))
	}
	return byKey, nil
}
