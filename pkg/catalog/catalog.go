// Package catalog defines the fixed taxonomy of risk metrics scored by riskscope.
// Definitions are loaded once at process start and are immutable afterwards, so a
// Catalog is safe to share across goroutines.
package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownMetric is returned when a metric key is not part of the catalog.
	ErrUnknownMetric = errors.New("unknown metric")
	// ErrWeightSum is returned when the catalog weights do not sum to TotalWeight.
	ErrWeightSum = errors.New("metric weights must sum to 100")
)

// TotalWeight is the sum every valid catalog must reach.
const TotalWeight = 100

// Status is the per-metric severity band derived from a metric score.
type Status string

const (
	StatusLow      Status = "low"
	StatusModerate Status = "moderate"
	StatusHigh     Status = "high"
	StatusCritical Status = "critical"
)

// Bands holds the lower bounds (inclusive) of the moderate, high and critical
// status bands. Anything below Moderate is low.
type Bands struct {
	Moderate float64 `json:"moderate" yaml:"moderate"`
	High     float64 `json:"high" yaml:"high"`
	Critical float64 `json:"critical" yaml:"critical"`
}

// DefaultBands returns the status bands shared by all metrics.
func DefaultBands() Bands {
	return Bands{Moderate: 30, High: 50, Critical: 70}
}

// Definition describes one risk metric.
type Definition struct {
	Key         string `json:"key"`         // machine key: "contaminatedNetwork"
	DisplayName string `json:"displayName"` // human name: "Contaminated Network"
	Description string `json:"description"`
	Weight      int    `json:"weight"` // 0-100, catalog total is 100
	Bands       Bands  `json:"bands"`
}

// Status maps a metric score to its status band.
func (d Definition) Status(score float64) Status {
	switch {
	case score >= d.Bands.Critical:
		return StatusCritical
	case score >= d.Bands.High:
		return StatusHigh
	case score >= d.Bands.Moderate:
		return StatusModerate
	default:
		return StatusLow
	}
}

// Catalog is an ordered, read-only registry of metric definitions.
type Catalog struct {
	defs  []Definition
	index map[string]int
}

// New builds a catalog from definitions in canonical order.
// Keys must be unique; weights are not validated here, see ValidateWeights.
func New(defs ...Definition) (*Catalog, error) {
	c := &Catalog{
		defs:  make([]Definition, len(defs)),
		index: make(map[string]int, len(defs)),
	}
	copy(c.defs, defs)
	for i, d := range c.defs {
		if d.Key == "" {
			return nil, fmt.Errorf("definition %d has an empty key", i)
		}
		if _, dup := c.index[d.Key]; dup {
			return nil, fmt.Errorf("duplicate metric key %q", d.Key)
		}
		if d.Weight < 0 || d.Weight > TotalWeight {
			return nil, fmt.Errorf("metric %q: weight %d outside [0,%d]", d.Key, d.Weight, TotalWeight)
		}
		c.index[d.Key] = i
	}
	return c, nil
}

// Lookup returns the definition for key.
func (c *Catalog) Lookup(key string) (Definition, error) {
	i, ok := c.index[key]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownMetric, key)
	}
	return c.defs[i], nil
}

// All returns the definitions in canonical order. The slice is a copy.
func (c *Catalog) All() []Definition {
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Len returns the number of metrics in the catalog.
func (c *Catalog) Len() int { return len(c.defs) }

// Position returns the declaration index of key, or -1 if it is unknown.
func (c *Catalog) Position(key string) int {
	if i, ok := c.index[key]; ok {
		return i
	}
	return -1
}

// TotalWeight returns the sum of all metric weights.
func (c *Catalog) TotalWeight() int {
	total := 0
	for _, d := range c.defs {
		total += d.Weight
	}
	return total
}

// ValidateWeights fails with ErrWeightSum if the weights do not sum to 100.
func (c *Catalog) ValidateWeights() error {
	if sum := c.TotalWeight(); sum != TotalWeight {
		return fmt.Errorf("%w: got %d", ErrWeightSum, sum)
	}
	return nil
}

// WithWeights returns a copy of the catalog with the given weights applied.
// Keys absent from overrides keep their weight. The result must still sum to 100.
func (c *Catalog) WithWeights(overrides map[string]int) (*Catalog, error) {
	defs := c.All()
	for key, w := range overrides {
		i, ok := c.index[key]
		if !ok {
			return nil, fmt.Errorf("weight override: %w: %q", ErrUnknownMetric, key)
		}
		defs[i].Weight = w
	}
	next, err := New(defs...)
	if err != nil {
		return nil, err
	}
	if err := next.ValidateWeights(); err != nil {
		return nil, err
	}
	return next, nil
}
