package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/riskscope/riskscope/pkg/evidence"
	"github.com/riskscope/riskscope/pkg/scoring"
)

// Assembler turns an Input into a Report. It has no side effects beyond
// reading the injected clock and ID source.
type Assembler struct {
	Engine    *scoring.Engine
	Generator *evidence.Generator

	// Now and NewID default to time.Now and uuid.NewString.
	Now   func() time.Time
	NewID func() string
}

// NewAssembler creates an assembler. Nil arguments use the defaults.
func NewAssembler(engine *scoring.Engine, gen *evidence.Generator) *Assembler {
	if engine == nil {
		engine = scoring.Default()
	}
	if gen == nil {
		gen = evidence.NewGenerator(nil)
	}
	return &Assembler{Engine: engine, Generator: gen}
}

func (a *Assembler) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *Assembler) newID() string {
	if a.NewID != nil {
		return a.NewID()
	}
	return uuid.NewString()
}

// Assemble scores the input, generates evidence for every catalog metric and
// builds the report.
func (a *Assembler) Assemble(in Input) (*Report, error) {
	start := a.now()

	identity, err := normalizeIdentity(in.Identity)
	if err != nil {
		return nil, err
	}

	composite, err := a.Engine.ComputeComposite(in.Observations)
	if err != nil {
		return nil, fmt.Errorf("scoring %s: %w", in.Name(), err)
	}

	byKey := make(map[string]scoring.Observation, len(in.Observations))
	for _, obs := range in.Observations {
		byKey[obs.Key] = obs
	}

	metrics := make([]MetricReport, 0, len(composite.Contributions))
	for _, c := range composite.Contributions {
		facts := byKey[c.Key].Facts
		if facts.ProjectName == "" {
			facts.ProjectName = identity.DisplayName
		}
		metrics = append(metrics, MetricReport{
			Key:          c.Key,
			Name:         c.Name,
			Score:        c.Score,
			Status:       c.Status,
			Confidence:   c.Confidence,
			Weight:       c.Weight,
			Contribution: c.Contribution,
			Flags:        c.Flags,
			Evidence:     a.Generator.Generate(c.Key, c.Score, facts),
		})
	}

	end := a.now()
	scannedAt := end.UTC().Round(0)

	return &Report{
		ID: a.newID(),
		Metadata: Metadata{
			ProjectName:    identity.DisplayName,
			CanonicalName:  identity.CanonicalName,
			Platform:       identity.Platform,
			ScannedAt:      scannedAt,
			RiskScore:      composite.Score,
			Verdict:        composite.Verdict,
			RiskTier:       composite.Tier,
			Confidence:     composite.Confidence,
			ProcessingTime: end.Sub(start).Milliseconds(),
		},
		OverallRisk: OverallRisk{
			Score:      composite.Score,
			Verdict:    composite.Verdict,
			Tier:       composite.Tier,
			Confidence: composite.Confidence,
			Breakdown:  composite.Contributions,
		},
		Metrics:         metrics,
		Sources:         collectSources(identity, metrics),
		Recommendations: Recommendations(composite.Score),
		Entities:        collectEntities(in.Observations),
	}, nil
}

func normalizeIdentity(id Identity) (Identity, error) {
	id.DisplayName = strings.TrimSpace(id.DisplayName)
	id.CanonicalName = strings.TrimSpace(id.CanonicalName)
	if id.DisplayName == "" && id.CanonicalName == "" {
		return id, ErrInvalidIdentity
	}
	if id.CanonicalName == "" {
		id.CanonicalName = Canonicalize(id.DisplayName)
	}
	if id.DisplayName == "" {
		id.DisplayName = id.CanonicalName
	}
	if id.Platform == "" {
		id.Platform = "unknown"
	}
	return id, nil
}

// Canonicalize lowercases a name and joins its words with hyphens.
func Canonicalize(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

// collectSources merges identity sources with every evidence source, first-seen order.
func collectSources(id Identity, metrics []MetricReport) []string {
	seen := make(map[string]bool)
	out := []string{}
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range id.Sources {
		add(s)
	}
	for _, m := range metrics {
		for _, s := range m.Evidence.Sources {
			add(s)
		}
	}
	return out
}

// collectEntities merges associates from all observations by name, keeping
// the highest risk score and confidence seen for each.
func collectEntities(observations []scoring.Observation) []evidence.Entity {
	byName := make(map[string]evidence.Entity)
	for _, obs := range observations {
		for _, e := range obs.Facts.Associates {
			if e.Name == "" {
				continue
			}
			cur, ok := byName[e.Name]
			if !ok {
				byName[e.Name] = e
				continue
			}
			if e.RiskScore > cur.RiskScore {
				cur.RiskScore = e.RiskScore
				cur.Relation = orKeep(e.Relation, cur.Relation)
				cur.Outcome = orKeep(e.Outcome, cur.Outcome)
			}
			if e.Confidence > cur.Confidence {
				cur.Confidence = e.Confidence
			}
			byName[e.Name] = cur
		}
	}

	entities := make([]evidence.Entity, 0, len(byName))
	for _, e := range byName {
		entities = append(entities, e)
	}
	sort.Slice(entities, func(i, j int) bool {
		if entities[i].RiskScore != entities[j].RiskScore {
			return entities[i].RiskScore > entities[j].RiskScore
		}
		return entities[i].Name < entities[j].Name
	})
	return entities
}

func orKeep(next, cur string) string {
	if next != "" {
		return next
	}
	return cur
}
