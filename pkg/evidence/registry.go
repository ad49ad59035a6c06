package evidence

import (
	"fmt"
	"sort"
)

// Narrative is what a template produces before it is framed into a Block.
type Narrative struct {
	Headline string
	Summary  string
	Findings []string
	RedFlags []string
	Sources  []string
}

// TemplateFunc renders the narrative for one (metric, band) cell.
// Implementations must be pure and must tolerate zero-valued Facts.
type TemplateFunc func(score float64, f Facts) Narrative

type templateKey struct {
	metric string
	band   Band
}

// Registry maps (metric, band) pairs to narrative templates.
// It is populated at construction and read-only afterwards.
type Registry struct {
	templates map[templateKey]TemplateFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{templates: make(map[templateKey]TemplateFunc)}
}

// Register installs fn for the given metric and band, replacing any previous entry.
func (r *Registry) Register(metric string, band Band, fn TemplateFunc) {
	r.templates[templateKey{metric: metric, band: band}] = fn
}

// RegisterBands installs one template per band for a metric.
func (r *Registry) RegisterBands(metric string, high, medium, low TemplateFunc) {
	r.Register(metric, BandHigh, high)
	r.Register(metric, BandMedium, medium)
	r.Register(metric, BandLow, low)
}

// Lookup returns the template for a metric and band.
func (r *Registry) Lookup(metric string, band Band) (TemplateFunc, bool) {
	fn, ok := r.templates[templateKey{metric: metric, band: band}]
	return fn, ok
}

// Metrics returns the sorted set of metric keys with at least one template.
func (r *Registry) Metrics() []string {
	seen := make(map[string]bool)
	var keys []string
	for k := range r.templates {
		if !seen[k.metric] {
			seen[k.metric] = true
			keys = append(keys, k.metric)
		}
	}
	sort.Strings(keys)
	return keys
}

// DefaultRegistry returns a registry with narratives for all 13 catalog metrics.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	registerNetwork(r)
	registerTeam(r)
	registerToken(r)
	registerSocial(r)
	registerCode(r)
	return r
}

// Generator produces evidence blocks from a template registry.
type Generator struct {
	registry *Registry
}

// NewGenerator creates a generator backed by registry. A nil registry uses DefaultRegistry.
func NewGenerator(registry *Registry) *Generator {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Generator{registry: registry}
}

// Generate returns the evidence block for a metric. Unknown metric keys fall
// back to generic boilerplate instead of failing.
func (g *Generator) Generate(metricKey string, score float64, f Facts) Block {
	band := BandForScore(score)

	fn, ok := g.registry.Lookup(metricKey, band)
	if !ok {
		fn = genericTemplate(metricKey)
	}
	n := fn(score, f)

	block := Block{
		MetricKey: metricKey,
		Headline:  n.Headline,
		Summary:   n.Summary,
		Band:      band,
		Marker:    marker(f),
	}

	findings := n.Findings
	if len(findings) == 0 {
		findings = []string{"No notable findings were recorded for this signal."}
	}
	redFlags := n.RedFlags
	if len(redFlags) == 0 {
		redFlags = []string{"None identified."}
	}
	block.Sources = mergeSources(n.Sources, f.Sources)

	block.Sections = []Section{
		{Title: SectionFindings, Bullets: findings},
		{Title: SectionRedFlags, Bullets: redFlags},
		{Title: SectionSources, Bullets: block.Sources},
	}
	return block
}

func marker(f Facts) string {
	if f.AnalyzedAt == "" {
		return AnalysisMarker
	}
	return AnalysisMarker + ": " + f.AnalyzedAt
}

func mergeSources(template, collected []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range [][]string{collected, template} {
		for _, s := range list {
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		out = []string{"Automated signal analysis"}
	}
	return out
}

func genericTemplate(metricKey string) TemplateFunc {
	return func(score float64, f Facts) Narrative {
		subject := orDefault(f.ProjectName, "This project")
		switch BandForScore(score) {
		case BandHigh:
			return Narrative{
				Headline: fmt.Sprintf("Elevated risk detected for %s", metricKey),
				Summary:  fmt.Sprintf("%s scored %s on this signal, well above the level where manual review is advised.", subject, scoreText(score)),
				Findings: []string{"The collected observations exceed the high-risk threshold for this signal."},
				RedFlags: []string{"Signal is in the high band; treat it as a material concern until explained."},
			}
		case BandMedium:
			return Narrative{
				Headline: fmt.Sprintf("Moderate risk detected for %s", metricKey),
				Summary:  fmt.Sprintf("%s scored %s on this signal. Some observations warrant follow-up.", subject, scoreText(score)),
				Findings: []string{"The collected observations sit between the low and high thresholds."},
			}
		default:
			return Narrative{
				Headline: fmt.Sprintf("No significant risk detected for %s", metricKey),
				Summary:  fmt.Sprintf("%s scored %s on this signal, within normal ranges.", subject, scoreText(score)),
				Findings: []string{"The collected observations are consistent with legitimate projects."},
			}
		}
	}
}
