package batch

import (
	"sort"

	"github.com/riskscope/riskscope/pkg/report"
)

const (
	// EntityRiskThreshold is the entity score above which an associate is high risk.
	EntityRiskThreshold = 60
	// MinCoOccurrence is the number of projects that must share an entity to flag it.
	MinCoOccurrence = 2
)

// FlaggedEntity is a high-risk entity shared by several projects in a batch.
type FlaggedEntity struct {
	Name     string   `json:"name"`
	Count    int      `json:"count"`
	Projects []string `json:"projects"`
	// Confidence is the highest confidence observed for the entity across its projects.
	Confidence float64 `json:"confidence"`
}

// FlagEntities groups projects by shared high-risk associated entities.
// Entities seen in fewer than MinCoOccurrence projects are dropped.
func FlagEntities(reports []*report.Report) []FlaggedEntity {
	byName := make(map[string]*FlaggedEntity)
	var order []string

	for _, r := range reports {
		if r == nil {
			continue
		}
		seen := make(map[string]bool)
		for _, e := range r.Entities {
			if e.Name == "" || e.RiskScore <= EntityRiskThreshold || seen[e.Name] {
				continue
			}
			seen[e.Name] = true

			fe, ok := byName[e.Name]
			if !ok {
				fe = &FlaggedEntity{Name: e.Name}
				byName[e.Name] = fe
				order = append(order, e.Name)
			}
			fe.Count++
			fe.Projects = append(fe.Projects, r.Name())
			if e.Confidence > fe.Confidence {
				fe.Confidence = e.Confidence
			}
		}
	}

	out := []FlaggedEntity{}
	for _, name := range order {
		if fe := byName[name]; fe.Count >= MinCoOccurrence {
			out = append(out, *fe)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}
