// Package testutil holds fixtures shared by riskscope tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/riskscope/riskscope/pkg/catalog"
	"github.com/riskscope/riskscope/pkg/report"
	"github.com/riskscope/riskscope/pkg/scoring"
)

// FixedTime is the clock used by deterministic fixtures.
var FixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// UniformInput gives every metric the same score, so the composite equals score.
// Flags are attached to the first metric.
func UniformInput(name string, score float64, flags ...string) report.Input {
	var obs []scoring.Observation
	for _, def := range catalog.Default().All() {
		obs = append(obs, scoring.Observation{Key: def.Key, Score: score, Confidence: 80})
	}
	obs[0].Flags = flags
	return report.Input{Identity: report.Identity{DisplayName: name}, Observations: obs}
}

// Assembler returns the default assembler with a fixed clock and sequential ids.
func Assembler() *report.Assembler {
	a := report.NewAssembler(nil, nil)
	a.Now = func() time.Time { return FixedTime }
	n := 0
	a.NewID = func() string {
		n++
		return fmt.Sprintf("report-%04d", n)
	}
	return a
}

// Report assembles a uniform report for name with a random id, failing the test on error.
func Report(t testing.TB, name string, score float64, flags ...string) *report.Report {
	t.Helper()
	a := report.NewAssembler(nil, nil)
	a.Now = func() time.Time { return FixedTime }
	r, err := a.Assemble(UniformInput(name, score, flags...))
	if err != nil {
		t.Fatalf("assemble %s: %v", name, err)
	}
	return r
}
