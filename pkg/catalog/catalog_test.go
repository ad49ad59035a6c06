package catalog_test

import (
	"errors"
	"testing"

	"github.com/riskscope/riskscope/pkg/catalog"
)

func TestDefaultCatalog(t *testing.T) {
	c := catalog.Default()

	if c.Len() != 13 {
		t.Fatalf("expected 13 metrics, got %d", c.Len())
	}
	if err := c.ValidateWeights(); err != nil {
		t.Fatalf("ValidateWeights() error: %v", err)
	}

	all := c.All()
	if all[0].Key != catalog.ContaminatedNetwork || all[0].Weight != 19 {
		t.Errorf("expected contaminatedNetwork(19) first, got %s(%d)", all[0].Key, all[0].Weight)
	}
	if all[len(all)-1].Key != catalog.BusFactor || all[len(all)-1].Weight != 2 {
		t.Errorf("expected busFactor(2) last, got %s(%d)", all[len(all)-1].Key, all[len(all)-1].Weight)
	}

	// Highest weight first.
	for i := 1; i < len(all); i++ {
		if all[i].Weight > all[i-1].Weight {
			t.Errorf("weight order broken at %s (%d > %d)", all[i].Key, all[i].Weight, all[i-1].Weight)
		}
	}
}

func TestLookup(t *testing.T) {
	c := catalog.Default()

	def, err := c.Lookup(catalog.TeamIdentity)
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if def.Weight != 13 {
		t.Errorf("expected teamIdentity weight 13, got %d", def.Weight)
	}

	_, err = c.Lookup("moonPotential")
	if !errors.Is(err, catalog.ErrUnknownMetric) {
		t.Errorf("expected ErrUnknownMetric, got %v", err)
	}
}

func TestAllReturnsCopy(t *testing.T) {
	c := catalog.Default()
	all := c.All()
	all[0].Weight = 99

	def, _ := c.Lookup(all[0].Key)
	if def.Weight == 99 {
		t.Error("mutating All() result must not change the catalog")
	}
}

func TestValidateWeights(t *testing.T) {
	c, err := catalog.New(
		catalog.Definition{Key: "a", Weight: 60},
		catalog.Definition{Key: "b", Weight: 30},
	)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := c.ValidateWeights(); !errors.Is(err, catalog.ErrWeightSum) {
		t.Errorf("expected ErrWeightSum, got %v", err)
	}
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := catalog.New(
		catalog.Definition{Key: "a", Weight: 50},
		catalog.Definition{Key: "a", Weight: 50},
	)
	if err == nil {
		t.Error("expected error for duplicate keys")
	}
}

func TestWithWeights(t *testing.T) {
	c := catalog.Default()

	next, err := c.WithWeights(map[string]int{
		catalog.ContaminatedNetwork: 17,
		catalog.BusFactor:           4,
	})
	if err != nil {
		t.Fatalf("WithWeights() error: %v", err)
	}
	def, _ := next.Lookup(catalog.BusFactor)
	if def.Weight != 4 {
		t.Errorf("expected overridden weight 4, got %d", def.Weight)
	}
	orig, _ := c.Lookup(catalog.BusFactor)
	if orig.Weight != 2 {
		t.Errorf("original catalog changed: busFactor=%d", orig.Weight)
	}

	if _, err := c.WithWeights(map[string]int{catalog.BusFactor: 10}); !errors.Is(err, catalog.ErrWeightSum) {
		t.Errorf("expected ErrWeightSum for unbalanced override, got %v", err)
	}
	if _, err := c.WithWeights(map[string]int{"nope": 1}); !errors.Is(err, catalog.ErrUnknownMetric) {
		t.Errorf("expected ErrUnknownMetric for unknown override, got %v", err)
	}
}

func TestStatusBands(t *testing.T) {
	def, _ := catalog.Default().Lookup(catalog.Tokenomics)

	tests := []struct {
		score float64
		want  catalog.Status
	}{
		{0, catalog.StatusLow},
		{29.9, catalog.StatusLow},
		{30, catalog.StatusModerate},
		{49, catalog.StatusModerate},
		{50, catalog.StatusHigh},
		{69, catalog.StatusHigh},
		{70, catalog.StatusCritical},
		{100, catalog.StatusCritical},
	}
	for _, tc := range tests {
		if got := def.Status(tc.score); got != tc.want {
			t.Errorf("Status(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}
