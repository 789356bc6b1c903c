// Package scorer implements the deterministic rule-based lead scorer.
package scorer

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-qualifier/internal/config"
)

// DefaultWeights returns the standard sub-score weights. A lead matching every
// rule reaches exactly the 50-point cap.
func DefaultWeights() config.ScoringWeights {
	return config.ScoringWeights{
		DecisionMaker:    20,
		Influencer:       10,
		ExactIndustry:    20,
		AdjacentIndustry: 10,
		Completeness:     10,
	}
}

// ValidateWeights checks that a weight set is usable.
func ValidateWeights(w config.ScoringWeights) error {
	var errs []string

	weights := []struct {
		name  string
		value int
	}{
		{"decision_maker", w.DecisionMaker},
		{"influencer", w.Influencer},
		{"industry_exact", w.ExactIndustry},
		{"industry_adjacent", w.AdjacentIndustry},
		{"completeness", w.Completeness},
	}
	sum := 0
	for _, wt := range weights {
		if wt.value < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", wt.name))
		}
		sum += wt.value
	}
	if sum <= 0 {
		errs = append(errs, "at least one weight must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: weight validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
