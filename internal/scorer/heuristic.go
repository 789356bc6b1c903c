package scorer

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/lead-qualifier/internal/config"
	"github.com/sells-group/lead-qualifier/internal/model"
)

// RoleMatch is the outcome of the role rule.
type RoleMatch int

const (
	RoleNone RoleMatch = iota
	RoleInfluencer
	RoleDecisionMaker
)

func (r RoleMatch) String() string {
	switch r {
	case RoleDecisionMaker:
		return "decision maker"
	case RoleInfluencer:
		return "influencer"
	default:
		return "none"
	}
}

// IndustryMatch is the outcome of the industry rule.
type IndustryMatch int

const (
	IndustryNone IndustryMatch = iota
	IndustryAdjacent
	IndustryExact
)

func (m IndustryMatch) String() string {
	switch m {
	case IndustryExact:
		return "exact"
	case IndustryAdjacent:
		return "adjacent"
	default:
		return "none"
	}
}

// Breakdown records which rules fired and what each contributed.
type Breakdown struct {
	Role               RoleMatch     `json:"role"`
	RolePoints         int           `json:"role_points"`
	Industry           IndustryMatch `json:"industry"`
	IndustryPoints     int           `json:"industry_points"`
	Complete           bool          `json:"complete"`
	CompletenessPoints int           `json:"completeness_points"`
	Total              int           `json:"total"`
}

// Explanation renders the breakdown as the human-readable reasoning prefix.
func (b Breakdown) Explanation() string {
	var parts []string
	if b.RolePoints > 0 {
		parts = append(parts, fmt.Sprintf("Role (%s) +%d", b.Role, b.RolePoints))
	}
	if b.IndustryPoints > 0 {
		parts = append(parts, fmt.Sprintf("Industry (%s match) +%d", b.Industry, b.IndustryPoints))
	}
	if b.CompletenessPoints > 0 {
		parts = append(parts, fmt.Sprintf("Complete data +%d", b.CompletenessPoints))
	}

	body := "no matching signals"
	if len(parts) > 0 {
		body = strings.Join(parts, ", ")
	}
	return fmt.Sprintf("Rule-based scoring breakdown: %s. Total rule score: %d/%d.", body, b.Total, model.MaxRuleScore)
}

// Heuristic scores a lead against an offer using fixed keyword rules. It has
// no state beyond its weights and is safe for concurrent use.
type Heuristic struct {
	weights config.ScoringWeights
}

// NewHeuristic creates a Heuristic with the given weights.
func NewHeuristic(w config.ScoringWeights) *Heuristic {
	return &Heuristic{weights: w}
}

// Score returns the capped heuristic score and its explanation.
func (h *Heuristic) Score(lead *model.Lead, offer model.OfferSnapshot) (int, string) {
	b := h.Evaluate(lead, offer)
	return b.Total, b.Explanation()
}

// Evaluate applies the role, industry and completeness rules.
func (h *Heuristic) Evaluate(lead *model.Lead, offer model.OfferSnapshot) Breakdown {
	var b Breakdown

	b.Role = matchRole(lead.Role)
	switch b.Role {
	case RoleDecisionMaker:
		b.RolePoints = h.weights.DecisionMaker
	case RoleInfluencer:
		b.RolePoints = h.weights.Influencer
	}

	b.Industry = matchIndustry(lead.Industry, offer.IdealUseCases)
	switch b.Industry {
	case IndustryExact:
		b.IndustryPoints = h.weights.ExactIndustry
	case IndustryAdjacent:
		b.IndustryPoints = h.weights.AdjacentIndustry
	}

	b.Complete = complete(lead)
	if b.Complete {
		b.CompletenessPoints = h.weights.Completeness
	}

	b.Total = min(b.RolePoints+b.IndustryPoints+b.CompletenessPoints, model.MaxRuleScore)
	return b
}

// matchRole checks decision-maker keywords before influencer keywords, so a
// title like "senior vp" counts as a decision maker.
func matchRole(role string) RoleMatch {
	r := normalize(role)
	if r == "" {
		return RoleNone
	}
	if containsAny(r, decisionMakerKeywords) {
		return RoleDecisionMaker
	}
	if containsAny(r, influencerKeywords) {
		return RoleInfluencer
	}
	return RoleNone
}

func matchIndustry(industry string, useCases []string) IndustryMatch {
	ind := normalize(industry)
	if ind == "" {
		return IndustryNone
	}
	if containsAny(ind, coreVerticals) {
		return IndustryExact
	}
	for _, uc := range useCases {
		u := normalize(uc)
		if u == "" {
			continue
		}
		if strings.Contains(u, ind) || strings.Contains(ind, u) || wordOverlap(ind, u) {
			return IndustryExact
		}
	}
	if containsAny(ind, adjacentVerticals) {
		return IndustryAdjacent
	}
	return IndustryNone
}

// wordOverlap reports whether any industry word longer than three characters
// appears inside a use-case word.
func wordOverlap(industry, useCase string) bool {
	ucWords := strings.Fields(useCase)
	for _, w := range strings.Fields(industry) {
		if len([]rune(w)) <= 3 {
			continue
		}
		for _, uw := range ucWords {
			if strings.Contains(uw, w) {
				return true
			}
		}
	}
	return false
}

func complete(lead *model.Lead) bool {
	for _, f := range lead.Fields() {
		if strings.TrimSpace(f) == "" {
			return false
		}
	}
	return true
}

func normalize(s string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(s))
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
