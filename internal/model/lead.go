package model

import (
	"fmt"
	"strings"
	"time"
)

// LeadColumns is the ordered column set of an ingested lead row.
var LeadColumns = []string{"name", "role", "company", "industry", "location", "linkedin_bio"}

// Scoring holds the five fields a scoring pass writes together. A lead either
// has all of them or none of them.
type Scoring struct {
	RuleScore  int        `json:"rule_score"`
	AIScore    int        `json:"ai_score"`
	TotalScore int        `json:"total_score"`
	Intent     IntentTier `json:"intent"`
	Reasoning  string     `json:"reasoning"`
}

// NewScoring combines a heuristic and an external result.
func NewScoring(ruleScore, aiScore int, intent IntentTier, reasoning string) Scoring {
	return Scoring{
		RuleScore:  ruleScore,
		AIScore:    aiScore,
		TotalScore: ruleScore + aiScore,
		Intent:     intent,
		Reasoning:  reasoning,
	}
}

// Check verifies the arithmetic and tier of a scoring record.
func (s Scoring) Check() error {
	if s.RuleScore < 0 || s.RuleScore > MaxRuleScore {
		return fmt.Errorf("rule score %d out of range", s.RuleScore)
	}
	if s.TotalScore != s.RuleScore+s.AIScore {
		return fmt.Errorf("total score %d != %d + %d", s.TotalScore, s.RuleScore, s.AIScore)
	}
	if !s.Intent.Valid() {
		return fmt.Errorf("invalid intent %q", s.Intent)
	}
	return nil
}

// MaxRuleScore caps the heuristic contribution.
const MaxRuleScore = 50

// Lead is a prospect record evaluated for buying intent.
type Lead struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Role        string `json:"role,omitempty"`
	Company     string `json:"company,omitempty"`
	Industry    string `json:"industry,omitempty"`
	Location    string `json:"location,omitempty"`
	LinkedInBio string `json:"linkedin_bio,omitempty"`

	*Scoring
	IsScored bool `json:"is_scored"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewLeadFromRow builds an unscored lead from the six ordered ingestion
// fields. Values are trimmed; a blank name is rejected.
func NewLeadFromRow(fields [6]string) (Lead, error) {
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	if fields[0] == "" {
		return Lead{}, Validation("lead name is required")
	}
	return Lead{
		Name:        fields[0],
		Role:        fields[1],
		Company:     fields[2],
		Industry:    fields[3],
		Location:    fields[4],
		LinkedInBio: fields[5],
	}, nil
}

// Fields returns the six profile fields in ingestion order.
func (l *Lead) Fields() [6]string {
	return [6]string{l.Name, l.Role, l.Company, l.Industry, l.Location, l.LinkedInBio}
}

// ApplyScoring sets all scoring fields at once and marks the lead scored.
func (l *Lead) ApplyScoring(s Scoring) {
	l.Scoring = &s
	l.IsScored = true
}

// ClearScoring removes all scoring fields and marks the lead unscored.
func (l *Lead) ClearScoring() {
	l.Scoring = nil
	l.IsScored = false
}

// Tier returns the lead's intent tier, or "" when unscored.
func (l *Lead) Tier() IntentTier {
	if l.Scoring == nil {
		return ""
	}
	return l.Scoring.Intent
}

// Consistent reports whether the scored flag agrees with the scoring fields.
func (l *Lead) Consistent() bool {
	if l.Scoring == nil {
		return !l.IsScored
	}
	return l.IsScored && l.Scoring.Check() == nil
}
