package model

import (
	"strings"
)

// IntentTier is the buying-intent classification assigned by the external scorer.
type IntentTier string

const (
	IntentHigh   IntentTier = "HIGH"
	IntentMedium IntentTier = "MEDIUM"
	IntentLow    IntentTier = "LOW"
)

// IntentTiers lists every tier from strongest to weakest.
var IntentTiers = []IntentTier{IntentHigh, IntentMedium, IntentLow}

// Anchor returns the fixed external-score contribution for the tier.
func (t IntentTier) Anchor() int {
	switch t {
	case IntentHigh:
		return 50
	case IntentMedium:
		return 30
	case IntentLow:
		return 10
	default:
		return 0
	}
}

// Band returns the inclusive score range a finer-grained external score must
// fall in to be accepted for the tier.
func (t IntentTier) Band() (lo, hi int) {
	switch t {
	case IntentHigh:
		return 41, 50
	case IntentMedium:
		return 21, 40
	default:
		return 0, 20
	}
}

// ScoreFor resolves the external contribution for the tier. A backend-supplied
// score is used only when it lies inside the tier's band; otherwise the anchor wins.
func (t IntentTier) ScoreFor(fine *int) int {
	if fine == nil {
		return t.Anchor()
	}
	lo, hi := t.Band()
	if *fine < lo || *fine > hi {
		return t.Anchor()
	}
	return *fine
}

// Valid reports whether t is one of the three known tiers.
func (t IntentTier) Valid() bool {
	switch t {
	case IntentHigh, IntentMedium, IntentLow:
		return true
	default:
		return false
	}
}

// Label returns the title-cased tier name ("High").
func (t IntentTier) Label() string {
	if !t.Valid() {
		return ""
	}
	s := strings.ToLower(string(t))
	return strings.ToUpper(s[:1]) + s[1:]
}

// ParseIntentTier parses a tier name case-insensitively. Unknown values are a
// validation error.
func ParseIntentTier(s string) (IntentTier, error) {
	t := IntentTier(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", Validation("invalid intent level: "+s, "expected one of high, medium, low")
	}
	return t, nil
}

// IntentTierOrLow parses a tier leniently, falling back to Low. Used when
// reading free-text classifier output.
func IntentTierOrLow(s string) IntentTier {
	t, err := ParseIntentTier(strings.Trim(s, " []*.\"'"))
	if err != nil {
		return IntentLow
	}
	return t
}
