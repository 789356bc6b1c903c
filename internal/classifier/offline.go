package classifier

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/lead-qualifier/internal/model"
)

var stopwords = map[string]bool{
	"more": true, "with": true, "your": true, "that": true, "from": true,
	"than": true, "into": true, "their": true, "this": true, "what": true,
}

// Offline classifies without any network call by counting offer keywords in
// the lead's bio, company and industry.
type Offline struct{}

// NewOffline returns the offline classifier.
func NewOffline() *Offline { return &Offline{} }

// Classify implements Classifier. Two or more distinct keyword hits are High,
// one is Medium and none is Low.
func (Offline) Classify(_ context.Context, lead *model.Lead, offer model.OfferSnapshot) (Result, error) {
	lower := cases.Lower(language.Und)
	text := lower.String(strings.Join([]string{lead.LinkedInBio, lead.Company, lead.Industry}, " "))

	var hits []string
	for _, kw := range offerKeywords(offer) {
		if strings.Contains(text, kw) {
			hits = append(hits, kw)
		}
	}

	tier := model.IntentLow
	switch {
	case len(hits) >= 2:
		tier = model.IntentHigh
	case len(hits) == 1:
		tier = model.IntentMedium
	}

	explanation := "Offline analysis: no offer keywords found in profile."
	if len(hits) > 0 {
		explanation = fmt.Sprintf("Offline analysis: %d offer keyword match(es) (%s).", len(hits), strings.Join(hits, ", "))
	}
	return Result{Tier: tier, Score: tier.Anchor(), Explanation: explanation}, nil
}

// offerKeywords returns the distinct words longer than three letters from the
// offer's value props and use cases, in first-seen order.
func offerKeywords(offer model.OfferSnapshot) []string {
	lower := cases.Lower(language.Und)
	var out []string
	for _, phrase := range slices.Concat(offer.ValueProps, offer.IdealUseCases) {
		words := strings.FieldsFunc(lower.String(phrase), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
		})
		for _, w := range words {
			w = strings.Trim(w, "-")
			if len([]rune(w)) <= 3 || stopwords[w] || slices.Contains(out, w) {
				continue
			}
			out = append(out, w)
		}
	}
	return out
}
