package classifier

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-qualifier/internal/model"
)

const systemPrompt = `You are a lead qualification expert. You classify how likely a B2B prospect is to buy a specific product.`

const notSpecified = "Not specified"

const defaultReasoning = "AI analysis completed"

// BuildPrompt renders the user message for one lead and offer.
func BuildPrompt(lead *model.Lead, offer model.OfferSnapshot) string {
	var b strings.Builder

	b.WriteString("Analyze this prospect and determine their buying intent for the given product/offer.\n\n")

	b.WriteString("PRODUCT/OFFER:\n")
	b.WriteString("Name: " + offer.Name + "\n")
	b.WriteString("Value Propositions: " + strings.Join(offer.ValueProps, ", ") + "\n")
	b.WriteString("Ideal Use Cases: " + strings.Join(offer.IdealUseCases, ", ") + "\n\n")

	b.WriteString("PROSPECT:\n")
	for _, f := range []struct{ label, value string }{
		{"Name", lead.Name},
		{"Role", lead.Role},
		{"Company", lead.Company},
		{"Industry", lead.Industry},
		{"Location", lead.Location},
		{"LinkedIn Bio", lead.LinkedInBio},
	} {
		v := strings.TrimSpace(f.value)
		if v == "" {
			v = notSpecified
		}
		b.WriteString(f.label + ": " + v + "\n")
	}

	b.WriteString(`
TASK:
Classify this prospect's buying intent as High, Medium, or Low based on:
1. Role relevance and decision-making authority
2. Industry fit with the product's ideal use cases
3. Company size and growth stage indicators
4. Pain points mentioned in bio that align with value props
5. Overall likelihood to purchase this type of solution

RESPONSE FORMAT:
Intent: [High/Medium/Low]
Score: [optional integer; High 41-50, Medium 21-40, Low 0-20]
Reasoning: [1-2 sentences explaining your classification]

Be concise and focus on the most relevant factors for this specific product-prospect match.`)

	return b.String()
}

// ParseReply extracts the tier, optional score and reasoning from a
// line-oriented reply. A reply without an intent line is an error.
func ParseReply(reply string) (Result, error) {
	var (
		tier      model.IntentTier
		fine      *int
		reasoning string
	)

	for _, line := range strings.Split(reply, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		value = strings.Trim(value, " *")
		switch strings.ToLower(strings.Trim(key, " *#-")) {
		case "intent":
			if tier == "" {
				tier = model.IntentTierOrLow(value)
			}
		case "score":
			if n, err := strconv.Atoi(strings.Trim(value, " []*.")); err == nil {
				fine = &n
			}
		case "reasoning":
			if reasoning == "" {
				reasoning = value
			}
		}
	}

	if tier == "" {
		return Result{}, eris.Errorf("classifier: no intent line in reply %q", truncate(reply, 120))
	}

	if reasoning == "" {
		reasoning = defaultReasoning
		if r := strings.TrimSpace(reply); len(r) > 50 {
			first, _, _ := strings.Cut(truncate(r, 200), "\n")
			reasoning = strings.TrimSpace(first)
		}
	}

	return Result{Tier: tier, Score: tier.ScoreFor(fine), Explanation: reasoning}, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
