package crm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-qualifier/internal/model"
	"github.com/sells-group/lead-qualifier/pkg/salesforce"
)

const (
	// LeadSource tags every Lead record written by the qualifier.
	LeadSource = "Lead Qualifier"
	// Salesforce requires Company on a Lead.
	unknownCompany = "[not provided]"
)

// SalesforceSink writes leads as Salesforce Lead records. A Lead matching on
// name and company is updated; anything else is inserted.
type SalesforceSink struct {
	client salesforce.Client
}

// NewSalesforceSink creates a sink backed by c.
func NewSalesforceSink(c salesforce.Client) *SalesforceSink {
	return &SalesforceSink{client: c}
}

func (s *SalesforceSink) Name() string { return "salesforce" }

// Push looks up each lead, then sends inserts and updates as batched
// collection calls.
func (s *SalesforceSink) Push(ctx context.Context, leads []model.Lead) (*PushResult, error) {
	res := &PushResult{Sink: s.Name(), Total: len(leads)}

	var (
		inserts     []map[string]any
		insertNames []string
		updates     []salesforce.CollectionRecord
		updateNames []string
	)

	for i := range leads {
		if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "salesforce sink: push")
		}
		lead := &leads[i]
		fields := leadFields(lead)

		existing, err := salesforce.FindLead(ctx, s.client,
			fields["FirstName"].(string), fields["LastName"].(string), fields["Company"].(string))
		if err != nil {
			zap.L().Warn("salesforce sink: lookup failed", zap.String("lead_id", lead.ID), zap.Error(err))
			res.fail(fmt.Sprintf("%s (%s): %v", lead.Name, lead.ID, err))
			continue
		}
		if existing != nil {
			updates = append(updates, salesforce.CollectionRecord{ID: existing.ID, Fields: fields})
			updateNames = append(updateNames, lead.Name)
			continue
		}
		inserts = append(inserts, fields)
		insertNames = append(insertNames, lead.Name)
	}

	if len(inserts) > 0 {
		results, err := salesforce.InsertLeads(ctx, s.client, inserts)
		res.Created += tally(res, results, insertNames)
		if err != nil {
			return res, err
		}
	}
	if len(updates) > 0 {
		results, err := salesforce.UpdateLeads(ctx, s.client, updates)
		res.Updated += tally(res, results, updateNames)
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

// tally records per-record failures and returns the number of successes.
func tally(res *PushResult, results []salesforce.CollectionResult, names []string) int {
	ok := 0
	for i, r := range results {
		if r.Success {
			ok++
			continue
		}
		name := ""
		if i < len(names) {
			name = names[i]
		}
		res.fail(fmt.Sprintf("%s: %s", name, strings.Join(r.Errors, "; ")))
	}
	return ok
}

func leadFields(lead *model.Lead) map[string]any {
	first, last := splitName(lead.Name)
	company := lead.Company
	if company == "" {
		company = unknownCompany
	}
	total, _, _, reasoning := score(lead)

	fields := map[string]any{
		"FirstName":  first,
		"LastName":   last,
		"Company":    company,
		"LeadSource": LeadSource,
		"Rating":     rating(lead.Tier()),
	}
	optional := map[string]string{
		"Title":       lead.Role,
		"Industry":    lead.Industry,
		"City":        lead.Location,
		"Description": fmt.Sprintf("Qualification score %d/100. %s", total, reasoning),
	}
	for k, v := range optional {
		if v = strings.TrimSpace(v); v != "" {
			fields[k] = v
		}
	}
	return fields
}

// splitName puts the last word in LastName, which Salesforce requires.
func splitName(name string) (first, last string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return "", parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
}

func rating(t model.IntentTier) string {
	switch t {
	case model.IntentHigh:
		return "Hot"
	case model.IntentMedium:
		return "Warm"
	default:
		return "Cold"
	}
}
