package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// maxBatchSize is the Collections API limit per request.
const maxBatchSize = 200

// LeadObject is the Salesforce SObject name for leads.
const LeadObject = "Lead"

// Lead is the subset of Salesforce Lead fields the handoff reads back.
type Lead struct {
	ID        string `json:"Id" salesforce:"Id"`
	FirstName string `json:"FirstName" salesforce:"FirstName"`
	LastName  string `json:"LastName" salesforce:"LastName"`
	Company   string `json:"Company" salesforce:"Company"`
	Rating    string `json:"Rating" salesforce:"Rating"`
}

// FindLead returns the Lead with the given name and company, or nil. An
// empty first name matches leads without one.
func FindLead(ctx context.Context, c Client, firstName, lastName, company string) (*Lead, error) {
	first := "null"
	if firstName != "" {
		first = "'" + escapeSoql(firstName) + "'"
	}
	soql := fmt.Sprintf(
		"SELECT Id, FirstName, LastName, Company, Rating FROM Lead WHERE FirstName = %s AND LastName = '%s' AND Company = '%s' LIMIT 1",
		first, escapeSoql(lastName), escapeSoql(company),
	)

	var leads []Lead
	if err := c.Query(ctx, soql, &leads); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("sf: find lead %s %s", firstName, lastName))
	}
	if len(leads) == 0 {
		return nil, nil
	}
	return &leads[0], nil
}

// InsertLeads creates Lead records in batches of 200. Results of batches sent
// before a failure are returned alongside the error.
func InsertLeads(ctx context.Context, c Client, records []map[string]any) ([]CollectionResult, error) {
	var all []CollectionResult
	for start := 0; start < len(records); start += maxBatchSize {
		end := min(start+maxBatchSize, len(records))
		res, err := c.InsertCollection(ctx, LeadObject, records[start:end])
		if err != nil {
			return all, eris.Wrap(err, fmt.Sprintf("sf: insert leads batch %d-%d", start, end))
		}
		all = append(all, res...)
	}
	return all, nil
}

// UpdateLeads updates Lead records in batches of 200.
func UpdateLeads(ctx context.Context, c Client, records []CollectionRecord) ([]CollectionResult, error) {
	var all []CollectionResult
	for start := 0; start < len(records); start += maxBatchSize {
		end := min(start+maxBatchSize, len(records))
		res, err := c.UpdateCollection(ctx, LeadObject, records[start:end])
		if err != nil {
			return all, eris.Wrap(err, fmt.Sprintf("sf: update leads batch %d-%d", start, end))
		}
		all = append(all, res...)
	}
	return all, nil
}

// escapeSoql escapes backslashes and single quotes in SOQL string literals.
func escapeSoql(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
