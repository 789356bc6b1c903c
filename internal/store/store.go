// Package store persists leads and offers.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/sells-group/lead-qualifier/internal/model"
)

// LeadFilter selects leads. Zero-valued fields do not constrain the result.
type LeadFilter struct {
	IDs      []string         `json:"ids,omitempty"`
	Scored   *bool            `json:"scored,omitempty"`
	Tier     model.IntentTier `json:"tier,omitempty"`
	MinScore *int             `json:"min_score,omitempty"`
	MaxScore *int             `json:"max_score,omitempty"`

	// OrderByScore sorts by combined score, highest first. Otherwise leads
	// come back in ingestion order.
	OrderByScore bool `json:"order_by_score,omitempty"`
	Limit        int  `json:"limit,omitempty"`
	Offset       int  `json:"offset,omitempty"`
}

// Scored returns a filter on the scored flag.
func Scored(v bool) LeadFilter {
	return LeadFilter{Scored: &v}
}

// ByTier returns a filter for leads classified at tier t.
func ByTier(t model.IntentTier) LeadFilter {
	return LeadFilter{Tier: t}
}

// Store defines the persistence interface for leads and offers.
type Store interface {
	// Leads
	CreateLeads(ctx context.Context, leads []model.Lead) ([]model.Lead, error)
	GetLead(ctx context.Context, id string) (*model.Lead, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error)
	CountLeads(ctx context.Context, filter LeadFilter) (int, error)
	// SaveLead upserts the lead with all of its scoring fields in a single
	// atomic write.
	SaveLead(ctx context.Context, lead *model.Lead) error
	ClearScoring(ctx context.Context, filter LeadFilter) (int, error)
	DeleteLeads(ctx context.Context, filter LeadFilter) (int, error)

	// Offers
	CreateOffer(ctx context.Context, in model.OfferInput) (*model.Offer, error)
	UpdateOffer(ctx context.Context, id string, in model.OfferInput) (*model.Offer, error)
	GetOffer(ctx context.Context, id string) (*model.Offer, error)
	ListOffers(ctx context.Context) ([]model.Offer, error)
	DeleteOffer(ctx context.Context, id string) error
	// LatestOffer returns the most recently updated offer, or nil if none exist.
	LatestOffer(ctx context.Context) (*model.Offer, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

const leadColumns = `id, name, role, company, industry, location, linkedin_bio,
	rule_score, ai_score, total_score, intent, reasoning, is_scored, created_at, updated_at`

const offerColumns = `id, name, value_props, ideal_use_cases, created_at, updated_at`

// placeholder renders the nth (1-based) bind parameter for a SQL dialect.
type placeholder func(n int) string

func sqlitePlaceholder(int) string { return "?" }

func postgresPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

// where renders the filter as a WHERE clause. Bind numbering starts after
// the given offset so callers can prepend their own arguments.
func (f LeadFilter) where(ph placeholder, offset int) (string, []any) {
	var conds []string
	var args []any

	add := func(format string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(format, ph(offset+len(args))))
	}

	if len(f.IDs) > 0 {
		marks := make([]string, len(f.IDs))
		for i, id := range f.IDs {
			args = append(args, id)
			marks[i] = ph(offset + len(args))
		}
		conds = append(conds, "id IN ("+strings.Join(marks, ", ")+")")
	}
	if f.Scored != nil {
		add("is_scored = %s", *f.Scored)
	}
	if f.Tier != "" {
		add("intent = %s", string(f.Tier))
	}
	if f.MinScore != nil {
		add("total_score >= %s", *f.MinScore)
	}
	if f.MaxScore != nil {
		add("total_score <= %s", *f.MaxScore)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (f LeadFilter) orderBy() string {
	if f.OrderByScore {
		return " ORDER BY total_score DESC, created_at ASC, id ASC"
	}
	return " ORDER BY created_at ASC, id ASC"
}

// scoringArgs flattens the optional scoring fields into bind values.
func scoringArgs(l *model.Lead) []any {
	if l.Scoring == nil {
		return []any{nil, nil, nil, nil, nil}
	}
	s := l.Scoring
	return []any{s.RuleScore, s.AIScore, s.TotalScore, string(s.Intent), s.Reasoning}
}

// checkLead rejects a write that would break the scored-flag invariant.
func checkLead(l *model.Lead) error {
	if l.Name == "" {
		return model.Validation("lead name is required")
	}
	if !l.Consistent() {
		return model.Validation(fmt.Sprintf("lead %s: scored flag disagrees with scoring fields", l.ID))
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}
