// Package crm hands scored leads off to external CRM systems.
package crm

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-qualifier/internal/model"
	"github.com/sells-group/lead-qualifier/internal/store"
)

// Sink receives scored leads.
type Sink interface {
	Name() string
	Push(ctx context.Context, leads []model.Lead) (*PushResult, error)
}

// PushResult tallies one handoff.
type PushResult struct {
	Sink    string   `json:"sink"`
	Total   int      `json:"total"`
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

func (r *PushResult) fail(msg string) {
	r.Failed++
	r.Errors = append(r.Errors, msg)
}

// Handoff pushes scored leads to sink, highest combined score first. An empty
// tier selects every scored lead.
func Handoff(ctx context.Context, st store.Store, sink Sink, tier model.IntentTier) (*PushResult, error) {
	filter := store.Scored(true)
	filter.OrderByScore = true
	if tier != "" {
		if !tier.Valid() {
			return nil, model.Validation("invalid intent level: " + string(tier))
		}
		filter.Tier = tier
	}

	leads, err := st.ListLeads(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "crm: list scored leads")
	}
	if len(leads) == 0 {
		return &PushResult{Sink: sink.Name()}, nil
	}

	zap.L().Info("crm: pushing leads",
		zap.String("sink", sink.Name()),
		zap.String("tier", string(tier)),
		zap.Int("leads", len(leads)),
	)

	res, err := sink.Push(ctx, leads)
	if err != nil {
		return res, eris.Wrapf(err, "crm: push to %s", sink.Name())
	}

	zap.L().Info("crm: push complete",
		zap.String("sink", sink.Name()),
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

func score(l *model.Lead) (total, rule, ai int, reasoning string) {
	if l.Scoring == nil {
		return 0, 0, 0, ""
	}
	return l.TotalScore, l.RuleScore, l.AIScore, l.Reasoning
}
