// Package pipeline runs scoring batches over stored leads.
package pipeline

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/sells-group/lead-qualifier/internal/classifier"
	"github.com/sells-group/lead-qualifier/internal/model"
	"github.com/sells-group/lead-qualifier/internal/store"
)

// DefaultPoolSize is the number of leads scored concurrently when no pool
// size is configured.
const DefaultPoolSize = 5

const countChunk = 500

// Heuristic is the deterministic half of a lead's score.
type Heuristic interface {
	Score(lead *model.Lead, offer model.OfferSnapshot) (int, string)
}

// Orchestrator scores leads against the active offer. It owns a bounded pool
// of scoring slots shared by every operation on the instance.
type Orchestrator struct {
	store      store.Store
	heuristic  Heuristic
	classifier classifier.Classifier

	poolSize int64
	slots    *semaphore.Weighted

	// batchMu serializes batch operations so two batches never interleave
	// their clear and score phases.
	batchMu sync.Mutex
}

// New creates an Orchestrator. A poolSize <= 0 uses DefaultPoolSize.
func New(st store.Store, h Heuristic, c classifier.Classifier, poolSize int) *Orchestrator {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	return &Orchestrator{
		store:      st,
		heuristic:  h,
		classifier: c,
		poolSize:   int64(poolSize),
		slots:      semaphore.NewWeighted(int64(poolSize)),
	}
}

// PoolSize returns the number of concurrent scoring slots.
func (o *Orchestrator) PoolSize() int { return int(o.poolSize) }

// ScoreAllUnscored scores every lead whose scored flag is false against the
// active offer.
func (o *Orchestrator) ScoreAllUnscored(ctx context.Context) (*model.BatchReport, error) {
	o.batchMu.Lock()
	defer o.batchMu.Unlock()

	offer, err := o.activeOffer(ctx)
	if err != nil {
		return nil, err
	}
	return o.scoreUnscored(ctx, offer)
}

// ScoreOne scores a single lead. Scoring failures are reported in the
// returned report rather than as an error.
func (o *Orchestrator) ScoreOne(ctx context.Context, leadID string) (*model.BatchReport, error) {
	lead, err := o.store.GetLead(ctx, leadID)
	if err != nil {
		return nil, err
	}
	offer, err := o.activeOffer(ctx)
	if err != nil {
		return nil, err
	}

	workCtx := context.WithoutCancel(ctx)
	if err := o.slots.Acquire(workCtx, 1); err != nil {
		return nil, eris.Wrap(err, "pipeline: acquire scoring slot")
	}
	err = o.scoreLead(workCtx, lead, offer)
	o.slots.Release(1)

	if err != nil {
		zap.L().Warn("pipeline: lead scoring failed", zap.String("lead_id", leadID), zap.Error(err))
		return model.NewBatchReport("Failed to score lead: "+err.Error(), 1, 0, 1), nil
	}
	return model.NewBatchReport("Lead scored successfully", 1, 1, 0), nil
}

// RescoreAll clears the scoring of every lead and scores them all again.
func (o *Orchestrator) RescoreAll(ctx context.Context) (*model.BatchReport, error) {
	o.batchMu.Lock()
	defer o.batchMu.Unlock()

	offer, err := o.activeOffer(ctx)
	if err != nil {
		return nil, err
	}

	n, err := o.store.ClearScoring(ctx, store.LeadFilter{})
	if err != nil {
		return nil, model.Persistence(err, "failed to reset lead scores")
	}
	zap.L().Info("pipeline: cleared scoring", zap.Int("leads", n))

	return o.scoreUnscored(ctx, offer)
}

// RescoreByTier clears and rescores only the leads currently classified at
// tier. Leads at other tiers and unscored leads are not touched.
func (o *Orchestrator) RescoreByTier(ctx context.Context, tier model.IntentTier) (*model.BatchReport, error) {
	if !tier.Valid() {
		return nil, model.Validation(fmt.Sprintf("invalid intent level: %s", tier), "expected one of high, medium, low")
	}

	o.batchMu.Lock()
	defer o.batchMu.Unlock()

	offer, err := o.activeOffer(ctx)
	if err != nil {
		return nil, err
	}

	leads, err := o.store.ListLeads(ctx, store.ByTier(tier))
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: list %s leads", tier)
	}
	if len(leads) > 0 {
		if _, err := o.store.ClearScoring(ctx, store.ByTier(tier)); err != nil {
			return nil, model.Persistence(err, "failed to reset lead scores")
		}
		for i := range leads {
			leads[i].ClearScoring()
		}
	}

	succeeded, failed, err := o.runBatch(ctx, offer, leads)
	if err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("Rescoring completed. %d leads rescored successfully, %d failed.", succeeded, failed)
	return model.NewBatchReport(msg, len(leads), succeeded, failed), nil
}

func (o *Orchestrator) scoreUnscored(ctx context.Context, offer model.OfferSnapshot) (*model.BatchReport, error) {
	leads, err := o.store.ListLeads(ctx, store.Scored(false))
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: list unscored leads")
	}
	if len(leads) == 0 {
		zap.L().Info("pipeline: no unscored leads")
		return model.NewBatchReport("No unscored leads found", 0, 0, 0), nil
	}

	succeeded, failed, err := o.runBatch(ctx, offer, leads)
	if err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("Scoring completed. %d leads scored successfully, %d failed.", succeeded, failed)
	return model.NewBatchReport(msg, len(leads), succeeded, failed), nil
}

// runBatch scores leads on the pool and waits for all of them. Workers run on
// a context detached from the caller's cancellation, so a started batch
// always completes. Counts come from re-reading the leads afterwards.
func (o *Orchestrator) runBatch(ctx context.Context, offer model.OfferSnapshot, leads []model.Lead) (int, int, error) {
	if len(leads) == 0 {
		return 0, 0, nil
	}

	log := zap.L().With(zap.String("offer_id", offer.ID))
	log.Info("pipeline: scoring batch",
		zap.Int("leads", len(leads)),
		zap.Int64("pool_size", o.poolSize),
	)

	workCtx := context.WithoutCancel(ctx)
	var g errgroup.Group

	for i := range leads {
		lead := &leads[i]
		if err := o.slots.Acquire(workCtx, 1); err != nil {
			return 0, 0, eris.Wrap(err, "pipeline: acquire scoring slot")
		}
		g.Go(func() error {
			defer o.slots.Release(1)
			if err := o.scoreLead(workCtx, lead, offer); err != nil {
				log.Warn("pipeline: lead scoring failed",
					zap.String("lead_id", lead.ID),
					zap.String("lead", lead.Name),
					zap.Error(err),
				)
				return nil // one lead never aborts the batch
			}
			return nil
		})
	}
	_ = g.Wait()

	scored, err := o.countScored(workCtx, leadIDs(leads))
	if err != nil {
		return 0, 0, err
	}
	failed := len(leads) - scored

	log.Info("pipeline: batch complete",
		zap.Int("succeeded", scored),
		zap.Int("failed", failed),
	)
	return scored, failed, nil
}

// scoreLead runs both scorers and commits the combined result in one write.
// On any failure the stored lead is left as it was.
func (o *Orchestrator) scoreLead(ctx context.Context, lead *model.Lead, offer model.OfferSnapshot) error {
	ruleScore, ruleReasoning := o.heuristic.Score(lead, offer)

	res, err := o.classifier.Classify(ctx, lead, offer)
	if err != nil {
		if model.KindOf(err) == model.KindInternal {
			return model.Classification(err, "AI classification failed")
		}
		return err
	}

	scored := *lead
	scored.ApplyScoring(model.NewScoring(ruleScore, res.Score, res.Tier, ruleReasoning+" "+res.Explanation))
	if err := o.store.SaveLead(ctx, &scored); err != nil {
		return model.Persistence(err, "failed to save lead score")
	}

	zap.L().Debug("pipeline: lead scored",
		zap.String("lead_id", lead.ID),
		zap.Int("rule_score", ruleScore),
		zap.Int("ai_score", res.Score),
		zap.String("intent", string(res.Tier)),
	)
	return nil
}

// countScored re-reads the scored flag of the given leads in chunks that stay
// under SQL bind parameter limits.
func (o *Orchestrator) countScored(ctx context.Context, ids []string) (int, error) {
	total := 0
	for chunk := range slices.Chunk(ids, countChunk) {
		n, err := o.store.CountLeads(ctx, store.LeadFilter{IDs: chunk, Scored: ptr(true)})
		if err != nil {
			return 0, eris.Wrap(err, "pipeline: count scored leads")
		}
		total += n
	}
	return total, nil
}

func (o *Orchestrator) activeOffer(ctx context.Context) (model.OfferSnapshot, error) {
	offer, err := o.store.LatestOffer(ctx)
	if err != nil {
		return model.OfferSnapshot{}, eris.Wrap(err, "pipeline: load active offer")
	}
	if offer == nil {
		return model.OfferSnapshot{}, model.NoActiveOffer()
	}
	return offer.Snapshot(), nil
}

func leadIDs(leads []model.Lead) []string {
	ids := make([]string, len(leads))
	for i, l := range leads {
		ids[i] = l.ID
	}
	return ids
}

func ptr[T any](v T) *T { return &v }
