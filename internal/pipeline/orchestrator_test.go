package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-qualifier/internal/classifier"
	"github.com/sells-group/lead-qualifier/internal/model"
	"github.com/sells-group/lead-qualifier/internal/scorer"
	"github.com/sells-group/lead-qualifier/internal/store"
)

// stubClassifier returns a fixed tier per lead name and records concurrency.
type stubClassifier struct {
	mu       sync.Mutex
	tier     model.IntentTier
	fail     map[string]bool
	delay    time.Duration
	onCall   func()
	calls    int
	inFlight int
	maxSeen  int
	offers   []model.OfferSnapshot
}

func (c *stubClassifier) Classify(_ context.Context, lead *model.Lead, offer model.OfferSnapshot) (classifier.Result, error) {
	c.mu.Lock()
	c.calls++
	c.inFlight++
	c.maxSeen = max(c.maxSeen, c.inFlight)
	c.offers = append(c.offers, offer)
	onCall := c.onCall
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inFlight--
		c.mu.Unlock()
	}()

	if onCall != nil {
		onCall()
	}
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if c.fail[lead.Name] {
		return classifier.Result{}, errors.New("upstream unavailable")
	}
	tier := c.tier
	if tier == "" {
		tier = model.IntentHigh
	}
	return classifier.Result{Tier: tier, Score: tier.Anchor(), Explanation: "AI says " + string(tier)}, nil
}

// flakyStore fails SaveLead for selected lead names.
type flakyStore struct {
	store.Store
	failSave map[string]bool
}

func (s *flakyStore) SaveLead(ctx context.Context, l *model.Lead) error {
	if s.failSave[l.Name] {
		return errors.New("disk full")
	}
	return s.Store.SaveLead(ctx, l)
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "leads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedOffer(t *testing.T, st store.Store) *model.Offer {
	t.Helper()
	offer, err := st.CreateOffer(context.Background(), model.OfferInput{
		Name:          "AI Outreach Automation",
		ValueProps:    []string{"24/7 outreach", "6x more meetings"},
		IdealUseCases: []string{"B2B SaaS mid-market"},
	})
	require.NoError(t, err)
	return offer
}

func seed(t *testing.T, st store.Store, leads ...model.Lead) []model.Lead {
	t.Helper()
	created, err := st.CreateLeads(context.Background(), leads)
	require.NoError(t, err)
	return created
}

func named(names ...string) []model.Lead {
	out := make([]model.Lead, len(names))
	for i, n := range names {
		out[i] = model.Lead{Name: n, Role: "Engineer", Industry: "Mining"}
	}
	return out
}

func newOrchestrator(st store.Store, c classifier.Classifier, pool int) *Orchestrator {
	return New(st, scorer.NewHeuristic(scorer.DefaultWeights()), c, pool)
}

func TestScoreAllUnscored_NoOffer(t *testing.T) {
	st := newTestStore(t)
	seed(t, st, named("A", "B")...)
	c := &stubClassifier{}

	_, err := newOrchestrator(st, c, 5).ScoreAllUnscored(context.Background())
	require.Error(t, err)
	assert.Equal(t, model.KindConfiguration, model.KindOf(err))
	assert.Zero(t, c.calls)

	n, err := st.CountLeads(context.Background(), store.Scored(true))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestScoreAllUnscored_Empty(t *testing.T) {
	st := newTestStore(t)
	seedOffer(t, st)

	report, err := newOrchestrator(st, &stubClassifier{}, 5).ScoreAllUnscored(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "No unscored leads found", report.Message)
	assert.Zero(t, report.TotalLeads)
	assert.Zero(t, report.SuccessfulScores)
	assert.Zero(t, report.FailedScores)
	assert.False(t, report.ScoredAt.IsZero())
}

func TestScoreAllUnscored_CombinesScores(t *testing.T) {
	st := newTestStore(t)
	seedOffer(t, st)
	created := seed(t, st, model.Lead{
		Name: "John Doe", Role: "CEO", Company: "TechCorp", Industry: "Software",
		Location: "San Francisco", LinkedInBio: "Experienced CEO leading a software company",
	})

	report, err := newOrchestrator(st, &stubClassifier{tier: model.IntentHigh}, 5).ScoreAllUnscored(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Scoring completed. 1 leads scored successfully, 0 failed.", report.Message)
	assert.Equal(t, 1, report.TotalLeads)
	assert.Equal(t, 1, report.SuccessfulScores)

	got, err := st.GetLead(context.Background(), created[0].ID)
	require.NoError(t, err)
	require.True(t, got.IsScored)
	require.NotNil(t, got.Scoring)
	assert.Equal(t, 50, got.RuleScore)
	assert.Equal(t, 50, got.AIScore)
	assert.Equal(t, 100, got.TotalScore)
	assert.Equal(t, model.IntentHigh, got.Intent)
	assert.True(t, strings.HasPrefix(got.Reasoning, "Rule-based scoring breakdown:"))
	assert.True(t, strings.HasSuffix(got.Reasoning, "Total rule score: 50/50. AI says HIGH"))
}

func TestScoreAllUnscored_IsolatesFailures(t *testing.T) {
	base := newTestStore(t)
	seedOffer(t, base)
	created := seed(t, base, named("Good", "Flaky", "Unsaved", "Fine")...)

	st := &flakyStore{Store: base, failSave: map[string]bool{"Unsaved": true}}
	c := &stubClassifier{tier: model.IntentMedium, fail: map[string]bool{"Flaky": true}}

	report, err := newOrchestrator(st, c, 2).ScoreAllUnscored(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, report.TotalLeads)
	assert.Equal(t, 2, report.SuccessfulScores)
	assert.Equal(t, 2, report.FailedScores)
	assert.Equal(t, "Scoring completed. 2 leads scored successfully, 2 failed.", report.Message)

	for _, l := range created {
		got, err := base.GetLead(context.Background(), l.ID)
		require.NoError(t, err)
		assert.True(t, got.Consistent(), l.Name)
		switch l.Name {
		case "Flaky", "Unsaved":
			assert.False(t, got.IsScored, l.Name)
			assert.Nil(t, got.Scoring, l.Name)
		default:
			assert.True(t, got.IsScored, l.Name)
			assert.Equal(t, model.IntentMedium, got.Intent, l.Name)
		}
	}

	// A second pass only picks up the leads that failed.
	c.fail = nil
	st.failSave = nil
	report, err = newOrchestrator(st, c, 2).ScoreAllUnscored(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalLeads)
	assert.Equal(t, 2, report.SuccessfulScores)
}

func TestScoreAllUnscored_BoundedPool(t *testing.T) {
	st := newTestStore(t)
	seedOffer(t, st)
	seed(t, st, named("a", "b", "c", "d", "e", "f", "g", "h", "i", "j")...)

	c := &stubClassifier{delay: 20 * time.Millisecond}
	o := newOrchestrator(st, c, 3)
	assert.Equal(t, 3, o.PoolSize())

	report, err := o.ScoreAllUnscored(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, report.SuccessfulScores)
	assert.Equal(t, 10, c.calls)
	assert.LessOrEqual(t, c.maxSeen, 3)
}

func TestScoreAllUnscored_SnapshotsOfferOnce(t *testing.T) {
	st := newTestStore(t)
	offer := seedOffer(t, st)
	seed(t, st, named("a", "b", "c")...)

	c := &stubClassifier{}
	_, err := newOrchestrator(st, c, 2).ScoreAllUnscored(context.Background())
	require.NoError(t, err)

	require.Len(t, c.offers, 3)
	for _, seen := range c.offers {
		assert.Equal(t, offer.ID, seen.ID)
		assert.Equal(t, offer.ValueProps, seen.ValueProps)
	}
}

func TestScoreAllUnscored_CallerCancelDoesNotAbortBatch(t *testing.T) {
	st := newTestStore(t)
	seedOffer(t, st)
	seed(t, st, named("a", "b", "c", "d")...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := &stubClassifier{onCall: cancel}

	report, err := newOrchestrator(st, c, 1).ScoreAllUnscored(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, report.SuccessfulScores)
	assert.Zero(t, report.FailedScores)
}

func TestScoreOne(t *testing.T) {
	st := newTestStore(t)
	seedOffer(t, st)
	created := seed(t, st, named("Solo", "Broken")...)
	c := &stubClassifier{tier: model.IntentLow, fail: map[string]bool{"Broken": true}}
	o := newOrchestrator(st, c, 5)

	report, err := o.ScoreOne(context.Background(), created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Lead scored successfully", report.Message)
	assert.Equal(t, 1, report.TotalLeads)
	assert.Equal(t, 1, report.SuccessfulScores)
	assert.Zero(t, report.FailedScores)

	got, err := st.GetLead(context.Background(), created[0].ID)
	require.NoError(t, err)
	assert.True(t, got.IsScored)
	assert.Equal(t, model.IntentLow, got.Intent)
	assert.Equal(t, 10, got.AIScore)

	report, err = o.ScoreOne(context.Background(), created[1].ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(report.Message, "Failed to score lead: "))
	assert.Equal(t, 1, report.TotalLeads)
	assert.Zero(t, report.SuccessfulScores)
	assert.Equal(t, 1, report.FailedScores)
}

func TestScoreOne_NotFoundBeforeOffer(t *testing.T) {
	st := newTestStore(t)

	_, err := newOrchestrator(st, &stubClassifier{}, 5).ScoreOne(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, model.KindNotFound, model.KindOf(err))

	created := seed(t, st, named("NoOffer")...)
	_, err = newOrchestrator(st, &stubClassifier{}, 5).ScoreOne(context.Background(), created[0].ID)
	require.Error(t, err)
	assert.Equal(t, model.KindConfiguration, model.KindOf(err))
}

func TestRescoreAll(t *testing.T) {
	st := newTestStore(t)
	seedOffer(t, st)
	seed(t, st, named("a", "b", "c")...)
	c := &stubClassifier{tier: model.IntentLow}
	o := newOrchestrator(st, c, 5)

	_, err := o.ScoreAllUnscored(context.Background())
	require.NoError(t, err)

	c.tier = model.IntentHigh
	report, err := o.RescoreAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.TotalLeads)
	assert.Equal(t, 3, report.SuccessfulScores)

	n, err := st.CountLeads(context.Background(), store.ByTier(model.IntentHigh))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRescoreAll_NoOfferLeavesScoresAlone(t *testing.T) {
	st := newTestStore(t)
	created := seed(t, st, named("a")...)
	l := created[0]
	l.ApplyScoring(model.NewScoring(10, 30, model.IntentMedium, "x"))
	require.NoError(t, st.SaveLead(context.Background(), &l))

	_, err := newOrchestrator(st, &stubClassifier{}, 5).RescoreAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, model.KindConfiguration, model.KindOf(err))

	got, err := st.GetLead(context.Background(), l.ID)
	require.NoError(t, err)
	assert.True(t, got.IsScored)
}

func TestRescoreByTier_TouchesOnlyThatTier(t *testing.T) {
	st := newTestStore(t)
	seedOffer(t, st)
	created := seed(t, st, named("high-1", "high-2", "low-1", "unscored")...)

	for _, l := range created[:3] {
		tier := model.IntentHigh
		if l.Name == "low-1" {
			tier = model.IntentLow
		}
		l.ApplyScoring(model.NewScoring(0, tier.Anchor(), tier, "seeded"))
		require.NoError(t, st.SaveLead(context.Background(), &l))
	}
	low, err := st.GetLead(context.Background(), created[2].ID)
	require.NoError(t, err)

	c := &stubClassifier{tier: model.IntentMedium}
	report, err := newOrchestrator(st, c, 5).RescoreByTier(context.Background(), model.IntentHigh)
	require.NoError(t, err)
	assert.Equal(t, "Rescoring completed. 2 leads rescored successfully, 0 failed.", report.Message)
	assert.Equal(t, 2, report.TotalLeads)
	assert.Equal(t, 2, c.calls)

	for _, l := range created[:2] {
		got, err := st.GetLead(context.Background(), l.ID)
		require.NoError(t, err)
		assert.Equal(t, model.IntentMedium, got.Intent)
	}

	gotLow, err := st.GetLead(context.Background(), low.ID)
	require.NoError(t, err)
	assert.Equal(t, low.Scoring, gotLow.Scoring)
	assert.True(t, low.UpdatedAt.Equal(gotLow.UpdatedAt))

	unscored, err := st.GetLead(context.Background(), created[3].ID)
	require.NoError(t, err)
	assert.False(t, unscored.IsScored)
}

func TestRescoreByTier_FailedLeadsEndUnscored(t *testing.T) {
	st := newTestStore(t)
	seedOffer(t, st)
	created := seed(t, st, named("ok", "bad")...)
	for _, l := range created {
		l.ApplyScoring(model.NewScoring(0, 10, model.IntentLow, "seeded"))
		require.NoError(t, st.SaveLead(context.Background(), &l))
	}

	c := &stubClassifier{fail: map[string]bool{"bad": true}}
	report, err := newOrchestrator(st, c, 5).RescoreByTier(context.Background(), model.IntentLow)
	require.NoError(t, err)
	assert.Equal(t, "Rescoring completed. 1 leads rescored successfully, 1 failed.", report.Message)

	bad, err := st.GetLead(context.Background(), created[1].ID)
	require.NoError(t, err)
	assert.False(t, bad.IsScored)
	assert.Nil(t, bad.Scoring)
}

func TestRescoreByTier_Errors(t *testing.T) {
	st := newTestStore(t)
	o := newOrchestrator(st, &stubClassifier{}, 5)

	_, err := o.RescoreByTier(context.Background(), model.IntentTier("URGENT"))
	require.Error(t, err)
	assert.Equal(t, model.KindValidation, model.KindOf(err))

	_, err = o.RescoreByTier(context.Background(), model.IntentHigh)
	require.Error(t, err)
	assert.Equal(t, model.KindConfiguration, model.KindOf(err))
}

func TestRescoreByTier_Empty(t *testing.T) {
	st := newTestStore(t)
	seedOffer(t, st)

	report, err := newOrchestrator(st, &stubClassifier{}, 5).RescoreByTier(context.Background(), model.IntentMedium)
	require.NoError(t, err)
	assert.Equal(t, "Rescoring completed. 0 leads rescored successfully, 0 failed.", report.Message)
	assert.Zero(t, report.TotalLeads)
}

func TestNew_DefaultPoolSize(t *testing.T) {
	o := New(nil, nil, nil, 0)
	assert.Equal(t, DefaultPoolSize, o.PoolSize())
}
