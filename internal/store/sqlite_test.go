package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-qualifier/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedLeads(t *testing.T, st Store, names ...string) []model.Lead {
	t.Helper()
	leads := make([]model.Lead, len(names))
	for i, n := range names {
		leads[i] = model.Lead{Name: n, Role: "CEO", Industry: "Software"}
	}
	created, err := st.CreateLeads(context.Background(), leads)
	require.NoError(t, err)
	require.Len(t, created, len(names))
	return created
}

func score(t *testing.T, st Store, l model.Lead, rule int, tier model.IntentTier) {
	t.Helper()
	l.ApplyScoring(model.NewScoring(rule, tier.Anchor(), tier, "because"))
	require.NoError(t, st.SaveLead(context.Background(), &l))
}

// --- Leads ---

func TestSQLite_CreateAndGetLead(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateLeads(ctx, []model.Lead{{
		Name: "Ava Patel", Role: "Head of Growth", Company: "FlowMetrics",
		Industry: "B2B SaaS", Location: "Austin", LinkedInBio: "Scaling outbound",
	}})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.NotEmpty(t, created[0].ID)
	assert.False(t, created[0].IsScored)

	got, err := st.GetLead(ctx, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Ava Patel", got.Name)
	assert.Equal(t, "FlowMetrics", got.Company)
	assert.Equal(t, "Scaling outbound", got.LinkedInBio)
	assert.False(t, got.IsScored)
	assert.Nil(t, got.Scoring)
	assert.True(t, got.Consistent())
}

func TestSQLite_CreateLeads_RejectsBlankName(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.CreateLeads(ctx, []model.Lead{{Name: "Ok"}, {Name: ""}})
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindValidation))

	n, err := st.CountLeads(ctx, LeadFilter{})
	require.NoError(t, err)
	assert.Zero(t, n, "batch must not be partially applied")
}

func TestSQLite_GetLead_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetLead(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindNotFound))
	assert.Contains(t, err.Error(), "Lead not found with ID: missing")
}

func TestSQLite_SaveLead_ScoringRoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	l := seedLeads(t, st, "Ann")[0]

	l.ApplyScoring(model.NewScoring(50, 50, model.IntentHigh, "Rule-based. AI: strong fit"))
	require.NoError(t, st.SaveLead(ctx, &l))

	got, err := st.GetLead(ctx, l.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Scoring)
	assert.True(t, got.IsScored)
	assert.Equal(t, 50, got.RuleScore)
	assert.Equal(t, 50, got.AIScore)
	assert.Equal(t, 100, got.TotalScore)
	assert.Equal(t, model.IntentHigh, got.Intent)
	assert.Equal(t, "Rule-based. AI: strong fit", got.Reasoning)
	assert.True(t, got.Consistent())
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func TestSQLite_SaveLead_RejectsPartialScoring(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	l := seedLeads(t, st, "Ann")[0]

	l.IsScored = true
	err := st.SaveLead(ctx, &l)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindValidation))

	got, err := st.GetLead(ctx, l.ID)
	require.NoError(t, err)
	assert.False(t, got.IsScored)
}

func TestSQLite_ListAndCountByFilter(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	leads := seedLeads(t, st, "A", "B", "C", "D")

	score(t, st, leads[0], 10, model.IntentHigh)   // 60
	score(t, st, leads[1], 40, model.IntentMedium) // 70
	score(t, st, leads[2], 0, model.IntentLow)     // 10

	all, err := st.ListLeads(ctx, LeadFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i, name := range []string{"A", "B", "C", "D"} {
		assert.Equal(t, name, all[i].Name)
	}

	unscored, err := st.ListLeads(ctx, Scored(false))
	require.NoError(t, err)
	require.Len(t, unscored, 1)
	assert.Equal(t, "D", unscored[0].Name)

	ranked := Scored(true)
	ranked.OrderByScore = true
	results, err := st.ListLeads(ctx, ranked)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []string{"B", "A", "C"}, []string{results[0].Name, results[1].Name, results[2].Name})

	high, err := st.ListLeads(ctx, ByTier(model.IntentHigh))
	require.NoError(t, err)
	require.Len(t, high, 1)
	assert.Equal(t, "A", high[0].Name)

	ranged, err := st.ListLeads(ctx, LeadFilter{MinScore: intPtr(50), MaxScore: intPtr(65)})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, "A", ranged[0].Name)

	page, err := st.ListLeads(ctx, LeadFilter{Offset: 1})
	require.NoError(t, err)
	assert.Len(t, page, 3)

	page, err = st.ListLeads(ctx, LeadFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, page, 2)

	counts := map[string]LeadFilter{
		"all":    {},
		"scored": Scored(true),
		"medium": ByTier(model.IntentMedium),
	}
	want := map[string]int{"all": 4, "scored": 3, "medium": 1}
	for name, f := range counts {
		n, err := st.CountLeads(ctx, f)
		require.NoError(t, err)
		assert.Equal(t, want[name], n, name)
	}
}

func TestSQLite_ClearScoring(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	leads := seedLeads(t, st, "A", "B", "C")

	score(t, st, leads[0], 20, model.IntentHigh)
	score(t, st, leads[1], 20, model.IntentLow)
	score(t, st, leads[2], 20, model.IntentHigh)

	n, err := st.ClearScoring(ctx, ByTier(model.IntentHigh))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := st.GetLead(ctx, leads[0].ID)
	require.NoError(t, err)
	assert.False(t, got.IsScored)
	assert.Nil(t, got.Scoring)

	untouched, err := st.GetLead(ctx, leads[1].ID)
	require.NoError(t, err)
	assert.True(t, untouched.IsScored)
	assert.Equal(t, model.IntentLow, untouched.Intent)

	n, err = st.ClearScoring(ctx, LeadFilter{IDs: []string{leads[1].ID}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	scored, err := st.CountLeads(ctx, Scored(true))
	require.NoError(t, err)
	assert.Zero(t, scored)
}

func TestSQLite_DeleteLeads(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	leads := seedLeads(t, st, "A", "B", "C")
	score(t, st, leads[0], 10, model.IntentLow)

	n, err := st.DeleteLeads(ctx, Scored(false))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = st.DeleteLeads(ctx, LeadFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	total, err := st.CountLeads(ctx, LeadFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

// --- Offers ---

func testOfferInput(name string) model.OfferInput {
	return model.OfferInput{
		Name:          name,
		ValueProps:    []string{"24/7 outreach", "6x more meetings"},
		IdealUseCases: []string{"B2B SaaS mid-market"},
	}
}

func TestSQLite_OfferCRUD(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateOffer(ctx, testOfferInput("AI Outreach Automation"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	got, err := st.GetOffer(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "AI Outreach Automation", got.Name)
	assert.Equal(t, []string{"24/7 outreach", "6x more meetings"}, got.ValueProps)
	assert.Equal(t, []string{"B2B SaaS mid-market"}, got.IdealUseCases)

	in := testOfferInput("Renamed")
	in.IdealUseCases = []string{"Fintech", "Healthcare staffing"}
	updated, err := st.UpdateOffer(ctx, created.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, []string{"Fintech", "Healthcare staffing"}, updated.IdealUseCases)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

	offers, err := st.ListOffers(ctx)
	require.NoError(t, err)
	assert.Len(t, offers, 1)

	require.NoError(t, st.DeleteOffer(ctx, created.ID))
	_, err = st.GetOffer(ctx, created.ID)
	assert.True(t, model.IsKind(err, model.KindNotFound))
}

func TestSQLite_OfferNotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.UpdateOffer(ctx, "nope", testOfferInput("x"))
	assert.True(t, model.IsKind(err, model.KindNotFound))

	err = st.DeleteOffer(ctx, "nope")
	assert.True(t, model.IsKind(err, model.KindNotFound))
	assert.Contains(t, err.Error(), "Offer not found with ID: nope")
}

func TestSQLite_LatestOffer(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	latest, err := st.LatestOffer(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	first, err := st.CreateOffer(ctx, testOfferInput("First"))
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = st.CreateOffer(ctx, testOfferInput("Second"))
	require.NoError(t, err)

	latest, err = st.LatestOffer(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Second", latest.Name)

	// Updating an older offer makes it the active one.
	time.Sleep(5 * time.Millisecond)
	_, err = st.UpdateOffer(ctx, first.ID, testOfferInput("First v2"))
	require.NoError(t, err)

	latest, err = st.LatestOffer(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, latest.ID)
	assert.Equal(t, "First v2", latest.Name)
}

func TestSQLite_Ping(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Ping(context.Background()))
}
