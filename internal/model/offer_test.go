package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfferInput_Validate(t *testing.T) {
	t.Parallel()

	valid := OfferInput{
		Name:          "AI Outreach Automation",
		ValueProps:    []string{"24/7 outreach", "6x more meetings"},
		IdealUseCases: []string{"B2B SaaS mid-market"},
	}
	require.NoError(t, valid.Validate())

	missing := OfferInput{Name: "", ValueProps: []string{}, IdealUseCases: nil}
	err := missing.Validate()
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))

	details := DetailsOf(err)
	assert.Len(t, details, 3)
	assert.Contains(t, details[0], "name")
}

func TestOfferInput_NormalizeDropsBlanks(t *testing.T) {
	t.Parallel()

	in := OfferInput{
		Name:          "  Outreach ",
		ValueProps:    []string{" fast ", "", "  "},
		IdealUseCases: []string{"   "},
	}.Normalize()

	assert.Equal(t, "Outreach", in.Name)
	assert.Equal(t, []string{"fast"}, in.ValueProps)
	assert.Empty(t, in.IdealUseCases)
	assert.Error(t, in.Validate())
}

func TestOffer_SnapshotIsIndependent(t *testing.T) {
	t.Parallel()

	offer := &Offer{ID: "o-1", Name: "Outreach", ValueProps: []string{"a"}, IdealUseCases: []string{"b"}}
	snap := offer.Snapshot()

	offer.ValueProps[0] = "changed"
	offer.IdealUseCases = append(offer.IdealUseCases, "c")

	assert.Equal(t, []string{"a"}, snap.ValueProps)
	assert.Equal(t, []string{"b"}, snap.IdealUseCases)
}

func TestProgress(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, Progress(0, 0))
	assert.Equal(t, 33.3, Progress(1, 3))
	assert.Equal(t, 100.0, Progress(4, 4))
}
