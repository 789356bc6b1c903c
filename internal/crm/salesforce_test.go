package crm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-qualifier/internal/model"
	"github.com/sells-group/lead-qualifier/pkg/salesforce"
)

type mockSF struct {
	mock.Mock
}

func (m *mockSF) Query(ctx context.Context, soql string, out any) error {
	args := m.Called(ctx, soql, out)
	return args.Error(0)
}

func (m *mockSF) InsertCollection(ctx context.Context, sObjectName string, records []map[string]any) ([]salesforce.CollectionResult, error) {
	args := m.Called(ctx, sObjectName, records)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]salesforce.CollectionResult), args.Error(1)
}

func (m *mockSF) UpdateCollection(ctx context.Context, sObjectName string, records []salesforce.CollectionRecord) ([]salesforce.CollectionResult, error) {
	args := m.Called(ctx, sObjectName, records)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]salesforce.CollectionResult), args.Error(1)
}

func soqlFor(lastName string) any {
	return mock.MatchedBy(func(soql string) bool {
		return strings.Contains(soql, "LastName = '"+lastName+"'")
	})
}

func TestSalesforceSink_Push(t *testing.T) {
	mc := new(mockSF)
	ctx := context.Background()

	ava := scoredLead("Ava Patel", 50, model.IntentHigh)
	ben := scoredLead("Ben Ortiz", 20, model.IntentMedium)
	cy := scoredLead("Cy Li", 0, model.IntentLow)
	dee := scoredLead("Dee", 0, model.IntentLow)
	dee.Company = ""

	mc.On("Query", ctx, soqlFor("Patel"), mock.Anything).Return(nil).Once()
	mc.On("Query", ctx, soqlFor("Ortiz"), mock.Anything).Run(func(args mock.Arguments) {
		*args.Get(2).(*[]salesforce.Lead) = []salesforce.Lead{{ID: "00Q2"}}
	}).Return(nil).Once()
	mc.On("Query", ctx, soqlFor("Li"), mock.Anything).Return(errors.New("session expired")).Once()
	mc.On("Query", ctx, soqlFor("Dee"), mock.Anything).Return(nil).Once()

	mc.On("InsertCollection", ctx, salesforce.LeadObject, mock.MatchedBy(func(r []map[string]any) bool {
		return len(r) == 2 &&
			r[0]["FirstName"] == "Ava" && r[0]["Rating"] == "Hot" && r[0]["LeadSource"] == LeadSource &&
			r[1]["Company"] == "[not provided]" && r[1]["Rating"] == "Cold"
	})).Return([]salesforce.CollectionResult{
		{ID: "00Q1", Success: true},
		{Success: false, Errors: []string{"duplicate value"}},
	}, nil).Once()
	mc.On("UpdateCollection", ctx, salesforce.LeadObject, mock.MatchedBy(func(r []salesforce.CollectionRecord) bool {
		return len(r) == 1 && r[0].ID == "00Q2" && r[0].Fields["Rating"] == "Warm"
	})).Return([]salesforce.CollectionResult{{ID: "00Q2", Success: true}}, nil).Once()

	res, err := NewSalesforceSink(mc).Push(ctx, []model.Lead{ava, ben, cy, dee})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 2, res.Failed)
	assert.Contains(t, res.Errors[0], "Cy Li")
	assert.Equal(t, "Dee: duplicate value", res.Errors[1])
	mc.AssertExpectations(t)
}

func TestSalesforceSink_InsertError(t *testing.T) {
	mc := new(mockSF)
	ctx := context.Background()

	mc.On("Query", ctx, mock.Anything, mock.Anything).Return(nil)
	mc.On("InsertCollection", ctx, salesforce.LeadObject, mock.Anything).
		Return(nil, errors.New("unavailable")).Once()

	_, err := NewSalesforceSink(mc).Push(ctx, []model.Lead{scoredLead("Ava Patel", 50, model.IntentHigh)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sf: insert leads batch 0-1")
	mc.AssertNotCalled(t, "UpdateCollection", mock.Anything, mock.Anything, mock.Anything)
}

func TestLeadFields(t *testing.T) {
	t.Parallel()

	lead := scoredLead("Mary Ann Smith", 40, model.IntentHigh)
	lead.Location = "Austin"
	fields := leadFields(&lead)

	assert.Equal(t, "Mary Ann", fields["FirstName"])
	assert.Equal(t, "Smith", fields["LastName"])
	assert.Equal(t, "Acme", fields["Company"])
	assert.Equal(t, "VP Sales", fields["Title"])
	assert.Equal(t, "SaaS", fields["Industry"])
	assert.Equal(t, "Austin", fields["City"])
	assert.Equal(t, "Hot", fields["Rating"])
	assert.Equal(t, "Qualification score 90/100. because", fields["Description"])
}

func TestSplitName(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, first, last string }{
		{"Ava Patel", "Ava", "Patel"},
		{"  Cher ", "", "Cher"},
		{"Jean Luc Picard", "Jean Luc", "Picard"},
		{"", "", ""},
	}
	for _, tt := range tests {
		first, last := splitName(tt.in)
		assert.Equal(t, tt.first, first, tt.in)
		assert.Equal(t, tt.last, last, tt.in)
	}
}

func TestRating(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Hot", rating(model.IntentHigh))
	assert.Equal(t, "Warm", rating(model.IntentMedium))
	assert.Equal(t, "Cold", rating(model.IntentLow))
	assert.Equal(t, "Cold", rating(""))
}
