package classifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-qualifier/internal/config"
	"github.com/sells-group/lead-qualifier/internal/model"
	"github.com/sells-group/lead-qualifier/internal/resilience"
	"github.com/sells-group/lead-qualifier/pkg/anthropic"
)

// MockClient implements anthropic.Client for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func reply(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		ID:      "msg_test",
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 200, OutputTokens: 40},
	}
}

func testOffer() model.OfferSnapshot {
	return model.OfferSnapshot{
		Name:          "AI Outreach Automation",
		ValueProps:    []string{"24/7 outreach", "6x more meetings"},
		IdealUseCases: []string{"B2B SaaS mid-market"},
	}
}

func testLead() *model.Lead {
	return &model.Lead{ID: "lead-1", Name: "Ava Patel", Role: "Head of Growth", Company: "FlowMetrics", Industry: "SaaS"}
}

func testConfigs() (config.AnthropicConfig, config.ClassifierConfig) {
	return config.AnthropicConfig{
			Key: "sk-test", Model: "claude-haiku-4-5-20251001", MaxTokens: 150, Temperature: 0.3,
		}, config.ClassifierConfig{
			Provider:    "anthropic",
			TimeoutSecs: 5,
			Retry:       config.RetryConfig{MaxAttempts: 3, InitialBackoffMs: 1, MaxBackoffMs: 2, Multiplier: 1},
			Circuit:     config.CircuitConfig{FailureThreshold: 10, ResetTimeoutSecs: 60},
		}
}

func newTestAnthropic(client anthropic.Client) *Anthropic {
	acfg, ccfg := testConfigs()
	return NewAnthropic(client, acfg, ccfg)
}

// --- prompt & parsing ---

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	p := BuildPrompt(testLead(), testOffer())
	assert.Contains(t, p, "Name: AI Outreach Automation")
	assert.Contains(t, p, "Value Propositions: 24/7 outreach, 6x more meetings")
	assert.Contains(t, p, "Ideal Use Cases: B2B SaaS mid-market")
	assert.Contains(t, p, "Role: Head of Growth")
	assert.Contains(t, p, "Location: Not specified")
	assert.Contains(t, p, "LinkedIn Bio: Not specified")
	assert.Contains(t, p, "Intent: [High/Medium/Low]")
}

func TestParseReply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		reply     string
		tier      model.IntentTier
		score     int
		reasoning string
	}{
		{"plain", "Intent: High\nReasoning: Growth lead at a SaaS company.", model.IntentHigh, 50, "Growth lead at a SaaS company."},
		{"case and brackets", "intent: [medium]\nreasoning: some fit", model.IntentMedium, 30, "some fit"},
		{"markdown", "**Intent:** Low\n**Reasoning:** no fit", model.IntentLow, 10, "no fit"},
		{"score in band", "Intent: High\nScore: 44\nReasoning: ok", model.IntentHigh, 44, "ok"},
		{"score out of band", "Intent: Medium\nScore: 48\nReasoning: ok", model.IntentMedium, 30, "ok"},
		{"unknown tier value", "Intent: Maybe\nReasoning: unsure", model.IntentLow, 10, "unsure"},
		{"short without reasoning", "Intent: Low", model.IntentLow, 10, "AI analysis completed"},
		{
			"long without reasoning",
			"Intent: High\nThe prospect leads growth at a B2B SaaS company and owns outbound.",
			model.IntentHigh, 50, "Intent: High",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := ParseReply(tt.reply)
			require.NoError(t, err)
			assert.Equal(t, tt.tier, res.Tier)
			assert.Equal(t, tt.score, res.Score)
			assert.Equal(t, tt.reasoning, res.Explanation)
		})
	}
}

func TestParseReply_NoIntent(t *testing.T) {
	t.Parallel()

	_, err := ParseReply("I think this lead is promising.")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no intent line")
}

// --- Anthropic adapter ---

func TestAnthropic_Classify(t *testing.T) {
	client := new(MockClient)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "claude-haiku-4-5-20251001" &&
			req.MaxTokens == 150 &&
			req.Temperature != nil && *req.Temperature == 0.3 &&
			len(req.Messages) == 1 && req.System != ""
	})).Return(reply("Intent: High\nReasoning: Decision maker in SaaS."), nil).Once()

	res, err := newTestAnthropic(client).Classify(context.Background(), testLead(), testOffer())
	require.NoError(t, err)
	assert.Equal(t, model.IntentHigh, res.Tier)
	assert.Equal(t, 50, res.Score)
	assert.Equal(t, "Decision maker in SaaS.", res.Explanation)
	client.AssertExpectations(t)
}

func TestAnthropic_RetriesTransient(t *testing.T) {
	client := new(MockClient)
	overloaded := &anthropic.APIError{StatusCode: 529, Err: errors.New("overloaded")}
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, overloaded).Twice()
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(reply("Intent: Medium\nReasoning: ok"), nil).Once()

	res, err := newTestAnthropic(client).Classify(context.Background(), testLead(), testOffer())
	require.NoError(t, err)
	assert.Equal(t, model.IntentMedium, res.Tier)
	client.AssertNumberOfCalls(t, "CreateMessage", 3)
}

func TestAnthropic_PermanentErrorNotRetried(t *testing.T) {
	client := new(MockClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, &anthropic.APIError{StatusCode: 400, Err: errors.New("bad request")})

	_, err := newTestAnthropic(client).Classify(context.Background(), testLead(), testOffer())
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindClassification))
	client.AssertNumberOfCalls(t, "CreateMessage", 1)
}

func TestAnthropic_UnparseableReply(t *testing.T) {
	client := new(MockClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(reply("no idea"), nil)

	_, err := newTestAnthropic(client).Classify(context.Background(), testLead(), testOffer())
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindClassification))
}

func TestAnthropic_TimeoutIsRetried(t *testing.T) {
	client := new(MockClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, errors.New("context deadline exceeded")).Times(3)

	a := newTestAnthropic(client)
	a.timeout = 10 * time.Millisecond

	_, err := a.Classify(context.Background(), testLead(), testOffer())
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindClassification))
	assert.Contains(t, err.Error(), "timed out")
	client.AssertNumberOfCalls(t, "CreateMessage", 3)
}

func TestAnthropic_BreakerOpens(t *testing.T) {
	client := new(MockClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, &anthropic.APIError{StatusCode: 401, Err: errors.New("unauthorized")})

	acfg, ccfg := testConfigs()
	ccfg.Retry.MaxAttempts = 1
	ccfg.Circuit.FailureThreshold = 2
	a := NewAnthropic(client, acfg, ccfg)

	for i := 0; i < 2; i++ {
		_, err := a.Classify(context.Background(), testLead(), testOffer())
		require.Error(t, err)
	}
	_, err := a.Classify(context.Background(), testLead(), testOffer())
	require.Error(t, err)
	assert.ErrorIs(t, err, resilience.ErrOpen)
	client.AssertNumberOfCalls(t, "CreateMessage", 2)
}

// --- factory ---

func TestNew(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	c, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &Offline{}, c)

	cfg.Classifier.Provider = "anthropic"
	_, err = New(cfg)
	assert.ErrorContains(t, err, "anthropic.key is required")

	cfg.Anthropic.Key = "sk-test"
	c, err = New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &Anthropic{}, c)

	cfg.Classifier.Provider = "gpt"
	_, err = New(cfg)
	assert.ErrorContains(t, err, "unknown provider")
}
