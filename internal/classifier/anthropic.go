package classifier

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/lead-qualifier/internal/config"
	"github.com/sells-group/lead-qualifier/internal/model"
	"github.com/sells-group/lead-qualifier/internal/resilience"
	"github.com/sells-group/lead-qualifier/pkg/anthropic"
)

// Anthropic classifies leads with the Claude Messages API. Each call is rate
// limited, bounded by a timeout, retried on transient failures and guarded by
// a circuit breaker shared across all calls.
type Anthropic struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
	timeout     time.Duration

	policy  resilience.Policy
	breaker *resilience.Breaker
	limiter *rate.Limiter
}

// NewAnthropic wires an API client with the configured call budget.
func NewAnthropic(client anthropic.Client, acfg config.AnthropicConfig, ccfg config.ClassifierConfig) *Anthropic {
	timeout := time.Duration(ccfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limit, burst := rate.Inf, 1
	if ccfg.RatePerSec > 0 {
		limit, burst = rate.Limit(ccfg.RatePerSec), max(int(ccfg.RatePerSec), 1)
	}

	policy := resilience.PolicyFromConfig(ccfg.Retry)
	policy.OnRetry = resilience.LogRetries("anthropic", "classify")

	return &Anthropic{
		client:      client,
		model:       acfg.Model,
		maxTokens:   acfg.MaxTokens,
		temperature: acfg.Temperature,
		timeout:     timeout,
		policy:      policy,
		breaker:     resilience.BreakerFromConfig("anthropic", ccfg.Circuit),
		limiter:     rate.NewLimiter(limit, burst),
	}
}

// Classify implements Classifier.
func (a *Anthropic) Classify(ctx context.Context, lead *model.Lead, offer model.OfferSnapshot) (Result, error) {
	req := anthropic.MessageRequest{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		System:      systemPrompt,
		Messages:    []anthropic.Message{{Role: "user", Content: BuildPrompt(lead, offer)}},
		Temperature: &a.temperature,
	}

	resp, err := resilience.Retry(ctx, a.policy, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return resilience.Guard(ctx, a.breaker, func(ctx context.Context) (*anthropic.MessageResponse, error) {
			return a.call(ctx, req)
		})
	})
	if err != nil {
		return Result{}, model.Classification(err, "AI classification failed")
	}
	resp.Usage.LogCost(a.model, "classify")

	res, err := ParseReply(resp.Text())
	if err != nil {
		return Result{}, model.Classification(err, "AI response could not be parsed")
	}

	zap.L().Debug("lead classified",
		zap.String("lead_id", lead.ID),
		zap.String("intent", string(res.Tier)),
		zap.Int("ai_score", res.Score),
	)
	return res, nil
}

func (a *Anthropic) call(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "classifier: rate limit")
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.CreateMessage(callCtx, req)
	if err == nil {
		return resp, nil
	}

	var apiErr *anthropic.APIError
	switch {
	case errors.As(err, &apiErr) && resilience.TransientStatus(apiErr.StatusCode):
		return nil, resilience.Transient(err, apiErr.StatusCode)
	case callCtx.Err() != nil && ctx.Err() == nil:
		// Our own per-call deadline fired; the caller is still waiting.
		return nil, resilience.Transient(eris.Wrapf(err, "classifier: timed out after %s", a.timeout), 0)
	}
	return nil, err
}
