// Package classifier assigns a buying-intent tier to a lead for an offer.
package classifier

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-qualifier/internal/config"
	"github.com/sells-group/lead-qualifier/internal/model"
	"github.com/sells-group/lead-qualifier/pkg/anthropic"
)

// Result is one classification outcome.
type Result struct {
	Tier        model.IntentTier
	Score       int
	Explanation string
}

// Classifier is the external scoring capability. Implementations are safe for
// concurrent use and return model.KindClassification errors on failure.
type Classifier interface {
	Classify(ctx context.Context, lead *model.Lead, offer model.OfferSnapshot) (Result, error)
}

// New builds the classifier selected by cfg.Classifier.Provider.
func New(cfg *config.Config) (Classifier, error) {
	switch cfg.Classifier.Provider {
	case "", "offline":
		return NewOffline(), nil
	case "anthropic":
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("classifier: anthropic.key is required")
		}
		return NewAnthropic(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic, cfg.Classifier), nil
	default:
		return nil, eris.Errorf("classifier: unknown provider %q", cfg.Classifier.Provider)
	}
}
