package recommender

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/smartscheduler/backend/internal/domain/providers"
	"github.com/smartscheduler/backend/internal/infrastructure/clients/gemini"
	"github.com/smartscheduler/backend/internal/infrastructure/clients/openai"
	"github.com/smartscheduler/backend/pkg/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds the configured recommender. The returned closer releases the model client.
func New(ctx context.Context, cfg *config.Config) (providers.Recommender, io.Closer, error) {
	switch strings.ToLower(cfg.Recommender.Driver) {
	case "", "mock":
		return MockRecommender{}, nopCloser{}, nil
	case "openai":
		client, err := openai.NewClient(&cfg.OpenAI)
		if err != nil {
			return nil, nil, err
		}
		return NewLLMRecommender(client), nopCloser{}, nil
	case "gemini":
		client, err := gemini.NewClient(ctx, &cfg.Gemini)
		if err != nil {
			return nil, nil, err
		}
		return NewLLMRecommender(client), client, nil
	default:
		return nil, nil, fmt.Errorf("unknown recommender driver %q", cfg.Recommender.Driver)
	}
}
