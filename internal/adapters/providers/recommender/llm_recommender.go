package recommender

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/smartscheduler/backend/internal/domain/entities"
	"github.com/smartscheduler/backend/internal/domain/providers"
)

// Completer sends a single prompt to a language model and returns its text
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// LLMRecommender asks a language model to pick slots. It returns the model's raw
// output; extraction and validation happen in the application layer.
type LLMRecommender struct {
	completer Completer
}

var _ providers.Recommender = (*LLMRecommender)(nil)

// NewLLMRecommender creates a recommender over completer
func NewLLMRecommender(completer Completer) *LLMRecommender {
	return &LLMRecommender{completer: completer}
}

func (r *LLMRecommender) Suggest(ctx context.Context, patient entities.PatientProfile, free []entities.AvailabilitySlot) (string, error) {
	text, err := r.completer.Complete(ctx, BuildPrompt(patient, free))
	if err != nil {
		return "", fmt.Errorf("recommender completion failed: %w", err)
	}
	return text, nil
}

// BuildPrompt renders the scheduling prompt. Slots are listed as RFC 3339 UTC pairs
// so the model can echo them back exactly.
func BuildPrompt(patient entities.PatientProfile, free []entities.AvailabilitySlot) string {
	var b strings.Builder
	b.WriteString("You are a healthcare scheduler.\n")
	b.WriteString("Patient profile:\n")
	fmt.Fprintf(&b, "- name: %s\n", patient.Name)
	if patient.Conditions != "" {
		fmt.Fprintf(&b, "- conditions: %s\n", patient.Conditions)
	}
	if len(patient.Preferences) > 0 {
		keys := make([]string, 0, len(patient.Preferences))
		for k := range patient.Preferences {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- preference %s: %t\n", k, patient.Preferences[k])
		}
	}

	b.WriteString("\nAvailable slots:\n")
	for _, slot := range free {
		fmt.Fprintf(&b, "- %s to %s\n",
			slot.Interval.Start.UTC().Format(time.RFC3339),
			slot.Interval.End.UTC().Format(time.RFC3339))
	}

	b.WriteString("\nSuggest up to 3 optimal appointment times as JSON:\n")
	b.WriteString(`[{"start":"...","end":"...","reason":"..."}]`)
	b.WriteString("\nOnly choose from the available slots above.\n")
	return b.String()
}

// MockRecommender picks the earliest free slots without calling a model
type MockRecommender struct{}

var _ providers.Recommender = MockRecommender{}

type mockSuggestion struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Reason string `json:"reason"`
}

func (MockRecommender) Suggest(ctx context.Context, patient entities.PatientProfile, free []entities.AvailabilitySlot) (string, error) {
	out := make([]mockSuggestion, 0, 3)
	for _, slot := range free {
		if len(out) == 3 {
			break
		}
		out = append(out, mockSuggestion{
			Start:  slot.Interval.Start.UTC().Format(time.RFC3339),
			End:    slot.Interval.End.UTC().Format(time.RFC3339),
			Reason: "earliest available",
		})
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
