package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartscheduler/backend/internal/domain/entities"
	apperrors "github.com/smartscheduler/backend/pkg/errors"
)

func TestExtractSuggestions_ProseAndCodeFence(t *testing.T) {
	raw := "Sure! Based on the patient's morning preference [see notes], here you go:\n```json\n" +
		`[
  {"start": "2025-06-02T09:00:00Z", "end": "2025-06-02T09:30:00Z", "reason": "Earliest morning slot"},
  {"start": "2025-06-02T09:30:00Z", "end": "2025-06-02T10:00:00Z", "reason": "Also morning"},
  {"start": "2025-06-02T10:00:00Z", "end": "2025-06-02T10:30:00Z", "reason": "Before noon"},
  {"start": "2025-06-02T10:30:00Z", "end": "2025-06-02T11:00:00Z", "reason": "Fallback"}
]` + "\n```\nLet me know if you need anything else."

	suggestions, err := ExtractSuggestions(raw)
	require.NoError(t, err)
	require.Len(t, suggestions, 4)
	assert.Equal(t, "Earliest morning slot", suggestions[0].Reason)
	assert.Equal(t, time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC), suggestions[0].Interval.Start.UTC())

	window := entities.Interval{Start: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), End: time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)}
	free := []entities.AvailabilitySlot{slotAt("P1", 9, 0), slotAt("P1", 9, 30), slotAt("P1", 10, 0), slotAt("P1", 10, 30)}
	assert.Len(t, ValidateSuggestions(suggestions, window, free), MaxSuggestions)
}

func TestExtractSuggestions_ZonelessTimestampsReadAsUTC(t *testing.T) {
	suggestions, err := ExtractSuggestions(`[{"start": "2025-06-02T09:00:00", "end": "2025-06-02 09:30", "reason": "ok"}]`)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC), suggestions[0].Interval.End)
}

func TestExtractSuggestions_EmptyArrayIsValid(t *testing.T) {
	suggestions, err := ExtractSuggestions("No suitable times: []")
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}

func TestExtractSuggestions_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no array", "I could not find any suitable times."},
		{"truncated array", `[{"start": "2025-06-02T09:00:00Z", "end": "2025-06-02T09:30:00Z"`},
		{"scalars only", "Pick one of [1, 2, 3]"},
		{"missing end", `[{"start": "2025-06-02T09:00:00Z", "reason": "x"}]`},
		{"bad timestamp", `[{"start": "tomorrow morning", "end": "2025-06-02T09:30:00Z"}]`},
		{"inverted interval", `[{"start": "2025-06-02T10:00:00Z", "end": "2025-06-02T09:30:00Z"}]`},
		{"wrong field type", `[{"start": 9, "end": 10}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractSuggestions(tt.raw)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeMalformedRecommendation))
		})
	}
}

func TestValidateSuggestions_DropsUntrustedEntries(t *testing.T) {
	window := entities.Interval{Start: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC), End: time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)}
	free := []entities.AvailabilitySlot{slotAt("P1", 9, 0), slotAt("P1", 10, 0)}

	suggest := func(hour, minute int, reason string) entities.RecommendationSuggestion {
		return entities.RecommendationSuggestion{Interval: slotAt("P1", hour, minute).Interval, Reason: reason}
	}
	input := []entities.RecommendationSuggestion{
		suggest(13, 0, "outside window"),
		suggest(9, 30, "not a free slot"),
		suggest(10, 0, "good"),
		suggest(10, 0, "duplicate"),
		suggest(9, 0, "also good"),
	}

	got := ValidateSuggestions(input, window, free)

	require.Len(t, got, 2)
	assert.Equal(t, "good", got[0].Reason)
	assert.Equal(t, "also good", got[1].Reason)
}
