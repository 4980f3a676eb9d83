package scheduling

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/smartscheduler/backend/internal/domain/entities"
	apperrors "github.com/smartscheduler/backend/pkg/errors"
)

// MaxSuggestions bounds every recommendation response
const MaxSuggestions = 3

var zonelessLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

type rawSuggestion struct {
	Start  *string `json:"start"`
	End    *string `json:"end"`
	Reason string  `json:"reason"`
}

// ExtractSuggestions finds the first JSON array of objects in untrusted recommender
// output, tolerating surrounding prose and code fences, and parses each entry.
// It fails with MALFORMED_RECOMMENDATION when no such array exists or any entry is invalid.
// Zoneless timestamps are read as UTC.
func ExtractSuggestions(raw string) ([]entities.RecommendationSuggestion, error) {
	entries, ok := firstObjectArray(raw)
	if !ok {
		return nil, apperrors.NewMalformedRecommendationError("no JSON array of suggestions found in recommender output", nil)
	}

	suggestions := make([]entities.RecommendationSuggestion, 0, len(entries))
	for idx, entry := range entries {
		var rs rawSuggestion
		if err := json.Unmarshal(entry, &rs); err != nil {
			return nil, apperrors.NewMalformedRecommendationError(fmt.Sprintf("entry %d is not a suggestion object", idx), err)
		}
		if rs.Start == nil || rs.End == nil {
			return nil, apperrors.NewMalformedRecommendationError(fmt.Sprintf("entry %d is missing start or end", idx), nil)
		}
		start, err := parseTimestamp(*rs.Start)
		if err != nil {
			return nil, apperrors.NewMalformedRecommendationError(fmt.Sprintf("entry %d has an invalid start", idx), err)
		}
		end, err := parseTimestamp(*rs.End)
		if err != nil {
			return nil, apperrors.NewMalformedRecommendationError(fmt.Sprintf("entry %d has an invalid end", idx), err)
		}
		interval, err := entities.NewInterval(start, end)
		if err != nil {
			return nil, apperrors.NewMalformedRecommendationError(fmt.Sprintf("entry %d has an invalid interval", idx), err)
		}
		suggestions = append(suggestions, entities.RecommendationSuggestion{
			Interval: interval,
			Reason:   strings.TrimSpace(rs.Reason),
		})
	}
	return suggestions, nil
}

// firstObjectArray tries every '[' in order and returns the elements of the first
// position that decodes as a JSON array whose elements are all objects.
func firstObjectArray(raw string) ([]json.RawMessage, bool) {
	for offset := 0; offset < len(raw); {
		idx := strings.IndexByte(raw[offset:], '[')
		if idx < 0 {
			return nil, false
		}
		pos := offset + idx
		offset = pos + 1

		var elems []json.RawMessage
		if err := json.NewDecoder(strings.NewReader(raw[pos:])).Decode(&elems); err != nil {
			continue
		}
		if allObjects(elems) {
			return elems, true
		}
	}
	return nil, false
}

func allObjects(elems []json.RawMessage) bool {
	for _, e := range elems {
		trimmed := bytes.TrimSpace(e)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			return false
		}
	}
	return true
}

func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	for _, layout := range zonelessLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", value)
}

// ValidateSuggestions drops suggestions outside window or not matching a free slot,
// removes duplicates, and truncates to MaxSuggestions.
func ValidateSuggestions(suggestions []entities.RecommendationSuggestion, window entities.Interval, free []entities.AvailabilitySlot) []entities.RecommendationSuggestion {
	valid := make([]entities.RecommendationSuggestion, 0, MaxSuggestions)
	for _, s := range suggestions {
		if len(valid) == MaxSuggestions {
			break
		}
		if !window.Contains(s.Interval) || !matchesFree(s.Interval, free) {
			continue
		}
		if containsInterval(valid, s.Interval) {
			continue
		}
		valid = append(valid, s)
	}
	return valid
}

func matchesFree(interval entities.Interval, free []entities.AvailabilitySlot) bool {
	for _, slot := range free {
		if slot.Interval.Equal(interval) {
			return true
		}
	}
	return false
}

func containsInterval(suggestions []entities.RecommendationSuggestion, interval entities.Interval) bool {
	for _, s := range suggestions {
		if s.Interval.Equal(interval) {
			return true
		}
	}
	return false
}
