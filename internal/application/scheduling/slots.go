package scheduling

import (
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/smartscheduler/backend/internal/domain/entities"
	apperrors "github.com/smartscheduler/backend/pkg/errors"
)

// DateRange is a range of calendar days, From inclusive and To exclusive
type DateRange struct {
	From time.Time
	To   time.Time
}

// DailyWindow is a bookable [StartHour, EndHour) range within a day
type DailyWindow struct {
	StartHour int
	EndHour   int
}

// SlotParams describes a slot generation run
type SlotParams struct {
	Providers []entities.Provider
	Horizon   DateRange
	Windows   []DailyWindow
	Step      time.Duration

	// IsBusinessDay defaults to excluding Saturday and Sunday
	IsBusinessDay func(day time.Time) bool

	// Location places daily windows on calendar days; defaults to UTC
	Location *time.Location

	// Now anchors the "no slots before tomorrow" rule. A zero Now disables it.
	Now time.Time
}

// Weekdays is the default business day predicate
func Weekdays(day time.Time) bool {
	wd := day.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// Validate rejects parameters that cannot produce well-formed slots
func (p SlotParams) Validate() error {
	if p.Step <= 0 {
		return apperrors.NewValidationError("step must be positive")
	}
	if len(p.Windows) == 0 {
		return apperrors.NewValidationError("at least one daily window is required")
	}
	for _, w := range p.Windows {
		if w.StartHour < 0 || w.EndHour > 24 || w.StartHour >= w.EndHour {
			return apperrors.NewValidationError(fmt.Sprintf("invalid daily window %d-%d", w.StartHour, w.EndHour))
		}
	}
	if !p.Horizon.From.IsZero() && !p.Horizon.To.IsZero() && p.Horizon.To.Before(p.Horizon.From) {
		return apperrors.NewValidationError("horizon end precedes its start")
	}
	return nil
}

// GenerateSlots lazily yields slots per provider, business day, window and step.
// The sequence is restartable and deterministic for identical params.
func GenerateSlots(p SlotParams) iter.Seq[entities.AvailabilitySlot] {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	isBusinessDay := p.IsBusinessDay
	if isBusinessDay == nil {
		isBusinessDay = Weekdays
	}
	providers := slices.Clone(p.Providers)
	windows := slices.Clone(p.Windows)

	first := startOfDay(p.Horizon.From, loc)
	if !p.Now.IsZero() {
		tomorrow := startOfDay(p.Now, loc).AddDate(0, 0, 1)
		if first.Before(tomorrow) {
			first = tomorrow
		}
	}
	last := startOfDay(p.Horizon.To, loc)

	return func(yield func(entities.AvailabilitySlot) bool) {
		if p.Step <= 0 {
			return
		}
		for _, provider := range providers {
			for day := first; day.Before(last); day = day.AddDate(0, 0, 1) {
				if !isBusinessDay(day) {
					continue
				}
				for _, w := range windows {
					windowEnd := time.Date(day.Year(), day.Month(), day.Day(), w.EndHour, 0, 0, 0, loc)
					start := time.Date(day.Year(), day.Month(), day.Day(), w.StartHour, 0, 0, 0, loc)
					for end := start.Add(p.Step); !end.After(windowEnd); start, end = end, end.Add(p.Step) {
						slot := entities.AvailabilitySlot{
							ProviderID: provider.ID,
							Interval:   entities.Interval{Start: start, End: end},
						}
						if !yield(slot) {
							return
						}
					}
				}
			}
		}
	}
}

// CollectSlots materializes a generated sequence
func CollectSlots(seq iter.Seq[entities.AvailabilitySlot]) []entities.AvailabilitySlot {
	return slices.Collect(seq)
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
