package entities

import (
	"fmt"
	"time"

	apperrors "github.com/smartscheduler/backend/pkg/errors"
)

// Interval is a half-open time range [Start, End)
type Interval struct {
	Start time.Time `json:"start" bson:"start"`
	End   time.Time `json:"end" bson:"end"`
}

// NewInterval returns an interval or an InvalidInterval error when start is not before end
func NewInterval(start, end time.Time) (Interval, error) {
	i := Interval{Start: start, End: end}
	if err := i.Validate(); err != nil {
		return Interval{}, err
	}
	return i, nil
}

// Validate checks the start < end invariant
func (i Interval) Validate() error {
	if i.Start.IsZero() || i.End.IsZero() {
		return apperrors.NewInvalidIntervalError("start and end are required")
	}
	if !i.Start.Before(i.End) {
		return apperrors.NewInvalidIntervalError(
			fmt.Sprintf("start %s must be before end %s", i.Start.Format(time.RFC3339), i.End.Format(time.RFC3339)))
	}
	return nil
}

// Overlaps reports whether the two intervals share any instant. Touching endpoints do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// Contains reports whether other lies entirely within i
func (i Interval) Contains(other Interval) bool {
	return !other.Start.Before(i.Start) && !other.End.After(i.End)
}

// Equal compares instants, ignoring location
func (i Interval) Equal(other Interval) bool {
	return i.Start.Equal(other.Start) && i.End.Equal(other.End)
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

func (i Interval) String() string {
	return fmt.Sprintf("[%s, %s)", i.Start.Format(time.RFC3339), i.End.Format(time.RFC3339))
}
