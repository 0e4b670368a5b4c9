package splitter

import (
	"fmt"
	"time"

	"github.com/cuemby/cstarorch/pkg/types"
)

// slice is a half-open calendar interval [Start, End).
type slice struct {
	Start time.Time
	End   time.Time
}

// timeSlices splits [start, end) into calendar-month-aligned intervals:
// the first slice begins at start (even if start is not the first of its
// month), the last ends at end (even if end is not the first of the
// following month), and every intermediate slice spans a full month.
func timeSlices(start, end time.Time) ([]slice, error) {
	if !end.After(start) {
		return nil, types.NewValidationError("splitter.timeSlices", fmt.Errorf("end_date must be after start_date"))
	}

	current := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())

	var slices []slice
	for current.Before(end) {
		monthStart := current
		monthEnd := monthStart.AddDate(0, 1, 0)
		slices = append(slices, slice{Start: monthStart, End: monthEnd})
		current = monthEnd
	}

	if start.After(slices[0].Start) {
		slices[0].Start = start
	}
	if end.Before(slices[len(slices)-1].End) {
		slices[len(slices)-1].End = end
	}

	return slices, nil
}
