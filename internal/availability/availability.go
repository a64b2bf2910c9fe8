// Package availability derives, for a resource and a calendar date,
// which scheduler cells are bookable.  Everything here is a pure
// function of its inputs: the resource's working hours and exclusion
// rules plus the caller-supplied "now".  Malformed configuration never
// panics; unparsable values degrade to "no exclusion" or "unavailable"
// so the grid always renders.
package availability

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ajasta/booking-client/internal/model"
)

// SlotStep is the width of one bookable cell on the scheduler grid.
const SlotStep = 30 * time.Minute

const (
	defaultOpenTime  = "08:00"
	defaultCloseTime = "20:00"
	dateLayout       = "2006-01-02"
)

// ParseClock parses an "HH:mm" string into minutes from midnight.
// The second return value is false when the string is malformed.
func ParseClock(hhmm string) (int, bool) {
	h, m, ok := splitClock(hhmm)
	if !ok {
		return 0, false
	}
	return h*60 + m, true
}

func splitClock(hhmm string) (h, m int, ok bool) {
	parts := strings.Split(hhmm, ":")
	if len(parts) != 2 {
		return 0, 0, false
	}
	h, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	m, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

// FormatClock renders minutes from midnight as a zero-padded "HH:mm"
// label.
func FormatClock(mins int) string {
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}

// LocalDate formats t as a local-calendar ISO date ("2006-01-02").
// Day boundaries follow the local clock, not UTC; a booking page open
// at 23:30 in Helsinki must treat the Helsinki date as "today".
func LocalDate(t time.Time) string {
	return t.Format(dateLayout)
}

// GenerateSlots produces the ordered sequence of "HH:mm" start labels
// from the resource's open time (inclusive) to its close time
// (exclusive), stepping by SlotStep.  Empty working-hour fields fall
// back to 08:00-20:00.  If either bound is unparsable or close <= open
// the sequence is empty.
func GenerateSlots(r *model.Resource) []string {
	open := r.OpenTime
	if open == "" {
		open = defaultOpenTime
	}
	closeT := r.CloseTime
	if closeT == "" {
		closeT = defaultCloseTime
	}
	start, ok1 := ParseClock(open)
	end, ok2 := ParseClock(closeT)
	if !ok1 || !ok2 || end <= start {
		return nil
	}
	step := int(SlotStep / time.Minute)
	labels := make([]string, 0, (end-start)/step)
	for t := start; t < end; t += step {
		labels = append(labels, FormatClock(t))
	}
	return labels
}

// IsDateUnavailable reports whether the whole date is excluded by the
// resource configuration: its weekday index appears in
// UnavailableWeekdays or the date string appears verbatim in
// UnavailableDates.  Empty exclusion fields mean no exclusion.
func IsDateUnavailable(r *model.Resource, date string) bool {
	if r.UnavailableWeekdays != "" {
		if wd, ok := weekdayIndex(date); ok {
			for _, s := range strings.Split(r.UnavailableWeekdays, ",") {
				if strings.TrimSpace(s) == strconv.Itoa(wd) {
					return true
				}
			}
		}
	}
	if r.UnavailableDates != "" {
		for _, s := range strings.Split(r.UnavailableDates, ",") {
			if strings.TrimSpace(s) == date {
				return true
			}
		}
	}
	return false
}

// weekdayIndex returns the 0=Sunday..6=Saturday index of an ISO date.
func weekdayIndex(date string) (int, bool) {
	t, err := time.ParseInLocation(dateLayout, date, time.Local)
	if err != nil {
		return 0, false
	}
	return int(t.Weekday()), true
}

// IsSlotUnavailable reports whether the cell starting at hhmm on date
// cannot be booked.  A slot is unavailable when the date itself is
// excluded, the date lies strictly before today (local calendar), the
// date is today and the slot start is strictly before the current
// time-of-day, or the start falls inside a daily exclusion range.
// Unparsable slot times are unavailable.
func IsSlotUnavailable(r *model.Resource, date, hhmm string, now time.Time) bool {
	if IsDateUnavailable(r, date) {
		return true
	}
	today := LocalDate(now)
	if date < today {
		return true
	}
	start, ok := ParseClock(hhmm)
	if !ok {
		return true
	}
	if date == today {
		nowMins := now.Hour()*60 + now.Minute()
		if start < nowMins {
			return true
		}
	}
	return inRanges(start, r.DailyUnavailableRanges)
}

// inRanges tests whether a minute-of-day falls inside any half-open
// [from, to) interval of a ";"-separated "HH:mm-HH:mm" list.  Ranges
// with unparsable bounds are skipped.
func inRanges(mins int, ranges string) bool {
	if ranges == "" {
		return false
	}
	for _, raw := range strings.Split(ranges, ";") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		bounds := strings.SplitN(raw, "-", 2)
		if len(bounds) != 2 {
			continue
		}
		from, ok1 := ParseClock(strings.TrimSpace(bounds[0]))
		to, ok2 := ParseClock(strings.TrimSpace(bounds[1]))
		if !ok1 || !ok2 {
			continue
		}
		if mins >= from && mins < to {
			return true
		}
	}
	return false
}

// RollForward implements the auto-advance policy: when the given date
// is today and no slot on it is bookable, the next calendar day is
// returned.  The advance happens at most once; it does not cascade
// even if tomorrow is also fully excluded.
func RollForward(r *model.Resource, date string, now time.Time) string {
	if date != LocalDate(now) {
		return date
	}
	for _, label := range GenerateSlots(r) {
		if !IsSlotUnavailable(r, date, label, now) {
			return date
		}
	}
	t, err := time.ParseInLocation(dateLayout, date, time.Local)
	if err != nil {
		return date
	}
	return LocalDate(t.AddDate(0, 0, 1))
}
