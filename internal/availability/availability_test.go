package availability

import (
	"testing"
	"time"

	"github.com/ajasta/booking-client/internal/model"
)

func res(overrides func(*model.Resource)) *model.Resource {
	r := &model.Resource{
		ID:         1,
		Name:       "Court A",
		UnitsCount: 1,
		OpenTime:   "09:00",
		CloseTime:  "12:00",
	}
	if overrides != nil {
		overrides(r)
	}
	return r
}

func localTime(t *testing.T, date, clock string) time.Time {
	t.Helper()
	v, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, time.Local)
	if err != nil {
		t.Fatalf("parse %s %s: %v", date, clock, err)
	}
	return v
}

func TestGenerateSlots(t *testing.T) {
	tests := []struct {
		name  string
		open  string
		close string
		want  []string
	}{
		{"normal window", "09:00", "10:30", []string{"09:00", "09:30", "10:00"}},
		{"close equals open", "09:00", "09:00", nil},
		{"close before open", "12:00", "09:00", nil},
		{"unparsable open", "9am", "12:00", nil},
		{"unparsable close", "09:00", "nope", nil},
		{"misaligned close", "09:00", "10:15", []string{"09:00", "09:30", "10:00"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := GenerateSlots(res(func(r *model.Resource) {
				r.OpenTime = tc.open
				r.CloseTime = tc.close
			}))
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("slot %d: got %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestGenerateSlotsStrictlyIncreasing(t *testing.T) {
	labels := GenerateSlots(res(func(r *model.Resource) {
		r.OpenTime = "08:00"
		r.CloseTime = "20:00"
	}))
	if len(labels) != 24 {
		t.Fatalf("expected 24 labels, got %d", len(labels))
	}
	prev, _ := ParseClock(labels[0])
	for _, l := range labels[1:] {
		cur, ok := ParseClock(l)
		if !ok {
			t.Fatalf("unparsable label %q", l)
		}
		if cur-prev != 30 {
			t.Fatalf("labels not 30 minutes apart: %d then %d", prev, cur)
		}
		prev = cur
	}
	last, _ := ParseClock(labels[len(labels)-1])
	closeM, _ := ParseClock("20:00")
	if last >= closeM {
		t.Fatalf("last label %d not before close %d", last, closeM)
	}
}

func TestDefaultWorkingHours(t *testing.T) {
	labels := GenerateSlots(res(func(r *model.Resource) {
		r.OpenTime = ""
		r.CloseTime = ""
	}))
	if len(labels) == 0 || labels[0] != "08:00" {
		t.Fatalf("expected default 08:00 start, got %v", labels)
	}
}

func TestIsDateUnavailable(t *testing.T) {
	// 2099-01-15 is a Thursday (weekday index 4).
	tests := []struct {
		name     string
		weekdays string
		dates    string
		date     string
		want     bool
	}{
		{"no exclusions", "", "", "2099-01-15", false},
		{"weekday excluded", "4", "", "2099-01-15", true},
		{"weekday list excluded", "0, 4 ,6", "", "2099-01-15", true},
		{"other weekday", "0,6", "", "2099-01-15", false},
		{"date excluded", "", "2099-01-15", "2099-01-15", true},
		{"date list excluded", "", "2099-01-01, 2099-01-15", "2099-01-15", true},
		{"other date", "", "2099-01-01", "2099-01-15", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := res(func(r *model.Resource) {
				r.UnavailableWeekdays = tc.weekdays
				r.UnavailableDates = tc.dates
			})
			if got := IsDateUnavailable(r, tc.date); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDailyRangesHalfOpen(t *testing.T) {
	// Scenario: lunch break every day from 12:00 to 13:00.
	r := res(func(r *model.Resource) {
		r.OpenTime = "09:00"
		r.CloseTime = "14:00"
		r.DailyUnavailableRanges = "12:00-13:00"
	})
	now := localTime(t, "2099-01-15", "08:00")
	if !IsSlotUnavailable(r, "2099-01-16", "12:00", now) {
		t.Fatal("12:00 must be inside the excluded range")
	}
	if !IsSlotUnavailable(r, "2099-01-16", "12:30", now) {
		t.Fatal("12:30 must be inside the excluded range")
	}
	if IsSlotUnavailable(r, "2099-01-16", "11:30", now) {
		t.Fatal("11:30 must be available")
	}
	if IsSlotUnavailable(r, "2099-01-16", "13:00", now) {
		t.Fatal("13:00 is the half-open upper bound and must be available")
	}
}

func TestMalformedRangesIgnored(t *testing.T) {
	r := res(func(r *model.Resource) {
		r.DailyUnavailableRanges = "garbage;12:xx-13:00; ;10:00-11:00"
	})
	now := localTime(t, "2099-01-15", "08:00")
	if !IsSlotUnavailable(r, "2099-01-16", "10:30", now) {
		t.Fatal("valid range within malformed list must still apply")
	}
	if IsSlotUnavailable(r, "2099-01-16", "09:00", now) {
		t.Fatal("malformed ranges must not exclude anything")
	}
}

func TestPastDatesAndToday(t *testing.T) {
	r := res(nil)
	// Scenario: current time 09:31 on the selected day.
	now := localTime(t, "2099-01-15", "09:31")
	today := LocalDate(now)

	if !IsSlotUnavailable(r, "2099-01-14", "09:00", now) {
		t.Fatal("past date must be unavailable")
	}
	if !IsSlotUnavailable(r, today, "09:00", now) {
		t.Fatal("09:00 today is already past 09:31 and must be unavailable")
	}
	if !IsSlotUnavailable(r, today, "09:30", now) {
		t.Fatal("09:30 today started before 09:31 and must be unavailable")
	}
	if IsSlotUnavailable(r, today, "10:00", now) {
		t.Fatal("10:00 today is still ahead and must be available")
	}
}

func TestTodayBoundaryIsStrict(t *testing.T) {
	r := res(nil)
	now := localTime(t, "2099-01-15", "09:30")
	if IsSlotUnavailable(r, LocalDate(now), "09:30", now) {
		t.Fatal("a slot starting exactly now must remain available")
	}
}

func TestUnparsableSlotTimeUnavailable(t *testing.T) {
	r := res(nil)
	now := localTime(t, "2099-01-15", "08:00")
	if !IsSlotUnavailable(r, "2099-01-16", "9am", now) {
		t.Fatal("unparsable slot time must be unavailable")
	}
}

func TestRollForward(t *testing.T) {
	now := localTime(t, "2099-01-15", "13:00")
	today := LocalDate(now)

	t.Run("advances when today is exhausted", func(t *testing.T) {
		r := res(func(r *model.Resource) {
			r.OpenTime = "09:00"
			r.CloseTime = "12:00" // all starts are before 13:00
		})
		got := RollForward(r, today, now)
		if got != "2099-01-16" {
			t.Fatalf("got %q, want tomorrow", got)
		}
	})

	t.Run("keeps today when a slot remains", func(t *testing.T) {
		r := res(func(r *model.Resource) {
			r.OpenTime = "09:00"
			r.CloseTime = "18:00"
		})
		if got := RollForward(r, today, now); got != today {
			t.Fatalf("got %q, want %q", got, today)
		}
	})

	t.Run("does not touch non-today dates", func(t *testing.T) {
		r := res(nil)
		if got := RollForward(r, "2099-02-01", now); got != "2099-02-01" {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("single step even when tomorrow is excluded", func(t *testing.T) {
		r := res(func(r *model.Resource) {
			r.OpenTime = "09:00"
			r.CloseTime = "12:00"
			r.UnavailableDates = "2099-01-16"
		})
		if got := RollForward(r, today, now); got != "2099-01-16" {
			t.Fatalf("roll forward must not cascade, got %q", got)
		}
	})
}
