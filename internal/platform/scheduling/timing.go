// Package scheduling expands FHIR-style Timing specifications (dosing and
// care-activity schedules) into concrete, jittered calendar occurrences.
package scheduling

import (
	"errors"
	"fmt"
	"iter"
	"math/rand"
	"slices"
	"strings"
	"time"

	"github.com/ehr/demodata/pkg/fhirmodels"
)

// Common errors returned by Timing validation.
var (
	ErrInvalidTiming     = errors.New("invalid timing")
	ErrUnknownPeriodUnit = errors.New("unknown period unit")
	ErrUnknownDayOfWeek  = errors.New("unknown day of week")
)

// PeriodUnit is a UCUM-style unit of the Timing.repeat.period.
type PeriodUnit string

const (
	UnitSecond PeriodUnit = "s"
	UnitMinute PeriodUnit = "min"
	UnitHour   PeriodUnit = "h"
	UnitDay    PeriodUnit = "d"
	UnitWeek   PeriodUnit = "wk"
	UnitMonth  PeriodUnit = "mo"
)

// DefaultTimeOfDay is used when a Timing has no explicit time_of_day.
var DefaultTimeOfDay = fhirmodels.At(9, 0)

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// Repeat is the recurrence rule of a Timing. Count is carried as reference
// data only; expansion always runs through the end boundary.
type Repeat struct {
	Count      int                    `json:"count,omitempty"`
	Frequency  int                    `json:"frequency"`
	Period     int                    `json:"period"`
	PeriodUnit PeriodUnit             `json:"period_unit"`
	DayOfWeek  []string               `json:"day_of_week,omitempty"`
	TimeOfDay  []fhirmodels.TimeOfDay `json:"time_of_day,omitempty"`
}

// Timing is a named recurrence, e.g. "bid" or "qod".
type Timing struct {
	Code   string `json:"code"`
	Repeat Repeat `json:"repeat"`
}

// Jitter bounds the random offset applied to each occurrence so generated
// timestamps do not all land exactly on the clock time.
type Jitter struct {
	Hours   int
	Minutes int
}

// DefaultJitter is ±2 hours and ±30 minutes.
var DefaultJitter = Jitter{Hours: 2, Minutes: 30}

// Max returns the largest absolute offset the jitter can produce.
// Negative bounds are treated as their absolute value.
func (j Jitter) Max() time.Duration {
	j = j.abs()
	return time.Duration(j.Hours)*time.Hour + time.Duration(j.Minutes)*time.Minute
}

func (j Jitter) abs() Jitter {
	if j.Hours < 0 {
		j.Hours = -j.Hours
	}
	if j.Minutes < 0 {
		j.Minutes = -j.Minutes
	}
	return j
}

func (j Jitter) sample(rng *rand.Rand) time.Duration {
	j = j.abs()
	h := rng.Intn(2*j.Hours+1) - j.Hours
	m := rng.Intn(2*j.Minutes+1) - j.Minutes
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute
}

// Validate checks the recurrence rule. A zero frequency is valid and means
// the timing never recurs.
func (t Timing) Validate() error {
	r := t.Repeat
	if r.Frequency < 0 {
		return fmt.Errorf("%w: frequency %d", ErrInvalidTiming, r.Frequency)
	}
	if r.Period < 0 {
		return fmt.Errorf("%w: period %d", ErrInvalidTiming, r.Period)
	}
	if r.Count < 0 {
		return fmt.Errorf("%w: count %d", ErrInvalidTiming, r.Count)
	}
	switch r.PeriodUnit {
	case UnitSecond, UnitMinute, UnitHour, UnitDay, UnitWeek, UnitMonth:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownPeriodUnit, r.PeriodUnit)
	}
	for _, d := range r.DayOfWeek {
		if _, ok := weekdays[strings.ToLower(d)]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownDayOfWeek, d)
		}
	}
	return nil
}

// Occurrences lazily yields one timestamp per scheduled dose or activity,
// walking calendar days (UTC) from start's date through end's date. Each
// occurrence is jittered with DefaultJitter and anything after end is
// dropped. A zero frequency yields nothing.
func (t Timing) Occurrences(start, end time.Time, rng *rand.Rand) iter.Seq[time.Time] {
	return t.OccurrencesWithJitter(start, end, rng, DefaultJitter)
}

// OccurrencesWithJitter is Occurrences with an explicit jitter.
func (t Timing) OccurrencesWithJitter(start, end time.Time, rng *rand.Rand, jitter Jitter) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		r := t.Repeat
		if r.Frequency <= 0 || end.Before(start) {
			return
		}

		times := r.TimeOfDay
		if len(times) == 0 {
			times = []fhirmodels.TimeOfDay{DefaultTimeOfDay}
		}
		days := r.weekdaySet()

		end = end.UTC()
		first := startOfDay(start.UTC())
		last := startOfDay(end)

		for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
			if !r.scheduledOn(first, day, days) {
				continue
			}
			for i := 0; i < r.Frequency; i++ {
				at := day.Add(times[i%len(times)].Offset()).Add(jitter.sample(rng))
				if at.After(end) {
					continue
				}
				if !yield(at) {
					return
				}
			}
		}
	}
}

// Expand collects Occurrences into a slice.
func (t Timing) Expand(start, end time.Time, rng *rand.Rand) []time.Time {
	return slices.Collect(t.Occurrences(start, end, rng))
}

func (r Repeat) weekdaySet() map[time.Weekday]bool {
	if len(r.DayOfWeek) == 0 {
		return nil
	}
	set := make(map[time.Weekday]bool, len(r.DayOfWeek))
	for _, d := range r.DayOfWeek {
		if wd, ok := weekdays[strings.ToLower(d)]; ok {
			set[wd] = true
		}
	}
	return set
}

// scheduledOn reports whether day falls on the period stride counted from
// first. Sub-daily units collapse to a daily stride.
func (r Repeat) scheduledOn(first, day time.Time, days map[time.Weekday]bool) bool {
	period := r.Period
	if period <= 0 {
		period = 1
	}
	elapsed := int(day.Sub(first).Hours() / 24)

	if days != nil {
		if !days[day.Weekday()] {
			return false
		}
		if r.PeriodUnit == UnitWeek {
			return (elapsed/7)%period == 0
		}
		return true
	}

	switch r.PeriodUnit {
	case UnitDay:
		return elapsed%period == 0
	case UnitWeek:
		return elapsed%(7*period) == 0
	case UnitMonth:
		months := (day.Year()-first.Year())*12 + int(day.Month()) - int(first.Month())
		return day.Day() == first.Day() && months%period == 0
	default:
		return true
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
