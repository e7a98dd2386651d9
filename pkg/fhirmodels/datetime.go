package fhirmodels

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateTimeLayout is the FHIR instant rendering used in generated fixtures:
// UTC, second precision, literal "Z" suffix.
const DateTimeLayout = "2006-01-02T15:04:05Z"

// DateTime is a FHIR dateTime that always serializes in UTC with a "Z" suffix.
type DateTime struct {
	time.Time
}

// NewDateTime converts t to UTC and truncates it to whole seconds.
func NewDateTime(t time.Time) DateTime {
	return DateTime{Time: t.UTC().Truncate(time.Second)}
}

// NewDateTimePtr is NewDateTime for optional fields.
func NewDateTimePtr(t time.Time) *DateTime {
	dt := NewDateTime(t)
	return &dt
}

func (d DateTime) String() string {
	return d.UTC().Format(DateTimeLayout)
}

func (d DateTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *DateTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("datetime: %w", err)
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("datetime: parse %q: %w", s, err)
	}
	*d = NewDateTime(t)
	return nil
}

// TimeOfDay is a FHIR time: a clock time with no date or zone.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// At builds a TimeOfDay from an hour and minute.
func At(hour, minute int) TimeOfDay {
	return TimeOfDay{Hour: hour, Minute: minute}
}

// Offset returns the duration from midnight.
func (t TimeOfDay) Offset() time.Duration {
	return time.Duration(t.Hour)*time.Hour + time.Duration(t.Minute)*time.Minute + time.Duration(t.Second)*time.Second
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("time of day: %w", err)
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTimeOfDay accepts "HH:MM:SS" or "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if p, err := time.Parse(layout, s); err == nil {
			return TimeOfDay{Hour: p.Hour(), Minute: p.Minute(), Second: p.Second()}, nil
		}
	}
	return TimeOfDay{}, fmt.Errorf("time of day: invalid value %q", s)
}
