// Package reminder resolves symbolic reminder specs to absolute instants and
// renders the countdown phrases used in alert bodies.
package reminder

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind is the symbolic origin of a reminder.
type Kind string

const (
	KindOnDue      Kind = "on-due"
	KindHourBefore Kind = "1-hour-before"
	KindDayBefore  Kind = "1-day-before"
	KindCustom     Kind = "custom"
)

// Precision is the smallest time unit two reminders are compared at.
const Precision = time.Millisecond

var (
	// ErrDueDateRequired is returned when a relative spec has no due date to anchor to.
	ErrDueDateRequired = errors.New("due date required for relative reminder")
	// ErrUnknownKind is returned for specs outside the known kinds.
	ErrUnknownKind = errors.New("unknown reminder type")
)

// Spec describes when to alert, before resolution.
type Spec struct {
	Kind Kind
	At   time.Time // only for KindCustom
}

func OnDue() Spec      { return Spec{Kind: KindOnDue} }
func HourBefore() Spec { return Spec{Kind: KindHourBefore} }
func DayBefore() Spec  { return Spec{Kind: KindDayBefore} }

// Custom returns a spec that fires at an absolute instant.
func Custom(at time.Time) Spec { return Spec{Kind: KindCustom, At: at} }

// ParseKind maps a wire name to a Kind. An empty name means custom.
func ParseKind(raw string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(raw))); k {
	case "":
		return KindCustom, nil
	case KindOnDue, KindHourBefore, KindDayBefore, KindCustom:
		return k, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownKind, raw)
	}
}

// resolve turns one spec into an absolute instant.
func (s Spec) resolve(due *time.Time) (time.Time, error) {
	var offset time.Duration
	switch s.Kind {
	case KindCustom:
		return s.At, nil
	case KindOnDue:
	case KindHourBefore:
		offset = time.Hour
	case KindDayBefore:
		offset = 24 * time.Hour
	default:
		return time.Time{}, fmt.Errorf("%w %q", ErrUnknownKind, s.Kind)
	}
	if due == nil {
		return time.Time{}, fmt.Errorf("%s: %w", s.Kind, ErrDueDateRequired)
	}
	return due.Add(-offset), nil
}

// Resolve converts specs to absolute UTC instants truncated to Precision.
// Specs landing on the same instant collapse into the first occurrence.
// Instants in the past are kept; filtering happens at scheduling time.
func Resolve(due *time.Time, specs []Spec) ([]time.Time, error) {
	times := make([]time.Time, 0, len(specs))
	seen := make(map[int64]struct{}, len(specs))
	for _, spec := range specs {
		at, err := spec.resolve(due)
		if err != nil {
			return nil, err
		}
		at = Normalize(at)
		key := at.UnixMilli()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		times = append(times, at)
	}
	return times, nil
}

// Normalize converts t to UTC at Precision.
func Normalize(t time.Time) time.Time {
	return t.UTC().Truncate(Precision)
}
