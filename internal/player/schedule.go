package player

import (
	"sort"
	"time"

	"ezan-player-backend/internal/prayer"
)

// Trigger is the armed, time-bound intent to fire one event's executor once.
type Trigger struct {
	Event  prayer.Event
	FireAt time.Time
	Armed  bool
	Fired  bool
}

// Schedule is the set of one-shot triggers for a single calendar day. It is
// replaced wholesale on daily refresh, never merged. Callers synchronize
// access; the Service guards its live schedule with a mutex.
type Schedule struct {
	day      time.Time // midnight of the calendar day the triggers belong to
	triggers map[prayer.Event]*Trigger
}

// BuildSchedule derives a day's triggers from fetched times. An event whose
// time has already elapsed at build time is recorded as not armed so it never
// fires retroactively.
func BuildSchedule(times prayer.Times, now time.Time) *Schedule {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	s := &Schedule{
		day:      day,
		triggers: make(map[prayer.Event]*Trigger, len(times)),
	}
	for event, clock := range times {
		fireAt := clock.At(now)
		s.triggers[event] = &Trigger{
			Event:  event,
			FireAt: fireAt,
			Armed:  fireAt.After(now),
		}
	}
	return s
}

// Day returns midnight of the calendar day this schedule was built for.
func (s *Schedule) Day() time.Time {
	return s.day
}

// SameDay reports whether now falls on the schedule's calendar day. A trigger
// is never due outside its own day; this guards against a long pause (device
// sleep) letting a stale trigger fire on a following day.
func (s *Schedule) SameDay(now time.Time) bool {
	y1, m1, d1 := s.day.Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// Due returns the armed, not-yet-fired triggers whose fire time has arrived,
// in ascending fire-time order.
func (s *Schedule) Due(now time.Time) []*Trigger {
	if !s.SameDay(now) {
		return nil
	}
	var due []*Trigger
	for _, t := range s.triggers {
		if t.Armed && !t.Fired && !t.FireAt.After(now) {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].FireAt.Before(due[j].FireAt) })
	return due
}

// MarkFired flips a trigger's fired flag exactly once. It returns false when
// the trigger is unknown, disarmed, or already fired; a duplicate attempt is a
// contract violation the caller must log loudly.
func (s *Schedule) MarkFired(event prayer.Event) bool {
	t, ok := s.triggers[event]
	if !ok || !t.Armed || t.Fired {
		return false
	}
	t.Fired = true
	return true
}

// Lookup returns the trigger for an event, if the schedule holds one.
func (s *Schedule) Lookup(event prayer.Event) (Trigger, bool) {
	t, ok := s.triggers[event]
	if !ok {
		return Trigger{}, false
	}
	return *t, true
}

// Entry is a read-only view of one trigger for display.
type Entry struct {
	Event  prayer.Event `json:"event"`
	FireAt time.Time    `json:"fire_at"`
	Armed  bool         `json:"armed"`
	Fired  bool         `json:"fired"`
}

// Entries returns a snapshot of all triggers in ascending fire-time order.
func (s *Schedule) Entries() []Entry {
	entries := make([]Entry, 0, len(s.triggers))
	for _, t := range s.triggers {
		entries = append(entries, Entry{
			Event:  t.Event,
			FireAt: t.FireAt,
			Armed:  t.Armed,
			Fired:  t.Fired,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].FireAt.Before(entries[j].FireAt) })
	return entries
}
