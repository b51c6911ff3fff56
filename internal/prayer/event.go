package prayer

// Event identifies one of the five daily prayers.
type Event string

const (
	Fajr    Event = "fajr"
	Dhuhr   Event = "dhuhr"
	Asr     Event = "asr"
	Maghrib Event = "maghrib"
	Isha    Event = "isha"
)

// Events returns all five events in their daily order.
func Events() []Event {
	return []Event{Fajr, Dhuhr, Asr, Maghrib, Isha}
}

// Valid reports whether e is one of the five known events.
func (e Event) Valid() bool {
	switch e {
	case Fajr, Dhuhr, Asr, Maghrib, Isha:
		return true
	}
	return false
}

func (e Event) String() string {
	return string(e)
}
