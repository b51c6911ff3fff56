package model

import "time"

// EventVolume is a per-prayer override of the default cue volume.
type EventVolume struct {
	Event     string `gorm:"primaryKey;size:32"`
	Volume    int    `gorm:"not null"`
	UpdatedAt time.Time
}
