package model

import "time"

// Operating modes for the player. Office mode suppresses all playback side
// effects while scheduling keeps running.
const (
	ModeHome   = "home"
	ModeOffice = "office"
)

// Settings holds the operator-adjustable state. A single row (ID 1) is kept;
// the control surface writes it, the player only reads it before each firing.
type Settings struct {
	ID                    int64  `gorm:"primaryKey"`
	Mode                  string `gorm:"size:16;not null"`
	DefaultVolume         int    `gorm:"not null"`
	RestoreOriginalVolume bool   `gorm:"not null"`
	RestoreDelaySeconds   int    `gorm:"not null"`
	UpdatedAt             time.Time
}

// Suppressed reports whether playback side effects are currently disabled.
func (s Settings) Suppressed() bool {
	return s.Mode == ModeOffice
}
