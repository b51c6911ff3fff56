package model

import "time"

// Firing is the historical log of trigger executions (cold table). One row is
// appended per executor run, whether it played, was suppressed, or failed.
type Firing struct {
	ID           int64     `gorm:"autoIncrement;primaryKey"`
	Event        string    `gorm:"size:32;not null;index"`
	ScheduledFor time.Time `gorm:"not null"`
	FiredAt      time.Time `gorm:"not null;index"`
	Manual       bool      `gorm:"not null"`
	Suppressed   bool      `gorm:"not null"`
	Error        string    `gorm:"size:512"`
}
