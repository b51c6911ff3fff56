package store

import (
	"context"
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ezan-player-backend/internal/device"
	"ezan-player-backend/internal/model"
)

// settingsRowID is the primary key of the single settings row.
const settingsRowID = 1

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB

	// Settings returns the current operator settings with out-of-range values
	// clamped. The row is created from defaults on first use.
	Settings(ctx context.Context) (model.Settings, error)
	SetMode(ctx context.Context, mode string) error
	SetDefaultVolume(ctx context.Context, volume int) error
	SetRestore(ctx context.Context, restore bool, delaySeconds int) error

	EventVolumes(ctx context.Context) (map[string]int, error)
	SetEventVolume(ctx context.Context, event string, volume int) error

	RecordFiring(ctx context.Context, firing model.Firing) error
	RecentFirings(ctx context.Context, limit int) ([]model.Firing, error)

	Subscriptions(ctx context.Context) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db       *gorm.DB
	defaults model.Settings
}

// NewGormStore creates a new GORM-backed store. The defaults seed the settings
// row the first time it is read.
func NewGormStore(db *gorm.DB, defaults model.Settings) Store {
	defaults.ID = settingsRowID
	if defaults.Mode == "" {
		defaults.Mode = model.ModeHome
	}
	defaults.DefaultVolume = device.Clamp(defaults.DefaultVolume)
	return &gormStore{db: db, defaults: defaults}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) Settings(ctx context.Context) (model.Settings, error) {
	settings := s.defaults
	err := s.db.WithContext(ctx).
		Where(model.Settings{ID: settingsRowID}).
		Attrs(s.defaults).
		FirstOrCreate(&settings).Error
	if err != nil {
		return s.defaults, fmt.Errorf("failed to load settings: %w", err)
	}

	// Clamp rather than fail on malformed rows; a bad volume must never stop
	// a firing.
	if clamped := device.Clamp(settings.DefaultVolume); clamped != settings.DefaultVolume {
		log.Printf("Settings default_volume %d out of range, clamping to %d", settings.DefaultVolume, clamped)
		settings.DefaultVolume = clamped
	}
	if settings.RestoreDelaySeconds < 0 {
		log.Printf("Settings restore_delay_seconds %d is negative, clamping to 0", settings.RestoreDelaySeconds)
		settings.RestoreDelaySeconds = 0
	}
	if settings.Mode != model.ModeHome && settings.Mode != model.ModeOffice {
		log.Printf("Settings mode %q is unknown, treating as %q", settings.Mode, model.ModeHome)
		settings.Mode = model.ModeHome
	}
	return settings, nil
}

func (s *gormStore) SetMode(ctx context.Context, mode string) error {
	if mode != model.ModeHome && mode != model.ModeOffice {
		return fmt.Errorf("unknown mode %q", mode)
	}
	return s.updateSettings(ctx, map[string]any{"mode": mode})
}

func (s *gormStore) SetDefaultVolume(ctx context.Context, volume int) error {
	return s.updateSettings(ctx, map[string]any{"default_volume": device.Clamp(volume)})
}

func (s *gormStore) SetRestore(ctx context.Context, restore bool, delaySeconds int) error {
	if delaySeconds < 0 {
		delaySeconds = 0
	}
	return s.updateSettings(ctx, map[string]any{
		"restore_original_volume": restore,
		"restore_delay_seconds":   delaySeconds,
	})
}

// updateSettings writes selected columns, creating the row first if needed.
func (s *gormStore) updateSettings(ctx context.Context, values map[string]any) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		settings := s.defaults
		if err := tx.Where(model.Settings{ID: settingsRowID}).
			Attrs(s.defaults).
			FirstOrCreate(&settings).Error; err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}
		if err := tx.Model(&model.Settings{ID: settingsRowID}).Updates(values).Error; err != nil {
			return fmt.Errorf("failed to update settings: %w", err)
		}
		return nil
	})
}

func (s *gormStore) EventVolumes(ctx context.Context) (map[string]int, error) {
	var rows []model.EventVolume
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load event volumes: %w", err)
	}
	volumes := make(map[string]int, len(rows))
	for _, row := range rows {
		if clamped := device.Clamp(row.Volume); clamped != row.Volume {
			log.Printf("Event volume for %s is %d, clamping to %d", row.Event, row.Volume, clamped)
			row.Volume = clamped
		}
		volumes[row.Event] = row.Volume
	}
	return volumes, nil
}

func (s *gormStore) SetEventVolume(ctx context.Context, event string, volume int) error {
	row := model.EventVolume{Event: event, Volume: device.Clamp(volume)}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event"}},
		DoUpdates: clause.AssignmentColumns([]string{"volume", "updated_at"}),
	}).Create(&row).Error
}

func (s *gormStore) RecordFiring(ctx context.Context, firing model.Firing) error {
	return s.db.WithContext(ctx).Create(&firing).Error
}

func (s *gormStore) RecentFirings(ctx context.Context, limit int) ([]model.Firing, error) {
	if limit <= 0 {
		limit = 50
	}
	var firings []model.Firing
	err := s.db.WithContext(ctx).
		Order("fired_at DESC").
		Limit(limit).
		Find(&firings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list firings: %w", err)
	}
	return firings, nil
}

func (s *gormStore) Subscriptions(ctx context.Context) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error
}
