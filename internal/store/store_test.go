package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"ezan-player-backend/internal/model"
)

func newTestStore(t *testing.T) (Store, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&model.Settings{},
		&model.EventVolume{},
		&model.Firing{},
		&model.PushSubscription{},
	)
	require.NoError(t, err)

	defaults := model.Settings{
		Mode:                  model.ModeHome,
		DefaultVolume:         75,
		RestoreOriginalVolume: true,
		RestoreDelaySeconds:   300,
	}
	return NewGormStore(db, defaults), db
}

func TestSettings_DefaultsCreatedOnFirstRead(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	settings, err := s.Settings(ctx)
	require.NoError(t, err)

	assert.Equal(t, model.ModeHome, settings.Mode)
	assert.Equal(t, 75, settings.DefaultVolume)
	assert.True(t, settings.RestoreOriginalVolume)
	assert.Equal(t, 300, settings.RestoreDelaySeconds)
	assert.False(t, settings.Suppressed())
}

func TestSettings_ModeRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetMode(ctx, model.ModeOffice))
	settings, err := s.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.ModeOffice, settings.Mode)
	assert.True(t, settings.Suppressed())

	assert.Error(t, s.SetMode(ctx, "vacation"))
}

func TestSettings_OutOfRangeValuesAreClamped(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()

	// First read creates the row; then corrupt it directly.
	_, err := s.Settings(ctx)
	require.NoError(t, err)
	require.NoError(t, db.Model(&model.Settings{ID: 1}).Updates(map[string]any{
		"default_volume":        150,
		"restore_delay_seconds": -10,
		"mode":                  "garbage",
	}).Error)

	settings, err := s.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, settings.DefaultVolume)
	assert.Equal(t, 0, settings.RestoreDelaySeconds)
	assert.Equal(t, model.ModeHome, settings.Mode)
}

func TestEventVolumes_UpsertAndClamp(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetEventVolume(ctx, "maghrib", 85))
	require.NoError(t, s.SetEventVolume(ctx, "maghrib", 90)) // upsert
	require.NoError(t, s.SetEventVolume(ctx, "fajr", 120))   // clamped on write

	volumes, err := s.EventVolumes(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"maghrib": 90, "fajr": 100}, volumes)
}

func TestFirings_RecordAndListNewestFirst(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 8, 5, 5, 30, 0, 0, time.UTC)
	for i, event := range []string{"fajr", "dhuhr", "asr"} {
		require.NoError(t, s.RecordFiring(ctx, model.Firing{
			Event:        event,
			ScheduledFor: base.Add(time.Duration(i) * time.Hour),
			FiredAt:      base.Add(time.Duration(i) * time.Hour),
		}))
	}

	firings, err := s.RecentFirings(ctx, 2)
	require.NoError(t, err)
	require.Len(t, firings, 2)
	assert.Equal(t, "asr", firings[0].Event)
	assert.Equal(t, "dhuhr", firings[1].Event)
}

func TestSubscriptions_ListAndDelete(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&model.PushSubscription{
		Endpoint: "https://example.com/push",
		P256DH:   "p",
		Auth:     "a",
	}).Error)

	subs, err := s.Subscriptions(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)

	require.NoError(t, s.DeleteSubscription(ctx, "https://example.com/push"))
	subs, err = s.Subscriptions(ctx)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

// A helper function to create a mock database connection for error paths.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestSettings_QueryFailureFallsBackToDefaults(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT \* FROM "settings"`).
		WillReturnError(errors.New("connection reset"))

	s := NewGormStore(db, model.Settings{Mode: model.ModeHome, DefaultVolume: 75})
	settings, err := s.Settings(context.Background())

	assert.ErrorContains(t, err, "failed to load settings")
	assert.Equal(t, model.ModeHome, settings.Mode)
	assert.Equal(t, 75, settings.DefaultVolume)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentFirings_QueryFailure(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT \* FROM "firings"`).
		WillReturnError(errors.New("connection reset"))

	s := NewGormStore(db, model.Settings{DefaultVolume: 75})
	_, err := s.RecentFirings(context.Background(), 10)

	assert.ErrorContains(t, err, "failed to list firings")
	assert.NoError(t, mock.ExpectationsWereMet())
}
