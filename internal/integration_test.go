package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"ezan-player-backend/config"
	"ezan-player-backend/internal/api"
	"ezan-player-backend/internal/model"
	"ezan-player-backend/internal/player"
	"ezan-player-backend/internal/prayer"
	"ezan-player-backend/internal/store"
)

// recordingDevice satisfies device.Controller and records calls.
type recordingDevice struct {
	mu    sync.Mutex
	calls []string
}

func (d *recordingDevice) record(call string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, call)
}

func (d *recordingDevice) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *recordingDevice) Wake(ctx context.Context) error { d.record("wake"); return nil }
func (d *recordingDevice) Volume(ctx context.Context) (int, error) {
	d.record("get_volume")
	return 40, nil
}
func (d *recordingDevice) SetVolume(ctx context.Context, level int) error {
	d.record(fmt.Sprintf("set_volume:%d", level))
	return nil
}
func (d *recordingDevice) Play(ctx context.Context, url string) error {
	d.record("play:" + url)
	return nil
}

// TestPlayerLifecycle drives the whole stack against a fake prayer times API:
// fetch, trigger table build, a manual firing through the control surface's
// collaborators, and the firing history landing in the database.
func TestPlayerLifecycle(t *testing.T) {
	// 1. In-memory database and real store.
	testDB, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, _ := testDB.DB()
	defer sqlDB.Close()

	require.NoError(t, testDB.AutoMigrate(
		&model.Settings{},
		&model.EventVolume{},
		&model.Firing{},
		&model.PushSubscription{},
	))

	appStore := store.NewGormStore(testDB, model.Settings{
		Mode:          model.ModeHome,
		DefaultVolume: 75,
	})

	// 2. Fake upstream API serving times 10 minutes from now so every trigger
	// stays armed for the duration of the test.
	now := time.Now().UTC()
	if now.Add(10 * time.Minute).Day() != now.Day() {
		t.Skip("too close to midnight for a same-day trigger window")
	}
	soon := now.Add(10 * time.Minute).Format("15:04")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"code":   200,
			"status": "OK",
			"data": map[string]any{
				"timings": map[string]string{
					"Fajr":    soon,
					"Dhuhr":   soon,
					"Asr":     soon,
					"Maghrib": soon,
					"Isha":    soon,
				},
			},
		})
	}))
	defer server.Close()

	cfg := &config.Config{
		Source: config.SourceConfig{
			URL:      server.URL,
			City:     "Barcelona",
			Country:  "Spain",
			Method:   "13",
			Timezone: "UTC",
			Timeout:  5 * time.Second,
		},
		Scheduler: config.SchedulerConfig{
			PollInterval:   20 * time.Millisecond,
			DailyRefreshAt: "00:01",
		},
		Audio: config.AudioConfig{
			DefaultVolume:  75,
			SettleRetries:  1,
			SettleInterval: time.Millisecond,
			ReassertDelay:  time.Millisecond,
		},
		Videos: map[string]string{
			"maghrib": "https://youtube.com/watch?v=maghrib",
		},
	}

	prayerClient, err := prayer.NewClient(&cfg.Source)
	require.NoError(t, err)

	dev := &recordingDevice{}
	svc, err := player.NewService(cfg, appStore, prayerClient, dev, nil)
	require.NoError(t, err)

	// 3. Run the service and wait for the initial schedule.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runDone := make(chan error, 1)
	go func() { runDone <- svc.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(svc.ScheduleSnapshot()) == 5
	}, 2*time.Second, 10*time.Millisecond, "initial fetch should populate the trigger table")

	for _, e := range svc.ScheduleSnapshot() {
		assert.True(t, e.Armed)
		assert.False(t, e.Fired)
	}

	// 4. Manual firing through the same path the control surface uses.
	suppressed, err := svc.ForceFire(prayer.Maghrib)
	require.NoError(t, err)
	assert.False(t, suppressed)
	assert.Contains(t, dev.Calls(), "play:https://youtube.com/watch?v=maghrib")

	var firings []model.Firing
	require.NoError(t, testDB.Find(&firings).Error)
	require.Len(t, firings, 1)
	assert.Equal(t, "maghrib", firings[0].Event)
	assert.True(t, firings[0].Manual)
	assert.False(t, firings[0].Suppressed)

	// 5. The status endpoint reflects mode, volume and the next prayer.
	router := api.NewRouter(appStore, svc, nil, &cfg.Server)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/status", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var status struct {
		Mode       string            `json:"mode"`
		Volume     int               `json:"volume"`
		Times      map[string]string `json:"prayer_times"`
		NextPrayer *struct {
			Name string `json:"name"`
			Time string `json:"time"`
		} `json:"next_prayer"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, model.ModeHome, status.Mode)
	assert.Equal(t, 75, status.Volume)
	assert.Len(t, status.Times, 5)
	require.NotNil(t, status.NextPrayer)
	assert.Equal(t, soon, status.NextPrayer.Time)

	// 6. Suppression: switch to office mode and fire again.
	require.NoError(t, appStore.SetMode(context.Background(), model.ModeOffice))
	callsBefore := len(dev.Calls())

	suppressed, err = svc.ForceFire(prayer.Maghrib)
	require.NoError(t, err)
	assert.True(t, suppressed)
	assert.Len(t, dev.Calls(), callsBefore, "suppressed firing must touch no device")

	require.NoError(t, testDB.Find(&firings).Error)
	require.Len(t, firings, 2)

	cancel()
	select {
	case err := <-runDone:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("player service did not shut down promptly")
	}
}
