package player

import (
	"context"
	"log"
	"strings"
	"time"

	"ezan-player-backend/internal/model"
	"ezan-player-backend/internal/prayer"
)

// execute runs the bounded action sequence for one firing: settings check,
// wake, volume raise with settle retries, playback, volume re-assert, and a
// deferred restore. No single step's failure aborts the later steps or the
// poll loop. The resulting firing record is appended to the store.
func (s *Service) execute(ctx context.Context, event prayer.Event, scheduledFor time.Time, manual bool) model.Firing {
	firing := model.Firing{
		Event:        event.String(),
		ScheduledFor: scheduledFor,
		FiredAt:      s.now(),
		Manual:       manual,
	}
	var failures []string

	defer func() {
		firing.Error = strings.Join(failures, "; ")
		if err := s.store.RecordFiring(ctx, firing); err != nil {
			log.Printf("Failed to record firing of %s: %v", event, err)
		}
		if s.notifier != nil {
			s.notifier.Dispatch(event.String())
		}
	}()

	settings, err := s.store.Settings(ctx)
	if err != nil {
		// The store falls back to configured defaults; keep going with those.
		log.Printf("Failed to read settings before firing %s, using defaults: %v", event, err)
	}

	if settings.Suppressed() {
		log.Printf("Office mode active - skipping %s", event)
		firing.Suppressed = true
		return firing
	}

	if err := s.device.Wake(ctx); err != nil {
		// Non-fatal: playback may still succeed on an already-awake device.
		log.Printf("Failed to wake device for %s: %v", event, err)
		failures = append(failures, "wake: "+err.Error())
	}

	target := settings.DefaultVolume
	if volumes, err := s.store.EventVolumes(ctx); err != nil {
		log.Printf("Failed to read event volumes, using default %d: %v", target, err)
	} else if v, ok := volumes[event.String()]; ok {
		target = v
	}

	var snapshot *int
	if settings.RestoreOriginalVolume {
		if level, err := s.device.Volume(ctx); err != nil {
			// Restoration is simply skipped later.
			log.Printf("Failed to read current volume before %s, restore skipped: %v", event, err)
		} else {
			snapshot = &level
		}
	}

	// A short burst of repeated set-calls overcomes asynchronous volume
	// control lag in the underlying device.
	for i := 0; i < s.cfg.Audio.SettleRetries; i++ {
		if err := s.device.SetVolume(ctx, target); err != nil {
			log.Printf("Failed to set volume to %d for %s: %v", target, event, err)
			failures = append(failures, "set_volume: "+err.Error())
		}
		if i < s.cfg.Audio.SettleRetries-1 && !sleep(ctx, s.cfg.Audio.SettleInterval) {
			return firing
		}
	}

	url := s.cfg.Videos[event.String()]
	if url == "" {
		log.Printf("No video configured for %s, skipping playback", event)
		failures = append(failures, "play: no video configured")
	} else if err := s.device.Play(ctx, url); err != nil {
		log.Printf("Failed to play %s video: %v", event, err)
		failures = append(failures, "play: "+err.Error())
	} else {
		log.Printf("Playing %s ezan video: %s", event, url)
	}

	// Playback itself can move the volume; assert the target once more.
	if sleep(ctx, s.cfg.Audio.ReassertDelay) {
		if err := s.device.SetVolume(ctx, target); err != nil {
			log.Printf("Failed to re-assert volume %d for %s: %v", target, event, err)
		}
	}

	if snapshot != nil {
		s.scheduleRestore(ctx, event, *snapshot, time.Duration(settings.RestoreDelaySeconds)*time.Second)
	}

	return firing
}

// scheduleRestore arms a one-shot deferred restoration of the pre-firing
// volume. It runs independently of the poll loop; cancellation of ctx
// abandons it cleanly.
func (s *Service) scheduleRestore(ctx context.Context, event prayer.Event, level int, delay time.Duration) {
	s.restores.Add(1)
	go func() {
		defer s.restores.Done()
		if !sleep(ctx, delay) {
			log.Printf("Shutdown before volume restore for %s, abandoned", event)
			return
		}
		if err := s.device.SetVolume(ctx, level); err != nil {
			log.Printf("Failed to restore volume to %d after %s: %v", level, event, err)
			return
		}
		log.Printf("Restored volume to %d after %s", level, event)
	}()
}

// sleep waits for d, returning false if ctx is cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
