// Package player implements the daily scheduling and playback-override
// engine: the trigger table, the poll loop that fires due triggers and
// refreshes the table once per calendar day, and the one-shot executor that
// wakes the device, overrides the volume, and invokes playback.
package player

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"ezan-player-backend/config"
	"ezan-player-backend/internal/device"
	"ezan-player-backend/internal/prayer"
	"ezan-player-backend/internal/store"
)

// ErrNotArmed is returned by ForceFire for an event with no armed trigger.
var ErrNotArmed = errors.New("trigger is not armed")

// Source supplies today's prayer times. Satisfied by *prayer.Client.
type Source interface {
	FetchToday(ctx context.Context) (prayer.Times, error)
	Location() *time.Location
}

// Notifier receives the event name of every firing. Satisfied by
// *notification.WorkerPool; may be nil when push is disabled.
type Notifier interface {
	Start(ctx context.Context)
	Dispatch(event string)
}

// Service drives the poll loop. A single goroutine owns the loop; only the
// deferred volume restores run concurrently with it.
type Service struct {
	cfg      *config.Config
	store    store.Store
	source   Source
	device   device.Controller
	notifier Notifier

	loc       *time.Location
	refreshAt prayer.Clock

	mu             sync.Mutex
	schedule       *Schedule
	nextRefresh    time.Time
	refreshPending bool
	runCtx         context.Context

	restores sync.WaitGroup

	now func() time.Time
}

// NewService creates the player service. It does not fetch anything yet.
func NewService(cfg *config.Config, st store.Store, source Source, dev device.Controller, notifier Notifier) (*Service, error) {
	refreshAt, err := prayer.ParseClock(cfg.Scheduler.DailyRefreshAt)
	if err != nil {
		return nil, fmt.Errorf("invalid daily_refresh_at: %w", err)
	}
	return &Service{
		cfg:       cfg,
		store:     st,
		source:    source,
		device:    dev,
		notifier:  notifier,
		loc:       source.Location(),
		refreshAt: refreshAt,
		runCtx:    context.Background(),
		now:       time.Now,
	}, nil
}

// Run fetches the initial schedule and drives the poll loop until ctx is
// cancelled. The first fetch failing is fatal: there is nothing to schedule.
func (s *Service) Run(ctx context.Context) error {
	s.mu.Lock()
	s.runCtx = ctx
	s.mu.Unlock()

	if err := s.refresh(ctx); err != nil {
		return fmt.Errorf("initial prayer times fetch failed: %w", err)
	}

	if s.notifier != nil {
		s.notifier.Start(ctx)
	}

	log.Printf("Player service running, polling every %s", s.cfg.Scheduler.PollInterval)

	ticker := time.NewTicker(s.cfg.Scheduler.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Player service shutting down.")
			// Pending restores abandon themselves on ctx cancellation; wait so
			// shutdown observes them all exiting.
			s.restores.Wait()
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one poll cycle: fire the due batch, or attempt a due refresh. A
// refresh never interleaves with a fire batch; when both are due the batch
// wins and the refresh is deferred to the next tick.
func (s *Service) tick(ctx context.Context) {
	now := s.now().In(s.loc)

	s.mu.Lock()
	due := s.schedule.Due(now)
	batch := make([]Trigger, 0, len(due))
	for _, t := range due {
		// Marking fired before handing off means a slow executor can never
		// cause a duplicate fire on the next tick.
		if !s.schedule.MarkFired(t.Event) {
			log.Printf("INVARIANT VIOLATION: duplicate fire attempt for %s, refusing", t.Event)
			continue
		}
		batch = append(batch, *t)
	}
	refreshDue := s.refreshPending || !now.Before(s.nextRefresh)
	s.mu.Unlock()

	if len(batch) > 0 {
		// Fire-and-continue: the batch runs off the loop, in ascending
		// fire-time order within itself.
		go func() {
			for _, t := range batch {
				s.execute(ctx, t.Event, t.FireAt, false)
			}
		}()
		return
	}

	if refreshDue {
		if err := s.refresh(ctx); err != nil {
			log.Printf("Daily refresh failed, keeping current schedule: %v", err)
			s.mu.Lock()
			s.refreshPending = true
			s.mu.Unlock()
		}
	}
}

// refresh rebuilds the trigger table from a fresh fetch. On success the old
// schedule is replaced wholesale; on failure it is left untouched.
func (s *Service) refresh(ctx context.Context) error {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.Source.Timeout)
	defer cancel()

	times, err := s.source.FetchToday(fetchCtx)
	if err != nil {
		return err
	}

	now := s.now().In(s.loc)
	schedule := BuildSchedule(times, now)

	s.mu.Lock()
	s.schedule = schedule
	s.nextRefresh = s.nextRefreshAfter(now)
	s.refreshPending = false
	s.mu.Unlock()

	for _, e := range schedule.Entries() {
		if e.Armed {
			log.Printf("Scheduled %s at %s", e.Event, e.FireAt.Format("15:04"))
		} else {
			log.Printf("Skipped %s at %s (already passed today)", e.Event, e.FireAt.Format("15:04"))
		}
	}
	return nil
}

// nextRefreshAfter returns the next occurrence of the daily refresh instant
// strictly after now.
func (s *Service) nextRefreshAfter(now time.Time) time.Time {
	next := s.refreshAt.At(now)
	if !next.After(now) {
		next = s.refreshAt.At(now.AddDate(0, 0, 1))
	}
	return next
}

// ScheduleSnapshot returns the current trigger table for display, in
// ascending fire-time order. Empty before the first successful fetch.
func (s *Service) ScheduleSnapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schedule == nil {
		return nil
	}
	return s.schedule.Entries()
}

// ForceFire runs the full executor sequence for an event immediately,
// bypassing the due-time check but still honoring suppression. The trigger's
// fired flag is left untouched: a manual test does not consume the day's
// scheduled firing. It returns ErrNotArmed when the event has no armed
// trigger, and reports whether the firing was suppressed.
func (s *Service) ForceFire(event prayer.Event) (suppressed bool, err error) {
	if !event.Valid() {
		return false, fmt.Errorf("unknown event %q", event)
	}

	s.mu.Lock()
	ctx := s.runCtx
	var trigger Trigger
	var ok bool
	if s.schedule != nil {
		trigger, ok = s.schedule.Lookup(event)
	}
	s.mu.Unlock()

	if !ok || !trigger.Armed {
		return false, ErrNotArmed
	}

	firing := s.execute(ctx, event, trigger.FireAt, true)
	return firing.Suppressed, nil
}
