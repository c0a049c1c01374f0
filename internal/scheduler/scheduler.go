package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/crop-advisor/internal/weather"
)

const defaultInterval = 30 * time.Minute

// Refresher fetches a fresh reading for a location and caches it.
type Refresher interface {
	FetchAndStore(ctx context.Context, loc weather.Location) (weather.Reading, error)
}

// Scheduler keeps the weather cache warm for configured locations so that
// recommendations can fall back to a recent reading when providers fail.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	refresher  Refresher
	locations  []weather.Location
	interval   time.Duration
	jobTimeout time.Duration
}

// New creates a new Scheduler.
func New(locations []weather.Location, interval time.Duration, refresher Refresher) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler:  s,
		refresher:  refresher,
		locations:  locations,
		interval:   interval,
		jobTimeout: 30 * time.Second,
	}
}

// Start schedules the periodic job and starts the underlying scheduler. The
// first run happens immediately.
func (s *Scheduler) Start() error {
	if len(s.locations) == 0 {
		slog.Info("scheduler: no locations configured; nothing to warm")
		return nil
	}

	_, err := s.scheduler.Every(s.every()).Do(func() { s.RunOnce() })
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// every returns the warm interval, defaulting to 30 minutes when unset.
func (s *Scheduler) every() time.Duration {
	if s.interval <= 0 {
		return defaultInterval
	}
	return s.interval
}

// RunOnce refreshes every location in parallel and returns how many succeeded.
func (s *Scheduler) RunOnce() int {
	slog.Debug("scheduler: warming weather cache", "locations", len(s.locations))

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for _, loc := range s.locations {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
			defer cancel()

			if _, err := s.refresher.FetchAndStore(ctx, loc); err != nil {
				slog.Warn("scheduler: refresh failed", "location", loc.Key(), "error", err)
				return
			}
			mu.Lock()
			ok++
			mu.Unlock()
		}()
	}
	wg.Wait()

	slog.Info("scheduler: weather cache warmed", "ok", ok, "locations", len(s.locations))
	return ok
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
