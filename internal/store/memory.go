package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/i474232898/crop-advisor/internal/weather"
)

var (
	// ErrNotFound is returned when no data is available for a given location.
	ErrNotFound = errors.New("no weather data for location")
)

// readingHistory holds a time-ordered list of readings for a location.
type readingHistory struct {
	readings []weather.Reading
}

// MemoryStore is a concurrency-safe in-memory implementation of weather.Store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: location key, value: history
	data map[string]*readingHistory

	// retention configuration
	maxHistory int           // max number of readings per location
	maxAge     time.Duration // readings older than this are not served

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory or maxAge is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*readingHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// Save appends a reading for its location and enforces retention.
func (s *MemoryStore) Save(_ context.Context, reading weather.Reading) error {
	key := reading.Location.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[key]
	if !ok {
		history = &readingHistory{}
		s.data[key] = history
	}

	history.readings = append(history.readings, reading)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.readings) > s.maxHistory {
		over := len(history.readings) - s.maxHistory
		history.readings = history.readings[over:]
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.readings); i++ {
			if !history.readings[i].Timestamp.Before(cutoff) {
				break
			}
		}
		history.readings = history.readings[i:]
	}
	return nil
}

// Latest returns the most recent reading for a location that is still within maxAge.
func (s *MemoryStore) Latest(_ context.Context, loc weather.Location) (weather.Reading, error) {
	key := loc.Key()

	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[key]
	if !ok || len(history.readings) == 0 {
		return weather.Reading{}, ErrNotFound
	}
	latest := history.readings[len(history.readings)-1]
	if s.maxAge > 0 && latest.Timestamp.Before(s.now().Add(-s.maxAge)) {
		return weather.Reading{}, ErrNotFound
	}
	return latest, nil
}
