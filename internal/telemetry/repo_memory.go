package telemetry

import (
	"encoding/json"
	"sync"
	"time"
)

// Repository records and queries command execution events.
type Repository interface {
	RecordEvent(eventType EventType, metadata EventMetadata) error
	GetEvents(since time.Time, eventTypes []EventType) ([]Event, error)
	Clear() error
}

// maxEvents bounds the in-memory log; the oldest events are dropped
// once the window is full. Stats only ever look back a few days, so a
// bounded window loses nothing the API can serve.
const maxEvents = 10000

// MemoryRepository keeps events in a bounded in-memory window. Events
// are operational signal, not user data; losing them on restart is
// acceptable.
type MemoryRepository struct {
	mu     sync.RWMutex
	events []Event
	nextID int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{nextID: 1}
}

func (r *MemoryRepository) RecordEvent(eventType EventType, metadata EventMetadata) error {
	raw, err := json.Marshal(metadata)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, Event{
		ID:        r.nextID,
		Type:      eventType,
		Timestamp: time.Now(),
		Metadata:  string(raw),
	})
	r.nextID++

	if len(r.events) > maxEvents {
		r.events = r.events[len(r.events)-maxEvents:]
	}
	return nil
}

// GetEvents returns events at or after since. An empty eventTypes
// slice means all types.
func (r *MemoryRepository) GetEvents(since time.Time, eventTypes []EventType) ([]Event, error) {
	wanted := make(map[EventType]bool, len(eventTypes))
	for _, t := range eventTypes {
		wanted[t] = true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Event, 0)
	for _, ev := range r.events {
		if ev.Timestamp.Before(since) {
			continue
		}
		if len(wanted) > 0 && !wanted[ev.Type] {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (r *MemoryRepository) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
	r.nextID = 1
	return nil
}
