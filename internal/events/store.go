package events

import (
	"sync"
	"time"
)

// EventType represents the kind of backend interaction that was attempted
type EventType string

const (
	// Identification events
	EventIdentify        EventType = "identify"
	EventIdentifyInvalid EventType = "identify_invalid"

	// Lookup events
	EventSearch   EventType = "search"
	EventResearch EventType = "research"
)

// DefaultSize is the ring buffer capacity used when none is configured
const DefaultSize = 100

// Event represents one attempt recorded in the audit log
type Event struct {
	ID        int64     `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	IP        string    `json:"ip"`
	Success   bool      `json:"success"`
	Details   string    `json:"details,omitempty"`
}

// Store holds events in memory with a fixed capacity (ring buffer)
type Store struct {
	mu      sync.RWMutex
	events  []Event
	maxSize int
	nextID  int64
}

// NewStore creates a new event store with specified max capacity
func NewStore(maxSize int) *Store {
	if maxSize <= 0 {
		maxSize = DefaultSize
	}
	return &Store{
		events:  make([]Event, 0, maxSize),
		maxSize: maxSize,
	}
}

// Add adds a new event to the store and returns it
func (s *Store) Add(eventType EventType, ip string, success bool, details string) Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	event := Event{
		ID:        s.nextID,
		Type:      eventType,
		Timestamp: time.Now(),
		IP:        ip,
		Success:   success,
		Details:   details,
	}

	// Ring buffer: remove oldest if at max capacity
	if len(s.events) >= s.maxSize {
		s.events = s.events[1:]
	}
	s.events = append(s.events, event)
	return event
}

// GetAll returns all events (newest first)
func (s *Store) GetAll() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Event, len(s.events))
	for i, e := range s.events {
		result[len(s.events)-1-i] = e
	}
	return result
}

// GetLast returns the last N events (newest first)
func (s *Store) GetLast(n int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n > len(s.events) {
		n = len(s.events)
	}
	if n < 0 {
		n = 0
	}

	result := make([]Event, n)
	for i := 0; i < n; i++ {
		result[i] = s.events[len(s.events)-1-i]
	}
	return result
}

// GetSince returns events newer than the given ID (newest first)
func (s *Store) GetSince(lastID int64) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []Event{}
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].ID <= lastID {
			break
		}
		result = append(result, s.events[i])
	}
	return result
}

// Count returns the number of events currently held
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Capacity returns the maximum number of events kept
func (s *Store) Capacity() int {
	return s.maxSize
}

// LastID returns the ID of the most recent event
func (s *Store) LastID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextID
}
