package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"crewboard/domain"
)

var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("entity not found")
)

// Event kinds emitted by the stores.
const (
	TaskStatusChanged = "task-status-changed"
	ReminderMarked    = "reminder-sent"
)

// Event describes a single store mutation. Every mutation produces exactly
// one event, published after the mutation is fully applied.
type Event struct {
	ID         string `json:"id"`
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	Type       string `json:"type"`
	Time       int64  `json:"time"`
}

func newEvent(entityType, entityID, kind string) Event {
	return Event{
		ID:         uuid.NewString(),
		EntityType: entityType,
		EntityID:   entityID,
		Type:       kind,
		Time:       time.Now().UnixNano(),
	}
}

// TaskPersister writes task mutations through to durable storage before
// they become visible in memory.
type TaskPersister interface {
	SaveTaskStatus(ctx context.Context, taskID string, status domain.Status, updatedAt time.Time) error
}

// ReminderPersister writes the sent flag through to durable storage.
type ReminderPersister interface {
	SaveReminderSent(ctx context.Context, reminderID string) error
}

// subscribers fans a store's events out to registered callbacks. Callbacks
// run synchronously, outside the store lock, in no particular order.
type subscribers struct {
	mu  sync.RWMutex
	fns map[string]func(Event)
}

func newSubscribers() *subscribers {
	return &subscribers{fns: map[string]func(Event){}}
}

func (s *subscribers) add(fn func(Event)) func() {
	id := uuid.NewString()
	s.mu.Lock()
	s.fns[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.fns, id)
		s.mu.Unlock()
	}
}

func (s *subscribers) notify(ev Event) {
	s.mu.RLock()
	fns := make([]func(Event), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}
