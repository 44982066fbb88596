package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"crewboard/domain"
)

// TaskStore holds the task collection in memory, optionally writing
// mutations through to a persister before applying them.
type TaskStore struct {
	mu      sync.RWMutex
	tasks   map[string]domain.Task
	order   []string
	subs    *subscribers
	persist TaskPersister
	nowFn   func() time.Time
}

// NewTaskStore creates an empty task store. persist may be nil when no
// durable backend is wired (tests, ephemeral boards).
func NewTaskStore(persist TaskPersister) *TaskStore {
	return &TaskStore{
		tasks:   map[string]domain.Task{},
		subs:    newSubscribers(),
		persist: persist,
		nowFn:   time.Now,
	}
}

// Load seeds the store, replacing its contents. Listing order follows the
// seed order.
func (s *TaskStore) Load(tasks []domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = make(map[string]domain.Task, len(tasks))
	s.order = make([]string, 0, len(tasks))
	for _, t := range tasks {
		if _, dup := s.tasks[t.ID]; dup {
			continue
		}
		s.tasks[t.ID] = t
		s.order = append(s.order, t.ID)
	}
}

// ListTasks returns a snapshot of all tasks in load order.
func (s *TaskStore) ListTasks() []domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Task, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.tasks[id])
	}
	return out
}

// GetTask returns the task with the given id.
func (s *TaskStore) GetTask(id string) (domain.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	return t, ok
}

// SetTaskStatus atomically updates one task's status and refreshes its
// UpdatedAt timestamp. Exactly one event is published to subscribers, after
// the new value is visible. When a persister is wired the write-through
// happens first; on failure the in-memory state is left untouched.
func (s *TaskStore) SetTaskStatus(ctx context.Context, id string, status domain.Status) error {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	now := s.nowFn()
	if s.persist != nil {
		if err := s.persist.SaveTaskStatus(ctx, id, status, now); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("persist task %s: %w", id, err)
		}
	}
	t.Status = status
	t.UpdatedAt = now
	s.tasks[id] = t
	s.mu.Unlock()

	s.subs.notify(newEvent("task", id, TaskStatusChanged))
	return nil
}

// Subscribe registers a callback invoked synchronously for every mutation.
// The returned function unregisters it.
func (s *TaskStore) Subscribe(fn func(Event)) func() {
	return s.subs.add(fn)
}

// ReminderStore holds the reminder collection in memory.
type ReminderStore struct {
	mu      sync.RWMutex
	items   map[string]domain.Reminder
	order   []string
	subs    *subscribers
	persist ReminderPersister
}

// NewReminderStore creates an empty reminder store.
func NewReminderStore(persist ReminderPersister) *ReminderStore {
	return &ReminderStore{
		items:   map[string]domain.Reminder{},
		subs:    newSubscribers(),
		persist: persist,
	}
}

// Load seeds the store, replacing its contents.
func (s *ReminderStore) Load(reminders []domain.Reminder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]domain.Reminder, len(reminders))
	s.order = make([]string, 0, len(reminders))
	for _, r := range reminders {
		if _, dup := s.items[r.ID]; dup {
			continue
		}
		s.items[r.ID] = r
		s.order = append(s.order, r.ID)
	}
}

// Add inserts a reminder created by an outside collaborator (forms, seed
// data). Existing ids are overwritten in place.
func (s *ReminderStore) Add(r domain.Reminder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[r.ID]; !ok {
		s.order = append(s.order, r.ID)
	}
	s.items[r.ID] = r
}

// ListReminders returns a snapshot of all reminders in load order. The
// in-memory store never fails, but the signature leaves room for sources
// backed by a remote collaborator.
func (s *ReminderStore) ListReminders() ([]domain.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Reminder, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out, nil
}

// MarkReminderSent flips the sent flag to true. The flag is monotonic:
// marking an already-sent reminder is a no-op and publishes no event.
func (s *ReminderStore) MarkReminderSent(ctx context.Context, id string) error {
	s.mu.Lock()
	r, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("reminder %s: %w", id, ErrNotFound)
	}
	if r.Sent {
		s.mu.Unlock()
		return nil
	}
	if s.persist != nil {
		if err := s.persist.SaveReminderSent(ctx, id); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("persist reminder %s: %w", id, err)
		}
	}
	r.Sent = true
	s.items[id] = r
	s.mu.Unlock()

	s.subs.notify(newEvent("reminder", id, ReminderMarked))
	return nil
}

// Subscribe registers a callback invoked synchronously for every mutation.
func (s *ReminderStore) Subscribe(fn func(Event)) func() {
	return s.subs.add(fn)
}

// Directory holds the read-only category and contact collections and
// resolves dangling references to placeholder labels instead of failing.
type Directory struct {
	mu         sync.RWMutex
	categories map[string]domain.Category
	catOrder   []string
	contacts   map[string]domain.Contact
	conOrder   []string
}

// Placeholder labels used when a reference does not resolve.
const (
	UnknownCategoryName = "Uncategorized"
	UnknownContactName  = "Unknown"
)

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		categories: map[string]domain.Category{},
		contacts:   map[string]domain.Contact{},
	}
}

// LoadCategories seeds the category collection.
func (d *Directory) LoadCategories(categories []domain.Category) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.categories = make(map[string]domain.Category, len(categories))
	d.catOrder = make([]string, 0, len(categories))
	for _, c := range categories {
		d.categories[c.ID] = c
		d.catOrder = append(d.catOrder, c.ID)
	}
}

// LoadContacts seeds the contact collection.
func (d *Directory) LoadContacts(contacts []domain.Contact) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.contacts = make(map[string]domain.Contact, len(contacts))
	d.conOrder = make([]string, 0, len(contacts))
	for _, c := range contacts {
		d.contacts[c.ID] = c
		d.conOrder = append(d.conOrder, c.ID)
	}
}

// ListCategories returns all categories in load order.
func (d *Directory) ListCategories() []domain.Category {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.Category, 0, len(d.catOrder))
	for _, id := range d.catOrder {
		out = append(out, d.categories[id])
	}
	return out
}

// ListContacts returns all contacts in load order.
func (d *Directory) ListContacts() []domain.Contact {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.Contact, 0, len(d.conOrder))
	for _, id := range d.conOrder {
		out = append(out, d.contacts[id])
	}
	return out
}

// CategoryName resolves a category id to its display name, falling back to
// a placeholder for empty or dangling references.
func (d *Directory) CategoryName(id string) string {
	if id == "" {
		return UnknownCategoryName
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if c, ok := d.categories[id]; ok {
		return c.Name
	}
	return UnknownCategoryName
}

// ContactName resolves a contact id to its display name, falling back to a
// placeholder for dangling references.
func (d *Directory) ContactName(id string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if c, ok := d.contacts[id]; ok {
		return c.Name
	}
	return UnknownContactName
}
