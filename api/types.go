package api

import (
	"context"

	"crewboard/board"
	"crewboard/domain"
)

// Board is the slice of the Kanban board handlers depend on.
type Board interface {
	Columns() []domain.Status
	Snapshot(criteria domain.FilterCriteria) []board.Column
	MoveTask(ctx context.Context, taskID string, status domain.Status) error
}

// TaskLister exposes the task collection for the filtered list endpoint.
type TaskLister interface {
	ListTasks() []domain.Task
}

// ReminderLister exposes the reminder collection.
type ReminderLister interface {
	ListReminders() ([]domain.Reminder, error)
}

// DirectoryView exposes the category and contact collections.
type DirectoryView interface {
	ListCategories() []domain.Category
	ListContacts() []domain.Contact
}

// Authenticator is implemented by types able to extract user ids from
// Authorization headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

// Deduper prevents replayed move requests from being applied twice.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, userID, key string) (bool, error)
	// Remove deletes a previously added key, used when the move fails.
	Remove(ctx context.Context, userID, key string) error
}
