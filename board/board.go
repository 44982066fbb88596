package board

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"crewboard/domain"
	"crewboard/store"
)

var (
	// ErrUnknownTask is returned when a move names a task that does not exist.
	ErrUnknownTask = errors.New("unknown task")
	// ErrUnknownStatus is returned when a move targets a status outside the
	// configured column set.
	ErrUnknownStatus = errors.New("status outside column set")
)

// TaskStore is the slice of the task store the board depends on.
type TaskStore interface {
	ListTasks() []domain.Task
	SetTaskStatus(ctx context.Context, id string, status domain.Status) error
}

// Board applies drag-and-drop moves against a fixed, ordered column set.
// Any column-to-column move is permitted; the only guard is that the target
// status belongs to the set.
type Board struct {
	columns   []domain.Status
	columnSet map[domain.Status]struct{}
	tasks     TaskStore
	logger    *log.Logger
}

// Column is one Kanban lane with its tasks in store order.
type Column struct {
	Status domain.Status `json:"status"`
	Tasks  []domain.Task `json:"tasks"`
}

// New creates a board over the given ordered column set.
func New(columns []domain.Status, tasks TaskStore, logger *log.Logger) *Board {
	if len(columns) == 0 {
		panic("board.New: empty column set")
	}
	set := make(map[domain.Status]struct{}, len(columns))
	for _, c := range columns {
		set[c] = struct{}{}
	}
	return &Board{columns: columns, columnSet: set, tasks: tasks, logger: logger}
}

// Columns returns the ordered column set.
func (b *Board) Columns() []domain.Status {
	out := make([]domain.Status, len(b.columns))
	copy(out, b.columns)
	return out
}

// ValidStatus reports whether s belongs to the column set.
func (b *Board) ValidStatus(s domain.Status) bool {
	_, ok := b.columnSet[s]
	return ok
}

// MoveTask sets the named task's status. Unknown tasks and out-of-set
// statuses are reported as sentinel errors without any mutation, so the
// caller's drop handler can surface a warning instead of crashing.
func (b *Board) MoveTask(ctx context.Context, taskID string, status domain.Status) error {
	if !b.ValidStatus(status) {
		return fmt.Errorf("move task %s: %w: %q", taskID, ErrUnknownStatus, status)
	}
	if err := b.tasks.SetTaskStatus(ctx, taskID, status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("move task %s: %w", taskID, ErrUnknownTask)
		}
		return fmt.Errorf("move task %s: %w", taskID, err)
	}
	b.logger.WithFields(log.Fields{"task": taskID, "status": status}).Debug("task moved")
	return nil
}

// Snapshot returns the filtered board grouped by column, preserving both
// the configured column order and the store's task order within each lane.
func (b *Board) Snapshot(criteria domain.FilterCriteria) []Column {
	filtered := domain.FilterTasks(b.tasks.ListTasks(), criteria)
	out := make([]Column, len(b.columns))
	index := make(map[domain.Status]int, len(b.columns))
	for i, status := range b.columns {
		out[i] = Column{Status: status, Tasks: []domain.Task{}}
		index[status] = i
	}
	for _, t := range filtered {
		if i, ok := index[t.Status]; ok {
			out[i].Tasks = append(out[i].Tasks, t)
		}
	}
	return out
}
