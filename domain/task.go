package domain

import (
	"encoding/json"
	"sort"
	"time"
)

// Status is one discrete Kanban column a task can occupy.
type Status string

// Default column set. Deployments may override the set via configuration;
// the engine only ever writes statuses that belong to the configured set.
const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

// DefaultColumns returns the default ordered column set.
func DefaultColumns() []Status {
	return []Status{StatusTodo, StatusInProgress, StatusDone}
}

// IDSet is a set of entity identifiers with O(1) membership. It marshals
// as a sorted JSON array so the wire form stays stable.
type IDSet map[string]struct{}

// NewIDSet builds a set from the given ids.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is a member of the set.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Values returns the members in sorted order.
func (s IDSet) Values() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s IDSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}

func (s *IDSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewIDSet(ids...)
	return nil
}

// Task represents a single board item.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      Status    `json:"status"`
	CategoryID  string    `json:"categoryId,omitempty"`
	AssigneeIDs IDSet     `json:"assigneeIds"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Category labels tasks. Tasks reference categories and tolerate the
// reference dangling after a category is deleted.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Role classifies a contact within the committee.
type Role string

const (
	RoleCommittee Role = "committee"
	RoleVolunteer Role = "volunteer"
)

// Assignable reports whether contacts with this role show up in the
// default assignee directory.
func (r Role) Assignable() bool {
	return r == RoleCommittee || r == RoleVolunteer
}

// Contact is a person tasks can be assigned to.
type Contact struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// Reminder is a one-shot due-date alert tied to a task. Sent only ever
// transitions false to true.
type Reminder struct {
	ID     string    `json:"id"`
	TaskID string    `json:"taskId"`
	Date   time.Time `json:"date"`
	Sent   bool      `json:"sent"`
}

// Due reports whether the reminder is due at the given instant.
func (r Reminder) Due(now time.Time) bool {
	return !r.Date.After(now)
}
