package domain

import "strings"

// AssigneeUnassigned is the filter sentinel selecting tasks with an empty
// assignee set, as opposed to "" which means any assignee.
const AssigneeUnassigned = "unassigned"

// FilterCriteria describes the board filter fields. Zero values mean the
// criterion is inactive.
type FilterCriteria struct {
	SearchQuery string `json:"searchQuery,omitempty"`
	CategoryID  string `json:"categoryId,omitempty"`
	AssigneeID  string `json:"assigneeId,omitempty"`
}

// FilterTasks returns the tasks matching every active criterion, in their
// input order. The input slice is never mutated.
func FilterTasks(tasks []Task, c FilterCriteria) []Task {
	query := strings.ToLower(strings.TrimSpace(c.SearchQuery))
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if query != "" && !matchesQuery(t, query) {
			continue
		}
		if c.CategoryID != "" && t.CategoryID != c.CategoryID {
			continue
		}
		if c.AssigneeID != "" && !matchesAssignee(t, c.AssigneeID) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matchesQuery(t Task, query string) bool {
	return strings.Contains(strings.ToLower(t.Title), query) ||
		strings.Contains(strings.ToLower(t.Description), query)
}

func matchesAssignee(t Task, assigneeID string) bool {
	if assigneeID == AssigneeUnassigned {
		return len(t.AssigneeIDs) == 0
	}
	return t.AssigneeIDs.Has(assigneeID)
}
