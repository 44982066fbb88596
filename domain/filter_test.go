package domain

import (
	"reflect"
	"testing"
)

func sampleTasks() []Task {
	return []Task{
		{ID: "t1", Title: "Buy Chairs", Status: StatusTodo, CategoryID: "logistics", AssigneeIDs: NewIDSet()},
		{ID: "t2", Title: "Order Tents", Description: "chairs too", Status: StatusTodo, CategoryID: "logistics", AssigneeIDs: NewIDSet("c1")},
		{ID: "t3", Title: "Print flyers", Status: StatusInProgress, CategoryID: "promo", AssigneeIDs: NewIDSet("c1", "c2")},
	}
}

func ids(tasks []Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestFilterTasksIdentity(t *testing.T) {
	tasks := sampleTasks()
	got := FilterTasks(tasks, FilterCriteria{})
	if !reflect.DeepEqual(ids(got), ids(tasks)) {
		t.Fatalf("empty criteria changed result: %v", ids(got))
	}
}

func TestFilterTasksSearchCaseInsensitive(t *testing.T) {
	got := FilterTasks(sampleTasks(), FilterCriteria{SearchQuery: "chairs"})
	if !reflect.DeepEqual(ids(got), []string{"t1", "t2"}) {
		t.Fatalf("expected title and description matches, got %v", ids(got))
	}
}

func TestFilterTasksSearchMatchesNothing(t *testing.T) {
	got := FilterTasks(sampleTasks(), FilterCriteria{SearchQuery: "nope"})
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %v", ids(got))
	}
}

func TestFilterTasksCategoryExactMatch(t *testing.T) {
	got := FilterTasks(sampleTasks(), FilterCriteria{CategoryID: "promo"})
	if !reflect.DeepEqual(ids(got), []string{"t3"}) {
		t.Fatalf("expected only promo tasks, got %v", ids(got))
	}
}

func TestFilterTasksUnassignedSentinel(t *testing.T) {
	got := FilterTasks(sampleTasks(), FilterCriteria{AssigneeID: AssigneeUnassigned})
	if !reflect.DeepEqual(ids(got), []string{"t1"}) {
		t.Fatalf("expected only unassigned task, got %v", ids(got))
	}
}

func TestFilterTasksAssigneeMembership(t *testing.T) {
	got := FilterTasks(sampleTasks(), FilterCriteria{AssigneeID: "c2"})
	if !reflect.DeepEqual(ids(got), []string{"t3"}) {
		t.Fatalf("expected membership match, got %v", ids(got))
	}
}

func TestFilterTasksCriteriaCompose(t *testing.T) {
	got := FilterTasks(sampleTasks(), FilterCriteria{SearchQuery: "chairs", AssigneeID: "c1"})
	if !reflect.DeepEqual(ids(got), []string{"t2"}) {
		t.Fatalf("expected AND composition, got %v", ids(got))
	}
}

func TestFilterTasksDoesNotMutateInput(t *testing.T) {
	tasks := sampleTasks()
	want := ids(tasks)
	_ = FilterTasks(tasks, FilterCriteria{SearchQuery: "chairs", CategoryID: "promo"})
	if !reflect.DeepEqual(ids(tasks), want) {
		t.Fatalf("input order changed: %v", ids(tasks))
	}
}

func TestFilterTasksEmptyInput(t *testing.T) {
	got := FilterTasks(nil, FilterCriteria{SearchQuery: "x"})
	if len(got) != 0 {
		t.Fatalf("expected empty result for nil input, got %v", got)
	}
}
