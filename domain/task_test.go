package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestIDSetJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(NewIDSet("b", "a"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `["a","b"]` {
		t.Fatalf("expected sorted array, got %s", data)
	}
	var s IDSet
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !s.Has("a") || !s.Has("b") || s.Has("c") {
		t.Fatalf("unexpected membership: %v", s)
	}
}

func TestReminderDue(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	r := Reminder{Date: now}
	if !r.Due(now) {
		t.Fatal("reminder at now should be due")
	}
	if !r.Due(now.Add(time.Minute)) {
		t.Fatal("past reminder should be due")
	}
	if r.Due(now.Add(-time.Minute)) {
		t.Fatal("future reminder should not be due")
	}
}

func TestRoleAssignable(t *testing.T) {
	if !RoleCommittee.Assignable() || !RoleVolunteer.Assignable() {
		t.Fatal("committee and volunteer must be assignable")
	}
	if Role("sponsor").Assignable() {
		t.Fatal("other roles are not assignable by default")
	}
}
