package client

import (
	"reflect"
	"testing"

	"github.com/voicetracker/voicetracker/database"
)

func strPtr(s string) *string { return &s }

func sampleTasks() []database.Task {
	return []database.Task{
		{ID: "1", Title: "Email Sam", Status: database.StatusToDo, Priority: database.PriorityHigh, DueDate: strPtr("2024-06-14")},
		{ID: "2", Title: "Buy milk", Status: database.StatusToDo, Priority: database.PriorityMedium},
		{ID: "3", Title: "Ship release", Status: database.StatusInProgress, Priority: database.PriorityCritical},
	}
}

func newLoadedContainer() *Container {
	c := NewContainer()
	c.ListLoaded(sampleTasks())
	return c
}

func TestSnapshotIsIndependent(t *testing.T) {
	c := newLoadedContainer()

	snapshot := c.Snapshot()
	c.Apply(SetStatus{ID: "1", Status: database.StatusDone})

	if snapshot.Tasks[0].Status != database.StatusToDo {
		t.Error("snapshot was mutated by a later Apply")
	}

	// Pointer fields must not alias either.
	*snapshot.Tasks[0].DueDate = "1999-01-01"
	if due := c.Tasks()[0].DueDate; due == nil || *due != "2024-06-14" {
		t.Error("container state aliased the snapshot's DueDate")
	}
}

func TestApplySetStatus(t *testing.T) {
	c := newLoadedContainer()

	c.Apply(SetStatus{ID: "2", Status: database.StatusDone})

	tasks := c.Tasks()
	if tasks[1].Status != database.StatusDone {
		t.Errorf("task 2 status = %q, want Done", tasks[1].Status)
	}
	if tasks[0].Status != database.StatusToDo || tasks[2].Status != database.StatusInProgress {
		t.Error("other tasks changed")
	}
}

func TestApplyRemoveTask(t *testing.T) {
	c := newLoadedContainer()

	c.Apply(RemoveTask{ID: "2"})

	tasks := c.Tasks()
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
	for _, task := range tasks {
		if task.ID == "2" {
			t.Error("task 2 still present")
		}
	}
}

func TestRollbackRestoresSnapshotExactly(t *testing.T) {
	c := newLoadedContainer()
	before := c.Snapshot()

	snapshot := c.Apply(SetStatus{ID: "1", Status: database.StatusDone})
	c.Rollback(snapshot, "Failed to update task")

	after := c.Snapshot()
	if !reflect.DeepEqual(after.Tasks, before.Tasks) {
		t.Errorf("tasks after rollback differ:\n got %+v\nwant %+v", after.Tasks, before.Tasks)
	}

	notices := c.Notices()
	if len(notices) != 1 || notices[0].Message != "Failed to update task" {
		t.Errorf("notices = %+v, want one failure notice", notices)
	}
}

func TestConfirmSavedReplacesExisting(t *testing.T) {
	c := newLoadedContainer()

	c.ConfirmSaved(database.Task{ID: "2", Title: "Buy oat milk", Status: database.StatusToDo, Priority: database.PriorityLow})

	tasks := c.Tasks()
	if len(tasks) != 3 {
		t.Fatalf("got %d tasks, want 3", len(tasks))
	}
	if tasks[1].Title != "Buy oat milk" || tasks[1].Priority != database.PriorityLow {
		t.Errorf("task 2 not replaced: %+v", tasks[1])
	}
}

func TestConfirmSavedPrependsNew(t *testing.T) {
	c := newLoadedContainer()

	c.ConfirmSaved(database.Task{ID: "4", Title: "New thing"})

	tasks := c.Tasks()
	if len(tasks) != 4 {
		t.Fatalf("got %d tasks, want 4", len(tasks))
	}
	if tasks[0].ID != "4" {
		t.Errorf("new task not at the head: %+v", tasks[0])
	}
}

func TestFilter(t *testing.T) {
	c := newLoadedContainer()

	if got := c.Filter(""); len(got) != 3 {
		t.Errorf("empty query returned %d tasks, want 3", len(got))
	}
	if got := c.Filter("MILK"); len(got) != 1 || got[0].ID != "2" {
		t.Errorf("Filter(MILK) = %+v", got)
	}
	if got := c.Filter("zzz"); len(got) != 0 {
		t.Errorf("Filter(zzz) = %+v, want none", got)
	}
}

func TestClearNotices(t *testing.T) {
	c := newLoadedContainer()
	c.AddNotice("something failed")
	c.ClearNotices()
	if got := c.Notices(); len(got) != 0 {
		t.Errorf("notices = %+v, want none", got)
	}
}
