package database

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestService(t *testing.T) *TaskService {
	t.Helper()
	db, err := InitDB(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewTaskService(db)
}

func strPtr(s string) *string { return &s }

func TestCreateTaskDefaults(t *testing.T) {
	s := newTestService(t)

	task, err := s.CreateTask(Task{Title: "Buy milk"})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	if task.ID == "" {
		t.Error("expected a generated id")
	}
	if task.Priority != PriorityMedium {
		t.Errorf("Priority = %q, want %q", task.Priority, PriorityMedium)
	}
	if task.Status != StatusToDo {
		t.Errorf("Status = %q, want %q", task.Status, StatusToDo)
	}
	if task.DueDate != nil {
		t.Errorf("DueDate = %v, want nil", *task.DueDate)
	}
	if task.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestCreateTaskValidation(t *testing.T) {
	s := newTestService(t)

	cases := []struct {
		name string
		task Task
	}{
		{"empty title", Task{Title: "   "}},
		{"bad priority", Task{Title: "x", Priority: "Urgent"}},
		{"bad status", Task{Title: "x", Status: "Blocked"}},
		{"bad due date", Task{Title: "x", DueDate: strPtr("next friday")}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.CreateTask(tc.task)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("got %v, want ValidationError", err)
			}
		})
	}
}

func TestListTasksNewestFirst(t *testing.T) {
	s := newTestService(t)

	titles := []string{"first", "second", "third"}
	for _, title := range titles {
		if _, err := s.CreateTask(Task{Title: title}); err != nil {
			t.Fatalf("CreateTask(%q) failed: %v", title, err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	tasks, err := s.ListTasks()
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("got %d tasks, want 3", len(tasks))
	}

	want := []string{"third", "second", "first"}
	for i, title := range want {
		if tasks[i].Title != title {
			t.Errorf("tasks[%d].Title = %q, want %q", i, tasks[i].Title, title)
		}
	}
}

func TestUpdateTaskPartialPatch(t *testing.T) {
	s := newTestService(t)

	created, err := s.CreateTask(Task{
		Title:       "Write report",
		Description: "quarterly numbers",
		Priority:    PriorityHigh,
		DueDate:     strPtr("2024-06-14"),
	})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	updated, err := s.UpdateTask(created.ID, TaskPatch{Status: strPtr(StatusDone)})
	if err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}

	if updated.Status != StatusDone {
		t.Errorf("Status = %q, want %q", updated.Status, StatusDone)
	}
	if updated.Title != created.Title {
		t.Errorf("Title changed: %q -> %q", created.Title, updated.Title)
	}
	if updated.Description != created.Description {
		t.Errorf("Description changed: %q -> %q", created.Description, updated.Description)
	}
	if updated.Priority != created.Priority {
		t.Errorf("Priority changed: %q -> %q", created.Priority, updated.Priority)
	}
	if updated.DueDate == nil || *updated.DueDate != "2024-06-14" {
		t.Errorf("DueDate changed: %v", updated.DueDate)
	}
	if updated.ID != created.ID {
		t.Errorf("ID changed: %q -> %q", created.ID, updated.ID)
	}
}

func TestUpdateTaskClearsDueDate(t *testing.T) {
	s := newTestService(t)

	created, err := s.CreateTask(Task{Title: "x", DueDate: strPtr("2024-06-14")})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	updated, err := s.UpdateTask(created.ID, TaskPatch{DueDate: strPtr("")})
	if err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	if updated.DueDate != nil {
		t.Errorf("DueDate = %v, want nil", *updated.DueDate)
	}
}

func TestUpdateTaskNotFound(t *testing.T) {
	s := newTestService(t)

	_, err := s.UpdateTask("no-such-id", TaskPatch{Status: strPtr(StatusDone)})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestDeleteTaskIdempotent(t *testing.T) {
	s := newTestService(t)

	created, err := s.CreateTask(Task{Title: "doomed"})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	if err := s.DeleteTask(created.ID); err != nil {
		t.Fatalf("first delete failed: %v", err)
	}
	if err := s.DeleteTask(created.ID); err != nil {
		t.Fatalf("second delete failed: %v", err)
	}

	tasks, err := s.ListTasks()
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("got %d tasks after delete, want 0", len(tasks))
	}
}

func TestCreateTaskRoundTrip(t *testing.T) {
	s := newTestService(t)

	created, err := s.CreateTask(Task{
		Title:       "Email Sam",
		Description: "about the launch plan",
		Priority:    PriorityCritical,
		Status:      StatusInProgress,
		DueDate:     strPtr("2024-06-14"),
	})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	fetched, err := s.GetTask(created.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}

	if fetched.Title != "Email Sam" ||
		fetched.Description != "about the launch plan" ||
		fetched.Priority != PriorityCritical ||
		fetched.Status != StatusInProgress {
		t.Errorf("fetched task differs: %+v", fetched)
	}
	if fetched.DueDate == nil || *fetched.DueDate != "2024-06-14" {
		t.Errorf("DueDate = %v, want 2024-06-14", fetched.DueDate)
	}
}
