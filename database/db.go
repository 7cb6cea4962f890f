package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when an operation targets a task id that does not
// exist in the store.
var ErrNotFound = errors.New("task not found")

// ValidationError reports a task field that failed validation on create or
// update. It maps to a 400 at the HTTP layer.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		priority TEXT NOT NULL,
		status TEXT NOT NULL,
		due_date TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks table: %w", err)
	}

	log.Println("Database initialized successfully")
	return db, nil
}

// TaskService handles database operations for tasks
type TaskService struct {
	db *sql.DB
}

func NewTaskService(db *sql.DB) *TaskService {
	return &TaskService{db: db}
}

// ListTasks returns all tasks, newest first.
func (s *TaskService) ListTasks() ([]Task, error) {
	rows, err := s.db.Query(`SELECT id, title, description, priority, status, due_date, created_at, updated_at
		FROM tasks ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tasks: %w", err)
	}

	return tasks, nil
}

// GetTask retrieves a single task by id.
func (s *TaskService) GetTask(id string) (*Task, error) {
	row := s.db.QueryRow(`SELECT id, title, description, priority, status, due_date, created_at, updated_at
		FROM tasks WHERE id = ?`, id)

	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return task, err
}

// CreateTask validates the given fields, fills in defaults (Medium priority,
// "To Do" status) and persists a new task with a generated id.
func (s *TaskService) CreateTask(t Task) (*Task, error) {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if !ValidPriority(t.Priority) {
		return nil, &ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown value %q", t.Priority)}
	}
	if t.Status == "" {
		t.Status = StatusToDo
	}
	if !ValidStatus(t.Status) {
		return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown value %q", t.Status)}
	}
	due, err := normalizeDueDate(t.DueDate)
	if err != nil {
		return nil, err
	}
	t.DueDate = due

	t.ID = uuid.NewString()
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err = s.db.Exec(`INSERT INTO tasks (id, title, description, priority, status, due_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, t.Priority, t.Status, t.DueDate, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}

	return &t, nil
}

// UpdateTask applies a partial patch to an existing task. Only non-nil patch
// fields change; everything else keeps its prior value. Returns ErrNotFound
// if the id does not exist.
func (s *TaskService) UpdateTask(id string, patch TaskPatch) (*Task, error) {
	task, err := s.GetTask(id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
		}
		task.Title = title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Priority != nil {
		if !ValidPriority(*patch.Priority) {
			return nil, &ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown value %q", *patch.Priority)}
		}
		task.Priority = *patch.Priority
	}
	if patch.Status != nil {
		if !ValidStatus(*patch.Status) {
			return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown value %q", *patch.Status)}
		}
		task.Status = *patch.Status
	}
	if patch.DueDate != nil {
		due, err := normalizeDueDate(patch.DueDate)
		if err != nil {
			return nil, err
		}
		task.DueDate = due
	}

	task.UpdatedAt = time.Now().UTC()

	_, err = s.db.Exec(`UPDATE tasks SET title = ?, description = ?, priority = ?, status = ?, due_date = ?, updated_at = ?
		WHERE id = ?`,
		task.Title, task.Description, task.Priority, task.Status, task.DueDate, task.UpdatedAt, task.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return task, nil
}

// DeleteTask removes a task. Deleting an id that does not exist is a no-op,
// so deletes are idempotent.
func (s *TaskService) DeleteTask(id string) error {
	if _, err := s.db.Exec("DELETE FROM tasks WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// normalizeDueDate validates a due date from a patch or create request.
// Empty string means "clear the due date" and normalizes to nil.
func normalizeDueDate(due *string) (*string, error) {
	if due == nil || *due == "" {
		return nil, nil
	}
	if _, err := time.Parse("2006-01-02", *due); err != nil {
		return nil, &ValidationError{Field: "dueDate", Reason: "must be a YYYY-MM-DD date"}
	}
	return due, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*Task, error) {
	var t Task
	var due sql.NullString
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Priority, &t.Status, &due, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}
	if due.Valid {
		t.DueDate = &due.String
	}
	return &t, nil
}
