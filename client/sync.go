package client

import (
	"context"

	"github.com/voicetracker/voicetracker/database"
	"github.com/voicetracker/voicetracker/gateway"
)

// TaskAPI is the task service surface the sync layer talks to.
type TaskAPI interface {
	ListTasks(ctx context.Context) ([]database.Task, error)
	CreateTask(ctx context.Context, t database.Task) (*database.Task, error)
	UpdateTask(ctx context.Context, id string, patch database.TaskPatch) (*database.Task, error)
	DeleteTask(ctx context.Context, id string) error
	ParseTranscript(ctx context.Context, transcript string) (*gateway.ExtractionResult, error)
}

// Draft is an editable, unpersisted task-shaped object awaiting user
// confirmation. An empty ID means the draft will create a new task.
type Draft struct {
	ID          string
	Title       string
	Description string
	Priority    string
	Status      string
	DueDate     *string
}

// NewDraft returns an empty draft with the field defaults preselected.
func NewDraft() Draft {
	return Draft{
		Priority: database.PriorityMedium,
		Status:   database.StatusToDo,
	}
}

// DraftFromTask seeds a draft from an existing task for editing.
func DraftFromTask(t database.Task) Draft {
	return Draft{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Status:      t.Status,
		DueDate:     t.DueDate,
	}
}

// DraftFromExtraction seeds a draft from a validated extraction result.
func DraftFromExtraction(res *gateway.ExtractionResult) Draft {
	return Draft{
		Title:       res.Title,
		Description: res.Description,
		Priority:    res.Priority,
		Status:      res.Status,
		DueDate:     res.DueDate,
	}
}

func (d Draft) task() database.Task {
	return database.Task{
		Title:       d.Title,
		Description: d.Description,
		Priority:    d.Priority,
		Status:      d.Status,
		DueDate:     d.DueDate,
	}
}

func (d Draft) patch() database.TaskPatch {
	due := d.DueDate
	if due == nil {
		// The form clears a due date by submitting an empty string.
		empty := ""
		due = &empty
	}
	return database.TaskPatch{
		Title:       &d.Title,
		Description: &d.Description,
		Priority:    &d.Priority,
		Status:      &d.Status,
		DueDate:     due,
	}
}

// Syncer applies board actions optimistically against a Container and
// confirms them with the task service, rolling the whole state back when a
// call fails. Every action is visibly all-or-nothing.
type Syncer struct {
	api       TaskAPI
	container *Container
}

func NewSyncer(api TaskAPI, container *Container) *Syncer {
	return &Syncer{api: api, container: container}
}

func (s *Syncer) Container() *Container { return s.container }

// Refresh replaces local state with the server's task list.
func (s *Syncer) Refresh(ctx context.Context) error {
	tasks, err := s.api.ListTasks(ctx)
	if err != nil {
		s.container.AddNotice("Failed to load tasks")
		return err
	}
	s.container.ListLoaded(tasks)
	return nil
}

// StageMove applies a status change optimistically and returns the
// confirmation step. Callers re-render right after staging, then run the
// confirmation asynchronously; on failure the container is rolled back to
// the staged snapshot. The local patch matches what the server applies, so
// success needs no reconciliation.
func (s *Syncer) StageMove(id, status string) func(ctx context.Context) error {
	snapshot := s.container.Apply(SetStatus{ID: id, Status: status})
	return func(ctx context.Context) error {
		if _, err := s.api.UpdateTask(ctx, id, database.TaskPatch{Status: &status}); err != nil {
			s.container.Rollback(snapshot, "Failed to update task")
			return err
		}
		return nil
	}
}

// StageDelete applies a removal optimistically and returns the
// confirmation step.
func (s *Syncer) StageDelete(id string) func(ctx context.Context) error {
	snapshot := s.container.Apply(RemoveTask{ID: id})
	return func(ctx context.Context) error {
		if err := s.api.DeleteTask(ctx, id); err != nil {
			s.container.Rollback(snapshot, "Failed to delete task")
			return err
		}
		return nil
	}
}

// MoveTask changes a task's status (drag between columns, or the inline
// selector) and waits for confirmation.
func (s *Syncer) MoveTask(ctx context.Context, id, status string) error {
	return s.StageMove(id, status)(ctx)
}

// DeleteTask removes a task optimistically and waits for confirmation.
func (s *Syncer) DeleteTask(ctx context.Context, id string) error {
	return s.StageDelete(id)(ctx)
}

// SaveDraft persists a confirmed draft: create when the draft has no id,
// full-field update otherwise. The server's returned representation
// replaces the local entry, so store-assigned fields (id, timestamps,
// defaults) come back authoritative.
func (s *Syncer) SaveDraft(ctx context.Context, d Draft) (*database.Task, error) {
	var saved *database.Task
	var err error
	if d.ID == "" {
		saved, err = s.api.CreateTask(ctx, d.task())
	} else {
		saved, err = s.api.UpdateTask(ctx, d.ID, d.patch())
	}
	if err != nil {
		s.container.AddNotice("Failed to save task")
		return nil, err
	}
	s.container.ConfirmSaved(*saved)
	return saved, nil
}

// Parse delegates a transcript to the extraction endpoint.
func (s *Syncer) Parse(ctx context.Context, transcript string) (*gateway.ExtractionResult, error) {
	return s.api.ParseTranscript(ctx, transcript)
}
