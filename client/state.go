// Package client holds the board-side task state: an in-memory reflection
// of the store with optimistic mutations, the sync protocol that drives
// them, and the voice-capture state machine. Nothing here depends on a
// rendering layer.
package client

import (
	"strings"
	"sync"
	"time"

	"github.com/voicetracker/voicetracker/database"
)

// Notice is a user-visible failure notification recorded on rollback.
type Notice struct {
	Message string
	Time    time.Time
}

// State is the board's view of the task list plus pending notices.
type State struct {
	Tasks   []database.Task
	Notices []Notice
}

// Clone returns a deep copy. Snapshots taken before an optimistic mutation
// must not alias the live slices.
func (s State) Clone() State {
	out := State{
		Tasks:   make([]database.Task, len(s.Tasks)),
		Notices: make([]Notice, len(s.Notices)),
	}
	copy(out.Tasks, s.Tasks)
	copy(out.Notices, s.Notices)
	for i, t := range s.Tasks {
		if t.DueDate != nil {
			due := *t.DueDate
			out.Tasks[i].DueDate = &due
		}
	}
	return out
}

// Mutation is a local board mutation that can be applied optimistically
// ahead of server confirmation.
type Mutation interface {
	Apply(s State) State
}

// SetStatus moves a task to another board column.
type SetStatus struct {
	ID     string
	Status string
}

func (m SetStatus) Apply(s State) State {
	for i := range s.Tasks {
		if s.Tasks[i].ID == m.ID {
			s.Tasks[i].Status = m.Status
			break
		}
	}
	return s
}

// RemoveTask deletes a task from the board.
type RemoveTask struct {
	ID string
}

func (m RemoveTask) Apply(s State) State {
	tasks := s.Tasks[:0]
	for _, t := range s.Tasks {
		if t.ID != m.ID {
			tasks = append(tasks, t)
		}
	}
	s.Tasks = tasks
	return s
}

// Pure state transitions. The Container dispatches these under its lock;
// each takes and returns a cloned State so callers can hold snapshots.

func listLoaded(s State, tasks []database.Task) State {
	s.Tasks = tasks
	return s
}

func applyMutation(s State, m Mutation) State {
	return m.Apply(s)
}

// confirmSaved reconciles a save with the server's authoritative
// representation: an existing entry is replaced, a new one goes to the head
// of the list (newest first).
func confirmSaved(s State, task database.Task) State {
	for i := range s.Tasks {
		if s.Tasks[i].ID == task.ID {
			s.Tasks[i] = task
			return s
		}
	}
	s.Tasks = append([]database.Task{task}, s.Tasks...)
	return s
}

func rolledBack(s State, snapshot State, notice Notice) State {
	restored := snapshot.Clone()
	restored.Notices = append(s.Notices, notice)
	return restored
}

// Container owns the board state for one session.
type Container struct {
	mu    sync.Mutex
	state State
	now   func() time.Time
}

func NewContainer() *Container {
	return &Container{
		state: State{Tasks: []database.Task{}},
		now:   time.Now,
	}
}

// Snapshot returns a deep copy of the current state.
func (c *Container) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Tasks returns a copy of the current task list.
func (c *Container) Tasks() []database.Task {
	return c.Snapshot().Tasks
}

// Notices returns the recorded failure notifications.
func (c *Container) Notices() []Notice {
	return c.Snapshot().Notices
}

// ListLoaded replaces the task list with a fresh server result.
func (c *Container) ListLoaded(tasks []database.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = listLoaded(c.state.Clone(), tasks)
}

// Apply applies a mutation optimistically and returns the pre-mutation
// snapshot for a later rollback.
func (c *Container) Apply(m Mutation) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot := c.state.Clone()
	c.state = applyMutation(c.state.Clone(), m)
	return snapshot
}

// ConfirmSaved reconciles a created or fully edited task with the server's
// returned representation.
func (c *Container) ConfirmSaved(task database.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = confirmSaved(c.state.Clone(), task)
}

// Rollback restores a pre-mutation snapshot in full and records a failure
// notice. Notices accumulated since the snapshot are preserved.
func (c *Container) Rollback(snapshot State, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = rolledBack(c.state, snapshot, Notice{Message: message, Time: c.now()})
}

// AddNotice records a failure that did not involve an optimistic mutation.
func (c *Container) AddNotice(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Notices = append(c.state.Notices, Notice{Message: message, Time: c.now()})
}

// ClearNotices drops displayed notifications.
func (c *Container) ClearNotices() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Notices = nil
}

// Filter returns tasks whose titles contain the query, case-insensitively.
// An empty query returns everything.
func (c *Container) Filter(query string) []database.Task {
	tasks := c.Tasks()
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return tasks
	}
	filtered := tasks[:0]
	for _, t := range tasks {
		if strings.Contains(strings.ToLower(t.Title), query) {
			filtered = append(filtered, t)
		}
	}
	return filtered
}
