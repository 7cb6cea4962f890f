package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/voicetracker/voicetracker/client"
	"github.com/voicetracker/voicetracker/database"
	"github.com/voicetracker/voicetracker/gateway"
)

// stubAPI implements client.TaskAPI with fixed responses.
type stubAPI struct {
	tasks  []database.Task
	parsed *gateway.ExtractionResult
}

func (s *stubAPI) ListTasks(ctx context.Context) ([]database.Task, error) { return s.tasks, nil }

func (s *stubAPI) CreateTask(ctx context.Context, t database.Task) (*database.Task, error) {
	t.ID = "new-id"
	return &t, nil
}

func (s *stubAPI) UpdateTask(ctx context.Context, id string, patch database.TaskPatch) (*database.Task, error) {
	return &database.Task{ID: id}, nil
}

func (s *stubAPI) DeleteTask(ctx context.Context, id string) error { return nil }

func (s *stubAPI) ParseTranscript(ctx context.Context, transcript string) (*gateway.ExtractionResult, error) {
	return s.parsed, nil
}

func newTestBoard(tasks []database.Task) boardModel {
	api := &stubAPI{tasks: tasks}
	syncer := client.NewSyncer(api, client.NewContainer())
	m := newBoardModel(syncer)
	m.width = 120
	m.height = 40
	m.loading = false
	syncer.Container().ListLoaded(tasks)
	m.reloadLocal()
	return m
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestBoardViewShowsColumns(t *testing.T) {
	m := newTestBoard([]database.Task{
		{ID: "1", Title: "Email Sam", Status: database.StatusToDo, Priority: database.PriorityHigh},
		{ID: "2", Title: "Ship release", Status: database.StatusDone, Priority: database.PriorityLow},
	})

	view := m.View()
	for _, want := range []string{"TO DO", "IN PROGRESS", "DONE", "Email Sam", "Ship release"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestBoardNavigationClampsRow(t *testing.T) {
	m := newTestBoard([]database.Task{
		{ID: "1", Title: "a", Status: database.StatusToDo, Priority: database.PriorityLow},
		{ID: "2", Title: "b", Status: database.StatusToDo, Priority: database.PriorityLow},
	})

	next, _ := m.Update(keyMsg("j"))
	m = next.(boardModel)
	if m.row != 1 {
		t.Errorf("row = %d, want 1", m.row)
	}

	// Moving to an empty column resets the cursor.
	next, _ = m.Update(keyMsg("l"))
	m = next.(boardModel)
	if m.col != 1 || m.row != 0 {
		t.Errorf("col,row = %d,%d, want 1,0", m.col, m.row)
	}
}

func TestBoardKeyOpensVoiceModal(t *testing.T) {
	m := newTestBoard(nil)

	next, _ := m.Update(keyMsg("n"))
	m = next.(boardModel)

	if m.modal.Phase() != client.PhaseListening {
		t.Fatalf("modal phase = %v, want listening", m.modal.Phase())
	}
	if !strings.Contains(m.View(), "Listening") {
		t.Error("view does not show the listening state")
	}
}

func TestBoardTranscriptEntryRequestsParse(t *testing.T) {
	m := newTestBoard(nil)

	next, _ := m.Update(keyMsg("n"))
	m = next.(boardModel)
	next, _ = m.Update(keyMsg("buy milk"))
	m = next.(boardModel)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(boardModel)

	if m.modal.Phase() != client.PhaseParsing {
		t.Fatalf("modal phase = %v, want parsing", m.modal.Phase())
	}
	if cmd == nil {
		t.Fatal("no parse command issued")
	}
}

func TestBoardEscapeCancelsModal(t *testing.T) {
	m := newTestBoard(nil)

	next, _ := m.Update(keyMsg("a"))
	m = next.(boardModel)
	if m.modal.Phase() != client.PhaseDraft {
		t.Fatalf("modal phase = %v, want draft", m.modal.Phase())
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(boardModel)
	if m.modal.Phase() != client.PhaseIdle {
		t.Errorf("modal phase = %v, want idle", m.modal.Phase())
	}
}

func TestCycle(t *testing.T) {
	if got := cycle(statuses, database.StatusToDo, 1); got != database.StatusInProgress {
		t.Errorf("cycle forward = %q", got)
	}
	if got := cycle(statuses, database.StatusToDo, -1); got != database.StatusDone {
		t.Errorf("cycle wraps backward = %q", got)
	}
	if got := cycle(statuses, "bogus", 1); got != database.StatusToDo {
		t.Errorf("cycle from unknown = %q", got)
	}
}

func TestDueDateHelpers(t *testing.T) {
	if setOrNil("") != nil {
		t.Error("setOrNil(\"\") should be nil")
	}
	if got := setOrNil("2024-06-14"); got == nil || *got != "2024-06-14" {
		t.Errorf("setOrNil = %v", got)
	}
	if got := trimLast("ab"); got != "a" {
		t.Errorf("trimLast = %q", got)
	}
	if got := trimLast(""); got != "" {
		t.Errorf("trimLast(\"\") = %q", got)
	}
}
