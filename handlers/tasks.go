package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/voicetracker/voicetracker/database"
	"github.com/voicetracker/voicetracker/gateway"
)

// maxTranscriptBytes bounds /api/parse input; model latency and cost grow
// with transcript size and recognition sessions never legitimately produce
// this much text.
const maxTranscriptBytes = 8 * 1024

// TaskStore is the persistence surface the handlers need.
type TaskStore interface {
	ListTasks() ([]database.Task, error)
	CreateTask(t database.Task) (*database.Task, error)
	UpdateTask(id string, patch database.TaskPatch) (*database.Task, error)
	DeleteTask(id string) error
}

// Extractor converts a transcript into validated task fields.
type Extractor interface {
	Extract(ctx context.Context, transcript string, reference time.Time) (*gateway.ExtractionResult, error)
}

// Broadcaster pushes task lifecycle events to connected board sessions.
type Broadcaster interface {
	BroadcastTaskEvent(eventType string, data any)
}

// TaskHandler handles the task CRUD and parse endpoints
type TaskHandler struct {
	store     TaskStore
	extractor Extractor
	hub       Broadcaster
	now       func() time.Time
}

func NewTaskHandler(store TaskStore, extractor Extractor, hub Broadcaster) *TaskHandler {
	return &TaskHandler{
		store:     store,
		extractor: extractor,
		hub:       hub,
		now:       time.Now,
	}
}

// GetTasks returns all tasks, newest first
func (h *TaskHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.store.ListTasks()
	if err != nil {
		log.Printf("Error listing tasks: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load tasks", err)
		return
	}

	writeJSON(w, http.StatusOK, tasks)
}

// CreateTask creates a task from a partial body; title is required, priority
// and status fall back to their defaults.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req database.Task
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	task, err := h.store.CreateTask(req)
	if err != nil {
		var verr *database.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, "Invalid task", err)
			return
		}
		log.Printf("Error creating task: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create task", err)
		return
	}

	if h.hub != nil {
		h.hub.BroadcastTaskEvent("task.created", task)
	}

	writeJSON(w, http.StatusCreated, task)
}

// UpdateTask applies a partial patch to an existing task
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var patch database.TaskPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	task, err := h.store.UpdateTask(id, patch)
	if err != nil {
		var verr *database.ValidationError
		switch {
		case errors.Is(err, database.ErrNotFound):
			writeError(w, http.StatusNotFound, "Task not found", err)
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, "Invalid task", err)
		default:
			log.Printf("Error updating task %s: %v", id, err)
			writeError(w, http.StatusInternalServerError, "Failed to update task", err)
		}
		return
	}

	if h.hub != nil {
		h.hub.BroadcastTaskEvent("task.updated", task)
	}

	writeJSON(w, http.StatusOK, task)
}

// DeleteTask removes a task. Deleting an id that no longer exists succeeds;
// an optimistic client may race its own confirmation.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.store.DeleteTask(id); err != nil {
		log.Printf("Error deleting task %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to delete task", err)
		return
	}

	if h.hub != nil {
		h.hub.BroadcastTaskEvent("task.deleted", map[string]string{"id": id})
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Deleted"})
}

// ParseVoiceInput sends a transcript through the extraction gateway and
// returns the extracted task fields.
func (h *TaskHandler) ParseVoiceInput(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Transcript string `json:"transcript"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	transcript := strings.TrimSpace(req.Transcript)
	if transcript == "" {
		writeError(w, http.StatusBadRequest, "Transcript is empty", nil)
		return
	}
	if len(transcript) > maxTranscriptBytes {
		writeError(w, http.StatusBadRequest, "Transcript too long", nil)
		return
	}

	log.Printf("Parsing transcript: %q", transcript)

	result, err := h.extractor.Extract(r.Context(), transcript, h.now())
	if err != nil {
		var xerr *gateway.ExtractionError
		if errors.As(err, &xerr) {
			status := http.StatusBadGateway
			if xerr.Kind == gateway.KindUnavailable {
				status = http.StatusGatewayTimeout
			}
			log.Printf("Extraction failed: %v", err)
			writeError(w, status, "Parsing Failed", err)
			return
		}
		log.Printf("Extraction failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Parsing Failed", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError emits the {error, details} payload shape shared with the
// clients.
func writeError(w http.ResponseWriter, status int, message string, err error) {
	details := ""
	if err != nil {
		details = err.Error()
	}
	writeJSON(w, status, map[string]string{
		"error":   message,
		"details": details,
	})
}
