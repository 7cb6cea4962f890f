package client

import (
	"strings"

	"github.com/voicetracker/voicetracker/database"
	"github.com/voicetracker/voicetracker/gateway"
)

// Phase is a state of the task capture modal.
type Phase int

const (
	// PhaseIdle: no capture in progress, no result.
	PhaseIdle Phase = iota
	// PhaseListening: capture active, transcript accumulating.
	PhaseListening
	// PhaseParsing: transcript submitted, awaiting extraction.
	PhaseParsing
	// PhaseDraft: editable form loaded, awaiting confirm.
	PhaseDraft
	// PhaseSaved: draft confirmed and persisted; terminal.
	PhaseSaved
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseListening:
		return "listening"
	case PhaseParsing:
		return "parsing"
	case PhaseDraft:
		return "draft"
	case PhaseSaved:
		return "saved"
	}
	return "unknown"
}

// Modal is the capture state machine behind the task modal. It is
// source-agnostic: transcript text is fed in by whatever capture the
// platform provides (browser speech recognition, typed input in the
// terminal client). Invalid transitions are ignored.
//
// Only one extraction is ever in flight: Parsing can only be entered from
// Listening, and leaving Parsing requires ParseSucceeded or ParseFailed.
type Modal struct {
	phase      Phase
	transcript strings.Builder
	draft      Draft
	editing    bool
	lastError  string
}

func NewModal() *Modal {
	return &Modal{}
}

func (m *Modal) Phase() Phase       { return m.phase }
func (m *Modal) Transcript() string { return strings.TrimSpace(m.transcript.String()) }
func (m *Modal) Draft() Draft       { return m.draft }
func (m *Modal) LastError() string  { return m.lastError }

// Editing reports whether the draft targets an existing task.
func (m *Modal) Editing() bool { return m.editing }

// StartCapture begins a capture session.
func (m *Modal) StartCapture() {
	if m.phase != PhaseIdle {
		return
	}
	m.transcript.Reset()
	m.lastError = ""
	m.phase = PhaseListening
}

// AppendTranscript accumulates recognized (or typed) text while listening.
func (m *Modal) AppendTranscript(text string) {
	if m.phase != PhaseListening {
		return
	}
	m.transcript.WriteString(text)
}

// StopCapture ends the capture session. With a non-empty transcript the
// modal enters Parsing and the caller must submit the transcript for
// extraction; with an empty one it returns to Idle. Reports whether an
// extraction should be started.
func (m *Modal) StopCapture() bool {
	if m.phase != PhaseListening {
		return false
	}
	if m.Transcript() == "" {
		m.phase = PhaseIdle
		return false
	}
	m.phase = PhaseParsing
	return true
}

// ParseSucceeded loads the extraction result into an editable draft.
func (m *Modal) ParseSucceeded(res *gateway.ExtractionResult) {
	if m.phase != PhaseParsing {
		return
	}
	m.draft = DraftFromExtraction(res)
	m.lastError = ""
	m.phase = PhaseDraft
}

// ParseFailed surfaces the error and opens an empty form. The transcript
// is preserved so the user can retry without re-speaking.
func (m *Modal) ParseFailed(err error) {
	if m.phase != PhaseParsing {
		return
	}
	m.draft = NewDraft()
	m.lastError = err.Error()
	m.phase = PhaseDraft
}

// RetryParse re-submits the preserved transcript after a failure.
// Reports whether an extraction should be started.
func (m *Modal) RetryParse() bool {
	if m.phase != PhaseDraft || m.Transcript() == "" {
		return false
	}
	m.lastError = ""
	m.phase = PhaseParsing
	return true
}

// EditTask opens the draft form pre-filled with an existing task,
// bypassing capture and parsing.
func (m *Modal) EditTask(t database.Task) {
	m.reset()
	m.draft = DraftFromTask(t)
	m.editing = true
	m.phase = PhaseDraft
}

// NewManualTask opens an empty draft form for typed entry.
func (m *Modal) NewManualTask() {
	m.reset()
	m.draft = NewDraft()
	m.phase = PhaseDraft
}

// SetDraft applies the user's edits to the draft form.
func (m *Modal) SetDraft(d Draft) {
	if m.phase != PhaseDraft {
		return
	}
	m.draft = d
}

// Confirm marks the draft as saved. Callers persist via Syncer.SaveDraft
// first and only confirm on success.
func (m *Modal) Confirm() {
	if m.phase != PhaseDraft {
		return
	}
	m.phase = PhaseSaved
}

// Cancel abandons the modal from any state.
func (m *Modal) Cancel() {
	m.reset()
}

func (m *Modal) reset() {
	m.phase = PhaseIdle
	m.transcript.Reset()
	m.draft = Draft{}
	m.editing = false
	m.lastError = ""
}
