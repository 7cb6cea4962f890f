// Package gateway turns a raw speech transcript into validated task fields
// by way of an external structured-generation model. The model boundary is
// the Generator interface; everything schema-related (prompt construction,
// response parsing, enum validation) is provider-independent and lives here.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/voicetracker/voicetracker/database"
)

// ErrEmptyTranscript is returned when Extract is called with a blank
// transcript. Callers are expected to guard this before invoking the
// gateway; the check here is a backstop.
var ErrEmptyTranscript = errors.New("transcript is empty")

// ExtractionError kinds.
const (
	KindUnavailable     = "unavailable"      // model unreachable or timed out
	KindSchemaViolation = "schema_violation" // model returned non-conforming data
)

// ExtractionError describes a failed extraction. Both kinds are retryable
// from the user's perspective; the transcript is never consumed by a
// failure.
type ExtractionError struct {
	Kind string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed (%s): %v", e.Kind, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ExtractionResult holds the task fields extracted from a transcript. It is
// never persisted directly; it seeds an editable draft the user confirms.
// A nil DueDate means the speech implied no due date.
type ExtractionResult struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Priority    string  `json:"priority"`
	Status      string  `json:"status"`
	DueDate     *string `json:"dueDate"`
}

// Schema is a JSON-schema-shaped output contract handed to the model
// alongside the prompt.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// Generator is the model boundary: given a prompt and an output schema,
// return the model's raw text response. Implementations own transport
// concerns (endpoints, keys, timeouts); they report failures as plain
// errors which the gateway classifies as Unavailable.
type Generator interface {
	GenerateStructured(ctx context.Context, prompt string, schema *Schema) (string, error)
}

// Gateway converts transcripts into validated ExtractionResults.
type Gateway struct {
	generator Generator
}

func NewGateway(generator Generator) *Gateway {
	return &Gateway{generator: generator}
}

// taskSchema mirrors the Task field contract, with priority and status
// restricted to their enumerated values.
func taskSchema() *Schema {
	return &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"title": {
				Type:        "string",
				Description: "A short, actionable summary (5-8 words max)",
			},
			"description": {
				Type:        "string",
				Description: "All remaining details, context, quotes, or notes",
			},
			"priority": {
				Type: "string",
				Enum: []string{database.PriorityLow, database.PriorityMedium, database.PriorityHigh, database.PriorityCritical},
			},
			"status": {
				Type: "string",
				Enum: []string{database.StatusToDo, database.StatusInProgress, database.StatusDone},
			},
			"dueDate": {
				Type:        "string",
				Description: "ISO 8601 date string (YYYY-MM-DD) or null",
			},
		},
		Required: []string{"title", "priority", "status"},
	}
}

// buildPrompt states the caller's clock so relative expressions like "next
// Friday" resolve against a known date rather than whatever the model
// believes today is.
func buildPrompt(transcript string, reference time.Time) string {
	return fmt.Sprintf(`You are an expert Project Manager AI.

CONTEXT:
- Today is: %s
- Date is: %s

USER INPUT: "%s"

YOUR GOAL:
1. Extract a concise Title (e.g., "Send Proposal" instead of "Remind me to send proposal").
2. Move extra details into Description.
3. Calculate relative dates (e.g., "next Friday") to exact YYYY-MM-DD. Omit dueDate if no date is implied.
4. Infer Priority (Critical/High/Medium/Low).
5. Default Status is "To Do".`,
		reference.Weekday().String(), reference.Format("2006-01-02"), transcript)
}

// Extract sends the transcript to the model and validates the response
// against the task schema. On success every required field is populated and
// enum-valid; it never returns a partially populated result.
func (g *Gateway) Extract(ctx context.Context, transcript string, reference time.Time) (*ExtractionResult, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, ErrEmptyTranscript
	}

	raw, err := g.generator.GenerateStructured(ctx, buildPrompt(transcript, reference), taskSchema())
	if err != nil {
		return nil, &ExtractionError{Kind: KindUnavailable, Err: err}
	}

	var result ExtractionResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, &ExtractionError{Kind: KindSchemaViolation, Err: fmt.Errorf("malformed response: %w", err)}
	}

	if err := validateResult(&result); err != nil {
		return nil, &ExtractionError{Kind: KindSchemaViolation, Err: err}
	}

	return &result, nil
}

func validateResult(r *ExtractionResult) error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return errors.New("missing required field: title")
	}
	if r.Priority == "" {
		return errors.New("missing required field: priority")
	}
	if !database.ValidPriority(r.Priority) {
		return fmt.Errorf("priority %q is not one of the allowed values", r.Priority)
	}
	if r.Status == "" {
		return errors.New("missing required field: status")
	}
	if !database.ValidStatus(r.Status) {
		return fmt.Errorf("status %q is not one of the allowed values", r.Status)
	}
	if r.DueDate != nil {
		if *r.DueDate == "" {
			r.DueDate = nil
		} else if _, err := time.Parse("2006-01-02", *r.DueDate); err != nil {
			return fmt.Errorf("dueDate %q is not a YYYY-MM-DD date", *r.DueDate)
		}
	}
	return nil
}
