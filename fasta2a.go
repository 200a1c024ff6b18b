// Copyright 2026 The Go FastA2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package fasta2a provides the task data model for the FastA2A task
// persistence and messaging layer: tasks, their status lifecycle, the
// messages and artifacts they accumulate, and the operation envelope
// exchanged between task submitters and worker processes.
//
// The store and broker subpackages persist and dispatch these values;
// this package owns their shape, validation, and wire encoding.
package fasta2a

import (
	"fmt"
	"time"
)

// TaskState represents the lifecycle state of a Task.
type TaskState string

const (
	// TaskStateSubmitted indicates the task has been submitted and not yet picked up.
	TaskStateSubmitted TaskState = "submitted"

	// TaskStateWorking indicates a worker is executing the task.
	TaskStateWorking TaskState = "working"

	// TaskStateInputRequired indicates the task is paused waiting for caller input.
	TaskStateInputRequired TaskState = "input-required"

	// TaskStateCompleted indicates the task finished successfully. Terminal.
	TaskStateCompleted TaskState = "completed"

	// TaskStateCanceled indicates the task was canceled. Terminal.
	TaskStateCanceled TaskState = "canceled"

	// TaskStateFailed indicates the task failed. Terminal.
	TaskStateFailed TaskState = "failed"

	// TaskStateUnknown is a sentinel for states the store cannot resolve.
	TaskStateUnknown TaskState = "unknown"
)

// taskStates is the set of known task states.
var taskStates = map[TaskState]bool{
	TaskStateSubmitted:     true,
	TaskStateWorking:       true,
	TaskStateInputRequired: true,
	TaskStateCompleted:     true,
	TaskStateCanceled:      true,
	TaskStateFailed:        true,
	TaskStateUnknown:       true,
}

// Valid reports whether s is one of the known task states.
func (s TaskState) Valid() bool {
	return taskStates[s]
}

// Terminal reports whether s is a terminal state. No operation may move a
// task out of a terminal state.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateCanceled, TaskStateFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether a task in state s may move to next.
// Terminal states are frozen, and submitted is never re-entered; all other
// transitions (including same-state rewrites, which carry message or
// artifact appends) are permitted.
func (s TaskState) CanTransitionTo(next TaskState) bool {
	if !next.Valid() {
		return false
	}
	if s.Terminal() {
		return false
	}
	if next == TaskStateSubmitted {
		return false
	}
	return true
}

// Role identifies the author of a Message.
type Role string

const (
	// RoleUser marks messages authored by the submitting caller.
	RoleUser Role = "user"

	// RoleAgent marks messages authored by the executing agent.
	RoleAgent Role = "agent"
)

// Part kinds.
const (
	PartTypeText = "text"
	PartTypeData = "data"
	PartTypeFile = "file"
)

// Part is one segment of a message or artifact. It can carry text,
// structured data, or file content, discriminated by Type.
type Part struct {
	Type     string         `json:"type"`
	Text     string         `json:"text,omitzero"`
	Data     map[string]any `json:"data,omitzero"`
	MIMEType string         `json:"mime_type,omitzero"`
	FileName string         `json:"file_name,omitzero"`
	FileURI  string         `json:"file_uri,omitzero"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

// Validate ensures the Part carries a known type.
func (p Part) Validate() error {
	switch p.Type {
	case PartTypeText, PartTypeData, PartTypeFile:
		return nil
	case "":
		return fmt.Errorf("part type cannot be empty")
	default:
		return fmt.Errorf("unknown part type %q", p.Type)
	}
}

// TextPart returns a text Part with the given content.
func TextPart(text string) Part {
	return Part{Type: PartTypeText, Text: text}
}

// Message is a single entry in a task's history. Messages are immutable
// once appended.
type Message struct {
	Role     Role           `json:"role"`
	Parts    []Part         `json:"parts"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

// Validate ensures the Message has a known role and at least one valid part.
func (m Message) Validate() error {
	if m.Role != RoleUser && m.Role != RoleAgent {
		return fmt.Errorf("message role must be %q or %q, got %q", RoleUser, RoleAgent, m.Role)
	}
	if len(m.Parts) == 0 {
		return fmt.Errorf("message must have at least one part")
	}
	for i, p := range m.Parts {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("message part %d: %w", i, err)
		}
	}
	return nil
}

// Artifact is a named, possibly chunked output produced by executing a
// task. Artifacts sharing an Index with Append set represent continuation
// chunks of one logical artifact; LastChunk marks the final chunk.
type Artifact struct {
	Name        string         `json:"name,omitzero"`
	Description string         `json:"description,omitzero"`
	Parts       []Part         `json:"parts"`
	Metadata    map[string]any `json:"metadata,omitzero"`
	Index       int            `json:"index"`
	Append      bool           `json:"append,omitzero"`
	LastChunk   bool           `json:"last_chunk,omitzero"`
}

// TaskStatus is the current status of a task. Timestamp is set on every
// state transition.
type TaskStatus struct {
	State     TaskState `json:"state"`
	Message   string    `json:"message,omitzero"`
	Timestamp time.Time `json:"timestamp"`
}

// Task is a unit of asynchronous work tracked through the TaskState
// lifecycle. ID is assigned by the caller and immutable after creation;
// History is append-only.
type Task struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id,omitzero"`
	Status    TaskStatus     `json:"status"`
	History   []Message      `json:"history"`
	Artifacts []Artifact     `json:"artifacts,omitzero"`
	Metadata  map[string]any `json:"metadata,omitzero"`
}

// Validate performs structural validation of a Task, as applied to records
// read back from a store.
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task id cannot be empty")
	}
	if !t.Status.State.Valid() {
		return fmt.Errorf("task %s has unknown state %q", t.ID, t.Status.State)
	}
	return nil
}

// PushNotificationConfig describes where and how to notify a caller-supplied
// endpoint about task progress.
type PushNotificationConfig struct {
	URL   string `json:"url"`
	Token string `json:"token,omitzero"`
}

// Validate ensures the config carries an endpoint URL.
func (c PushNotificationConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("push notification url cannot be empty")
	}
	return nil
}

// TaskSendParams are the parameters of a "run" operation: the task to
// execute and the message that triggered it.
type TaskSendParams struct {
	ID               string                  `json:"id"`
	SessionID        string                  `json:"session_id,omitzero"`
	Message          Message                 `json:"message"`
	HistoryLength    int                     `json:"history_length,omitzero"`
	PushNotification *PushNotificationConfig `json:"push_notification,omitzero"`
	Metadata         map[string]any          `json:"metadata,omitzero"`
}

// Validate ensures the params identify a task and carry a well-formed message.
func (p TaskSendParams) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("task id cannot be empty")
	}
	if err := p.Message.Validate(); err != nil {
		return fmt.Errorf("task %s message: %w", p.ID, err)
	}
	if p.PushNotification != nil {
		if err := p.PushNotification.Validate(); err != nil {
			return fmt.Errorf("task %s push notification: %w", p.ID, err)
		}
	}
	return nil
}

// TaskIDParams are the parameters of a "cancel" operation.
type TaskIDParams struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

// Validate ensures the params identify a task.
func (p TaskIDParams) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("task id cannot be empty")
	}
	return nil
}
