// Copyright 2026 The Go FastA2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package store persists task records. The Store interface is the durable,
// retry-safe CRUD surface over tasks; RedisStore is the primary
// implementation, with MemoryStore for tests and single-process use and
// DatabaseStore for deployments that want a SQL backend.
package store

import (
	"context"

	"github.com/go-fasta2a/fasta2a"
)

// Store defines task persistence operations.
//
// All implementations share the same semantics: LoadTask returns
// (nil, nil) for an absent or unreadable record, SubmitTask creates a task
// in the submitted state, and UpdateTask mutates an existing task, failing
// with fasta2a.TaskNotFoundError when it is absent and
// fasta2a.TaskNotUpdatableError when the requested transition is rejected.
// Every successful write refreshes the record's TTL; the store is an
// operational cache, not an archive.
type Store interface {
	// LoadTask reads a task by id. historyLength > 0 truncates the returned
	// history to its last historyLength entries without mutating the stored
	// record; historyLength <= 0 returns the full history.
	LoadTask(ctx context.Context, taskID string, historyLength int) (*fasta2a.Task, error)

	// SubmitTask creates a new task in the submitted state with message as
	// its only history entry and returns the created task.
	SubmitTask(ctx context.Context, taskID, sessionID string, message fasta2a.Message) (*fasta2a.Task, error)

	// UpdateTask transitions an existing task to state with a fresh status
	// timestamp, appending message to the history and merging artifacts
	// when given, and returns the updated task.
	UpdateTask(ctx context.Context, taskID string, state fasta2a.TaskState, message *fasta2a.Message, artifacts []fasta2a.Artifact) (*fasta2a.Task, error)
}

func validateSubmit(taskID, sessionID string, message fasta2a.Message) error {
	if taskID == "" {
		return fasta2a.NewValidationError("task_id", errEmpty)
	}
	if sessionID == "" {
		return fasta2a.NewValidationError("session_id", errEmpty)
	}
	if err := message.Validate(); err != nil {
		return fasta2a.NewValidationError("message", err)
	}
	return nil
}

func validateUpdate(taskID string, state fasta2a.TaskState) error {
	if taskID == "" {
		return fasta2a.NewValidationError("task_id", errEmpty)
	}
	if !state.Valid() {
		return fasta2a.NewValidationError("state", errUnknownState(state))
	}
	return nil
}

// applyUpdate performs the shared update-task mutation on a loaded record.
// It rejects transitions the state machine forbids.
func applyUpdate(task *fasta2a.Task, state fasta2a.TaskState, message *fasta2a.Message, artifacts []fasta2a.Artifact) error {
	if !task.Status.State.CanTransitionTo(state) {
		return fasta2a.TaskNotUpdatableError{TaskID: task.ID, From: task.Status.State, To: state}
	}
	task.Status = fasta2a.TaskStatus{
		State:     state,
		Message:   "task state updated to " + string(state),
		Timestamp: nowUTC(),
	}
	if message != nil {
		task.History = append(task.History, *message)
	}
	if len(artifacts) > 0 {
		task.ExtendArtifacts(artifacts)
	}
	return nil
}
