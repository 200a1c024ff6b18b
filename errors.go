// Copyright 2026 The Go FastA2A Authors
// SPDX-License-Identifier: Apache-2.0

package fasta2a

import (
	"fmt"
)

// ValidationError reports malformed caller input. It is raised immediately
// and never retried.
type ValidationError struct {
	Field string
	Err   error
}

// Error returns the error message.
func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

// Unwrap returns the underlying error.
func (e ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, err error) ValidationError {
	return ValidationError{Field: field, Err: err}
}

// TaskNotFoundError reports an update against a task id that is not present
// in the store. Updates never create tasks.
type TaskNotFoundError struct {
	TaskID string
}

// Error returns the error message.
func (e TaskNotFoundError) Error() string {
	return fmt.Sprintf("task %s not found", e.TaskID)
}

// TaskNotUpdatableError reports a rejected state transition, typically an
// attempt to move a task out of a terminal state.
type TaskNotUpdatableError struct {
	TaskID string
	From   TaskState
	To     TaskState
}

// Error returns the error message.
func (e TaskNotUpdatableError) Error() string {
	return fmt.Sprintf("task %s cannot transition from %s to %s", e.TaskID, e.From, e.To)
}

// StoreError reports a store operation that failed after exhausting its
// retry budget. Attempts is the total number of attempts made.
type StoreError struct {
	Operation string
	TaskID    string
	Attempts  int
	Err       error
}

// Error returns the error message.
func (e StoreError) Error() string {
	return fmt.Sprintf("store %s failed for task %s after %d attempts: %v", e.Operation, e.TaskID, e.Attempts, e.Err)
}

// Unwrap returns the underlying error.
func (e StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(operation, taskID string, attempts int, err error) StoreError {
	return StoreError{Operation: operation, TaskID: taskID, Attempts: attempts, Err: err}
}

// BrokerError reports a broker operation that failed after exhausting its
// retry budget, or a consumer stream that hit its consecutive-error
// threshold.
type BrokerError struct {
	Operation string
	TaskID    string
	Attempts  int
	Err       error
}

// Error returns the error message.
func (e BrokerError) Error() string {
	if e.TaskID == "" {
		return fmt.Sprintf("broker %s failed after %d attempts: %v", e.Operation, e.Attempts, e.Err)
	}
	return fmt.Sprintf("broker %s failed for task %s after %d attempts: %v", e.Operation, e.TaskID, e.Attempts, e.Err)
}

// Unwrap returns the underlying error.
func (e BrokerError) Unwrap() error {
	return e.Err
}

// NewBrokerError creates a new BrokerError.
func NewBrokerError(operation, taskID string, attempts int, err error) BrokerError {
	return BrokerError{Operation: operation, TaskID: taskID, Attempts: attempts, Err: err}
}
