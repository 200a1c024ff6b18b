// Copyright 2026 The Go FastA2A Authors
// SPDX-License-Identifier: Apache-2.0

package fasta2a

import (
	"bytes"
	"fmt"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/go-fasta2a/fasta2a/internal/pool"
)

// OperationType identifies the command carried by a TaskOperation.
type OperationType string

const (
	// OperationRun asks a worker to execute a task.
	OperationRun OperationType = "run"

	// OperationCancel asks a worker to cancel a task.
	OperationCancel OperationType = "cancel"
)

// TaskOperation is the command envelope exchanged over the broker channel.
// Params holds the raw JSON of either TaskSendParams (run) or TaskIDParams
// (cancel); use SendParams or IDParams to decode it.
type TaskOperation struct {
	Operation OperationType  `json:"operation"`
	Params    jsontext.Value `json:"params"`
}

// NewRunOperation wraps TaskSendParams in a run envelope.
func NewRunOperation(params TaskSendParams) (*TaskOperation, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal run params: %w", err)
	}
	return &TaskOperation{Operation: OperationRun, Params: raw}, nil
}

// NewCancelOperation wraps TaskIDParams in a cancel envelope.
func NewCancelOperation(params TaskIDParams) (*TaskOperation, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal cancel params: %w", err)
	}
	return &TaskOperation{Operation: OperationCancel, Params: raw}, nil
}

// Validate ensures the envelope carries a known operation and params.
func (op *TaskOperation) Validate() error {
	switch op.Operation {
	case OperationRun, OperationCancel:
	case "":
		return fmt.Errorf("operation cannot be empty")
	default:
		return fmt.Errorf("unknown operation %q", op.Operation)
	}
	if len(op.Params) == 0 {
		return fmt.Errorf("operation %s has no params", op.Operation)
	}
	return nil
}

// SendParams decodes the envelope params as TaskSendParams.
func (op *TaskOperation) SendParams() (*TaskSendParams, error) {
	var params TaskSendParams
	if err := json.Unmarshal(op.Params, &params); err != nil {
		return nil, fmt.Errorf("decode %s params: %w", op.Operation, err)
	}
	return &params, nil
}

// IDParams decodes the envelope params as TaskIDParams.
func (op *TaskOperation) IDParams() (*TaskIDParams, error) {
	var params TaskIDParams
	if err := json.Unmarshal(op.Params, &params); err != nil {
		return nil, fmt.Errorf("decode %s params: %w", op.Operation, err)
	}
	return &params, nil
}

// TaskID extracts the task id from the envelope params without committing
// to a params type. Returns an empty string when the params carry no id.
func (op *TaskOperation) TaskID() string {
	var partial struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(op.Params, &partial); err != nil {
		return ""
	}
	return partial.ID
}

// Encode serializes the envelope for publication.
func (op *TaskOperation) Encode() ([]byte, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}
	buf := pool.Bytes.Get()
	defer pool.Bytes.Put(buf)
	if err := json.MarshalWrite(buf, op); err != nil {
		return nil, fmt.Errorf("marshal task operation: %w", err)
	}
	return bytes.Clone(buf.Bytes()), nil
}

// DecodeTaskOperation parses and structurally validates a received payload.
// Malformed payloads yield an error; consumers log and skip them.
func DecodeTaskOperation(data []byte) (*TaskOperation, error) {
	var op TaskOperation
	if err := json.Unmarshal(data, &op); err != nil {
		return nil, fmt.Errorf("unmarshal task operation: %w", err)
	}
	if err := op.Validate(); err != nil {
		return nil, fmt.Errorf("invalid task operation: %w", err)
	}
	return &op, nil
}
