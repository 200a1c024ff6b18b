// Copyright 2026 The Go FastA2A Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/go-json-experiment/json"

	"github.com/go-fasta2a/fasta2a"
)

// TaskModel is the GORM row shape for a persisted task. Structured fields
// are stored as JSON columns so the record round-trips byte-for-byte with
// the wire representation.
type TaskModel struct {
	ID        string            `gorm:"primaryKey;size:255"`
	SessionID string            `gorm:"index;size:255"`
	Status    TaskStatusJSON    `gorm:"type:json"`
	History   MessageSliceJSON  `gorm:"type:json"`
	Artifacts ArtifactSliceJSON `gorm:"type:json"`
	Metadata  MetadataJSON      `gorm:"type:json"`
	ExpiresAt time.Time         `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the database table name.
func (TaskModel) TableName() string {
	return "a2a_tasks"
}

// NewTaskModelFromTask converts a task into its row shape.
func NewTaskModelFromTask(task *fasta2a.Task, expiresAt time.Time) *TaskModel {
	return &TaskModel{
		ID:        task.ID,
		SessionID: task.SessionID,
		Status:    TaskStatusJSON{TaskStatus: task.Status},
		History:   MessageSliceJSON{Messages: task.History},
		Artifacts: ArtifactSliceJSON{Artifacts: task.Artifacts},
		Metadata:  MetadataJSON{Metadata: task.Metadata},
		ExpiresAt: expiresAt,
	}
}

// ToTask converts the row back into a task.
func (m *TaskModel) ToTask() *fasta2a.Task {
	return &fasta2a.Task{
		ID:        m.ID,
		SessionID: m.SessionID,
		Status:    m.Status.TaskStatus,
		History:   m.History.Messages,
		Artifacts: m.Artifacts.Artifacts,
		Metadata:  m.Metadata.Metadata,
	}
}

// TaskStatusJSON stores a TaskStatus in a JSON column.
type TaskStatusJSON struct {
	fasta2a.TaskStatus
}

// Value implements driver.Valuer.
func (s TaskStatusJSON) Value() (driver.Value, error) {
	return json.Marshal(s.TaskStatus)
}

// Scan implements sql.Scanner.
func (s *TaskStatusJSON) Scan(value any) error {
	raw, err := jsonColumnBytes(value)
	if err != nil || raw == nil {
		*s = TaskStatusJSON{}
		return err
	}
	return json.Unmarshal(raw, &s.TaskStatus)
}

// MessageSliceJSON stores a task history in a JSON column.
type MessageSliceJSON struct {
	Messages []fasta2a.Message
}

// Value implements driver.Valuer.
func (s MessageSliceJSON) Value() (driver.Value, error) {
	if s.Messages == nil {
		return nil, nil
	}
	return json.Marshal(s.Messages)
}

// Scan implements sql.Scanner.
func (s *MessageSliceJSON) Scan(value any) error {
	raw, err := jsonColumnBytes(value)
	if err != nil || raw == nil {
		*s = MessageSliceJSON{}
		return err
	}
	return json.Unmarshal(raw, &s.Messages)
}

// ArtifactSliceJSON stores task artifacts in a JSON column.
type ArtifactSliceJSON struct {
	Artifacts []fasta2a.Artifact
}

// Value implements driver.Valuer.
func (s ArtifactSliceJSON) Value() (driver.Value, error) {
	if s.Artifacts == nil {
		return nil, nil
	}
	return json.Marshal(s.Artifacts)
}

// Scan implements sql.Scanner.
func (s *ArtifactSliceJSON) Scan(value any) error {
	raw, err := jsonColumnBytes(value)
	if err != nil || raw == nil {
		*s = ArtifactSliceJSON{}
		return err
	}
	return json.Unmarshal(raw, &s.Artifacts)
}

// MetadataJSON stores the open metadata bag in a JSON column.
type MetadataJSON struct {
	Metadata map[string]any
}

// Value implements driver.Valuer.
func (s MetadataJSON) Value() (driver.Value, error) {
	if s.Metadata == nil {
		return nil, nil
	}
	return json.Marshal(s.Metadata)
}

// Scan implements sql.Scanner.
func (s *MetadataJSON) Scan(value any) error {
	raw, err := jsonColumnBytes(value)
	if err != nil || raw == nil {
		*s = MetadataJSON{}
		return err
	}
	return json.Unmarshal(raw, &s.Metadata)
}

func jsonColumnBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("cannot scan %T as JSON column", value)
	}
}
