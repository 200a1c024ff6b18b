// Copyright 2026 The Go FastA2A Authors
// SPDX-License-Identifier: Apache-2.0

package fasta2a

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// NewTaskID returns a fresh globally unique task id. Callers that assign
// their own ids may ignore this helper.
func NewTaskID() string {
	return uuid.NewString()
}

// NewSubmittedTask creates the canonical record for a freshly submitted
// task: submitted state, the triggering message as the only history entry,
// and empty artifacts and metadata.
func NewSubmittedTask(taskID, sessionID string, message Message) *Task {
	return &Task{
		ID:        taskID,
		SessionID: sessionID,
		Status: TaskStatus{
			State:     TaskStateSubmitted,
			Message:   "task submitted",
			Timestamp: time.Now().UTC(),
		},
		History:   []Message{message},
		Artifacts: []Artifact{},
		Metadata:  map[string]any{},
	}
}

// Clone returns a deep copy of the task. Stores hand out clones so callers
// cannot mutate shared records.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.History != nil {
		c.History = make([]Message, len(t.History))
		for i, m := range t.History {
			c.History[i] = m.Clone()
		}
	}
	if t.Artifacts != nil {
		c.Artifacts = make([]Artifact, len(t.Artifacts))
		for i, a := range t.Artifacts {
			c.Artifacts[i] = a.Clone()
		}
	}
	c.Metadata = cloneMetadata(t.Metadata)
	return &c
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	c := m
	if m.Parts != nil {
		c.Parts = make([]Part, len(m.Parts))
		for i, p := range m.Parts {
			c.Parts[i] = p.Clone()
		}
	}
	c.Metadata = cloneMetadata(m.Metadata)
	return c
}

// Clone returns a deep copy of the artifact.
func (a Artifact) Clone() Artifact {
	c := a
	if a.Parts != nil {
		c.Parts = make([]Part, len(a.Parts))
		for i, p := range a.Parts {
			c.Parts[i] = p.Clone()
		}
	}
	c.Metadata = cloneMetadata(a.Metadata)
	return c
}

// Clone returns a deep copy of the part.
func (p Part) Clone() Part {
	c := p
	c.Data = cloneMetadata(p.Data)
	c.Metadata = cloneMetadata(p.Metadata)
	return c
}

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}

// TruncateHistory returns a view of the task whose history holds only the
// last n entries, in original order. The receiver is not mutated; a
// subsequent load without truncation still sees the full history. n <= 0
// means no truncation.
func (t *Task) TruncateHistory(n int) *Task {
	if t == nil || n <= 0 || len(t.History) <= n {
		return t
	}
	c := *t
	c.History = t.History[len(t.History)-n:]
	return &c
}

// ExtendArtifacts merges new artifacts into the task's artifact list,
// honoring chunk semantics: an artifact with Append set whose Index matches
// an existing artifact contributes its parts to that artifact instead of
// starting a new one. An append chunk with no matching artifact is kept as
// a new artifact so its parts are not lost.
func (t *Task) ExtendArtifacts(artifacts []Artifact) {
	for _, a := range artifacts {
		if a.Append {
			if existing := t.artifactByIndex(a.Index); existing != nil {
				existing.Parts = append(existing.Parts, a.Parts...)
				if a.LastChunk {
					existing.LastChunk = true
				}
				if a.Name != "" {
					existing.Name = a.Name
				}
				if a.Description != "" {
					existing.Description = a.Description
				}
				continue
			}
		}
		t.Artifacts = append(t.Artifacts, a)
	}
}

func (t *Task) artifactByIndex(index int) *Artifact {
	for i := range t.Artifacts {
		if t.Artifacts[i].Index == index {
			return &t.Artifacts[i]
		}
	}
	return nil
}
