// Copyright 2026 The Go FastA2A Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-fasta2a/fasta2a"
)

// MemoryStore is an in-memory Store for tests and single-process
// deployments. Records expire after the configured TTL like the Redis
// implementation; expiry is enforced lazily on read. Task data is lost
// when the process stops.
type MemoryStore struct {
	mu      sync.RWMutex
	tasks   map[string]memoryEntry
	ttl     time.Duration
	logger  *slog.Logger
	clockFn func() time.Time
}

type memoryEntry struct {
	task      *fasta2a.Task
	expiresAt time.Time
}

var _ Store = (*MemoryStore)(nil)

// MemoryStoreConfig holds configuration for MemoryStore.
type MemoryStoreConfig struct {
	TaskTTL time.Duration // defaults to DefaultTaskTTL
	Logger  *slog.Logger  // defaults to slog.Default
}

// NewMemoryStore creates a new MemoryStore.
func NewMemoryStore(config MemoryStoreConfig) *MemoryStore {
	ttl := config.TaskTTL
	if ttl <= 0 {
		ttl = DefaultTaskTTL
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryStore{
		tasks:   make(map[string]memoryEntry),
		ttl:     ttl,
		logger:  logger,
		clockFn: time.Now,
	}
}

// LoadTask reads a task by id, returning (nil, nil) for absent or expired
// records.
func (s *MemoryStore) LoadTask(ctx context.Context, taskID string, historyLength int) (*fasta2a.Task, error) {
	if taskID == "" {
		return nil, fasta2a.NewValidationError("task_id", errEmpty)
	}

	task := s.load(taskID)
	if task == nil {
		return nil, nil
	}
	return task.TruncateHistory(historyLength), nil
}

// SubmitTask creates a new task in the submitted state.
func (s *MemoryStore) SubmitTask(ctx context.Context, taskID, sessionID string, message fasta2a.Message) (*fasta2a.Task, error) {
	if err := validateSubmit(taskID, sessionID, message); err != nil {
		return nil, err
	}

	task := fasta2a.NewSubmittedTask(taskID, sessionID, message)
	s.save(task)
	s.logger.Info("submitted task",
		slog.String("task_id", taskID), slog.String("session_id", sessionID))
	return task, nil
}

// UpdateTask transitions an existing task, refreshing its expiry.
func (s *MemoryStore) UpdateTask(ctx context.Context, taskID string, state fasta2a.TaskState, message *fasta2a.Message, artifacts []fasta2a.Artifact) (*fasta2a.Task, error) {
	if err := validateUpdate(taskID, state); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tasks[taskID]
	if !ok || s.clockFn().After(entry.expiresAt) {
		delete(s.tasks, taskID)
		return nil, fasta2a.TaskNotFoundError{TaskID: taskID}
	}

	task := entry.task.Clone()
	if err := applyUpdate(task, state, message, artifacts); err != nil {
		return nil, err
	}

	s.tasks[taskID] = memoryEntry{task: task, expiresAt: s.clockFn().Add(s.ttl)}
	s.logger.Info("updated task",
		slog.String("task_id", taskID), slog.String("state", string(state)))
	return task.Clone(), nil
}

// load returns a deep copy of the stored task, or nil when absent or
// expired.
func (s *MemoryStore) load(taskID string) *fasta2a.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tasks[taskID]
	if !ok {
		return nil
	}
	if s.clockFn().After(entry.expiresAt) {
		delete(s.tasks, taskID)
		return nil
	}
	return entry.task.Clone()
}

// save stores a deep copy of the task with a fresh expiry.
func (s *MemoryStore) save(task *fasta2a.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = memoryEntry{task: task.Clone(), expiresAt: s.clockFn().Add(s.ttl)}
}
