// Copyright 2026 The Go FastA2A Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/redis/go-redis/v9"

	"github.com/go-fasta2a/fasta2a"
	"github.com/go-fasta2a/fasta2a/internal/retry"
)

// Defaults for RedisStoreConfig.
const (
	// DefaultKeyPrefix prefixes every task key.
	DefaultKeyPrefix = "a2a:task:"

	// DefaultTaskTTL is how long an idle task record survives. Every
	// successful write refreshes it.
	DefaultTaskTTL = 7 * 24 * time.Hour
)

// RedisStore is the primary Store implementation, keeping each task as a
// JSON record under <prefix><task-id> with a TTL refreshed on every write.
// Transient connectivity failures are retried with exponential backoff;
// read paths degrade to absent on exhaustion while write paths surface a
// fasta2a.StoreError.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	retry  retry.Config
	logger *slog.Logger
}

var _ Store = (*RedisStore)(nil)

// RedisStoreConfig holds configuration for RedisStore. The client is
// required; its lifecycle belongs to whoever assembles the application.
type RedisStoreConfig struct {
	Client          redis.UniversalClient
	KeyPrefix       string        // defaults to DefaultKeyPrefix
	TaskTTL         time.Duration // defaults to DefaultTaskTTL
	MaxRetries      int           // retries after the first attempt, defaults to retry.DefaultMaxRetries
	RetryBaseDelay  time.Duration // defaults to retry.DefaultBaseDelay
	RetryMaxDelay   time.Duration // defaults to retry.DefaultMaxDelay
	RetryMultiplier float64       // defaults to retry.DefaultMultiplier
	Logger          *slog.Logger  // defaults to slog.Default
}

// NewRedisStore creates a new RedisStore.
func NewRedisStore(config RedisStoreConfig) (*RedisStore, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}

	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	ttl := config.TaskTTL
	if ttl <= 0 {
		ttl = DefaultTaskTTL
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &RedisStore{
		client: config.Client,
		prefix: prefix,
		ttl:    ttl,
		retry: retry.Config{
			MaxRetries: config.MaxRetries,
			BaseDelay:  config.RetryBaseDelay,
			MaxDelay:   config.RetryMaxDelay,
			Multiplier: config.RetryMultiplier,
			Retryable:  transientRedisErr,
		},
		logger: logger,
	}, nil
}

func (s *RedisStore) key(taskID string) string {
	return s.prefix + taskID
}

// transientRedisErr classifies errors worth retrying. Absence (redis.Nil)
// and data corruption are not connectivity problems.
func transientRedisErr(err error) bool {
	if errors.Is(err, redis.Nil) {
		return false
	}
	if errors.Is(err, redis.ErrClosed) {
		return true
	}
	return retry.Transient(err)
}

// LoadTask reads a task by id. Absent records, corrupt records, and retry
// exhaustion all yield (nil, nil): a reader must not crash on a bad or
// unreachable cache entry.
func (s *RedisStore) LoadTask(ctx context.Context, taskID string, historyLength int) (*fasta2a.Task, error) {
	if taskID == "" {
		return nil, fasta2a.NewValidationError("task_id", errEmpty)
	}

	raw, attempts, err := s.get(ctx, taskID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		s.logger.Warn("load_task exhausted retries, treating task as absent",
			slog.String("task_id", taskID), slog.Int("attempts", attempts), slog.Any("error", err))
		return nil, nil
	}
	if raw == nil {
		s.logger.Debug("task not found", slog.String("task_id", taskID))
		return nil, nil
	}

	task, err := decodeTask(raw)
	if err != nil {
		s.logger.Error("corrupt task record, treating task as absent",
			slog.String("task_id", taskID), slog.Any("error", err))
		return nil, nil
	}

	return task.TruncateHistory(historyLength), nil
}

// SubmitTask creates a new task in the submitted state and writes it with
// the configured TTL.
func (s *RedisStore) SubmitTask(ctx context.Context, taskID, sessionID string, message fasta2a.Message) (*fasta2a.Task, error) {
	if err := validateSubmit(taskID, sessionID, message); err != nil {
		return nil, err
	}

	task := fasta2a.NewSubmittedTask(taskID, sessionID, message)
	attempts, err := s.set(ctx, task)
	if err != nil {
		s.logger.Error("submit_task failed",
			slog.String("task_id", taskID), slog.Int("attempts", attempts), slog.Any("error", err))
		return nil, fasta2a.NewStoreError("submit_task", taskID, attempts, err)
	}

	s.logger.Info("submitted task",
		slog.String("task_id", taskID), slog.String("session_id", sessionID), slog.Duration("ttl", s.ttl))
	return task, nil
}

// UpdateTask transitions an existing task and rewrites the full record
// with a refreshed TTL. Updates never create tasks.
func (s *RedisStore) UpdateTask(ctx context.Context, taskID string, state fasta2a.TaskState, message *fasta2a.Message, artifacts []fasta2a.Artifact) (*fasta2a.Task, error) {
	if err := validateUpdate(taskID, state); err != nil {
		return nil, err
	}

	// This is a write path: a transiently unreachable store must surface as
	// an error here, not masquerade as task-not-found.
	raw, attempts, err := s.get(ctx, taskID)
	if err != nil {
		s.logger.Error("update_task could not load task",
			slog.String("task_id", taskID), slog.Int("attempts", attempts), slog.Any("error", err))
		return nil, fasta2a.NewStoreError("update_task", taskID, attempts, err)
	}
	if raw == nil {
		return nil, fasta2a.TaskNotFoundError{TaskID: taskID}
	}
	task, err := decodeTask(raw)
	if err != nil {
		s.logger.Error("update_task found corrupt task record",
			slog.String("task_id", taskID), slog.Any("error", err))
		return nil, fasta2a.TaskNotFoundError{TaskID: taskID}
	}

	if err := applyUpdate(task, state, message, artifacts); err != nil {
		return nil, err
	}

	attempts, err = s.set(ctx, task)
	if err != nil {
		s.logger.Error("update_task failed",
			slog.String("task_id", taskID), slog.Int("attempts", attempts), slog.Any("error", err))
		return nil, fasta2a.NewStoreError("update_task", taskID, attempts, err)
	}

	s.logger.Info("updated task",
		slog.String("task_id", taskID), slog.String("state", string(state)))
	return task, nil
}

// get reads the raw record, retrying transient failures. Absence is not an
// error: it returns (nil, attempts, nil).
func (s *RedisStore) get(ctx context.Context, taskID string) ([]byte, int, error) {
	key := s.key(taskID)
	var raw []byte
	attempts, err := retry.Do(ctx, s.retry, func(ctx context.Context) error {
		data, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				raw = nil
				return nil
			}
			return err
		}
		raw = data
		return nil
	})
	if err != nil {
		return nil, attempts, err
	}
	return raw, attempts, nil
}

// set serializes the task and writes it with the configured TTL, retrying
// transient failures. Serialization failures are never retried.
func (s *RedisStore) set(ctx context.Context, task *fasta2a.Task) (int, error) {
	data, err := json.Marshal(task)
	if err != nil {
		return 0, fmt.Errorf("marshal task %s: %w", task.ID, err)
	}
	key := s.key(task.ID)
	return retry.Do(ctx, s.retry, func(ctx context.Context) error {
		return s.client.Set(ctx, key, data, s.ttl).Err()
	})
}

func decodeTask(raw []byte) (*fasta2a.Task, error) {
	var task fasta2a.Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, fmt.Errorf("unmarshal task record: %w", err)
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}
	return &task, nil
}
