// Copyright 2026 The Go FastA2A Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/go-fasta2a/fasta2a"
	"github.com/go-fasta2a/fasta2a/internal/retry"
)

// DatabaseStore is a GORM-backed Store for deployments that want task
// records in SQL rather than Redis. The TTL contract is preserved with an
// expires_at column refreshed on every write and enforced lazily on read.
type DatabaseStore struct {
	db     *gorm.DB
	ttl    time.Duration
	retry  retry.Config
	logger *slog.Logger
}

var _ Store = (*DatabaseStore)(nil)

// DatabaseStoreConfig holds configuration for DatabaseStore.
type DatabaseStoreConfig struct {
	DB          *gorm.DB
	TaskTTL     time.Duration // defaults to DefaultTaskTTL
	CreateTable bool          // run AutoMigrate for TaskModel
	MaxRetries  int           // retries after the first attempt
	Logger      *slog.Logger  // defaults to slog.Default
}

// NewDatabaseStore creates a new DatabaseStore.
func NewDatabaseStore(config DatabaseStoreConfig) (*DatabaseStore, error) {
	if config.DB == nil {
		return nil, fmt.Errorf("database connection cannot be nil")
	}
	ttl := config.TaskTTL
	if ttl <= 0 {
		ttl = DefaultTaskTTL
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if config.CreateTable {
		if err := config.DB.AutoMigrate(&TaskModel{}); err != nil {
			return nil, fmt.Errorf("migrate task table: %w", err)
		}
	}

	return &DatabaseStore{
		db:  config.DB,
		ttl: ttl,
		retry: retry.Config{
			MaxRetries: config.MaxRetries,
			Retryable:  retry.Transient,
		},
		logger: logger,
	}, nil
}

// LoadTask reads a task by id, returning (nil, nil) for absent or expired
// records and on retry exhaustion.
func (s *DatabaseStore) LoadTask(ctx context.Context, taskID string, historyLength int) (*fasta2a.Task, error) {
	if taskID == "" {
		return nil, fasta2a.NewValidationError("task_id", errEmpty)
	}

	model, attempts, err := s.get(ctx, taskID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		s.logger.Warn("load_task exhausted retries, treating task as absent",
			slog.String("task_id", taskID), slog.Int("attempts", attempts), slog.Any("error", err))
		return nil, nil
	}
	if model == nil {
		return nil, nil
	}
	return model.ToTask().TruncateHistory(historyLength), nil
}

// SubmitTask creates a new task in the submitted state.
func (s *DatabaseStore) SubmitTask(ctx context.Context, taskID, sessionID string, message fasta2a.Message) (*fasta2a.Task, error) {
	if err := validateSubmit(taskID, sessionID, message); err != nil {
		return nil, err
	}

	task := fasta2a.NewSubmittedTask(taskID, sessionID, message)
	attempts, err := s.save(ctx, task)
	if err != nil {
		s.logger.Error("submit_task failed",
			slog.String("task_id", taskID), slog.Int("attempts", attempts), slog.Any("error", err))
		return nil, fasta2a.NewStoreError("submit_task", taskID, attempts, err)
	}
	s.logger.Info("submitted task",
		slog.String("task_id", taskID), slog.String("session_id", sessionID))
	return task, nil
}

// UpdateTask transitions an existing task, refreshing its expiry.
func (s *DatabaseStore) UpdateTask(ctx context.Context, taskID string, state fasta2a.TaskState, message *fasta2a.Message, artifacts []fasta2a.Artifact) (*fasta2a.Task, error) {
	if err := validateUpdate(taskID, state); err != nil {
		return nil, err
	}

	model, attempts, err := s.get(ctx, taskID)
	if err != nil {
		s.logger.Error("update_task could not load task",
			slog.String("task_id", taskID), slog.Int("attempts", attempts), slog.Any("error", err))
		return nil, fasta2a.NewStoreError("update_task", taskID, attempts, err)
	}
	if model == nil {
		return nil, fasta2a.TaskNotFoundError{TaskID: taskID}
	}

	task := model.ToTask()
	if err := applyUpdate(task, state, message, artifacts); err != nil {
		return nil, err
	}

	attempts, err = s.save(ctx, task)
	if err != nil {
		s.logger.Error("update_task failed",
			slog.String("task_id", taskID), slog.Int("attempts", attempts), slog.Any("error", err))
		return nil, fasta2a.NewStoreError("update_task", taskID, attempts, err)
	}
	s.logger.Info("updated task",
		slog.String("task_id", taskID), slog.String("state", string(state)))
	return task, nil
}

// get reads the row, retrying transient failures. Absent and expired rows
// return (nil, attempts, nil).
func (s *DatabaseStore) get(ctx context.Context, taskID string) (*TaskModel, int, error) {
	var model *TaskModel
	attempts, err := retry.Do(ctx, s.retry, func(ctx context.Context) error {
		var row TaskModel
		if err := s.db.WithContext(ctx).Where("id = ?", taskID).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				model = nil
				return nil
			}
			return err
		}
		model = &row
		return nil
	})
	if err != nil {
		return nil, attempts, err
	}
	if model != nil && nowUTC().After(model.ExpiresAt) {
		// Expired rows are deleted opportunistically; a failed delete only
		// postpones the next lazy sweep.
		if err := s.db.WithContext(ctx).Delete(&TaskModel{}, "id = ?", taskID).Error; err != nil {
			s.logger.Debug("failed to delete expired task row",
				slog.String("task_id", taskID), slog.Any("error", err))
		}
		return nil, attempts, nil
	}
	return model, attempts, nil
}

// save writes the row with a refreshed expiry, retrying transient failures.
func (s *DatabaseStore) save(ctx context.Context, task *fasta2a.Task) (int, error) {
	model := NewTaskModelFromTask(task, nowUTC().Add(s.ttl))
	return retry.Do(ctx, s.retry, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Save(model).Error
	})
}
