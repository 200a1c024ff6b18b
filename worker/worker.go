// Copyright 2026 The Go FastA2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package worker runs the consumer side of the task layer: it reads run
// and cancel operations from a broker, drives task records through their
// lifecycle in a store, and delegates the actual work to a caller-supplied
// Executor.
//
// One worker executes one task at a time per received run operation, with
// concurrent tasks running in their own goroutines. Because the broker is
// broadcast, deploying several worker processes executes every command
// once per process; see the broker package notes.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-fasta2a/fasta2a"
	"github.com/go-fasta2a/fasta2a/broker"
	"github.com/go-fasta2a/fasta2a/store"
)

// Executor performs the actual work of a task. It receives the task
// snapshot (history truncated per the run params) and the run params, and
// returns an optional result message and artifacts. A ctx cancellation
// signals that the task was canceled.
type Executor interface {
	Execute(ctx context.Context, task *fasta2a.Task, params *fasta2a.TaskSendParams) (*fasta2a.Message, []fasta2a.Artifact, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, task *fasta2a.Task, params *fasta2a.TaskSendParams) (*fasta2a.Message, []fasta2a.Artifact, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, task *fasta2a.Task, params *fasta2a.TaskSendParams) (*fasta2a.Message, []fasta2a.Artifact, error) {
	return f(ctx, task, params)
}

// Notifier delivers push notifications for tasks that requested them.
// notify.HTTPSender satisfies this.
type Notifier interface {
	SendTaskNotification(ctx context.Context, task *fasta2a.Task, config *fasta2a.PushNotificationConfig) error
}

// Worker consumes task operations and executes them.
type Worker struct {
	store    store.Store
	broker   broker.Broker
	executor Executor
	notifier Notifier
	logger   *slog.Logger

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
	wg       sync.WaitGroup
}

// Config holds configuration for Worker. Store, Broker, and Executor are
// required.
type Config struct {
	Store    store.Store
	Broker   broker.Broker
	Executor Executor
	Notifier Notifier     // optional
	Logger   *slog.Logger // defaults to slog.Default
}

// New creates a new Worker.
func New(config Config) (*Worker, error) {
	if config.Store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if config.Broker == nil {
		return nil, fmt.Errorf("broker cannot be nil")
	}
	if config.Executor == nil {
		return nil, fmt.Errorf("executor cannot be nil")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		store:    config.Store,
		broker:   config.Broker,
		executor: config.Executor,
		notifier: config.Notifier,
		logger:   logger,
		inflight: make(map[string]context.CancelFunc),
	}, nil
}

// Run subscribes to the broker and consumes operations until ctx is
// canceled or the stream terminates. It returns the broker's terminal
// error, if any, once all in-flight tasks have finished.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.broker.Subscribe(ctx); err != nil {
		return err
	}
	defer w.broker.Close()

	for op := range w.broker.Operations(ctx) {
		switch op.Operation {
		case fasta2a.OperationRun:
			w.handleRun(ctx, op)
		case fasta2a.OperationCancel:
			w.handleCancel(ctx, op)
		}
	}
	w.wg.Wait()
	return w.broker.Err()
}

func (w *Worker) handleRun(ctx context.Context, op *fasta2a.TaskOperation) {
	params, err := op.SendParams()
	if err != nil {
		w.logger.Warn("skipping run operation with bad params", slog.Any("error", err))
		return
	}

	task, err := w.store.LoadTask(ctx, params.ID, params.HistoryLength)
	if err != nil {
		w.logger.Warn("skipping run operation", slog.String("task_id", params.ID), slog.Any("error", err))
		return
	}
	if task == nil {
		w.logger.Warn("run operation for unknown task", slog.String("task_id", params.ID))
		return
	}
	if task.Status.State.Terminal() {
		w.logger.Debug("ignoring run operation for finished task",
			slog.String("task_id", params.ID), slog.String("state", string(task.Status.State)))
		return
	}

	if _, err := w.store.UpdateTask(ctx, params.ID, fasta2a.TaskStateWorking, nil, nil); err != nil {
		w.logger.Error("could not mark task working", slog.String("task_id", params.ID), slog.Any("error", err))
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.inflight[params.ID] = cancel
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer w.forget(params.ID)
		w.execute(runCtx, task, params)
	}()
}

// execute runs the executor and writes the terminal state. The final write
// survives worker shutdown: losing a finished task's result would make the
// cancellation look like data loss to the submitter.
func (w *Worker) execute(runCtx context.Context, task *fasta2a.Task, params *fasta2a.TaskSendParams) {
	message, artifacts, err := w.executor.Execute(runCtx, task, params)

	state := fasta2a.TaskStateCompleted
	switch {
	case errors.Is(runCtx.Err(), context.Canceled) || errors.Is(err, context.Canceled):
		state = fasta2a.TaskStateCanceled
		message = nil
		artifacts = nil
	case err != nil:
		state = fasta2a.TaskStateFailed
		if message == nil {
			message = &fasta2a.Message{
				Role:  fasta2a.RoleAgent,
				Parts: []fasta2a.Part{fasta2a.TextPart(err.Error())},
			}
		}
		w.logger.Error("task execution failed", slog.String("task_id", params.ID), slog.Any("error", err))
	}

	writeCtx := context.WithoutCancel(runCtx)
	updated, err := w.store.UpdateTask(writeCtx, params.ID, state, message, artifacts)
	if err != nil {
		var notUpdatable fasta2a.TaskNotUpdatableError
		if errors.As(err, &notUpdatable) {
			// Another writer finished the task first.
			w.logger.Debug("task already finished", slog.String("task_id", params.ID), slog.Any("error", err))
			return
		}
		w.logger.Error("could not record task result",
			slog.String("task_id", params.ID), slog.String("state", string(state)), slog.Any("error", err))
		return
	}

	w.pushNotify(writeCtx, updated, params)
}

func (w *Worker) handleCancel(ctx context.Context, op *fasta2a.TaskOperation) {
	params, err := op.IDParams()
	if err != nil {
		w.logger.Warn("skipping cancel operation with bad params", slog.Any("error", err))
		return
	}

	w.mu.Lock()
	cancel, running := w.inflight[params.ID]
	w.mu.Unlock()

	if running {
		// The run goroutine observes the cancellation and records the
		// canceled state itself.
		w.logger.Info("canceling running task", slog.String("task_id", params.ID))
		cancel()
		return
	}

	if _, err := w.store.UpdateTask(ctx, params.ID, fasta2a.TaskStateCanceled, nil, nil); err != nil {
		var notFound fasta2a.TaskNotFoundError
		var notUpdatable fasta2a.TaskNotUpdatableError
		switch {
		case errors.As(err, &notFound):
			w.logger.Warn("cancel operation for unknown task", slog.String("task_id", params.ID))
		case errors.As(err, &notUpdatable):
			w.logger.Debug("cancel operation for finished task", slog.String("task_id", params.ID))
		default:
			w.logger.Error("could not cancel task", slog.String("task_id", params.ID), slog.Any("error", err))
		}
		return
	}
	w.logger.Info("canceled task", slog.String("task_id", params.ID))
}

func (w *Worker) pushNotify(ctx context.Context, task *fasta2a.Task, params *fasta2a.TaskSendParams) {
	if w.notifier == nil || params.PushNotification == nil {
		return
	}
	if err := w.notifier.SendTaskNotification(ctx, task, params.PushNotification); err != nil {
		w.logger.Warn("push notification failed",
			slog.String("task_id", task.ID), slog.Any("error", err))
	}
}

func (w *Worker) forget(taskID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if cancel, ok := w.inflight[taskID]; ok {
		cancel()
		delete(w.inflight, taskID)
	}
}
