// Copyright 2026 The Go FastA2A Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/redis/go-redis/v9"

	"github.com/go-fasta2a/fasta2a"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	s, err := NewRedisStore(RedisStoreConfig{
		Client:         client,
		TaskTTL:        time.Hour,
		MaxRetries:     2,
		RetryBaseDelay: time.Millisecond,
		RetryMaxDelay:  5 * time.Millisecond,
		Logger:         discardLogger(),
	})
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	return s, srv
}

func userMessage(text string) fasta2a.Message {
	return fasta2a.Message{Role: fasta2a.RoleUser, Parts: []fasta2a.Part{fasta2a.TextPart(text)}}
}

func agentMessage(text string) fasta2a.Message {
	return fasta2a.Message{Role: fasta2a.RoleAgent, Parts: []fasta2a.Part{fasta2a.TextPart(text)}}
}

func TestRedisStoreRoundTrip(t *testing.T) {
	t.Parallel()
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	submitted, err := s.SubmitTask(ctx, "t1", "s1", userMessage("hello"))
	if err != nil {
		t.Fatalf("SubmitTask: %v", err)
	}

	loaded, err := s.LoadTask(ctx, "t1", 0)
	if err != nil {
		t.Fatalf("LoadTask: %v", err)
	}
	if loaded == nil {
		t.Fatal("LoadTask returned nil for a just-submitted task")
	}

	if diff := cmp.Diff(submitted, loaded, cmpopts.EquateApproxTime(time.Second), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-submitted +loaded):\n%s", diff)
	}
}

func TestRedisStoreLoadAbsent(t *testing.T) {
	t.Parallel()
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	for range 3 {
		task, err := s.LoadTask(ctx, "never-created", 0)
		if err != nil {
			t.Fatalf("LoadTask: %v", err)
		}
		if task != nil {
			t.Fatalf("LoadTask = %+v, want nil for absent task", task)
		}
	}
}

func TestRedisStoreHistoryTruncationIsViewOnly(t *testing.T) {
	t.Parallel()
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	if _, err := s.SubmitTask(ctx, "t1", "s1", userMessage("m0")); err != nil {
		t.Fatalf("SubmitTask: %v", err)
	}
	for _, text := range []string{"m1", "m2", "m3"} {
		m := agentMessage(text)
		if _, err := s.UpdateTask(ctx, "t1", fasta2a.TaskStateWorking, &m, nil); err != nil {
			t.Fatalf("UpdateTask(%s): %v", text, err)
		}
	}

	view, err := s.LoadTask(ctx, "t1", 2)
	if err != nil {
		t.Fatalf("LoadTask truncated: %v", err)
	}
	if len(view.History) != 2 {
		t.Fatalf("truncated history length = %d, want 2", len(view.History))
	}
	if got := view.History[0].Parts[0].Text; got != "m2" {
		t.Errorf("History[0] = %q, want %q", got, "m2")
	}
	if got := view.History[1].Parts[0].Text; got != "m3" {
		t.Errorf("History[1] = %q, want %q", got, "m3")
	}

	full, err := s.LoadTask(ctx, "t1", 0)
	if err != nil {
		t.Fatalf("LoadTask full: %v", err)
	}
	if len(full.History) != 4 {
		t.Errorf("full history length = %d, want 4 (truncation must not mutate the record)", len(full.History))
	}
}

func TestRedisStoreConcreteScenario(t *testing.T) {
	t.Parallel()
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	task, err := s.SubmitTask(ctx, "t1", "s1", userMessage("hello"))
	if err != nil {
		t.Fatalf("SubmitTask: %v", err)
	}
	if task.Status.State != fasta2a.TaskStateSubmitted {
		t.Errorf("state after submit = %q, want submitted", task.Status.State)
	}
	if len(task.History) != 1 {
		t.Errorf("history length after submit = %d, want 1", len(task.History))
	}

	task, err = s.UpdateTask(ctx, "t1", fasta2a.TaskStateWorking, nil, nil)
	if err != nil {
		t.Fatalf("UpdateTask(working): %v", err)
	}
	if task.Status.State != fasta2a.TaskStateWorking {
		t.Errorf("state = %q, want working", task.Status.State)
	}
	if len(task.History) != 1 {
		t.Errorf("history length = %d, want 1 (unchanged)", len(task.History))
	}

	done := agentMessage("done")
	task, err = s.UpdateTask(ctx, "t1", fasta2a.TaskStateCompleted, &done, nil)
	if err != nil {
		t.Fatalf("UpdateTask(completed): %v", err)
	}
	if task.Status.State != fasta2a.TaskStateCompleted {
		t.Errorf("state = %q, want completed", task.Status.State)
	}
	if len(task.History) != 2 {
		t.Errorf("history length = %d, want 2", len(task.History))
	}
}

func TestRedisStoreTerminalStateIsFrozen(t *testing.T) {
	t.Parallel()
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	if _, err := s.SubmitTask(ctx, "t1", "s1", userMessage("hello")); err != nil {
		t.Fatalf("SubmitTask: %v", err)
	}
	if _, err := s.UpdateTask(ctx, "t1", fasta2a.TaskStateCompleted, nil, nil); err != nil {
		t.Fatalf("UpdateTask(completed): %v", err)
	}

	_, err := s.UpdateTask(ctx, "t1", fasta2a.TaskStateWorking, nil, nil)
	var notUpdatable fasta2a.TaskNotUpdatableError
	if !errors.As(err, &notUpdatable) {
		t.Fatalf("UpdateTask out of terminal state: err = %v, want TaskNotUpdatableError", err)
	}

	// The record is untouched.
	task, err := s.LoadTask(ctx, "t1", 0)
	if err != nil {
		t.Fatalf("LoadTask: %v", err)
	}
	if task.Status.State != fasta2a.TaskStateCompleted {
		t.Errorf("state = %q, want completed", task.Status.State)
	}
}

func TestRedisStoreUpdateMissingTask(t *testing.T) {
	t.Parallel()
	s, _ := newTestRedisStore(t)

	_, err := s.UpdateTask(context.Background(), "ghost", fasta2a.TaskStateWorking, nil, nil)
	var notFound fasta2a.TaskNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %v, want TaskNotFoundError", err)
	}
}

func TestRedisStoreValidation(t *testing.T) {
	t.Parallel()
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	var validation fasta2a.ValidationError

	if _, err := s.LoadTask(ctx, "", 0); !errors.As(err, &validation) {
		t.Errorf("LoadTask(\"\") err = %v, want ValidationError", err)
	}
	if _, err := s.SubmitTask(ctx, "", "s1", userMessage("hi")); !errors.As(err, &validation) {
		t.Errorf("SubmitTask empty id err = %v, want ValidationError", err)
	}
	if _, err := s.SubmitTask(ctx, "t1", "", userMessage("hi")); !errors.As(err, &validation) {
		t.Errorf("SubmitTask empty session err = %v, want ValidationError", err)
	}
	if _, err := s.SubmitTask(ctx, "t1", "s1", fasta2a.Message{}); !errors.As(err, &validation) {
		t.Errorf("SubmitTask bad message err = %v, want ValidationError", err)
	}
	if _, err := s.UpdateTask(ctx, "t1", "bogus", nil, nil); !errors.As(err, &validation) {
		t.Errorf("UpdateTask bad state err = %v, want ValidationError", err)
	}
}

func TestRedisStoreCorruptRecordIsAbsent(t *testing.T) {
	t.Parallel()
	s, srv := newTestRedisStore(t)
	ctx := context.Background()

	srv.Set(DefaultKeyPrefix+"broken", "{not json")

	task, err := s.LoadTask(ctx, "broken", 0)
	if err != nil {
		t.Fatalf("LoadTask on corrupt record: %v", err)
	}
	if task != nil {
		t.Fatalf("LoadTask = %+v, want nil for corrupt record", task)
	}
}

func TestRedisStoreTTL(t *testing.T) {
	t.Parallel()
	s, srv := newTestRedisStore(t)
	ctx := context.Background()

	if _, err := s.SubmitTask(ctx, "t1", "s1", userMessage("hello")); err != nil {
		t.Fatalf("SubmitTask: %v", err)
	}
	if ttl := srv.TTL(DefaultKeyPrefix + "t1"); ttl != time.Hour {
		t.Errorf("TTL after submit = %v, want %v", ttl, time.Hour)
	}

	// Let some TTL elapse, then verify a write refreshes it.
	srv.FastForward(30 * time.Minute)
	if _, err := s.UpdateTask(ctx, "t1", fasta2a.TaskStateWorking, nil, nil); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if ttl := srv.TTL(DefaultKeyPrefix + "t1"); ttl != time.Hour {
		t.Errorf("TTL after update = %v, want refreshed %v", ttl, time.Hour)
	}

	// An idle task eventually disappears.
	srv.FastForward(2 * time.Hour)
	task, err := s.LoadTask(ctx, "t1", 0)
	if err != nil {
		t.Fatalf("LoadTask: %v", err)
	}
	if task != nil {
		t.Fatalf("LoadTask = %+v, want nil after TTL expiry", task)
	}
}

func TestRedisStoreRetryExhaustion(t *testing.T) {
	t.Parallel()
	s, srv := newTestRedisStore(t)
	ctx := context.Background()

	if _, err := s.SubmitTask(ctx, "t1", "s1", userMessage("hello")); err != nil {
		t.Fatalf("SubmitTask: %v", err)
	}
	srv.Close()

	// Read path degrades to absent.
	task, err := s.LoadTask(ctx, "t1", 0)
	if err != nil {
		t.Fatalf("LoadTask with store down: err = %v, want nil", err)
	}
	if task != nil {
		t.Fatalf("LoadTask with store down = %+v, want nil", task)
	}

	// Write paths surface the failure.
	_, err = s.SubmitTask(ctx, "t2", "s1", userMessage("hello"))
	var storeErr fasta2a.StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("SubmitTask with store down: err = %v, want StoreError", err)
	}
	if storeErr.Attempts != 3 {
		t.Errorf("StoreError.Attempts = %d, want 3 (1 + 2 retries)", storeErr.Attempts)
	}

	if _, err := s.UpdateTask(ctx, "t1", fasta2a.TaskStateWorking, nil, nil); !errors.As(err, &storeErr) {
		t.Errorf("UpdateTask with store down: err = %v, want StoreError", err)
	}
}
