// Copyright 2026 The Go FastA2A Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/go-fasta2a/fasta2a"
)

func TestTaskModelRoundTrip(t *testing.T) {
	t.Parallel()

	task := fasta2a.NewSubmittedTask("t1", "s1", userMessage("hello"))
	task.Metadata["trace"] = "abc"
	task.Artifacts = []fasta2a.Artifact{
		{Name: "out", Index: 0, Parts: []fasta2a.Part{fasta2a.TextPart("result")}},
	}

	model := NewTaskModelFromTask(task, time.Now().Add(time.Hour))
	got := model.ToTask()

	if diff := cmp.Diff(task, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("model round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestTaskModelColumnsSurviveValueScan(t *testing.T) {
	t.Parallel()

	task := fasta2a.NewSubmittedTask("t1", "s1", userMessage("hello"))
	task.Artifacts = []fasta2a.Artifact{
		{Name: "out", Index: 0, LastChunk: true, Parts: []fasta2a.Part{fasta2a.TextPart("done")}},
	}
	model := NewTaskModelFromTask(task, time.Now())

	statusVal, err := model.Status.Value()
	if err != nil {
		t.Fatalf("Status.Value: %v", err)
	}
	var status TaskStatusJSON
	if err := status.Scan(statusVal); err != nil {
		t.Fatalf("Status.Scan: %v", err)
	}
	if status.State != task.Status.State {
		t.Errorf("status state = %q, want %q", status.State, task.Status.State)
	}

	historyVal, err := model.History.Value()
	if err != nil {
		t.Fatalf("History.Value: %v", err)
	}
	var history MessageSliceJSON
	// Drivers hand back either []byte or string depending on the dialect.
	if err := history.Scan(string(historyVal.([]byte))); err != nil {
		t.Fatalf("History.Scan: %v", err)
	}
	if diff := cmp.Diff(task.History, history.Messages); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}

	artifactsVal, err := model.Artifacts.Value()
	if err != nil {
		t.Fatalf("Artifacts.Value: %v", err)
	}
	var artifacts ArtifactSliceJSON
	if err := artifacts.Scan(artifactsVal); err != nil {
		t.Fatalf("Artifacts.Scan: %v", err)
	}
	if diff := cmp.Diff(task.Artifacts, artifacts.Artifacts); diff != "" {
		t.Errorf("artifacts mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONColumnsNullHandling(t *testing.T) {
	t.Parallel()

	// Empty collections persist as NULL and scan back to zero values.
	var history MessageSliceJSON
	val, err := history.Value()
	if err != nil {
		t.Fatalf("Value on empty history: %v", err)
	}
	if val != nil {
		t.Errorf("Value on empty history = %v, want nil", val)
	}
	if err := history.Scan(nil); err != nil {
		t.Fatalf("Scan(nil): %v", err)
	}
	if history.Messages != nil {
		t.Errorf("Messages after Scan(nil) = %v, want nil", history.Messages)
	}

	var metadata MetadataJSON
	if err := metadata.Scan(42); err == nil {
		t.Error("Scan(int) succeeded, want error")
	}
}
