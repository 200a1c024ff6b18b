// Copyright 2026 The Go FastA2A Authors
// SPDX-License-Identifier: Apache-2.0

package fasta2a

import (
	"testing"
)

func TestTaskStateValid(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		state TaskState
		want  bool
	}{
		"submitted":      {TaskStateSubmitted, true},
		"working":        {TaskStateWorking, true},
		"input-required": {TaskStateInputRequired, true},
		"completed":      {TaskStateCompleted, true},
		"canceled":       {TaskStateCanceled, true},
		"failed":         {TaskStateFailed, true},
		"unknown":        {TaskStateUnknown, true},
		"empty":          {TaskState(""), false},
		"bogus":          {TaskState("paused"), false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := tt.state.Valid(); got != tt.want {
				t.Errorf("Valid(%q) = %v, want %v", tt.state, got, tt.want)
			}
		})
	}
}

func TestTaskStateTerminal(t *testing.T) {
	t.Parallel()

	terminal := []TaskState{TaskStateCompleted, TaskStateCanceled, TaskStateFailed}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("Terminal(%q) = false, want true", s)
		}
	}
	for _, s := range []TaskState{TaskStateSubmitted, TaskStateWorking, TaskStateInputRequired, TaskStateUnknown} {
		if s.Terminal() {
			t.Errorf("Terminal(%q) = true, want false", s)
		}
	}
}

func TestTaskStateCanTransitionTo(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		from TaskState
		to   TaskState
		want bool
	}{
		"submitted to working":          {TaskStateSubmitted, TaskStateWorking, true},
		"working to input-required":     {TaskStateWorking, TaskStateInputRequired, true},
		"input-required to working":     {TaskStateInputRequired, TaskStateWorking, true},
		"working to completed":          {TaskStateWorking, TaskStateCompleted, true},
		"working to canceled":           {TaskStateWorking, TaskStateCanceled, true},
		"working to failed":             {TaskStateWorking, TaskStateFailed, true},
		"working to working":            {TaskStateWorking, TaskStateWorking, true},
		"completed to working":          {TaskStateCompleted, TaskStateWorking, false},
		"canceled to working":           {TaskStateCanceled, TaskStateWorking, false},
		"failed to completed":           {TaskStateFailed, TaskStateCompleted, false},
		"working back to submitted":     {TaskStateWorking, TaskStateSubmitted, false},
		"working to unrecognized state": {TaskStateWorking, TaskState("bogus"), false},
		"unknown to completed":          {TaskStateUnknown, TaskStateCompleted, true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo(%q -> %q) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestMessageValidate(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		message Message
		wantErr bool
	}{
		"valid user message": {
			message: Message{Role: RoleUser, Parts: []Part{TextPart("hello")}},
		},
		"valid agent message": {
			message: Message{Role: RoleAgent, Parts: []Part{TextPart("done")}},
		},
		"bad role": {
			message: Message{Role: "system", Parts: []Part{TextPart("hi")}},
			wantErr: true,
		},
		"no parts": {
			message: Message{Role: RoleUser},
			wantErr: true,
		},
		"bad part type": {
			message: Message{Role: RoleUser, Parts: []Part{{Type: "audio"}}},
			wantErr: true,
		},
		"empty part type": {
			message: Message{Role: RoleUser, Parts: []Part{{Text: "hi"}}},
			wantErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			err := tt.message.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTaskSendParamsValidate(t *testing.T) {
	t.Parallel()

	valid := TaskSendParams{
		ID:      "t1",
		Message: Message{Role: RoleUser, Parts: []Part{TextPart("hello")}},
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() on valid params: %v", err)
	}

	noID := valid
	noID.ID = ""
	if err := noID.Validate(); err == nil {
		t.Error("Validate() accepted empty id")
	}

	badPush := valid
	badPush.PushNotification = &PushNotificationConfig{}
	if err := badPush.Validate(); err == nil {
		t.Error("Validate() accepted push notification without url")
	}
}

func TestTaskValidate(t *testing.T) {
	t.Parallel()

	task := NewSubmittedTask("t1", "s1", Message{Role: RoleUser, Parts: []Part{TextPart("hi")}})
	if err := task.Validate(); err != nil {
		t.Errorf("Validate() on fresh task: %v", err)
	}

	task.ID = ""
	if err := task.Validate(); err == nil {
		t.Error("Validate() accepted empty id")
	}

	task.ID = "t1"
	task.Status.State = "bogus"
	if err := task.Validate(); err == nil {
		t.Error("Validate() accepted unknown state")
	}
}
