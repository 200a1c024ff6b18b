// Copyright 2026 The Go FastA2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package broker dispatches run and cancel commands from task submitters
// to worker processes over a broadcast publish/subscribe channel.
//
// Delivery is broadcast, not a work queue: every subscriber active at
// publish time receives every operation, there is no acknowledgment, no
// replay for late subscribers, and no load balancing. A deployment with
// more than one worker process will therefore execute each command once
// per worker unless the operator adds a claim step in front of execution.
package broker

import (
	"context"

	"github.com/go-fasta2a/fasta2a"
)

// Broker delivers task operations between submitters and workers.
//
// The consumer side is scoped: Subscribe opens the channel subscription,
// Operations exposes the received stream, and Close tears the
// subscription down. The stream is infinite and not restartable; once the
// channel returned by Operations is closed, check Err and build a new
// broker to resume listening.
type Broker interface {
	// RunTask publishes a run command for the given params.
	RunTask(ctx context.Context, params fasta2a.TaskSendParams) error

	// CancelTask publishes a cancel command for the given params.
	CancelTask(ctx context.Context, params fasta2a.TaskIDParams) error

	// Subscribe opens the channel subscription, retrying transient
	// failures. It must be called before Operations.
	Subscribe(ctx context.Context) error

	// Operations returns the stream of received operations. The channel is
	// closed when ctx is canceled, the broker is closed, or the consumer
	// loop gives up on a persistently failing connection; in the last case
	// Err returns the terminal error.
	Operations(ctx context.Context) <-chan *fasta2a.TaskOperation

	// Err reports the terminal consumer-loop error, if any, after the
	// Operations channel has been closed.
	Err() error

	// Close tears down the subscription. Teardown failures are logged,
	// not propagated, so cleanup cannot mask the failure that caused it.
	Close() error
}

func validateRunParams(params fasta2a.TaskSendParams) error {
	if err := params.Validate(); err != nil {
		return fasta2a.NewValidationError("params", err)
	}
	return nil
}

func validateCancelParams(params fasta2a.TaskIDParams) error {
	if err := params.Validate(); err != nil {
		return fasta2a.NewValidationError("params", err)
	}
	return nil
}
