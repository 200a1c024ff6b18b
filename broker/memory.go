// Copyright 2026 The Go FastA2A Authors
// SPDX-License-Identifier: Apache-2.0

package broker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/go-fasta2a/fasta2a"
)

// memoryBufferSize bounds each subscriber's pending payloads. A slow
// subscriber drops messages rather than blocking publishers, matching the
// no-queueing contract of broadcast pub/sub.
const memoryBufferSize = 128

// MemoryHub is the in-process equivalent of the shared pub/sub channel:
// every payload published through any attached broker is fanned out to
// every subscribed broker. Intended for tests and single-process use.
type MemoryHub struct {
	mu     sync.Mutex
	subs   map[*MemoryBroker]chan []byte
	logger *slog.Logger
}

// NewMemoryHub creates a new MemoryHub.
func NewMemoryHub() *MemoryHub {
	return &MemoryHub{
		subs:   make(map[*MemoryBroker]chan []byte),
		logger: slog.Default(),
	}
}

// NewBroker creates a broker attached to the hub. Each broker is one
// logical subscriber.
func (h *MemoryHub) NewBroker() *MemoryBroker {
	return &MemoryBroker{
		hub:    h,
		ops:    make(chan *fasta2a.TaskOperation),
		logger: h.logger,
	}
}

func (h *MemoryHub) publish(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for b, ch := range h.subs {
		select {
		case ch <- data:
		default:
			h.logger.Warn("dropping task operation for slow subscriber",
				slog.String("channel", "memory"), slog.Any("subscriber", b))
		}
	}
}

func (h *MemoryHub) attach(b *MemoryBroker) chan []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan []byte, memoryBufferSize)
	h.subs[b] = ch
	return ch
}

func (h *MemoryHub) detach(b *MemoryBroker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[b]; ok {
		delete(h.subs, b)
		close(ch)
	}
}

// MemoryBroker is an in-process Broker over a MemoryHub. Payloads still
// pass through the wire encoding so consumers exercise the same parsing
// and validation as the Redis broker.
type MemoryBroker struct {
	hub      *MemoryHub
	incoming chan []byte
	ops      chan *fasta2a.TaskOperation
	once     sync.Once
	logger   *slog.Logger
}

var _ Broker = (*MemoryBroker)(nil)

// RunTask publishes a run command to the hub.
func (b *MemoryBroker) RunTask(ctx context.Context, params fasta2a.TaskSendParams) error {
	if err := validateRunParams(params); err != nil {
		return err
	}
	op, err := fasta2a.NewRunOperation(params)
	if err != nil {
		return err
	}
	return b.publish(op)
}

// CancelTask publishes a cancel command to the hub.
func (b *MemoryBroker) CancelTask(ctx context.Context, params fasta2a.TaskIDParams) error {
	if err := validateCancelParams(params); err != nil {
		return err
	}
	op, err := fasta2a.NewCancelOperation(params)
	if err != nil {
		return err
	}
	return b.publish(op)
}

func (b *MemoryBroker) publish(op *fasta2a.TaskOperation) error {
	data, err := op.Encode()
	if err != nil {
		return err
	}
	b.hub.publish(data)
	return nil
}

// Subscribe attaches the broker to its hub.
func (b *MemoryBroker) Subscribe(ctx context.Context) error {
	b.incoming = b.hub.attach(b)
	return nil
}

// Operations returns the stream of received operations.
func (b *MemoryBroker) Operations(ctx context.Context) <-chan *fasta2a.TaskOperation {
	b.once.Do(func() {
		if b.incoming == nil {
			close(b.ops)
			return
		}
		go b.consume(ctx)
	})
	return b.ops
}

func (b *MemoryBroker) consume(ctx context.Context) {
	defer close(b.ops)
	for {
		select {
		case data, ok := <-b.incoming:
			if !ok {
				return
			}
			op, err := fasta2a.DecodeTaskOperation(data)
			if err != nil {
				b.logger.Warn("skipping invalid task operation payload", slog.Any("error", err))
				continue
			}
			select {
			case b.ops <- op:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// Err always reports nil; the in-process transport has no transient
// failure mode.
func (b *MemoryBroker) Err() error {
	return nil
}

// Close detaches the broker from its hub.
func (b *MemoryBroker) Close() error {
	b.hub.detach(b)
	return nil
}
