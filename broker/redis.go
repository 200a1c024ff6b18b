// Copyright 2026 The Go FastA2A Authors
// SPDX-License-Identifier: Apache-2.0

package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/go-fasta2a/fasta2a"
	"github.com/go-fasta2a/fasta2a/internal/retry"
)

// Defaults for RedisBrokerConfig.
const (
	// DefaultChannel is the pub/sub channel operations are published to.
	DefaultChannel = "a2a:tasks"

	// DefaultPollTimeout bounds each receive so the consumer loop can
	// observe cancellation promptly. It is not an operation-level timeout.
	DefaultPollTimeout = 1 * time.Second

	// DefaultReconnectInterval scales the sleep between consecutive
	// consumer-loop failures.
	DefaultReconnectInterval = 5 * time.Second

	// DefaultMaxConsecutiveErrors is how many consecutive transient
	// failures the consumer loop tolerates before giving up. The
	// surrounding application is expected to rebuild the broker rather
	// than assume the stream self-heals indefinitely.
	DefaultMaxConsecutiveErrors = 10

	// maxErrorSleep caps the growing sleep between consumer-loop retries.
	maxErrorSleep = 30 * time.Second
)

// RedisBroker delivers task operations over a Redis pub/sub channel.
type RedisBroker struct {
	client            redis.UniversalClient
	channel           string
	retry             retry.Config
	pollTimeout       time.Duration
	reconnectInterval time.Duration
	maxConsecutive    int
	logger            *slog.Logger

	pubsub *redis.PubSub
	ops    chan *fasta2a.TaskOperation
	once   sync.Once
	closed atomic.Bool

	mu  sync.Mutex
	err error
}

var _ Broker = (*RedisBroker)(nil)

// RedisBrokerConfig holds configuration for RedisBroker. The client is
// required; its lifecycle belongs to whoever assembles the application.
type RedisBrokerConfig struct {
	Client               redis.UniversalClient
	Channel              string        // defaults to DefaultChannel
	MaxRetries           int           // publish/subscribe retries, defaults to retry.DefaultMaxRetries
	RetryBaseDelay       time.Duration // defaults to retry.DefaultBaseDelay
	RetryMaxDelay        time.Duration // defaults to retry.DefaultMaxDelay
	RetryMultiplier      float64       // defaults to retry.DefaultMultiplier
	PollTimeout          time.Duration // defaults to DefaultPollTimeout
	ReconnectInterval    time.Duration // defaults to DefaultReconnectInterval
	MaxConsecutiveErrors int           // defaults to DefaultMaxConsecutiveErrors
	Logger               *slog.Logger  // defaults to slog.Default
}

// NewRedisBroker creates a new RedisBroker.
func NewRedisBroker(config RedisBrokerConfig) (*RedisBroker, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}

	channel := config.Channel
	if channel == "" {
		channel = DefaultChannel
	}
	pollTimeout := config.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}
	reconnectInterval := config.ReconnectInterval
	if reconnectInterval <= 0 {
		reconnectInterval = DefaultReconnectInterval
	}
	maxConsecutive := config.MaxConsecutiveErrors
	if maxConsecutive <= 0 {
		maxConsecutive = DefaultMaxConsecutiveErrors
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &RedisBroker{
		client:  config.Client,
		channel: channel,
		retry: retry.Config{
			MaxRetries: config.MaxRetries,
			BaseDelay:  config.RetryBaseDelay,
			MaxDelay:   config.RetryMaxDelay,
			Multiplier: config.RetryMultiplier,
			Retryable:  transientRedisErr,
		},
		pollTimeout:       pollTimeout,
		reconnectInterval: reconnectInterval,
		maxConsecutive:    maxConsecutive,
		logger:            logger,
		ops:               make(chan *fasta2a.TaskOperation),
	}, nil
}

func transientRedisErr(err error) bool {
	if errors.Is(err, redis.ErrClosed) {
		return true
	}
	return retry.Transient(err)
}

// RunTask publishes a run command. A lost command must be visible to the
// caller, so retry exhaustion surfaces a fasta2a.BrokerError.
func (b *RedisBroker) RunTask(ctx context.Context, params fasta2a.TaskSendParams) error {
	if err := validateRunParams(params); err != nil {
		return err
	}
	op, err := fasta2a.NewRunOperation(params)
	if err != nil {
		return err
	}
	return b.publish(ctx, "run_task", params.ID, op)
}

// CancelTask publishes a cancel command.
func (b *RedisBroker) CancelTask(ctx context.Context, params fasta2a.TaskIDParams) error {
	if err := validateCancelParams(params); err != nil {
		return err
	}
	op, err := fasta2a.NewCancelOperation(params)
	if err != nil {
		return err
	}
	return b.publish(ctx, "cancel_task", params.ID, op)
}

func (b *RedisBroker) publish(ctx context.Context, operation, taskID string, op *fasta2a.TaskOperation) error {
	data, err := op.Encode()
	if err != nil {
		return err
	}

	attempts, err := retry.Do(ctx, b.retry, func(ctx context.Context) error {
		return b.client.Publish(ctx, b.channel, data).Err()
	})
	if err != nil {
		b.logger.Error("publish failed",
			slog.String("operation", operation), slog.String("task_id", taskID),
			slog.Int("attempts", attempts), slog.Any("error", err))
		return fasta2a.NewBrokerError(operation, taskID, attempts, err)
	}

	b.logger.Debug("published task operation",
		slog.String("operation", operation), slog.String("task_id", taskID))
	return nil
}

// Subscribe opens the pub/sub subscription, retrying transient failures
// with backoff.
func (b *RedisBroker) Subscribe(ctx context.Context) error {
	attempts, err := retry.Do(ctx, b.retry, func(ctx context.Context) error {
		pubsub := b.client.Subscribe(ctx, b.channel)
		// Wait for the subscription confirmation so connect failures are
		// observed here instead of in the consumer loop.
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			return err
		}
		b.pubsub = pubsub
		return nil
	})
	if err != nil {
		b.logger.Error("subscribe failed",
			slog.String("channel", b.channel), slog.Int("attempts", attempts), slog.Any("error", err))
		return fasta2a.NewBrokerError("subscribe", "", attempts, err)
	}

	b.logger.Info("subscribed to task channel", slog.String("channel", b.channel))
	return nil
}

// Operations returns the stream of received operations. The first call
// starts the consumer loop; the stream is not restartable.
func (b *RedisBroker) Operations(ctx context.Context) <-chan *fasta2a.TaskOperation {
	b.once.Do(func() {
		if b.pubsub == nil {
			b.setErr(fmt.Errorf("broker is not subscribed"))
			close(b.ops)
			return
		}
		go b.consume(ctx)
	})
	return b.ops
}

func (b *RedisBroker) consume(ctx context.Context) {
	defer close(b.ops)

	consecutive := 0
	for {
		if ctx.Err() != nil {
			return
		}

		msg, err := b.pubsub.ReceiveTimeout(ctx, b.pollTimeout)
		if err != nil {
			if isPollTimeout(err) {
				// Idle tick, loop around to observe cancellation.
				continue
			}
			if b.closed.Load() || ctx.Err() != nil {
				return
			}

			consecutive++
			b.logger.Warn("consumer receive failed",
				slog.String("channel", b.channel), slog.Int("consecutive_errors", consecutive), slog.Any("error", err))
			if consecutive >= b.maxConsecutive {
				b.logger.Error("too many consecutive consumer errors, stopping stream",
					slog.String("channel", b.channel), slog.Int("consecutive_errors", consecutive))
				b.setErr(fasta2a.NewBrokerError("receive_task_operations", "", consecutive, err))
				return
			}
			if !b.sleep(ctx, consecutive) {
				return
			}
			continue
		}

		m, ok := msg.(*redis.Message)
		if !ok {
			// Subscription confirmations and pongs.
			continue
		}
		consecutive = 0

		op, err := fasta2a.DecodeTaskOperation([]byte(m.Payload))
		if err != nil {
			b.logger.Warn("skipping invalid task operation payload",
				slog.String("channel", b.channel), slog.Any("error", err))
			continue
		}

		select {
		case b.ops <- op:
		case <-ctx.Done():
			return
		}
	}
}

// sleep waits between consumer-loop failures, growing with the error count
// up to a cap. Returns false when the context was canceled.
func (b *RedisBroker) sleep(ctx context.Context, consecutive int) bool {
	d := min(time.Duration(consecutive)*b.reconnectInterval, maxErrorSleep)
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

// isPollTimeout distinguishes the per-iteration receive timeout from real
// connectivity trouble.
func isPollTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Err reports the terminal consumer-loop error after the operations
// channel has been closed.
func (b *RedisBroker) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

func (b *RedisBroker) setErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err == nil {
		b.err = err
	}
}

// Close unsubscribes and closes the subscription. Teardown errors are
// logged, not propagated.
func (b *RedisBroker) Close() error {
	b.closed.Store(true)
	if b.pubsub == nil {
		return nil
	}
	if err := b.pubsub.Unsubscribe(context.Background(), b.channel); err != nil {
		b.logger.Warn("unsubscribe failed", slog.String("channel", b.channel), slog.Any("error", err))
	}
	if err := b.pubsub.Close(); err != nil {
		b.logger.Warn("closing subscription failed", slog.String("channel", b.channel), slog.Any("error", err))
	}
	b.logger.Info("closed task channel subscription", slog.String("channel", b.channel))
	return nil
}
