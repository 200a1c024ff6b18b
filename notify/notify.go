// Copyright 2026 The Go FastA2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package notify delivers push notifications about task progress to
// caller-supplied endpoints. Each notification is an HTTP POST of the task
// snapshot, optionally authenticated with the caller's opaque token and a
// JWT signed by this service so receivers can verify origin and payload
// integrity.
package notify

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/go-fasta2a/fasta2a"
)

const (
	// TokenHeader carries the caller-supplied opaque token back to the
	// notified endpoint.
	TokenHeader = "X-A2A-Notification-Token"

	// BodyHashClaim is the JWT claim holding the hex SHA-256 of the
	// request body, binding the signature to the payload.
	BodyHashClaim = "request_body_sha256"

	// DefaultTimeout bounds each notification request.
	DefaultTimeout = 30 * time.Second

	// tokenLifetime bounds how long a signed notification stays valid.
	tokenLifetime = 5 * time.Minute
)

// HTTPSender posts task snapshots to push-notification endpoints.
type HTTPSender struct {
	client     *http.Client
	timeout    time.Duration
	signingKey any
	signingAlg jwa.SignatureAlgorithm
	issuer     string
	logger     *slog.Logger
}

// HTTPSenderConfig holds configuration for HTTPSender. When SigningKey is
// set, every request carries a Bearer JWT signed with it; SigningAlg
// defaults to HS256.
type HTTPSenderConfig struct {
	Client     *http.Client // defaults to a client with DefaultTimeout
	Timeout    time.Duration
	SigningKey any
	SigningAlg jwa.SignatureAlgorithm
	Issuer     string
	Logger     *slog.Logger // defaults to slog.Default
}

// NewHTTPSender creates a new HTTPSender.
func NewHTTPSender(config HTTPSenderConfig) *HTTPSender {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := config.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	alg := config.SigningAlg
	if config.SigningKey != nil && alg.String() == "" {
		alg = jwa.HS256()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPSender{
		client:     client,
		timeout:    timeout,
		signingKey: config.SigningKey,
		signingAlg: alg,
		issuer:     config.Issuer,
		logger:     logger,
	}
}

// SendTaskNotification posts the task snapshot to the configured endpoint.
func (s *HTTPSender) SendTaskNotification(ctx context.Context, task *fasta2a.Task, config *fasta2a.PushNotificationConfig) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if config == nil {
		return fmt.Errorf("push notification config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return fasta2a.NewValidationError("push_notification", err)
	}

	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task %s notification: %w", task.ID, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request for task %s: %w", task.ID, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if config.Token != "" {
		req.Header.Set(TokenHeader, config.Token)
	}
	if s.signingKey != nil {
		signed, err := s.signRequest(body)
		if err != nil {
			return fmt.Errorf("sign notification for task %s: %w", task.ID, err)
		}
		req.Header.Set("Authorization", "Bearer "+signed)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification for task %s: %w", task.ID, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint for task %s returned %s", task.ID, resp.Status)
	}

	s.logger.Info("sent push notification",
		slog.String("task_id", task.ID), slog.String("url", config.URL),
		slog.String("state", string(task.Status.State)))
	return nil
}

// signRequest builds a short-lived JWT binding the notification payload to
// this sender.
func (s *HTTPSender) signRequest(body []byte) (string, error) {
	sum := sha256.Sum256(body)

	builder := jwt.NewBuilder().
		IssuedAt(time.Now()).
		Expiration(time.Now().Add(tokenLifetime)).
		Claim(BodyHashClaim, hex.EncodeToString(sum[:]))
	if s.issuer != "" {
		builder = builder.Issuer(s.issuer)
	}
	token, err := builder.Build()
	if err != nil {
		return "", fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(s.signingAlg, s.signingKey))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return string(signed), nil
}
