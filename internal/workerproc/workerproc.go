package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"usely-backend/internal/queue"
	"usely-backend/internal/shared/telemetry"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

func (e ErrDecode) Unwrap() error { return e.Err }

// ErrInvalid indicates a decoded message that fails validation.
type ErrInvalid struct {
	Meta       MessageMeta
	DeliveryID string
	Err        error
}

func (e ErrInvalid) Error() string { return "invalid message: " + e.Err.Error() }

func (e ErrInvalid) Unwrap() error { return e.Err }

// ErrDeliver indicates delivery failed after successful parsing.
type ErrDeliver struct {
	DeliveryID string
	EndpointID string
	RequestID  string
	Err        error
}

func (e ErrDeliver) Error() string {
	if e.Err == nil {
		return "deliver webhook"
	}
	return "deliver webhook: " + e.Err.Error()
}

func (e ErrDeliver) Unwrap() error { return e.Err }

// Permanent reports whether err can never succeed on redelivery.
func Permanent(err error) bool {
	var (
		empty   ErrEmptyBody
		decode  ErrDecode
		invalid ErrInvalid
	)
	return errors.As(err, &empty) || errors.As(err, &decode) || errors.As(err, &invalid)
}

// ParseMessage decodes and validates the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}
	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if err := msg.Validate(); err != nil {
		return msg, meta, ErrInvalid{Meta: meta, DeliveryID: msg.DeliveryID, Err: err}
	}
	return msg, meta, nil
}

// Deliverer sends one webhook delivery. webhooks.Deliverer satisfies it.
type Deliverer interface {
	Deliver(ctx context.Context, msg queue.Message) error
}

// HandleMessage parses body and delivers it.
func HandleMessage(ctx context.Context, d Deliverer, body string) error {
	if d == nil {
		return errors.New("webhook deliverer not configured")
	}
	msg, meta, err := ParseMessage(body)
	if err != nil {
		telemetry.Error("worker.message_rejected", map[string]any{
			"body_len": meta.BodyLen,
			"body_sha": meta.BodySHA,
			"error":    err,
		})
		return err
	}
	ctx = telemetry.WithRequestID(ctx, msg.RequestID)
	if err := d.Deliver(ctx, msg); err != nil {
		return ErrDeliver{
			DeliveryID: msg.DeliveryID,
			EndpointID: msg.EndpointID,
			RequestID:  msg.RequestID,
			Err:        err,
		}
	}
	return nil
}
