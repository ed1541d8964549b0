package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"usely-backend/internal/queue"
	"usely-backend/internal/shared/metrics"
	"usely-backend/internal/shared/telemetry"
)

const (
	deliveryTimeout  = 10 * time.Second
	maxResponseBytes = 4 << 10
)

// Deliverer POSTs queued messages to their endpoints.
type Deliverer struct {
	Repo Repo
	HTTP *http.Client
	Now  func() time.Time
}

func NewDeliverer(repo Repo) *Deliverer {
	return &Deliverer{
		Repo: repo,
		HTTP: &http.Client{Timeout: deliveryTimeout},
		Now:  time.Now,
	}
}

// Deliver sends msg. It returns an error for non-2xx responses so queue
// transports can redeliver; messages for missing or inactive endpoints are dropped.
func (d *Deliverer) Deliver(ctx context.Context, msg queue.Message) error {
	if err := msg.Validate(); err != nil {
		metrics.IncWebhookDelivery("dropped")
		return err
	}
	endpoint, err := d.Repo.Get(ctx, msg.EndpointID)
	if errors.Is(err, ErrNotFound) || (err == nil && (!endpoint.Active || endpoint.AccountID != msg.AccountID)) {
		metrics.IncWebhookDelivery("dropped")
		telemetry.Warn("webhook.deliver_dropped", map[string]any{
			"delivery_id": msg.DeliveryID,
			"endpoint_id": msg.EndpointID,
			"event":       msg.Event,
		})
		return nil
	}
	if err != nil {
		return fmt.Errorf("load endpoint: %w", err)
	}

	body, err := json.Marshal(Envelope{
		ID:        msg.DeliveryID,
		Event:     msg.Event,
		CreatedAt: msg.EnqueuedAt,
		Data:      msg.Payload,
	})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.URL, bytes.NewReader(body))
	if err != nil {
		metrics.IncWebhookDelivery("dropped")
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Usely-Webhooks/1")
	req.Header.Set(HeaderEvent, msg.Event)
	req.Header.Set(HeaderDelivery, msg.DeliveryID)
	req.Header.Set(HeaderSignature, Sign(endpoint.Secret, d.now(), body))

	start := time.Now()
	resp, err := d.client().Do(req)
	if err != nil {
		metrics.IncWebhookDelivery("failed")
		d.logFailure(msg, 0, time.Since(start), err)
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.IncWebhookDelivery("failed")
		err := fmt.Errorf("webhook endpoint responded %d", resp.StatusCode)
		d.logFailure(msg, resp.StatusCode, time.Since(start), err)
		return err
	}

	metrics.IncWebhookDelivery("delivered")
	telemetry.Info("webhook.delivered", map[string]any{
		"delivery_id": msg.DeliveryID,
		"endpoint_id": msg.EndpointID,
		"account_id":  msg.AccountID,
		"event":       msg.Event,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
		"request_id":  msg.RequestID,
	})
	return nil
}

func (d *Deliverer) logFailure(msg queue.Message, status int, elapsed time.Duration, err error) {
	telemetry.Error("webhook.deliver_failed", map[string]any{
		"delivery_id": msg.DeliveryID,
		"endpoint_id": msg.EndpointID,
		"account_id":  msg.AccountID,
		"event":       msg.Event,
		"status":      status,
		"duration_ms": elapsed.Milliseconds(),
		"request_id":  msg.RequestID,
		"error":       err,
	})
}

func (d *Deliverer) client() *http.Client {
	if d.HTTP != nil {
		return d.HTTP
	}
	return http.DefaultClient
}

func (d *Deliverer) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
