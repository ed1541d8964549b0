package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"usely-backend/internal/queue"
	"usely-backend/internal/shared/telemetry"
	"usely-backend/internal/shared/util"
)

const maxEndpointsPerAccount = 10

// Service manages endpoints and fans events out to the delivery queue.
type Service struct {
	Repo  Repo
	Queue queue.Client
	Now   func() time.Time
}

func NewService(repo Repo, q queue.Client) *Service {
	return &Service{Repo: repo, Queue: q, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Created carries the plaintext secret, shown only once.
type Created struct {
	View
	Secret string `json:"secret"`
}

func (s *Service) Create(ctx context.Context, accountID, rawURL string, events []string) (Created, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Created{}, &ValidationError{Field: "url", Issue: "invalid_url"}
	}
	if !publicHost(u.Hostname()) {
		return Created{}, &ValidationError{Field: "url", Issue: "private_host"}
	}
	normalized, err := normalizeEvents(events)
	if err != nil {
		return Created{}, err
	}
	existing, err := s.Repo.ListByAccount(ctx, accountID)
	if err != nil {
		return Created{}, err
	}
	if len(existing) >= maxEndpointsPerAccount {
		return Created{}, &ValidationError{Field: "url", Issue: "too_many_endpoints"}
	}

	secret, err := util.RandomHex(24)
	if err != nil {
		return Created{}, err
	}
	e := Endpoint{
		ID:        uuid.NewString(),
		AccountID: accountID,
		URL:       u.String(),
		Secret:    secretPrefix + secret,
		Events:    normalized,
		Active:    true,
		CreatedAt: s.now(),
	}
	if err := s.Repo.Insert(ctx, e); err != nil {
		return Created{}, err
	}
	telemetry.Info("webhook.endpoint_created", map[string]any{
		"account_id":  accountID,
		"endpoint_id": e.ID,
	})
	created := Created{View: e.View(), Secret: e.Secret}
	return created, nil
}

// publicHost rejects loopback, private, link-local and unspecified targets.
// Hostnames other than localhost are not resolved.
func publicHost(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" || host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return false
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return true
	}
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast())
}

func normalizeEvents(events []string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, ev := range events {
		ev = strings.ToLower(strings.TrimSpace(ev))
		if ev == "" || seen[ev] {
			continue
		}
		if !knownEvent(ev) {
			return nil, &ValidationError{Field: "events", Issue: "unknown_event"}
		}
		seen[ev] = true
		out = append(out, ev)
	}
	return out, nil
}

func knownEvent(ev string) bool {
	for _, known := range Events {
		if ev == known {
			return true
		}
	}
	return false
}

func (s *Service) List(ctx context.Context, accountID string) ([]View, error) {
	endpoints, err := s.Repo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	out := make([]View, 0, len(endpoints))
	for _, e := range endpoints {
		out = append(out, e.View())
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, accountID, id string) error {
	return s.Repo.Delete(ctx, accountID, id)
}

// Publish enqueues event for every active subscribed endpoint of the account.
// Failures are logged and never returned.
func (s *Service) Publish(ctx context.Context, accountID, event string, payload any) {
	if s == nil || s.Queue == nil {
		return
	}
	endpoints, err := s.Repo.ListByAccount(ctx, accountID)
	if err != nil {
		telemetry.Error("webhook.publish_list_failed", map[string]any{
			"account_id": accountID,
			"event":      event,
			"error":      err,
		})
		return
	}
	var body json.RawMessage
	for _, e := range endpoints {
		if !e.Active || !e.Subscribed(event) {
			continue
		}
		if body == nil {
			if body, err = json.Marshal(payload); err != nil {
				telemetry.Error("webhook.publish_encode_failed", map[string]any{
					"account_id": accountID,
					"event":      event,
					"error":      err,
				})
				return
			}
		}
		s.enqueue(ctx, e, event, body)
	}
}

// SendTest enqueues a webhook.test delivery to one endpoint regardless of its subscriptions.
func (s *Service) SendTest(ctx context.Context, accountID, id string) (string, error) {
	e, err := s.Repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if e.AccountID != accountID {
		return "", ErrNotFound
	}
	if s.Queue == nil {
		return "", fmt.Errorf("webhook queue not configured")
	}
	body, _ := json.Marshal(map[string]any{
		"message": "This is a test event from Usely.",
	})
	msg := s.message(ctx, e, EventTest, body)
	if err := s.Queue.Send(ctx, msg); err != nil {
		return "", fmt.Errorf("enqueue test delivery: %w", err)
	}
	return msg.DeliveryID, nil
}

func (s *Service) enqueue(ctx context.Context, e Endpoint, event string, body json.RawMessage) {
	msg := s.message(ctx, e, event, body)
	if err := s.Queue.Send(ctx, msg); err != nil {
		telemetry.Error("webhook.enqueue_failed", map[string]any{
			"account_id":  e.AccountID,
			"endpoint_id": e.ID,
			"delivery_id": msg.DeliveryID,
			"event":       event,
			"error":       err,
		})
	}
}

func (s *Service) message(ctx context.Context, e Endpoint, event string, body json.RawMessage) queue.Message {
	return queue.Message{
		Version:    queue.CurrentVersion,
		DeliveryID: uuid.NewString(),
		EndpointID: e.ID,
		AccountID:  e.AccountID,
		Event:      event,
		Payload:    body,
		RequestID:  telemetry.RequestID(ctx),
		EnqueuedAt: s.now().Format(time.RFC3339Nano),
	}
}
