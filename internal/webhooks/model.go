package webhooks

import (
	"errors"
	"fmt"
	"time"

	"usely-backend/internal/shared/util"
)

const (
	EventUsageTracked        = "usage.tracked"
	EventQuotaThreshold      = "quota.threshold"
	EventSubscriptionUpdated = "subscription.updated"
	EventMemberInvited       = "team.member_invited"
	// EventTest is only sent by the test endpoint and ignores subscriptions.
	EventTest = "webhook.test"

	secretPrefix = "whsec_"
)

// Events lists every event an endpoint may subscribe to.
var Events = []string{
	EventUsageTracked,
	EventQuotaThreshold,
	EventSubscriptionUpdated,
	EventMemberInvited,
}

var ErrNotFound = errors.New("webhook endpoint not found")

// ValidationError reports a single invalid input field.
type ValidationError struct {
	Field string
	Issue string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Issue)
}

// Endpoint is a registered receiver. Empty Events means every event.
type Endpoint struct {
	ID        string
	AccountID string
	URL       string
	Secret    string
	Events    []string
	Active    bool
	CreatedAt time.Time
}

// Subscribed reports whether the endpoint wants event.
func (e Endpoint) Subscribed(event string) bool {
	if len(e.Events) == 0 {
		return true
	}
	for _, ev := range e.Events {
		if ev == event {
			return true
		}
	}
	return false
}

type View struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	Active    bool      `json:"active"`
	Secret    string    `json:"secret"`
	CreatedAt time.Time `json:"createdAt"`
}

// View masks the secret.
func (e Endpoint) View() View {
	events := e.Events
	if events == nil {
		events = []string{}
	}
	return View{
		ID:        e.ID,
		URL:       e.URL,
		Events:    events,
		Active:    e.Active,
		Secret:    util.MaskSecret(e.Secret, len(secretPrefix)+4),
		CreatedAt: e.CreatedAt,
	}
}

// Envelope is the JSON body POSTed to receivers.
type Envelope struct {
	ID        string `json:"id"`
	Event     string `json:"event"`
	CreatedAt string `json:"createdAt"`
	Data      any    `json:"data"`
}
