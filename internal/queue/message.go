package queue

import (
	"encoding/json"
	"errors"
	"strings"
)

// CurrentVersion is the message schema version written by this build.
const CurrentVersion = 1

// Message is one webhook delivery job.
type Message struct {
	Version    int             `json:"version"`
	DeliveryID string          `json:"deliveryId"`
	EndpointID string          `json:"endpointId"`
	AccountID  string          `json:"accountId"`
	Event      string          `json:"event"`
	Payload    json.RawMessage `json:"payload"`
	RequestID  string          `json:"requestId,omitempty"`
	EnqueuedAt string          `json:"enqueuedAt"`
}

var (
	ErrUnsupportedVersion = errors.New("unsupported message version")
	ErrMissingField       = errors.New("message missing required field")
)

// Validate checks the fields every consumer relies on.
func (m Message) Validate() error {
	if m.Version != CurrentVersion {
		return ErrUnsupportedVersion
	}
	for _, v := range []string{m.DeliveryID, m.EndpointID, m.AccountID, m.Event} {
		if strings.TrimSpace(v) == "" {
			return ErrMissingField
		}
	}
	return nil
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
