package webhook

import (
	"encoding/json"
	"fmt"

	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/domain"
)

// Gateway event types carried in the webhook stream.
const (
	TypeIntentCreated   = "payment_intent.created"
	TypeIntentSucceeded = "payment_intent.succeeded"
	TypeIntentCanceled  = "payment_intent.canceled"
	TypeIntentFailed    = "payment_intent.payment_failed"
)

// Event is a verified, parsed gateway notification. IntentID names the
// intent the event describes; EventID dedupes redeliveries.
type Event struct {
	EventID  string
	Type     string
	IntentID string
}

type rawEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID string `json:"id"`
		} `json:"object"`
	} `json:"data"`
}

// ParseEvent decodes a payload that has already passed Verify.
func ParseEvent(payload []byte) (Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Event{}, fmt.Errorf("decoding event payload: %w", err)
	}
	if raw.ID == "" || raw.Type == "" || raw.Data.Object.ID == "" {
		return Event{}, fmt.Errorf("event payload missing id, type, or object id")
	}
	return Event{EventID: raw.ID, Type: raw.Type, IntentID: raw.Data.Object.ID}, nil
}

// TargetState maps an event type onto the lifecycle state it asserts.
// ok is false for types this service does not act on.
func (e Event) TargetState() (state domain.IntentState, ok bool) {
	switch e.Type {
	case TypeIntentCreated:
		return domain.IntentCreated, true
	case TypeIntentSucceeded:
		return domain.IntentSucceeded, true
	case TypeIntentCanceled:
		return domain.IntentCanceled, true
	case TypeIntentFailed:
		return domain.IntentFailed, true
	}
	return domain.IntentUnknown, false
}
