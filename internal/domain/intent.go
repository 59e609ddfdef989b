package domain

import (
	"time"
)

type IntentState string

const (
	IntentCreated   IntentState = "CREATED"
	IntentSucceeded IntentState = "SUCCEEDED"
	IntentCanceled  IntentState = "CANCELED"
	IntentFailed    IntentState = "FAILED"
	IntentUnknown   IntentState = "UNKNOWN"
)

// Terminal reports whether no further transition is permitted from s.
func (s IntentState) Terminal() bool {
	switch s {
	case IntentSucceeded, IntentCanceled, IntentFailed:
		return true
	}
	return false
}

// PaymentIntent mirrors the gateway-side hold on funds. The ID and
// ClientSecret are assigned by the gateway at creation; ClientSecret is
// returned to the buyer's client exactly once and is not re-derivable.
type PaymentIntent struct {
	ID           string
	Amount       int64 // minor currency units
	Currency     string
	State        IntentState
	ClientSecret string
	LastEventID  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
