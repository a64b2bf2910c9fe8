// Package queue defines the hold lifecycle messages exchanged over the
// message broker, plus the publisher and audit consumer around them.
package queue

import "context"

// Hold lifecycle actions.
const (
	ActionPlaced   = "placed"
	ActionReleased = "released"
	ActionExpired  = "expired"
)

// HoldEvent is published whenever a client-side hold changes state.
// It carries enough for downstream consumers to log or trigger
// follow-ups (payment reminders, analytics) without reading the store.
type HoldEvent struct {
	ResourceID string `json:"resource_id"`
	SlotKey    string `json:"slot_key"`
	Owner      string `json:"owner"`
	ExpiresAt  int64  `json:"expires_at"` // epoch milliseconds
	Action     string `json:"action"`     // placed | released | expired
	OccurredAt string `json:"occurred_at"`
}

// Publisher is the hold store's outbound event sink.  Implementations
// must treat publishing as best-effort; a broker outage never blocks a
// hold mutation.
type Publisher interface {
	PublishHoldEvent(ctx context.Context, ev HoldEvent) error
}
