package eventbus

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Type names a record change.
type Type string

const (
	RecordCreated Type = "record.created"
	RecordUpdated Type = "record.updated"
	RecordDeleted Type = "record.deleted"
	// StateChanged is published in addition to RecordUpdated when a field
	// governed by a transition table changes.
	StateChanged Type = "state.changed"
)

// Ref points at a record.
type Ref struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
}

// Event describes one change to a stored record.
type Event struct {
	ID            string `json:"id"`
	Type          Type   `json:"type"`
	Subject       Ref    `json:"subject"`
	Related       []Ref  `json:"related,omitempty"`
	Actor         string `json:"actor"`
	Source        string `json:"source"`
	CorrelationID string `json:"correlation_id,omitempty"`

	// Actions are the business-logic actions bound to the change.
	Actions []string `json:"actions,omitempty"`

	// Changed lists the columns written by an update.
	Changed []string `json:"changed,omitempty"`

	// Field, From and To describe a StateChanged event.
	Field string `json:"field,omitempty"`
	From  string `json:"from,omitempty"`
	To    string `json:"to,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent returns an event of type typ about subject, stamped with a new
// ULID and the current time.
func NewEvent(typ Type, subject Ref) Event {
	now := time.Now().UTC()
	return Event{
		ID:         ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Type:       typ,
		Subject:    subject,
		OccurredAt: now,
	}
}
