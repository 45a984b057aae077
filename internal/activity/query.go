// Package activity keeps the per-record activity feed. The Indexer turns
// record change events into entries filed under the changed record and every
// record it references, so an account's feed also shows work on its
// contacts and work orders.
package activity

import (
	"context"
	"time"

	"github.com/matthewbaird/fieldops/internal/eventbus"
)

// Role describes how an indexed record relates to the event.
type Role string

const (
	RoleSubject Role = "subject"
	RoleRelated Role = "related"
)

// Entry is one line of a record's activity feed.
type Entry struct {
	EventID    string        `json:"event_id"`
	EventType  eventbus.Type `json:"event_type"`
	OccurredAt time.Time     `json:"occurred_at"`

	// Entity and RecordID identify the record whose feed holds the entry.
	Entity   string       `json:"entity"`
	RecordID string       `json:"record_id"`
	Role     Role         `json:"role"`
	Subject  eventbus.Ref `json:"subject"`
	Summary  string       `json:"summary"`
	Actor    string       `json:"actor"`
	Actions  []string     `json:"actions,omitempty"`
}

// QueryOptions controls filtering and pagination for feed queries.
type QueryOptions struct {
	Since *time.Time
	Types []eventbus.Type
	Limit int // default 100, max 500

	// Cursor is the event id of the last entry of the previous page.
	Cursor string
}

// Reader returns a record's feed, newest first.
type Reader interface {
	QueryByEntity(ctx context.Context, entity, recordID string, opts QueryOptions) (entries []Entry, nextCursor string, err error)
}

// Store persists feed entries.
type Store interface {
	Reader
	// WriteEntries writes the entries of one event.
	WriteEntries(ctx context.Context, entries []Entry) error
}
