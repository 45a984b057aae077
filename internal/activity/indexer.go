package activity

import (
	"context"
	"fmt"
	"strings"

	"github.com/matthewbaird/fieldops/internal/eventbus"
	"github.com/matthewbaird/fieldops/internal/naming"
)

// Indexer consumes record change events and writes feed entries. It
// implements eventbus.Handler.
type Indexer struct {
	store Store
}

// NewIndexer creates a new activity indexer.
func NewIndexer(store Store) *Indexer {
	return &Indexer{store: store}
}

// HandleEvent writes one entry for the event's subject and one for every
// distinct related record.
func (idx *Indexer) HandleEvent(ctx context.Context, evt eventbus.Event) error {
	summary := Summarize(evt)
	entry := func(ref eventbus.Ref, role Role) Entry {
		return Entry{
			EventID:    evt.ID,
			EventType:  evt.Type,
			OccurredAt: evt.OccurredAt,
			Entity:     ref.Entity,
			RecordID:   ref.ID,
			Role:       role,
			Subject:    evt.Subject,
			Summary:    summary,
			Actor:      evt.Actor,
			Actions:    evt.Actions,
		}
	}

	entries := []Entry{entry(evt.Subject, RoleSubject)}
	seen := map[eventbus.Ref]bool{evt.Subject: true}
	for _, ref := range evt.Related {
		if ref.ID == "" || seen[ref] {
			continue
		}
		seen[ref] = true
		entries = append(entries, entry(ref, RoleRelated))
	}
	return idx.store.WriteEntries(ctx, entries)
}

// Summarize returns the one-line description of evt shown in feeds, e.g.
// "Work Order status changed from New to Scheduled by dispatch".
func Summarize(evt eventbus.Event) string {
	label := naming.Label(evt.Subject.Entity)
	var b strings.Builder
	switch evt.Type {
	case eventbus.RecordCreated:
		fmt.Fprintf(&b, "%s created", label)
	case eventbus.RecordDeleted:
		fmt.Fprintf(&b, "%s deleted", label)
	case eventbus.StateChanged:
		fmt.Fprintf(&b, "%s %s changed from %s to %s", label, strings.ToLower(naming.Label(evt.Field)), evt.From, evt.To)
	default:
		fmt.Fprintf(&b, "%s updated", label)
		if len(evt.Changed) > 0 {
			labels := make([]string, len(evt.Changed))
			for i, c := range evt.Changed {
				labels[i] = strings.ToLower(naming.Label(c))
			}
			fmt.Fprintf(&b, " (%s)", strings.Join(labels, ", "))
		}
	}
	if evt.Actor != "" {
		fmt.Fprintf(&b, " by %s", evt.Actor)
	}
	return b.String()
}
