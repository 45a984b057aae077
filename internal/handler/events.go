package handler

import (
	"context"
	"fmt"
	"slices"

	"github.com/matthewbaird/fieldops/internal/eventbus"
	"github.com/matthewbaird/fieldops/internal/store"
)

// event builds a change event about rec. Related holds the records rec
// references.
func (h *ResourceHandler) event(typ eventbus.Type, rec store.Record, audit AuditInfo) eventbus.Event {
	evt := eventbus.NewEvent(typ, eventbus.Ref{Entity: h.table.Entity, ID: rec.ID()})
	evt.Actor = audit.Actor
	evt.Source = audit.Source
	if audit.CorrelationID != nil {
		evt.CorrelationID = *audit.CorrelationID
	}
	for _, c := range h.table.Columns {
		if c.References == "" {
			continue
		}
		id, _ := rec[c.Name].(string)
		target, ok := store.TableByName(c.References)
		if id == "" || !ok {
			continue
		}
		evt.Related = append(evt.Related, eventbus.Ref{Entity: target.Entity, ID: id})
	}
	return evt
}

func (h *ResourceHandler) publish(ctx context.Context, evt eventbus.Event) {
	if h.events == nil {
		return
	}
	h.events.Publish(ctx, evt)
}

// publishUpdate publishes a RecordUpdated event, then one StateChanged event
// per governed field whose value moved. before is nil when no governed field
// was written.
func (h *ResourceHandler) publishUpdate(ctx context.Context, audit AuditInfo, before, after store.Record, changes store.Record, cols []store.Column) {
	if h.events == nil {
		return
	}
	evt := h.event(eventbus.RecordUpdated, after, audit)
	for name := range changes {
		evt.Changed = append(evt.Changed, name)
	}
	slices.Sort(evt.Changed)
	h.publish(ctx, evt)

	for _, c := range cols {
		from, to := stringValue(before[c.Name]), stringValue(after[c.Name])
		if from == to {
			continue
		}
		sc := h.event(eventbus.StateChanged, after, audit)
		sc.Field = c.Name
		sc.From = from
		sc.To = to
		sc.Actions = h.rules.BusinessLogic(h.table.Entity, "onStatusChange")
		h.publish(ctx, sc)
	}
}

func stringValue(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
