package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/matthewbaird/fieldops/internal/activity"
	"github.com/matthewbaird/fieldops/internal/eventbus"
	"github.com/matthewbaird/fieldops/internal/logging"
	"github.com/matthewbaird/fieldops/internal/naming"
	"github.com/matthewbaird/fieldops/internal/rules"
	"github.com/matthewbaird/fieldops/internal/store"
)

// Publisher receives record change events after a successful write.
type Publisher interface {
	Publish(ctx context.Context, evt eventbus.Event)
}

// ResourceHandler serves CRUD endpoints for one store table.
type ResourceHandler struct {
	store    store.Store
	table    *store.Table
	rules    *rules.RuleSet
	logger   *zap.Logger
	events   Publisher
	activity activity.Reader
}

// Option configures a ResourceHandler.
type Option func(*ResourceHandler)

// WithEvents publishes a change event for every successful write.
func WithEvents(p Publisher) Option {
	return func(h *ResourceHandler) { h.events = p }
}

// WithActivity serves each record's feed at /{id}/activity.
func WithActivity(r activity.Reader) Option {
	return func(h *ResourceHandler) { h.activity = r }
}

// NewResourceHandler creates a handler for table t. A nil rule set disables
// rule validation and transition checks.
func NewResourceHandler(s store.Store, t *store.Table, rs *rules.RuleSet, logger *zap.Logger, opts ...Option) *ResourceHandler {
	h := &ResourceHandler{
		store:  s,
		table:  t,
		rules:  rs,
		logger: logging.OrNop(logger).With(zap.String("resource", t.Name)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Path returns the URL path segment of the resource: "/work-orders".
func (h *ResourceHandler) Path() string {
	return "/" + naming.ToKebab(h.table.Name)
}

// Routes registers the CRUD routes on r.
func (h *ResourceHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	if h.activity != nil {
		r.Get("/{id}/activity", h.Activity)
	}
}

// RegisterRoutes mounts a ResourceHandler for every store table on r.
func RegisterRoutes(r chi.Router, s store.Store, rs *rules.RuleSet, logger *zap.Logger, opts ...Option) {
	for _, t := range store.Tables {
		h := NewResourceHandler(s, t, rs, logger, opts...)
		r.Route(h.Path(), h.Routes)
	}
}

func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	pg := parsePagination(r)
	filters, ok := h.parseFilters(w, r)
	if !ok {
		return
	}
	items, err := h.store.List(r.Context(), h.table, store.ListOptions{
		Limit:   pg.Limit,
		Offset:  pg.Offset,
		Filters: filters,
	})
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	if items == nil {
		items = []store.Record{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	rec, err := h.store.Get(r.Context(), h.table, id)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	audit := parseAuditContext(r)
	var body map[string]any
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	rec, errs := validateBody(h.table, h.rules, body, false)
	if len(errs) > 0 {
		writeValidation(w, errs)
		return
	}
	created, err := h.store.Create(r.Context(), h.table, rec)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	actions := h.rules.BusinessLogic(h.table.Entity, "onCreate")
	h.logger.Info("record created", append(audit.fields(),
		zap.String("id", created.ID()),
		zap.Strings("actions", actions))...)
	evt := h.event(eventbus.RecordCreated, created, audit)
	evt.Actions = actions
	h.publish(r.Context(), evt)
	writeJSON(w, http.StatusCreated, created)
}

func (h *ResourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	audit := parseAuditContext(r)
	var body map[string]any
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	changes, errs := validateBody(h.table, h.rules, body, true)
	if len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	var current store.Record
	cols := stateChanges(h.table, h.rules, changes)
	if len(cols) > 0 {
		var err error
		current, err = h.store.Get(r.Context(), h.table, id)
		if err != nil {
			h.storeError(w, r, err)
			return
		}
		if err := validateTransitions(h.table, h.rules, current, changes, cols); err != nil {
			writeError(w, http.StatusConflict, "INVALID_TRANSITION", err.Error())
			return
		}
	}

	updated, err := h.store.Update(r.Context(), h.table, id, changes)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	h.logger.Info("record updated", append(audit.fields(), zap.String("id", updated.ID()))...)
	h.publishUpdate(r.Context(), audit, current, updated, changes, cols)
	writeJSON(w, http.StatusOK, updated)
}

func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	audit := parseAuditContext(r)
	var current store.Record
	if h.events != nil {
		var err error
		if current, err = h.store.Get(r.Context(), h.table, id); err != nil {
			h.storeError(w, r, err)
			return
		}
	}
	if err := h.store.Delete(r.Context(), h.table, id); err != nil {
		h.storeError(w, r, err)
		return
	}
	h.logger.Info("record deleted", append(audit.fields(), zap.String("id", id.String()))...)
	if current != nil {
		h.publish(r.Context(), h.event(eventbus.RecordDeleted, current, audit))
	}
	w.WriteHeader(http.StatusNoContent)
}

// Activity returns the record's feed, newest first. Query parameters: limit
// (max 500), cursor, since (RFC 3339) and type (repeatable).
func (h *ResourceHandler) Activity(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	q := r.URL.Query()
	opts := activity.QueryOptions{Cursor: q.Get("cursor")}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "INVALID_QUERY", "limit must be a positive integer")
			return
		}
		opts.Limit = n
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_QUERY", "since must be an RFC 3339 timestamp")
			return
		}
		opts.Since = &t
	}
	for _, t := range q["type"] {
		opts.Types = append(opts.Types, eventbus.Type(t))
	}

	entries, next, err := h.activity.QueryByEntity(r.Context(), h.table.Entity, id.String(), opts)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []activity.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries":     entries,
		"next_cursor": next,
	})
}

// parseFilters turns query parameters naming a column into equality
// filters. Other parameters are ignored.
func (h *ResourceHandler) parseFilters(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	filters := map[string]any{}
	for name, vals := range r.URL.Query() {
		c, ok := h.table.Column(name)
		if !ok || len(vals) == 0 {
			continue
		}
		v, err := filterValue(c, vals[0])
		if err == nil {
			_, err = store.Coerce(c, v)
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_FILTER",
				fmt.Sprintf("invalid value for %s filter: %q", name, vals[0]))
			return nil, false
		}
		filters[name] = v
	}
	return filters, true
}

func filterValue(c store.Column, raw string) (any, error) {
	switch c.Type {
	case store.TypeBool:
		return strconv.ParseBool(raw)
	case store.TypeInt:
		return strconv.ParseInt(raw, 10, 64)
	}
	return raw, nil
}

// storeError maps store failures to HTTP responses. Generic failures are
// logged and never described to the client.
func (h *ResourceHandler) storeError(w http.ResponseWriter, r *http.Request, err error) {
	var col string
	var se *store.Error
	if errors.As(err, &se) {
		col = se.Column
	}
	c, _ := h.table.Column(col)

	switch store.KindOf(err) {
	case store.KindNotFound:
		writeError(w, http.StatusNotFound, "NOT_FOUND", naming.Label(h.table.Entity)+" not found")
	case store.KindDuplicate:
		msg := "a record with these values already exists"
		if c.Field != "" {
			msg = h.rules.ValidationMessage(h.table.Entity, c.Field, rules.ViolationUnique)
		}
		writeError(w, http.StatusBadRequest, "DUPLICATE", msg)
	case store.KindMissingReference:
		msg := "referenced record does not exist"
		switch {
		case r.Method == http.MethodDelete:
			msg = naming.Label(h.table.Entity) + " is still referenced by other records"
		case c.References != "":
			msg = naming.RefLabel(c.Name) + " does not exist"
		}
		writeError(w, http.StatusBadRequest, "MISSING_REFERENCE", msg)
	case store.KindMissingField:
		msg := "a required field is missing"
		if col != "" {
			msg = rules.DefaultMessage(col, rules.ViolationRequired)
		}
		writeError(w, http.StatusBadRequest, "MISSING_FIELD", msg)
	default:
		h.logger.Error("store operation failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
