// Package store persists the back-office records: accounts, locations,
// contacts and work orders. Records are column maps described by a Table, so
// one implementation serves every resource.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Record maps column names to values. Reads return uuid columns as strings,
// time columns as time.Time, decimal columns as decimal strings, booleans as
// bool and integers as int64.
type Record map[string]any

// ID returns the record's id column.
func (r Record) ID() string {
	s, _ := r[ColID].(string)
	return s
}

// ListOptions filters and pages List results.
type ListOptions struct {
	Limit  int
	Offset int
	// Filters holds column equality filters.
	Filters map[string]any
}

// Store is the interface for reading and writing records.
type Store interface {
	// Create inserts rec and returns the stored record with its generated id
	// and timestamps.
	Create(ctx context.Context, t *Table, rec Record) (Record, error)

	// Get returns one record by id.
	Get(ctx context.Context, t *Table, id uuid.UUID) (Record, error)

	// List returns records ordered by creation time.
	List(ctx context.Context, t *Table, opts ListOptions) ([]Record, error)

	// Update applies changes to one record and returns the result.
	Update(ctx context.Context, t *Table, id uuid.UUID, changes Record) (Record, error)

	// Delete removes one record by id.
	Delete(ctx context.Context, t *Table, id uuid.UUID) error
}

// Kind classifies store failures.
type Kind string

const (
	KindDuplicate        Kind = "duplicate"
	KindMissingReference Kind = "missing_reference"
	KindMissingField     Kind = "missing_field"
	KindNotFound         Kind = "not_found"
	KindGeneric          Kind = "generic"
)

// Error is a classified store failure.
type Error struct {
	Kind   Kind
	Table  string
	Column string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Table, e.Kind)
	if e.Column != "" {
		msg += " (" + e.Column + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, KindGeneric for unclassified errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindGeneric
}

// IsNotFound reports whether err is a not-found store error.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

func notFound(t *Table, id uuid.UUID) error {
	return &Error{Kind: KindNotFound, Table: t.Name, Err: fmt.Errorf("no record with id %s", id)}
}
