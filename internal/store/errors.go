package store

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Postgres SQLSTATE codes.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
)

// classify maps a driver error to a store Error.
func classify(t *Table, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &Error{Kind: KindNotFound, Table: t.Name, Err: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		kind := KindGeneric
		switch pgErr.Code {
		case pgUniqueViolation:
			kind = KindDuplicate
		case pgForeignKeyViolation:
			kind = KindMissingReference
		case pgNotNullViolation:
			kind = KindMissingField
		}
		return &Error{Kind: kind, Table: t.Name, Column: pgErr.ColumnName, Err: err}
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		kind := KindGeneric
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			kind = KindDuplicate
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			kind = KindMissingReference
		case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
			kind = KindMissingField
		default:
			kind = classifyMessage(liteErr.Error())
		}
		return &Error{Kind: kind, Table: t.Name, Column: constraintColumn(liteErr.Error()), Err: err}
	}

	return &Error{Kind: KindGeneric, Table: t.Name, Err: err}
}

// classifyMessage handles drivers that report the primary constraint code only.
func classifyMessage(msg string) Kind {
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return KindDuplicate
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return KindMissingReference
	case strings.Contains(msg, "NOT NULL constraint failed"):
		return KindMissingField
	}
	return KindGeneric
}

// constraintColumn extracts "col" from "... constraint failed: table.col".
func constraintColumn(msg string) string {
	const marker = "constraint failed: "
	i := strings.LastIndex(msg, marker)
	if i < 0 {
		return ""
	}
	rest, _, _ := strings.Cut(msg[i+len(marker):], " ")
	rest, _, _ = strings.Cut(rest, ",")
	if _, col, ok := strings.Cut(rest, "."); ok {
		return strings.TrimRight(col, ")")
	}
	return ""
}
