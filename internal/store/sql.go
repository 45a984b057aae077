package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// SQLStore implements Store on database/sql. Queries are built with the ent
// SQL builder for the configured dialect.
type SQLStore struct {
	db      *sql.DB
	dialect string
	now     func() time.Time
}

// NewSQLStore wraps db. dialectName is dialect.Postgres or dialect.SQLite.
func NewSQLStore(db *sql.DB, dialectName string) *SQLStore {
	return &SQLStore{db: db, dialect: dialectName, now: time.Now}
}

// Open connects to databaseURL. postgres:// and postgresql:// URLs use the
// pgx driver; sqlite:, file: and :memory: use the embedded SQLite driver with
// foreign keys enabled.
func Open(ctx context.Context, databaseURL string) (*SQLStore, error) {
	driver, dsn, dial, err := parseURL(databaseURL)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if dial == dialect.SQLite {
		// Each connection to an in-memory database is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return NewSQLStore(db, dial), nil
}

func parseURL(databaseURL string) (driver, dsn, dial string, err error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return "pgx", databaseURL, dialect.Postgres, nil
	case strings.HasPrefix(databaseURL, "sqlite:"), strings.HasPrefix(databaseURL, "file:"), databaseURL == ":memory:":
		dsn = strings.TrimPrefix(databaseURL, "sqlite:")
		if dsn == "" || dsn == ":memory:" {
			dsn = "file::memory:"
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return "sqlite", dsn + sep + "_pragma=foreign_keys(1)", dialect.SQLite, nil
	default:
		return "", "", "", fmt.Errorf("unsupported database URL %q", databaseURL)
	}
}

// DB returns the underlying database handle.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Dialect returns the SQL dialect name.
func (s *SQLStore) Dialect() string { return s.dialect }

// Close closes the database.
func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) sqlite() bool { return s.dialect == dialect.SQLite }

func (s *SQLStore) builder() *entsql.DialectBuilder { return entsql.Dialect(s.dialect) }

// bind coerces and converts rec for the given table. Unknown keys are an
// error; callers filter request bodies before they get here.
func (s *SQLStore) bind(t *Table, rec Record) ([]string, []any, error) {
	cols := make([]string, 0, len(rec))
	vals := make([]any, 0, len(rec))
	for _, c := range t.Columns {
		v, ok := rec[c.Name]
		if !ok {
			continue
		}
		cv, err := Coerce(c, v)
		if err != nil {
			return nil, nil, &Error{Kind: KindGeneric, Table: t.Name, Column: c.Name, Err: err}
		}
		cols = append(cols, c.Name)
		vals = append(vals, bindValue(s.sqlite(), cv))
	}
	if len(cols) != len(rec) {
		for k := range rec {
			if _, ok := t.Column(k); !ok {
				return nil, nil, &Error{Kind: KindGeneric, Table: t.Name, Column: k, Err: errors.New("unknown column")}
			}
		}
	}
	return cols, vals, nil
}

func (s *SQLStore) Create(ctx context.Context, t *Table, rec Record) (Record, error) {
	cols, vals, err := s.bind(t, rec)
	if err != nil {
		return nil, err
	}
	id := uuid.New()
	now := s.now().UTC()
	cols = append([]string{ColID, ColCreatedAt, ColUpdatedAt}, cols...)
	vals = append([]any{id.String(), bindValue(s.sqlite(), now), bindValue(s.sqlite(), now)}, vals...)

	query, args := s.builder().Insert(t.Name).Columns(cols...).Values(vals...).Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, classify(t, err)
	}
	return s.Get(ctx, t, id)
}

func (s *SQLStore) Get(ctx context.Context, t *Table, id uuid.UUID) (Record, error) {
	query, args := s.builder().Select(t.ColumnNames()...).
		From(entsql.Table(t.Name)).
		Where(entsql.EQ(ColID, id.String())).
		Query()
	recs, err := s.query(ctx, t, query, args)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, notFound(t, id)
	}
	return recs[0], nil
}

func (s *SQLStore) List(ctx context.Context, t *Table, opts ListOptions) ([]Record, error) {
	sel := s.builder().Select(t.ColumnNames()...).From(entsql.Table(t.Name))
	var preds []*entsql.Predicate
	for _, c := range t.Columns {
		v, ok := opts.Filters[c.Name]
		if !ok {
			continue
		}
		if v == nil {
			preds = append(preds, entsql.IsNull(c.Name))
			continue
		}
		cv, err := Coerce(c, v)
		if err != nil {
			return nil, &Error{Kind: KindGeneric, Table: t.Name, Column: c.Name, Err: err}
		}
		preds = append(preds, entsql.EQ(c.Name, bindValue(s.sqlite(), cv)))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	sel.OrderBy(ColCreatedAt, ColID).Limit(limit)
	if opts.Offset > 0 {
		sel.Offset(opts.Offset)
	}
	query, args := sel.Query()
	return s.query(ctx, t, query, args)
}

func (s *SQLStore) Update(ctx context.Context, t *Table, id uuid.UUID, changes Record) (Record, error) {
	cols, vals, err := s.bind(t, changes)
	if err != nil {
		return nil, err
	}
	upd := s.builder().Update(t.Name).Set(ColUpdatedAt, bindValue(s.sqlite(), s.now().UTC()))
	for i, c := range cols {
		upd.Set(c, vals[i])
	}
	query, args := upd.Where(entsql.EQ(ColID, id.String())).Query()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, classify(t, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, notFound(t, id)
	}
	return s.Get(ctx, t, id)
}

func (s *SQLStore) Delete(ctx context.Context, t *Table, id uuid.UUID) error {
	query, args := s.builder().Delete(t.Name).Where(entsql.EQ(ColID, id.String())).Query()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return classify(t, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound(t, id)
	}
	return nil
}

func (s *SQLStore) query(ctx context.Context, t *Table, query string, args []any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(t, err)
	}
	defer rows.Close()

	names := t.ColumnNames()
	types := make([]ColumnType, len(names))
	types[0], types[1], types[2] = TypeUUID, TypeTime, TypeTime
	for i, c := range t.Columns {
		types[i+3] = c.Type
	}

	var out []Record
	for rows.Next() {
		raw := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, classify(t, err)
		}
		rec := make(Record, len(names))
		for i, n := range names {
			rec[n] = readValue(types[i], raw[i])
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(t, err)
	}
	return out, nil
}
