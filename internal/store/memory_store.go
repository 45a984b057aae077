package store

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements Store using in-memory maps.
// Intended for demos and testing; no database required. It enforces the
// same required, unique and reference constraints as the SQL schema.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]map[string]Record
	now    func() time.Time
}

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: map[string]map[string]Record{}, now: time.Now}
}

func (s *MemoryStore) rows(t *Table) map[string]Record {
	m, ok := s.tables[t.Name]
	if !ok {
		m = map[string]Record{}
		s.tables[t.Name] = m
	}
	return m
}

func (s *MemoryStore) Create(_ context.Context, t *Table, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	row := Record{ColID: uuid.NewString(), ColCreatedAt: now, ColUpdatedAt: now}
	for _, c := range t.Columns {
		row[c.Name] = nil
		if c.Type == TypeBool {
			row[c.Name] = false
		}
	}
	if err := s.apply(t, row, rec); err != nil {
		return nil, err
	}
	if err := s.check(t, row); err != nil {
		return nil, err
	}
	s.rows(t)[row.ID()] = row
	return maps.Clone(row), nil
}

func (s *MemoryStore) Get(_ context.Context, t *Table, id uuid.UUID) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.tables[t.Name][id.String()]
	if !ok {
		return nil, notFound(t, id)
	}
	return maps.Clone(row), nil
}

func (s *MemoryStore) List(_ context.Context, t *Table, opts ListOptions) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filters := Record{}
	for k, v := range opts.Filters {
		c, ok := t.Column(k)
		if !ok {
			continue
		}
		cv, err := Coerce(c, v)
		if err != nil {
			return nil, &Error{Kind: KindGeneric, Table: t.Name, Column: k, Err: err}
		}
		filters[k] = readValue(c.Type, bindValue(false, cv))
	}

	var matched []Record
	for _, row := range s.tables[t.Name] {
		ok := true
		for k, v := range filters {
			if row[k] != v {
				ok = false
				break
			}
		}
		if ok {
			matched = append(matched, row)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		ti, tj := matched[i][ColCreatedAt].(time.Time), matched[j][ColCreatedAt].(time.Time)
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return matched[i].ID() < matched[j].ID()
	})

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if opts.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[opts.Offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	out := make([]Record, len(matched))
	for i, r := range matched {
		out[i] = maps.Clone(r)
	}
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, t *Table, id uuid.UUID, changes Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.tables[t.Name][id.String()]
	if !ok {
		return nil, notFound(t, id)
	}
	row := maps.Clone(cur)
	if err := s.apply(t, row, changes); err != nil {
		return nil, err
	}
	row[ColUpdatedAt] = s.now().UTC()
	if err := s.check(t, row); err != nil {
		return nil, err
	}
	s.rows(t)[row.ID()] = row
	return maps.Clone(row), nil
}

func (s *MemoryStore) Delete(_ context.Context, t *Table, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[t.Name][id.String()]; !ok {
		return notFound(t, id)
	}
	for _, other := range Tables {
		for _, c := range other.Columns {
			if c.References != t.Name || !c.Required {
				continue
			}
			for _, row := range s.tables[other.Name] {
				if row[c.Name] == id.String() {
					return &Error{Kind: KindMissingReference, Table: t.Name, Column: c.Name,
						Err: fmt.Errorf("record is referenced by %s", other.Name)}
				}
			}
		}
	}
	delete(s.tables[t.Name], id.String())
	return nil
}

// apply coerces changes into row, normalizing values the way SQLStore reads
// them back.
func (s *MemoryStore) apply(t *Table, row, changes Record) error {
	for k, v := range changes {
		c, ok := t.Column(k)
		if !ok {
			return &Error{Kind: KindGeneric, Table: t.Name, Column: k, Err: errors.New("unknown column")}
		}
		cv, err := Coerce(c, v)
		if err != nil {
			return &Error{Kind: KindGeneric, Table: t.Name, Column: k, Err: err}
		}
		row[k] = readValue(c.Type, bindValue(false, cv))
	}
	return nil
}

// check enforces required, unique and reference constraints on row.
func (s *MemoryStore) check(t *Table, row Record) error {
	for _, c := range t.Columns {
		v := row[c.Name]
		if c.Required && v == nil {
			return &Error{Kind: KindMissingField, Table: t.Name, Column: c.Name, Err: errors.New("value is required")}
		}
		if v == nil {
			continue
		}
		if c.Unique {
			for id, other := range s.tables[t.Name] {
				if id != row.ID() && other[c.Name] == v {
					return &Error{Kind: KindDuplicate, Table: t.Name, Column: c.Name, Err: errors.New("value already exists")}
				}
			}
		}
		if c.References != "" {
			if _, ok := s.tables[c.References][v.(string)]; !ok {
				return &Error{Kind: KindMissingReference, Table: t.Name, Column: c.Name, Err: fmt.Errorf("no %s record %v", c.References, v)}
			}
		}
	}
	return nil
}
