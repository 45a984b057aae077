// Package gaplog records missing or assumed information found while
// generating or validating configuration. Gaps never stop a run; they are
// collected so the follow-up work can be tracked.
package gaplog

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Impact is the severity of a gap.
type Impact string

const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

// Gap categories emitted by the pipeline.
const (
	CategoryLabel          = "missing_label"
	CategoryType           = "missing_type"
	CategoryEnum           = "missing_enum_values"
	CategoryPhase          = "missing_phase"
	CategoryRequired       = "required_field_not_in_model"
	CategoryTransition     = "transition_outside_enum"
	CategoryRelated        = "undeclared_related_entity"
	CategoryUnknownEntity  = "entity_without_rules"
	CategoryUnknownLayout  = "unknown_layout"
	CategoryPatternMissing = "pattern_field_not_in_model"
)

// Record is a single gap. Records are immutable once appended.
type Record struct {
	ID           string    `json:"id"`
	Category     string    `json:"category"`
	Entity       string    `json:"entity,omitempty"`
	Field        string    `json:"field,omitempty"`
	Expected     string    `json:"expected,omitempty"`
	Assumption   string    `json:"assumption,omitempty"`
	SuggestedFix string    `json:"suggestedFix,omitempty"`
	Impact       Impact    `json:"impact"`
	RecordedAt   time.Time `json:"recordedAt"`
}

// Recorder is what parsing and validation steps accept.
type Recorder interface {
	Append(r Record)
}

// Discard drops every record.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Append(Record) {}

// Log is an append-only, concurrency-safe gap log.
type Log struct {
	mu      sync.Mutex
	records []Record
	logger  *zap.Logger
	now     func() time.Time
}

// New creates an empty Log. Each appended record is logged at warn level.
func New(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger, now: time.Now}
}

// Append stores r, assigning its ID, impact default and timestamp.
func (l *Log) Append(r Record) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if r.ID == "" {
		r.ID = ulid.Make().String()
	}
	if r.Impact == "" {
		r.Impact = ImpactLow
	}
	if r.RecordedAt.IsZero() {
		r.RecordedAt = l.now().UTC()
	}
	l.records = append(l.records, r)

	l.logger.Warn("gap recorded",
		zap.String("category", r.Category),
		zap.String("entity", r.Entity),
		zap.String("field", r.Field),
		zap.String("impact", string(r.Impact)),
		zap.String("assumption", r.Assumption),
	)
}

// Records returns a copy of the log contents in append order.
func (l *Log) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of records.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Count returns the number of records with the given impact.
func (l *Log) Count(impact Impact) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, r := range l.records {
		if r.Impact == impact {
			n++
		}
	}
	return n
}

// WriteJSON writes the log as an indented JSON array.
func (l *Log) WriteJSON(path string) error {
	data, err := json.MarshalIndent(l.Records(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling gap log: %w", err)
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0644)
}
