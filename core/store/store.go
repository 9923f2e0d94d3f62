// Package store keeps the history of schedule runs so results can be listed
// and compared after the process exits.
package store

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/caveplan/core/model"
)

// RunRecord captures one completed schedule run.
type RunRecord struct {
	ID               string                   `json:"id"`
	Plan             string                   `json:"plan"`
	Dataset          string                   `json:"dataset"`
	Apportioner      string                   `json:"apportioner"`
	Started          time.Time                `json:"started"`
	Finished         time.Time                `json:"finished"`
	TargetTonnage    float64                  `json:"target_tonnage"`
	ExtractedTonnage float64                  `json:"extracted_tonnage"`
	Error            string                   `json:"error,omitempty"`
	Summaries        []model.PeriodSummary    `json:"summaries"`
	Records          []model.ExtractionResult `json:"records,omitempty"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

// RunQuery filters stored runs. Zero values match everything.
type RunQuery struct {
	ID    string
	Plan  string
	Start time.Time
	End   time.Time
	// Limit keeps only the most recent runs when positive.
	Limit int
}

func (q RunQuery) match(r RunRecord) bool {
	if q.ID != "" && r.ID != q.ID {
		return false
	}
	if q.Plan != "" && r.Plan != q.Plan {
		return false
	}
	if !q.Start.IsZero() && r.Started.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Started.After(q.End) {
		return false
	}
	return true
}

// apply orders runs by start time and enforces the limit.
func (q RunQuery) apply(runs []RunRecord) []RunRecord {
	sort.SliceStable(runs, func(a, b int) bool { return runs[a].Started.Before(runs[b].Started) })
	if q.Limit > 0 && len(runs) > q.Limit {
		runs = runs[len(runs)-q.Limit:]
	}
	return runs
}

// Store persists RunRecords and supports querying.
type Store interface {
	Append(ctx context.Context, rec RunRecord) error
	Query(ctx context.Context, q RunQuery) ([]RunRecord, error)
	Close() error
}

// NopStore discards every record.
type NopStore struct{}

func (NopStore) Append(context.Context, RunRecord) error              { return nil }
func (NopStore) Query(context.Context, RunQuery) ([]RunRecord, error) { return nil, nil }
func (NopStore) Close() error                                         { return nil }
