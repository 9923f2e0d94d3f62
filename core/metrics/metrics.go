package metrics

import (
	"time"

	"github.com/kilianp07/caveplan/core/model"
)

// RunInfo identifies the run a summary belongs to.
type RunInfo struct {
	RunID       string
	Plan        string
	Dataset     string
	Apportioner string
}

// MetricsSink records period summaries.
type MetricsSink interface {
	RecordPeriod(run RunInfo, summary model.PeriodSummary) error
}

// ExtractionRecorder records the per-column results of a period.
type ExtractionRecorder interface {
	RecordExtractions(run RunInfo, summary model.PeriodSummary, results []model.ExtractionResult) error
}

// RunEvent captures the outcome of a complete run.
type RunEvent struct {
	Run              RunInfo
	Periods          int
	Columns          int
	TargetTonnage    float64
	ExtractedTonnage float64
	Duration         time.Duration
	Err              string
	Time             time.Time
}

// RunRecorder records run completion.
type RunRecorder interface {
	RecordRun(ev RunEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordPeriod(RunInfo, model.PeriodSummary) error { return nil }

func (NopSink) RecordExtractions(RunInfo, model.PeriodSummary, []model.ExtractionResult) error {
	return nil
}

func (NopSink) RecordRun(RunEvent) error { return nil }
