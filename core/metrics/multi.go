package metrics

import (
	"errors"
	"io"

	"github.com/kilianp07/caveplan/core/model"
)

// MultiSink fans out records to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordPeriod forwards the summary to all sinks, returning the first error encountered.
func (m *MultiSink) RecordPeriod(run RunInfo, s model.PeriodSummary) error {
	for _, sink := range m.Sinks {
		if err := sink.RecordPeriod(run, s); err != nil {
			return err
		}
	}
	return nil
}

// RecordExtractions forwards column records to sinks supporting them.
func (m *MultiSink) RecordExtractions(run RunInfo, s model.PeriodSummary, res []model.ExtractionResult) error {
	for _, sink := range m.Sinks {
		if rec, ok := sink.(ExtractionRecorder); ok {
			if err := rec.RecordExtractions(run, s, res); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordRun forwards run events to sinks supporting them.
func (m *MultiSink) RecordRun(ev RunEvent) error {
	for _, sink := range m.Sinks {
		if rec, ok := sink.(RunRecorder); ok {
			if err := rec.RecordRun(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes every sink implementing io.Closer.
func (m *MultiSink) Close() error {
	var errs []error
	for _, sink := range m.Sinks {
		if c, ok := sink.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
