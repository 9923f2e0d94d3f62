package schedule

import "github.com/kilianp07/caveplan/core/model"

// PeriodEvent is published once a scheduling step completes.
type PeriodEvent struct {
	RunID   string
	Summary model.PeriodSummary
	Records []model.ExtractionResult
}

// EventPublisher receives period events. internal/eventbus.TypedBus
// satisfies it.
type EventPublisher interface {
	Publish(PeriodEvent)
}
