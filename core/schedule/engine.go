package schedule

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/caveplan/core/blockmodel"
	"github.com/kilianp07/caveplan/core/extraction"
	"github.com/kilianp07/caveplan/core/layout"
	"github.com/kilianp07/caveplan/core/logger"
	"github.com/kilianp07/caveplan/core/metrics"
	"github.com/kilianp07/caveplan/core/model"
)

// ErrAlreadyProcessed is returned when Process is called twice on an engine.
var ErrAlreadyProcessed = errors.New("plan already processed")

func tolerance(v float64) float64 { return 1e-9 * math.Max(1, math.Abs(v)) }

// Engine schedules extraction over the target items of a plan. It owns the
// extraction columns for the duration of a run; the density provider and the
// footprint are only read.
type Engine struct {
	provider    blockmodel.DensityProvider
	footprint   layout.StartIndexer
	ranking     []model.Subscript
	plan        *model.PlanTarget
	apportioner Apportioner
	log         logger.Logger
	sink        metrics.MetricsSink
	bus         EventPublisher
	run         metrics.RunInfo
	strictRamp  bool
	now         func() time.Time

	columns   map[model.Subscript]*extraction.Column
	active    []*extraction.Column
	next      int
	processed bool
}

// NewEngine creates an engine. ranking lists the columns in incorporation
// order, typically produced by layout.Rank.
func NewEngine(provider blockmodel.DensityProvider, footprint layout.StartIndexer, ranking []model.Subscript, plan *model.PlanTarget, apportioner Apportioner, log logger.Logger) (*Engine, error) {
	if provider == nil || footprint == nil || plan == nil || apportioner == nil {
		return nil, fmt.Errorf("schedule: nil parameter provided to NewEngine")
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if l, ok := apportioner.(interface{ SetLogger(logger.Logger) }); ok {
		l.SetLogger(log)
	}
	return &Engine{
		provider:    provider,
		footprint:   footprint,
		ranking:     append([]model.Subscript(nil), ranking...),
		plan:        plan,
		apportioner: apportioner,
		log:         log,
		sink:        metrics.NopSink{},
		run:         metrics.RunInfo{Plan: plan.Name, Dataset: plan.DensityDataset},
		now:         time.Now,
		columns:     make(map[model.Subscript]*extraction.Column),
	}, nil
}

// SetMetricsSink configures the sink receiving period summaries.
func (e *Engine) SetMetricsSink(sink metrics.MetricsSink) {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	e.sink = sink
}

// SetEventBus configures where period events are published.
func (e *Engine) SetEventBus(bus EventPublisher) { e.bus = bus }

// SetRunInfo labels the metrics and events emitted by the run.
func (e *Engine) SetRunInfo(run metrics.RunInfo) { e.run = run }

// SetStrictRamp enables the ramp curve coverage check before processing.
func (e *Engine) SetStrictRamp(strict bool) { e.strictRamp = strict }

// Column returns the progress of the column incorporated at sub, if any.
// The engine keeps sole ownership of the column itself.
func (e *Engine) Column(sub model.Subscript) (extraction.State, bool) {
	c, ok := e.columns[sub]
	if !ok {
		return extraction.State{}, false
	}
	return c.State(), true
}

// Process runs every target item once, in period order, and returns the
// collected records. A speed lookup failure aborts the run.
func (e *Engine) Process() (*Result, error) {
	if e.processed {
		return nil, ErrAlreadyProcessed
	}
	e.processed = true
	started := e.now()

	if e.strictRamp {
		if err := e.plan.CheckRampCoverage(); err != nil {
			e.recordRun(nil, started, err)
			return nil, err
		}
	}

	items := e.plan.OrderedTargets()
	timeline := e.plan.Timeline()
	res := &Result{}
	for step, item := range items {
		summary, records, err := e.processStep(step, item)
		if err != nil {
			e.recordRun(res, started, err)
			return nil, err
		}
		if timeline != nil {
			summary.Start = timeline[step]
		}
		e.report(summary, records)
		res.append(summary, records)
	}
	e.recordRun(res, started, nil)
	return res, nil
}

func (e *Engine) processStep(step int, item model.TargetItem) (model.PeriodSummary, []model.ExtractionResult, error) {
	incorporated := e.incorporate(item.IncorporationBlocks)

	candidates := make([]Candidate, 0, len(e.active))
	for rank, col := range e.active {
		if col.IsDepleted() {
			continue
		}
		pct := col.PercentageExtracted()
		cp, err := e.plan.PeriodCap(pct, item.DurationDays, col.AvailableTonnage())
		if err != nil {
			return model.PeriodSummary{}, nil, fmt.Errorf("period %d column %s: %w", item.Period, col.Subscript(), err)
		}
		candidates = append(candidates, Candidate{Subscript: col.Subscript(), Cap: cp, Rank: rank})
	}

	grants, err := e.apportioner.Apportion(item.TargetTonnage, candidates)
	if err != nil {
		return model.PeriodSummary{}, nil, fmt.Errorf("period %d apportionment: %w", item.Period, err)
	}
	demands := attributeShortfall(item.TargetTonnage, candidates, grants)

	records := make([]model.ExtractionResult, 0, len(e.active))
	var extracted float64
	depleted := 0
	for _, col := range e.active {
		var rec model.ExtractionResult
		if col.IsDepleted() {
			rec = col.Extract(0, item.Period)
		} else {
			sub := col.Subscript()
			rec = col.ExtractCapped(demands[sub], grants[sub], item.Period)
		}
		extracted += rec.ExtractedTonnage
		if rec.IsDepleted {
			depleted++
		}
		records = append(records, rec)
	}

	summary := model.PeriodSummary{
		Step:             step,
		Period:           item.Period,
		DurationDays:     item.DurationDays,
		TargetTonnage:    item.TargetTonnage,
		ExtractedTonnage: extracted,
		Incorporated:     incorporated,
		ActiveColumns:    len(e.active),
		DepletedColumns:  depleted,
		Accomplished:     extracted >= item.TargetTonnage-tolerance(item.TargetTonnage),
	}
	return summary, records, nil
}

// incorporate admits up to n columns from the ranking and returns how many
// were added.
func (e *Engine) incorporate(n int) int {
	added := 0
	for added < n && e.next < len(e.ranking) {
		sub := e.ranking[e.next]
		e.next++
		if _, ok := e.columns[sub]; ok {
			continue
		}
		start, ok := e.footprint.StartingIndex(sub)
		if !ok {
			continue
		}
		col := extraction.NewColumn(e.provider, sub, start)
		e.columns[sub] = col
		e.active = append(e.active, col)
		added++
		e.log.Debugw("column incorporated", map[string]any{
			"i":             sub.I,
			"j":             sub.J,
			"start_index":   start,
			"total_tonnage": col.TotalTonnage(),
		})
	}
	return added
}

// attributeShortfall returns the tonnage demanded from every candidate. When
// the grants cover the target each column is asked for its grant. Otherwise
// the unmet tonnage is split across the columns that reached their cap, so
// their records report the target as not accomplished.
func attributeShortfall(target float64, candidates []Candidate, grants map[model.Subscript]float64) map[model.Subscript]float64 {
	demands := make(map[model.Subscript]float64, len(candidates))
	var granted float64
	for _, c := range candidates {
		g := math.Min(math.Max(grants[c.Subscript], 0), c.Cap)
		grants[c.Subscript] = g
		demands[c.Subscript] = g
		granted += g
	}
	short := target - granted
	if short <= tolerance(target) || len(candidates) == 0 {
		return demands
	}
	var bound []Candidate
	for _, c := range candidates {
		if grants[c.Subscript] >= c.Cap-tolerance(c.Cap) {
			bound = append(bound, c)
		}
	}
	if len(bound) == 0 {
		bound = candidates
	}
	share := short / float64(len(bound))
	for _, c := range bound {
		demands[c.Subscript] += share
	}
	return demands
}

func (e *Engine) report(summary model.PeriodSummary, records []model.ExtractionResult) {
	e.log.Infof("period %d: extracted %.2f of %.2f t from %d columns (%d depleted, %d incorporated)",
		summary.Period, summary.ExtractedTonnage, summary.TargetTonnage, summary.ActiveColumns, summary.DepletedColumns, summary.Incorporated)
	if !summary.Accomplished {
		e.log.Warnf("period %d target not met, shortfall %.2f t", summary.Period, summary.Shortfall())
	}
	if err := e.sink.RecordPeriod(e.run, summary); err != nil {
		e.log.Errorf("period metrics error: %v", err)
	}
	if rec, ok := e.sink.(metrics.ExtractionRecorder); ok {
		if err := rec.RecordExtractions(e.run, summary, records); err != nil {
			e.log.Errorf("extraction metrics error: %v", err)
		}
	}
	if e.bus != nil {
		e.bus.Publish(PeriodEvent{RunID: e.run.RunID, Summary: summary, Records: append([]model.ExtractionResult(nil), records...)})
	}
}

func (e *Engine) recordRun(res *Result, started time.Time, runErr error) {
	rr, ok := e.sink.(metrics.RunRecorder)
	if !ok {
		return
	}
	ev := metrics.RunEvent{
		Run:      e.run,
		Columns:  len(e.active),
		Duration: e.now().Sub(started),
		Time:     e.now(),
	}
	if res != nil {
		ev.Periods = len(res.summaries)
		ev.TargetTonnage, ev.ExtractedTonnage = res.Totals()
	}
	if runErr != nil {
		ev.Err = runErr.Error()
	}
	if err := rr.RecordRun(ev); err != nil {
		e.log.Errorf("run metrics error: %v", err)
	}
}
