package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kilianp07/caveplan/config"
	"github.com/kilianp07/caveplan/core/layout"
	coremetrics "github.com/kilianp07/caveplan/core/metrics"
	"github.com/kilianp07/caveplan/core/model"
	coremon "github.com/kilianp07/caveplan/core/monitoring"
	"github.com/kilianp07/caveplan/core/schedule"
	"github.com/kilianp07/caveplan/core/store"
	"github.com/kilianp07/caveplan/infra/logger"
	_ "github.com/kilianp07/caveplan/infra/metrics" // prometheus and influx sinks
	"github.com/kilianp07/caveplan/infra/monitoring"
	_ "github.com/kilianp07/caveplan/infra/mqtt" // mqtt sink
	"github.com/kilianp07/caveplan/internal/eventbus"
	"github.com/kilianp07/caveplan/pkg/export"
)

// Report is the outcome of a successful run.
type Report struct {
	RunID  string
	Plan   *model.PlanTarget
	Result *schedule.Result
}

// Service runs schedules with the configured sinks, store and outputs.
type Service struct {
	cfg     *config.Config
	log     logger.Logger
	sink    coremetrics.MetricsSink
	store   store.Store
	monitor coremon.Monitor
	now     func() time.Time
}

// New configures logging and monitoring and opens the metrics sinks and the
// run store.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.Configure(cfg.Logging.Options()); err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	mon, err := monitoring.NewSentryMonitor(cfg.Monitoring)
	if err != nil {
		return nil, fmt.Errorf("monitoring: %w", err)
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	st, err := store.New(cfg.Store)
	if err != nil {
		_ = closeSink(sink)
		return nil, fmt.Errorf("run store: %w", err)
	}
	return &Service{cfg: cfg, log: logger.New("service"), sink: sink, store: st, monitor: mon, now: time.Now}, nil
}

// SetMonitor replaces the failure reporter.
func (s *Service) SetMonitor(m coremon.Monitor) { s.monitor = m }

// Store returns the run history.
func (s *Service) Store() store.Store { return s.store }

// Run schedules the configured plan, writes the configured outputs and
// records the run in the store. progress, when set, is called once per
// completed period from a separate goroutine.
func (s *Service) Run(ctx context.Context, progress func(schedule.PeriodEvent)) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec := store.RunRecord{
		ID:          store.NewRunID(),
		Apportioner: s.cfg.Engine.Apportioner.Type,
		Started:     s.now(),
	}
	defer func() {
		if r := recover(); r != nil {
			s.monitor.CapturePanic(r, runTags(rec))
			s.monitor.Flush(2 * time.Second)
			panic(r)
		}
	}()

	in, err := LoadInputs(s.cfg.Inputs)
	if err != nil {
		return nil, s.fail(ctx, rec, err)
	}
	rec.Plan = in.Plan.Name
	rec.Dataset = in.Dataset.Name()
	apportioner, err := schedule.NewApportioner(s.cfg.Engine.Apportioner)
	if err != nil {
		return nil, s.fail(ctx, rec, fmt.Errorf("apportioner: %w", err))
	}

	ranking := layout.Rank(in.Footprint, in.Sequence)
	s.log.Infof("plan %s: %d periods, %d columns in sequence", in.Plan.Name, len(in.Plan.Targets), len(ranking))
	eng, err := schedule.NewEngine(in.Dataset, in.Footprint, ranking, in.Plan, apportioner, logger.New("engine"))
	if err != nil {
		return nil, s.fail(ctx, rec, err)
	}
	run := coremetrics.RunInfo{
		RunID:       rec.ID,
		Plan:        rec.Plan,
		Dataset:     rec.Dataset,
		Apportioner: rec.Apportioner,
	}
	eng.SetRunInfo(run)
	eng.SetMetricsSink(s.sink)
	eng.SetStrictRamp(s.cfg.Engine.StrictRamp)

	var (
		bus  *eventbus.TypedBus[schedule.PeriodEvent]
		done <-chan struct{}
	)
	if progress != nil {
		bus = eventbus.NewTypedBuffered[schedule.PeriodEvent](len(in.Plan.Targets))
		eng.SetEventBus(bus)
		cctx, cancel := context.WithCancel(ctx)
		defer cancel()
		done = bus.Consume(cctx, progress)
	}

	res, runErr := eng.Process()
	if bus != nil {
		bus.Close()
		<-done
		if n := bus.Dropped(); n > 0 {
			s.log.Warnf("%d progress events dropped", n)
		}
	}
	if runErr != nil {
		return nil, s.fail(ctx, rec, runErr)
	}
	rec.TargetTonnage, rec.ExtractedTonnage = res.Totals()
	rec.Summaries = res.Summaries()
	rec.Records = res.Records()

	if err := s.writeOutputs(res); err != nil {
		return nil, s.fail(ctx, rec, err)
	}
	rec.Finished = s.now()
	if err := s.store.Append(ctx, rec); err != nil {
		return nil, fmt.Errorf("store run: %w", err)
	}
	s.log.Infof("run %s done: %.3f of %.3f t extracted", rec.ID, rec.ExtractedTonnage, rec.TargetTonnage)
	return &Report{RunID: rec.ID, Plan: in.Plan, Result: res}, nil
}

func runTags(rec store.RunRecord) map[string]string {
	return map[string]string{"run_id": rec.ID, "plan": rec.Plan, "apportioner": rec.Apportioner}
}

// fail stores a failed run and reports err to the monitor. It returns err.
func (s *Service) fail(ctx context.Context, rec store.RunRecord, err error) error {
	rec.Finished = s.now()
	rec.Error = err.Error()
	s.append(ctx, rec)
	s.monitor.CaptureException(err, runTags(rec))
	return err
}

// append stores a failed run. The original failure takes precedence over a
// store error, which is only logged.
func (s *Service) append(ctx context.Context, rec store.RunRecord) {
	if err := s.store.Append(ctx, rec); err != nil {
		s.log.Errorf("store run %s: %v", rec.ID, err)
	}
}

func (s *Service) writeOutputs(res *schedule.Result) error {
	out := s.cfg.Output
	if err := writeFile(out.CSV, func(w io.Writer) error { return export.WriteCSV(w, res.Records()) }); err != nil {
		return fmt.Errorf("csv output: %w", err)
	}
	if err := writeFile(out.JSON, func(w io.Writer) error { return export.WriteJSON(w, res.Records()) }); err != nil {
		return fmt.Errorf("json output: %w", err)
	}
	if err := writeFile(out.Summary, func(w io.Writer) error { return export.WriteSummaryCSV(w, res.Summaries()) }); err != nil {
		return fmt.Errorf("summary output: %w", err)
	}
	return nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	if path == "" {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// WriteSummaryJSON prints the per-period totals of a report.
func WriteSummaryJSON(w io.Writer, r *Report) error {
	target, extracted := r.Result.Totals()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		RunID            string                `json:"run_id"`
		Plan             string                `json:"plan"`
		TargetTonnage    float64               `json:"target_tonnage"`
		ExtractedTonnage float64               `json:"extracted_tonnage"`
		Periods          []model.PeriodSummary `json:"periods"`
	}{r.RunID, r.Plan.Name, target, extracted, r.Result.Summaries()})
}

func closeSink(sink coremetrics.MetricsSink) error {
	if c, ok := sink.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Close flushes pending failure reports and releases the sinks, the store
// and the log file.
func (s *Service) Close() error {
	if !s.monitor.Flush(2 * time.Second) {
		s.log.Warnf("monitoring flush timed out")
	}
	return errors.Join(closeSink(s.sink), s.store.Close(), logger.Close())
}
