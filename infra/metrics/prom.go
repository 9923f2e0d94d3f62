package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/caveplan/core/metrics"
	"github.com/kilianp07/caveplan/core/model"
)

// PromSink records schedule progress in Prometheus metrics.
type PromSink struct {
	extracted *prometheus.CounterVec
	target    *prometheus.CounterVec
	shortfall *prometheus.CounterVec
	periods   *prometheus.CounterVec
	active    *prometheus.GaugeVec
	depleted  *prometheus.GaugeVec
	meters    *prometheus.GaugeVec
	available *prometheus.GaugeVec
	duration  *prometheus.HistogramVec

	gatherer prometheus.Gatherer
	textfile string
}

// NewPromSink registers schedule metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.extracted, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "caveplan_extracted_tonnes_total",
		Help: "Tonnage extracted across all periods",
	}, []string{"plan", "apportioner"})); err != nil {
		return nil, err
	}
	if s.target, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "caveplan_target_tonnes_total",
		Help: "Tonnage requested by the production plan",
	}, []string{"plan", "apportioner"})); err != nil {
		return nil, err
	}
	if s.shortfall, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "caveplan_shortfall_tonnes_total",
		Help: "Tonnage of period targets left unmet",
	}, []string{"plan", "apportioner"})); err != nil {
		return nil, err
	}
	if s.periods, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "caveplan_periods_total",
		Help: "Scheduled periods by accomplishment",
	}, []string{"plan", "accomplished"})); err != nil {
		return nil, err
	}
	if s.active, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "caveplan_active_columns",
		Help: "Columns incorporated so far",
	}, []string{"plan"})); err != nil {
		return nil, err
	}
	if s.depleted, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "caveplan_depleted_columns",
		Help: "Incorporated columns with no tonnage left",
	}, []string{"plan"})); err != nil {
		return nil, err
	}
	if s.meters, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "caveplan_column_height_meters",
		Help: "Extracted height of a column",
	}, []string{"plan", "i", "j"})); err != nil {
		return nil, err
	}
	if s.available, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "caveplan_column_available_tonnes",
		Help: "Tonnage left in a column",
	}, []string{"plan", "i", "j"})); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "caveplan_run_duration_seconds",
		Help:    "Wall time of a schedule run",
		Buckets: prometheus.DefBuckets,
	}, []string{"plan", "status"})); err != nil {
		return nil, err
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		s.gatherer = g
	} else {
		s.gatherer = prometheus.DefaultGatherer
	}
	return s, nil
}

// RecordPeriod updates the tonnage counters and column gauges.
func (s *PromSink) RecordPeriod(run coremetrics.RunInfo, sum model.PeriodSummary) error {
	s.extracted.WithLabelValues(run.Plan, run.Apportioner).Add(sum.ExtractedTonnage)
	s.target.WithLabelValues(run.Plan, run.Apportioner).Add(sum.TargetTonnage)
	s.shortfall.WithLabelValues(run.Plan, run.Apportioner).Add(sum.Shortfall())
	s.periods.WithLabelValues(run.Plan, strconv.FormatBool(sum.Accomplished)).Inc()
	s.active.WithLabelValues(run.Plan).Set(float64(sum.ActiveColumns))
	s.depleted.WithLabelValues(run.Plan).Set(float64(sum.DepletedColumns))
	return nil
}

// RecordExtractions sets the per-column gauges.
func (s *PromSink) RecordExtractions(run coremetrics.RunInfo, _ model.PeriodSummary, res []model.ExtractionResult) error {
	for _, r := range res {
		i, j := strconv.Itoa(r.Subscript.I), strconv.Itoa(r.Subscript.J)
		s.meters.WithLabelValues(run.Plan, i, j).Set(r.ToMeters)
		s.available.WithLabelValues(run.Plan, i, j).Set(r.TonnageAvailable)
	}
	return nil
}

// RecordRun observes the run duration and writes the textfile when set.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	status := "ok"
	if ev.Err != "" {
		status = "error"
	}
	s.duration.WithLabelValues(ev.Run.Plan, status).Observe(ev.Duration.Seconds())
	if s.textfile != "" {
		return s.WriteTextfile(s.textfile)
	}
	return nil
}

// WriteTextfile dumps the gathered metrics in the text exposition format so a
// node exporter textfile collector can pick up batch runs.
func (s *PromSink) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, s.gatherer)
}
