package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/kilianp07/caveplan/core/metrics"
	"github.com/kilianp07/caveplan/core/model"
)

func TestPromSink_RecordPeriod(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	sums := []model.PeriodSummary{
		{Period: 1, TargetTonnage: 100, ExtractedTonnage: 100, ActiveColumns: 2, Accomplished: true},
		{Period: 2, TargetTonnage: 100, ExtractedTonnage: 60, ActiveColumns: 2, DepletedColumns: 1},
	}
	for _, s := range sums {
		if err := sink.RecordPeriod(run, s); err != nil {
			t.Fatalf("record error: %v", err)
		}
	}

	expected := `
# HELP caveplan_extracted_tonnes_total Tonnage extracted across all periods
# TYPE caveplan_extracted_tonnes_total counter
caveplan_extracted_tonnes_total{apportioner="equal",plan="north"} 160
`
	if err := testutil.CollectAndCompare(sink.extracted, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
	if v := testutil.ToFloat64(sink.shortfall.WithLabelValues("north", "equal")); v != 40 {
		t.Errorf("expected shortfall 40, got %v", v)
	}
	if v := testutil.ToFloat64(sink.periods.WithLabelValues("north", "false")); v != 1 {
		t.Errorf("expected one unmet period, got %v", v)
	}
	if v := testutil.ToFloat64(sink.depleted.WithLabelValues("north")); v != 1 {
		t.Errorf("expected depleted gauge 1, got %v", v)
	}
}

func TestPromSink_RecordExtractionsAndRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	res := []model.ExtractionResult{
		{Subscript: model.Subscript{I: 1, J: 2}, ToMeters: 4.5, TonnageAvailable: 900},
	}
	if err := sink.RecordExtractions(run, model.PeriodSummary{}, res); err != nil {
		t.Fatalf("record: %v", err)
	}
	if v := testutil.ToFloat64(sink.meters.WithLabelValues("north", "1", "2")); v != 4.5 {
		t.Errorf("meters gauge %v", v)
	}
	if err := sink.RecordRun(coremetrics.RunEvent{Run: run, Duration: 2 * time.Second}); err != nil {
		t.Fatalf("record run: %v", err)
	}
	if c := testutil.CollectAndCount(sink.duration); c == 0 {
		t.Errorf("duration not recorded")
	}
}

func TestPromSink_Textfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	sink.textfile = filepath.Join(t.TempDir(), "caveplan.prom")
	_ = sink.RecordPeriod(run, model.PeriodSummary{TargetTonnage: 10, ExtractedTonnage: 10, Accomplished: true})
	if err := sink.RecordRun(coremetrics.RunEvent{Run: run}); err != nil {
		t.Fatalf("record run: %v", err)
	}
	data, err := os.ReadFile(sink.textfile)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), "caveplan_target_tonnes_total") {
		t.Errorf("textfile missing counters: %s", data)
	}
}

func TestPromSink_ReRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	second, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if first.extracted != second.extracted {
		t.Errorf("expected existing collector to be reused")
	}
}

func TestMetricsFactoryBuiltins(t *testing.T) {
	for _, name := range []string{"prometheus", "influx"} {
		if err := coremetrics.RegisterMetricsSink(name, func(map[string]any) (coremetrics.MetricsSink, error) {
			return coremetrics.NopSink{}, nil
		}); err == nil {
			t.Errorf("%s sink not registered", name)
		}
	}
}
