package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/caveplan/core/metrics"
	"github.com/kilianp07/caveplan/core/model"
	"github.com/kilianp07/caveplan/infra/logger"
)

// InfluxSink writes schedule points to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
	now      func() time.Time
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
		now:      time.Now,
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// stamp returns the period start when the plan has a timeline.
func (s *InfluxSink) stamp(sum model.PeriodSummary) time.Time {
	if sum.Start.IsZero() {
		return s.now()
	}
	return sum.Start
}

// RecordPeriod writes one period_summary point.
func (s *InfluxSink) RecordPeriod(run coremetrics.RunInfo, sum model.PeriodSummary) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("period_summary").
		AddTag("run_id", run.RunID).
		AddTag("plan", run.Plan).
		AddTag("apportioner", run.Apportioner).
		AddTag("period", strconv.Itoa(sum.Period)).
		AddField("step", sum.Step).
		AddField("target_tonnage", round3(sum.TargetTonnage)).
		AddField("extracted_tonnage", round3(sum.ExtractedTonnage)).
		AddField("shortfall", round3(sum.Shortfall())).
		AddField("active_columns", sum.ActiveColumns).
		AddField("depleted_columns", sum.DepletedColumns).
		AddField("accomplished", sum.Accomplished).
		SetTime(s.stamp(sum))
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordExtractions writes one column_extraction point per record.
func (s *InfluxSink) RecordExtractions(run coremetrics.RunInfo, sum model.PeriodSummary, res []model.ExtractionResult) error {
	if len(res) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ts := s.stamp(sum)
	points := make([]*write.Point, 0, len(res))
	for _, r := range res {
		points = append(points, write.NewPointWithMeasurement("column_extraction").
			AddTag("run_id", run.RunID).
			AddTag("plan", run.Plan).
			AddTag("period", strconv.Itoa(r.PeriodID)).
			AddTag("i", strconv.Itoa(r.Subscript.I)).
			AddTag("j", strconv.Itoa(r.Subscript.J)).
			AddField("extracted_tonnage", round3(r.ExtractedTonnage)).
			AddField("from_meters", round3(r.FromMeters)).
			AddField("to_meters", round3(r.ToMeters)).
			AddField("tonnage_available", round3(r.TonnageAvailable)).
			AddField("target_tonnage", round3(r.TargetTonnage)).
			AddField("depleted", r.IsDepleted).
			AddField("accomplished", r.WasTargetAccomplished).
			SetTime(ts))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordRun writes the run outcome.
func (s *InfluxSink) RecordRun(ev coremetrics.RunEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("schedule_run").
		AddTag("run_id", ev.Run.RunID).
		AddTag("plan", ev.Run.Plan).
		AddTag("dataset", ev.Run.Dataset).
		AddTag("apportioner", ev.Run.Apportioner).
		AddField("periods", ev.Periods).
		AddField("columns", ev.Columns).
		AddField("target_tonnage", round3(ev.TargetTonnage)).
		AddField("extracted_tonnage", round3(ev.ExtractedTonnage)).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		AddField("errors", ev.Err).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
