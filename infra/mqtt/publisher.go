package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/caveplan/core/factory"
	coremetrics "github.com/kilianp07/caveplan/core/metrics"
	"github.com/kilianp07/caveplan/core/model"
	"github.com/kilianp07/caveplan/infra/logger"
)

func init() {
	_ = coremetrics.RegisterMetricsSink("mqtt", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewPublisher(c)
	})
}

// PeriodMessage is the payload published when a period completes.
type PeriodMessage struct {
	RunID     string              `json:"run_id"`
	Plan      string              `json:"plan"`
	Dataset   string              `json:"dataset"`
	Summary   model.PeriodSummary `json:"summary"`
	Shortfall float64             `json:"shortfall"`
	Timestamp int64               `json:"timestamp"`
}

// RunMessage is the payload published when a run ends.
type RunMessage struct {
	RunID            string  `json:"run_id"`
	Plan             string  `json:"plan"`
	Periods          int     `json:"periods"`
	Columns          int     `json:"columns"`
	TargetTonnage    float64 `json:"target_tonnage"`
	ExtractedTonnage float64 `json:"extracted_tonnage"`
	DurationMS       int64   `json:"duration_ms"`
	Error            string  `json:"error,omitempty"`
	Timestamp        int64   `json:"timestamp"`
}

// Publisher is a metrics sink that publishes schedule progress as JSON
// messages on <prefix>/period/<n> and <prefix>/run.
type Publisher struct {
	cli        pahoClient
	prefix     string
	qos        byte
	retain     bool
	maxRetries int
	backoff    time.Duration
	logger     logger.Logger
	now        func() time.Time
}

// NewPublisher connects to the broker.
func NewPublisher(cfg Config) (*Publisher, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_publisher")
	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected to %s", cfg.Broker)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &Publisher{
		cli:        c,
		prefix:     cfg.TopicPrefix,
		qos:        cfg.QoS,
		retain:     cfg.Retain,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		logger:     log,
		now:        time.Now,
	}, nil
}

func (p *Publisher) publish(topic string, msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, p.qos, p.retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Debugf("published %d bytes to %s", len(payload), topic)
			return nil
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < p.maxRetries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	return publishErr
}

// RecordPeriod publishes the period summary.
func (p *Publisher) RecordPeriod(run coremetrics.RunInfo, sum model.PeriodSummary) error {
	return p.publish(fmt.Sprintf("%s/period/%d", p.prefix, sum.Period), PeriodMessage{
		RunID:     run.RunID,
		Plan:      run.Plan,
		Dataset:   run.Dataset,
		Summary:   sum,
		Shortfall: sum.Shortfall(),
		Timestamp: p.now().UnixMilli(),
	})
}

// RecordRun publishes the run outcome.
func (p *Publisher) RecordRun(ev coremetrics.RunEvent) error {
	return p.publish(p.prefix+"/run", RunMessage{
		RunID:            ev.Run.RunID,
		Plan:             ev.Run.Plan,
		Periods:          ev.Periods,
		Columns:          ev.Columns,
		TargetTonnage:    ev.TargetTonnage,
		ExtractedTonnage: ev.ExtractedTonnage,
		DurationMS:       ev.Duration.Milliseconds(),
		Error:            ev.Err,
		Timestamp:        p.now().UnixMilli(),
	})
}

// Close gracefully closes the MQTT connection.
func (p *Publisher) Close() error {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
	return nil
}
