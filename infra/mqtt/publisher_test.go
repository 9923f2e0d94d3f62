package mqtt

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/caveplan/core/factory"
	coremetrics "github.com/kilianp07/caveplan/core/metrics"
	"github.com/kilianp07/caveplan/core/model"
)

// mockClient implements pahoClient for tests
type mockClient struct {
	opts      *paho.ClientOptions
	published []struct {
		topic   string
		qos     byte
		retain  bool
		payload []byte
	}
	publishErrs  []error
	disconnected bool
}

func (m *mockClient) IsConnected() bool { return true }
func (m *mockClient) Connect() paho.Token {
	if m.opts != nil && m.opts.OnConnect != nil {
		m.opts.OnConnect(nil)
	}
	return &dummyToken{}
}
func (m *mockClient) Disconnect(uint) { m.disconnected = true }
func (m *mockClient) Publish(topic string, qos byte, retain bool, payload interface{}) paho.Token {
	m.published = append(m.published, struct {
		topic   string
		qos     byte
		retain  bool
		payload []byte
	}{topic, qos, retain, payload.([]byte)})
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err}
	}
	return &dummyToken{}
}

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }

func withMockClient(t *testing.T, mc *mockClient) {
	t.Helper()
	orig := newMQTTClient
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() { newMQTTClient = orig })
}

var run = coremetrics.RunInfo{RunID: "r1", Plan: "north", Dataset: "density"}

func TestPublisherRecordPeriod(t *testing.T) {
	mc := &mockClient{}
	withMockClient(t, mc)
	pub, err := NewPublisher(Config{Broker: "tcp://localhost:1883", TopicPrefix: "mine/a", QoS: 1, Retain: true})
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	sum := model.PeriodSummary{Step: 2, Period: 7, TargetTonnage: 100, ExtractedTonnage: 80, ActiveColumns: 3}
	if err := pub.RecordPeriod(run, sum); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(mc.published) != 1 {
		t.Fatalf("expected one message, got %d", len(mc.published))
	}
	msg := mc.published[0]
	if msg.topic != "mine/a/period/7" || msg.qos != 1 || !msg.retain {
		t.Fatalf("unexpected publish: %s qos=%d retain=%v", msg.topic, msg.qos, msg.retain)
	}
	var got PeriodMessage
	if err := json.Unmarshal(msg.payload, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.RunID != "r1" || got.Summary.Period != 7 || got.Shortfall != 20 {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestPublisherRecordRun(t *testing.T) {
	mc := &mockClient{}
	withMockClient(t, mc)
	pub, err := NewPublisher(Config{Broker: "tcp://localhost:1883"})
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	ev := coremetrics.RunEvent{Run: run, Periods: 3, ExtractedTonnage: 42, Duration: 2 * time.Second, Err: "boom"}
	if err := pub.RecordRun(ev); err != nil {
		t.Fatalf("record: %v", err)
	}
	var got RunMessage
	if err := json.Unmarshal(mc.published[0].payload, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if mc.published[0].topic != "caveplan/run" || got.DurationMS != 2000 || got.Error != "boom" {
		t.Fatalf("unexpected run message %s %+v", mc.published[0].topic, got)
	}
	if err := pub.Close(); err != nil || !mc.disconnected {
		t.Fatalf("expected disconnect")
	}
}

func TestPublisherRetries(t *testing.T) {
	mc := &mockClient{publishErrs: []error{fmt.Errorf("net fail"), nil}}
	withMockClient(t, mc)
	pub, err := NewPublisher(Config{Broker: "tcp://localhost:1883", MaxRetries: 1, BackoffMS: 1})
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	if err := pub.RecordPeriod(run, model.PeriodSummary{Period: 1}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(mc.published) != 2 {
		t.Fatalf("expected retries")
	}

	mc.publishErrs = []error{fmt.Errorf("a"), fmt.Errorf("b")}
	if err := pub.RecordPeriod(run, model.PeriodSummary{Period: 2}); err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
}

func TestLWTConfigured(t *testing.T) {
	mc := &mockClient{}
	withMockClient(t, mc)
	_, err := NewPublisher(Config{Broker: "tcp://localhost:1883", LWTTopic: "lwt", LWTPayload: "bye", LWTQoS: 1})
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	if !mc.opts.WillEnabled {
		t.Fatalf("will not enabled")
	}
	if mc.opts.WillTopic != "lwt" || string(mc.opts.WillPayload) != "bye" {
		t.Fatalf("will options incorrect")
	}
}

func TestMQTTSinkFactory(t *testing.T) {
	mc := &mockClient{}
	withMockClient(t, mc)
	sink, err := coremetrics.NewMetricsSink([]factory.ModuleConfig{{
		Type: "mqtt",
		Conf: map[string]any{"broker": "tcp://localhost:1883", "topic_prefix": "x", "qos": "1"},
	}})
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	pub, ok := sink.(*Publisher)
	if !ok {
		t.Fatalf("expected *Publisher, got %T", sink)
	}
	if pub.prefix != "x" || pub.qos != 1 {
		t.Fatalf("config not decoded: %+v", pub)
	}
}
