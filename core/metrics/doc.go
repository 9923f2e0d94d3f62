// Package metrics defines the sinks that observe a scheduling run. Every
// sink receives period summaries; sinks that also implement
// ExtractionRecorder or RunRecorder receive per-column records and run
// totals. Implementations (Prometheus, InfluxDB, MQTT) live in infra and
// register themselves by name so they can be selected from configuration.
// Several configured sinks are combined with NewMultiSink.
package metrics
