// Package infra contains technical adapters: file importers, the zerolog
// logger, metrics sinks and the MQTT publisher. These packages depend only
// on the interfaces defined in the core packages.
package infra
