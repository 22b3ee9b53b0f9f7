// Package metrics exposes the service's Prometheus collectors. All Recorder
// methods are safe on a nil receiver so components can run without metrics.
package metrics
