// Package metrics exposes pipeline counters to Prometheus.
//
// Components depend on the Recorder interface. NoopRecorder is the default;
// the daemon installs a PrometheusRecorder and serves HTTPHandler when
// metrics_addr is configured.
package metrics
