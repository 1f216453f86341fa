// Package metrics provides observability for PathTimer producers and
// collectors.
//
// # Design Philosophy
//
// Components receive a Recorder through dependency injection. By default they
// use NoopRecorder (Null Object pattern), so no nil checks are needed and
// metrics cost nothing when disabled.
//
// # Architecture
//
// The package has two independent parts:
//
//  1. Recorder - self-instrumentation of merges, flushes and snapshot traffic,
//     with NoopRecorder and PrometheusRecorder implementations.
//  2. RegistryCollector - a prometheus.Collector that exposes the buckets of a
//     timing.Registry (count, total, min, max per path) at scrape time.
//
// # Usage Pattern
//
//	reg := prom.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	reg.MustRegister(metrics.NewRegistryCollector("pathtimer", collector.Target))
//	http.Handle("/metrics", metrics.HTTPHandler(reg))
package metrics
