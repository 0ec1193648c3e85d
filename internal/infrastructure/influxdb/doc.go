// Package influxdb provides loading telemetry storage for Wagonloader Core.
//
// Per-bag loading measurements are written to InfluxDB so yard operators can
// chart loading rates per siding and wagon over time. Writes are
// non-blocking and batched; failures are delivered via an error callback and
// never affect the loading scheduler.
//
// The client is optional: when influxdb.enabled is false, Connect returns
// ErrDisabled and Core runs without telemetry.
package influxdb
