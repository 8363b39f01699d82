// Package services implements the driving port interfaces.
// Services contain the sync engine and orchestrate calls to driven
// ports (adapters).
//
// Services depend only on domain and the port interfaces. Tracing goes
// through the global OpenTelemetry provider and fetch retries use
// cenkalti/backoff.
package services
