// Package driving defines the interfaces the CLI uses to drive the
// application: sync, settings, background registration and the scheduler.
//
// Services in internal/core/services implement most of them. Scheduler is
// implemented by the background host adapter.
package driving
