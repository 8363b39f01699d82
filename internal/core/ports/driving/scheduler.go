package driving

import "context"

// Scheduler drives the background host from the daemon command.
type Scheduler interface {
	// Start runs due tasks until ctx is cancelled or Stop is called.
	// Calling Start on a running scheduler returns nil at once.
	Start(ctx context.Context) error

	// Stop ends the run loop and waits for in-flight tasks.
	Stop() error
}
