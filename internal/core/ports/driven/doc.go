// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - RemoteSource: Paged, filtered reads from the remote backend
//   - LocalStore: Gateway to the embedded relational store
//   - RecordStore: Batched upserts of validated records
//   - SyncMetadataStore: Per-table watermark and status persistence
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - BackgroundHost: Periodic execution. Without it, background sync is unavailable.
//   - SchedulerStore: Task state and history. Without it, cooldowns are kept in memory.
//   - ConfigWatcher: Live config reload. Without it, config is read once at startup.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
