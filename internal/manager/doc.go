// Package manager owns the model lifecycle: which model the inference
// backend has resident and whether a load or unload is in progress.
// It is structured into small files by concern:
//
//   - manager.go: core Manager type, Init, Status/Snapshot, Ready, Close.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: State, Snapshot, WarmupPolicy and the collaborator interfaces.
//   - load.go: RequestLoad, the progress estimator and the completion latch.
//   - unload.go: RequestUnload.
//   - errors.go: error types and helpers (IsModelNotReady).
//   - events.go, eventpub_memory.go: lifecycle events.
//   - metrics.go: Prometheus gauges and counters.
//
// Load and unload are fire-and-forget: callers trigger them and poll Status.
// All state is read and written under one lock; nothing outside this package
// touches the fields.
package manager
