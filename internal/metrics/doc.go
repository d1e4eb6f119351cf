// Package metrics provides Prometheus collectors for the realtime layer.
//
// Key metrics:
//   - Client connection health, reconnects and pong timeouts
//   - Frames dispatched, dropped and rejected as malformed
//   - Liveness warnings, dims and forced reloads
//   - Hub sockets, online users, batches flushed and sockets reaped
//
// Every recorder is safe to call on a nil receiver so components can run
// without a registry.
package metrics
