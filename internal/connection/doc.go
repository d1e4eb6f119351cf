// Package connection implements the client side of the realtime channel.
//
// The Manager:
//   - Owns exactly one transport at a time to the hub's /ws endpoint
//   - Probes liveness with ping/pong every 8s, declaring the link dead after 3s without a pong
//   - Reconnects with capped exponential backoff while the session is authenticated
//   - Consumes pongs, unpacks batch envelopes, and forwards every other frame
//
// Transitions are computed by Machine, a deterministic state machine that
// performs no I/O. Manager executes the effects it returns.
package connection
