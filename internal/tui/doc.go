// Package tui is the terminal host for the realtime layer. It owns the
// message cache the connection manager feeds, renders the liveness banner
// and dim overlay, and turns terminal focus, key and mouse input into
// liveness signals.
package tui
