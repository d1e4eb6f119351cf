// Package presence is a small REST client for the hub's presence API.
//
// Requests are retried with jittered exponential backoff on 5xx and 429
// responses.
package presence
