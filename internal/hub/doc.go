// Package hub is the server end of the realtime channel.
//
// The Hub:
//   - Authenticates each upgrade by session cookie, closing with 4001 or 4002 on failure
//   - Tracks every open socket per user for presence queries
//   - Queues notifications per user and flushes them as one batchMessages frame per interval
//   - Answers application pings immediately, outside the batch
//   - Relays typing indicators between users
//   - Pings sockets every 30s and terminates those that missed the previous ping
package hub
