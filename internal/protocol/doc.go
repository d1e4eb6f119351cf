// Package protocol defines the frames exchanged over the realtime channel.
//
// Every frame is a JSON object discriminated by its "type" field:
//   - ping / pong: liveness probe and reply
//   - typing: ephemeral typing indicator
//   - newMessage: a chat message arrived
//   - batchMessages: envelope of queued frames, unpacked before dispatch
//   - connected: server greeting after authentication
//
// Types the package does not know decode to UnknownFrame with the raw bytes
// preserved so they can be forwarded verbatim.
package protocol
