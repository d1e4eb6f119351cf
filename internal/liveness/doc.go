// Package liveness forces a reload of client state that sat in the
// background for too long.
//
// A Monitor tracks how long the host was hidden. When it becomes visible
// again close to the stale threshold the user is warned with a countdown,
// and the last seconds are dimmed. Past the threshold the Reloader runs.
// Any tracked activity while the warning shows cancels it.
package liveness
