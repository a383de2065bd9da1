// Package projection
// Author: momentics <momentics@gmail.com>
//
// Default projection session entity. It owns one endpoint, runs the
// protocol handshake hook off the caller's goroutine, pumps inbound data to a sink while not paused and
// reports the end of the session exactly once. The projection protocol
// itself plugs in through Handshake and the sink.
package projection
