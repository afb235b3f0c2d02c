// Package broadcast implements fan-out delivery to registered connections.
//
// The Broadcaster serializes a payload once, takes a registry snapshot and
// enqueues the bytes on every connection's Writer. Each Writer owns one
// goroutine that performs the actual socket writes, so a slow client only ever
// fails its own non-blocking enqueue. Failed recipients are evicted after the
// pass completes.
package broadcast
