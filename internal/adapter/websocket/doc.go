// Package websocket is the channel endpoint: it upgrades HTTP requests,
// registers the resulting connection and runs one receive loop per user.
//
// A session moves Pending -> Active -> Closed. Every exit path out of the
// receive loop (close frame, read error, panic) converges on a single
// teardown that deregisters the connection at most once.
package websocket
