package domain

import "errors"

var (
	// Decode failures. Dropped at the boundary, never fatal for a connection.
	ErrMalformedMessage = errors.New("malformed message")
	ErrUnknownEventType = errors.New("unknown event type")

	// Delivery failures. The recipient is evicted, the fan-out continues.
	ErrSlowConsumer     = errors.New("send buffer full")
	ErrConnectionClosed = errors.New("connection closed")
)
