// Package event decodes inbound client messages into typed events and builds
// the payloads broadcast for them.
//
// Decoding fails closed: anything that is not a JSON object with a known
// "type" yields a *DecodeError and is dropped by the caller. Building a
// broadcast is a pure function of the event and the sender id.
package event
