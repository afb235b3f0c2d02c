// Package registry owns the mapping from user id to live connection.
//
// All mutations and snapshots go through a single RWMutex with short critical
// sections. Delivery I/O never happens under the lock: callers take a Snapshot
// and send to the copied entries.
package registry
