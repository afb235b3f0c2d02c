package domain

// Connection is the live transport handle owned by a registry entry.
type Connection interface {
	// ID identifies this physical connection (not the user).
	ID() string
	// Send enqueues a serialized payload without blocking. It fails with
	// ErrSlowConsumer when the buffer is full and ErrConnectionClosed after Close.
	Send(data []byte) error
	// Close terminates the transport. Safe to call more than once.
	Close(reason string) error
}

// Entry is one live connection's registration record.
type Entry struct {
	UserID string
	Conn   Connection
}
