package broadcast

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/reciyap-relay/internal/adapter/metrics"
	"github.com/pscheid92/reciyap-relay/internal/domain"
)

// WriterConfig holds the per-connection transport limits.
type WriterConfig struct {
	BufferSize   int
	WriteTimeout time.Duration
	PingInterval time.Duration
	PongTimeout  time.Duration
}

// DefaultWriterConfig mirrors the configuration defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BufferSize:   16,
		WriteTimeout: 5 * time.Second,
		PingInterval: 30 * time.Second,
		PongTimeout:  60 * time.Second,
	}
}

// Writer is the channel handle stored in the registry. It implements
// domain.Connection on top of a gorilla WebSocket.
type Writer struct {
	id          string
	connection  *websocket.Conn
	clock       clockwork.Clock
	metrics     *metrics.RelayMetrics
	cfg         WriterConfig
	sendChannel chan []byte
	doneChannel chan struct{}
	stopped     chan struct{}
	failed      atomic.Bool
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

var _ domain.Connection = (*Writer)(nil)

func NewWriter(connection *websocket.Conn, clock clockwork.Clock, m *metrics.RelayMetrics, cfg WriterConfig) *Writer {
	w := &Writer{
		id:          uuid.NewString(),
		connection:  connection,
		clock:       clock,
		metrics:     m,
		cfg:         cfg,
		sendChannel: make(chan []byte, cfg.BufferSize),
		doneChannel: make(chan struct{}),
		stopped:     make(chan struct{}),
	}
	w.configurePongHandler()
	w.wg.Add(1)
	go w.run()
	return w
}

func (w *Writer) ID() string {
	return w.id
}

// Done is closed once the write loop has exited, for whatever reason.
func (w *Writer) Done() <-chan struct{} {
	return w.stopped
}

// Send enqueues data without blocking. A full buffer means the client is not
// keeping up; the caller evicts it rather than waiting.
func (w *Writer) Send(data []byte) error {
	select {
	case <-w.doneChannel:
		return domain.ErrConnectionClosed
	case <-w.stopped:
		return domain.ErrConnectionClosed
	default:
	}

	select {
	case w.sendChannel <- data:
		return nil
	default:
		return domain.ErrSlowConsumer
	}
}

// Close stops the write loop, sends a close frame carrying reason and closes
// the socket. Only the first call has any effect.
func (w *Writer) Close(reason string) error {
	var err error
	w.stopOnce.Do(func() {
		close(w.doneChannel)

		// The run goroutine must be gone before we write the close frame;
		// gorilla allows only one concurrent writer.
		w.wg.Wait()
		if w.failed.Load() {
			return
		}

		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
		w.updateWriteDeadline()
		_ = w.connection.WriteMessage(websocket.CloseMessage, closeMsg)

		err = w.connection.Close()
	})
	return err
}

func (w *Writer) run() {
	ticker := w.clock.NewTicker(w.cfg.PingInterval)
	defer ticker.Stop()
	defer w.wg.Done()
	defer close(w.stopped)

	for {
		select {
		case msg := <-w.sendChannel:
			start := w.clock.Now()
			w.updateWriteDeadline()
			if err := w.connection.WriteMessage(websocket.TextMessage, msg); err != nil {
				w.abort()
				return
			}
			w.metrics.MessageSendDuration.Observe(w.clock.Since(start).Seconds())
		case <-ticker.Chan():
			w.updateWriteDeadline()
			if err := w.connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				w.metrics.PingFailures.Inc()
				w.abort()
				return
			}
		case <-w.doneChannel:
			return
		}
	}
}

// abort closes the socket from inside the write loop without a close frame,
// since writing just failed. The reader side then sees an error and tears
// the session down through Close.
func (w *Writer) abort() {
	w.failed.Store(true)
	_ = w.connection.Close()
}

func (w *Writer) configurePongHandler() {
	w.updateReadDeadline()
	w.connection.SetPongHandler(func(string) error {
		w.updateReadDeadline()
		return nil
	})
}

// Socket deadlines are absolute wall-clock times, so they bypass the injected clock.

func (w *Writer) updateWriteDeadline() {
	_ = w.connection.SetWriteDeadline(time.Now().Add(w.cfg.WriteTimeout))
}

func (w *Writer) updateReadDeadline() {
	_ = w.connection.SetReadDeadline(time.Now().Add(w.cfg.PongTimeout))
}
