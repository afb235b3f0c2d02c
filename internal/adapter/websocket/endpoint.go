package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/reciyap-relay/internal/adapter/metrics"
	"github.com/pscheid92/reciyap-relay/internal/broadcast"
	"github.com/pscheid92/reciyap-relay/internal/domain"
	"github.com/pscheid92/reciyap-relay/internal/event"
	"github.com/pscheid92/reciyap-relay/internal/platform/correlation"
	"golang.org/x/time/rate"
)

const (
	replacedReason = "replaced by a newer connection"
	closedReason   = "connection closed"
)

// State is the lifecycle stage of a session.
type State int32

const (
	StatePending State = iota
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

type connectionRegistry interface {
	Register(userID string, conn domain.Connection) domain.Connection
	Release(userID string, conn domain.Connection) bool
}

type broadcaster interface {
	BroadcastAll(ctx context.Context, body any) (broadcast.Report, error)
}

// Config holds the per-session limits.
type Config struct {
	Writer         broadcast.WriterConfig
	MaxMessageSize int64
	InboundRate    float64
	InboundBurst   int
}

// Endpoint accepts WebSocket connections for authenticated user ids.
type Endpoint struct {
	upgrader    websocket.Upgrader
	registry    connectionRegistry
	broadcaster broadcaster
	clock       clockwork.Clock
	metrics     *metrics.RelayMetrics
	cfg         Config

	// stateHook observes lifecycle transitions; tests only.
	stateHook func(userID string, s State)
}

func NewEndpoint(registry connectionRegistry, b broadcaster, clock clockwork.Clock, m *metrics.RelayMetrics, cfg Config, checkOrigin func(*http.Request) bool) *Endpoint {
	return &Endpoint{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		registry:    registry,
		broadcaster: b,
		clock:       clock,
		metrics:     m,
		cfg:         cfg,
	}
}

// Serve upgrades the request and blocks until the session ends. userID must
// already be authenticated by the caller.
func (e *Endpoint) Serve(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := e.upgrader.Upgrade(w, r, nil)
	if err != nil {
		e.metrics.ConnectionsTotal.WithLabelValues("upgrade_failed").Inc()
		return fmt.Errorf("failed to upgrade WebSocket: %w", err)
	}
	e.metrics.ConnectionsTotal.WithLabelValues("accepted").Inc()

	// The request context ends with the handler; keep only its values.
	ctx := correlation.WithUser(context.WithoutCancel(r.Context()), userID)
	if _, ok := correlation.ID(ctx); !ok {
		ctx = correlation.WithID(ctx, correlation.NewID())
	}

	s := &session{
		endpoint: e,
		ctx:      ctx,
		userID:   userID,
		conn:     conn,
		limiter:  rate.NewLimiter(rate.Limit(e.cfg.InboundRate), e.cfg.InboundBurst),
		started:  e.clock.Now(),
	}
	s.activate()
	s.receiveLoop()
	return nil
}

type session struct {
	endpoint *Endpoint
	ctx      context.Context
	userID   string
	conn     *websocket.Conn
	writer   *broadcast.Writer
	limiter  *rate.Limiter
	started  time.Time

	state        atomic.Int32
	teardownOnce sync.Once
}

func (s *session) setState(state State) {
	s.state.Store(int32(state))
	if hook := s.endpoint.stateHook; hook != nil {
		hook(s.userID, state)
	}
}

// activate registers the connection, replacing any previous one for the user.
func (s *session) activate() {
	e := s.endpoint
	s.setState(StatePending)

	s.conn.SetReadLimit(e.cfg.MaxMessageSize)
	s.writer = broadcast.NewWriter(s.conn, e.clock, e.metrics, e.cfg.Writer)

	if previous := e.registry.Register(s.userID, s.writer); previous != nil {
		e.metrics.ConnectionsReplaced.Inc()
		slog.InfoContext(s.ctx, "Replacing existing connection", "previous_connection_id", previous.ID())
		go func() { _ = previous.Close(replacedReason) }()
	}

	s.setState(StateActive)
	slog.InfoContext(s.ctx, "Client connected", "connection_id", s.writer.ID())
}

func (s *session) receiveLoop() {
	defer s.teardown()
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(s.ctx, "Receive loop panic recovered", "panic", r)
		}
	}()

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			s.logReadError(err)
			return
		}
		if msgType != websocket.TextMessage {
			s.drop("malformed", errors.New("binary frames are not supported"))
			continue
		}
		s.handle(data)
	}
}

// handle processes one inbound message. Nothing here ends the session.
func (s *session) handle(data []byte) {
	e := s.endpoint

	if !s.limiter.Allow() {
		s.drop("rate_limited", nil)
		return
	}

	ev, err := event.Decode(data)
	if err != nil {
		reason := "malformed"
		var decodeErr *event.DecodeError
		if errors.As(err, &decodeErr) {
			reason = decodeErr.Reason()
		}
		s.drop(reason, err)
		return
	}
	e.metrics.EventsReceived.WithLabelValues(string(ev.EventType())).Inc()

	payload, ok := event.BuildBroadcast(ev, s.userID)
	if !ok {
		return
	}

	report, err := e.broadcaster.BroadcastAll(s.ctx, payload)
	if err != nil {
		slog.ErrorContext(s.ctx, "Failed to broadcast event", "type", ev.EventType(), "error", err)
		return
	}
	slog.DebugContext(s.ctx, "Relayed event", "type", ev.EventType(), "delivered", report.Delivered, "evicted", len(report.Evicted))
}

func (s *session) drop(reason string, err error) {
	s.endpoint.metrics.MessagesDropped.WithLabelValues(reason).Inc()
	if err != nil {
		slog.WarnContext(s.ctx, "Dropping inbound message", "reason", reason, "error", err)
		return
	}
	slog.DebugContext(s.ctx, "Dropping inbound message", "reason", reason)
}

func (s *session) logReadError(err error) {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
		slog.InfoContext(s.ctx, "Client disconnected")
		return
	}
	slog.WarnContext(s.ctx, "Receive loop ended", "error", err)
}

// teardown runs once per session regardless of how the loop ended.
func (s *session) teardown() {
	s.teardownOnce.Do(func() {
		e := s.endpoint
		if e.registry.Release(s.userID, s.writer) {
			slog.InfoContext(s.ctx, "Client deregistered", "connection_id", s.writer.ID())
		}
		_ = s.writer.Close(closedReason)
		e.metrics.ConnectionDuration.Observe(e.clock.Since(s.started).Seconds())
		s.setState(StateClosed)
	})
}
