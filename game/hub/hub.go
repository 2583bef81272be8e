package hub

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/wricardo/mcp-training/gridshare/game/grid"
	"github.com/wricardo/mcp-training/gridshare/game/protocol"
	"github.com/wricardo/mcp-training/gridshare/game/session"
	"github.com/wricardo/mcp-training/gridshare/metrics"
)

var (
	ErrHubClosed     = errors.New("hub is closed")
	ErrDuplicateConn = errors.New("connection already joined")
)

// Connection is a live client as seen by the hub.
type Connection interface {
	// ID identifies the connection; it must be unique among joined connections.
	ID() string
	// Send queues a frame for delivery without blocking. Any error means the
	// connection can no longer receive messages.
	Send(frame []byte) error
	// Close releases the connection's outbound side. It must be safe to call
	// more than once.
	Close() error
}

// Stats summarizes the hub for status endpoints.
type Stats struct {
	Connections int `json:"connections"`
	Rows        int `json:"rows"`
	Cols        int `json:"cols"`
	States      int `json:"states"`
	Cells       int `json:"cells"`
	Filled      int `json:"filled"`
}

// Option configures a Hub
type Option func(*Hub)

// WithLogger sets the hub's logger
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMetrics attaches Prometheus instrumentation
func WithMetrics(m *metrics.HubMetrics) Option {
	return func(h *Hub) { h.metrics = m }
}

// WithClock sets the clock used for activity timestamps
func WithClock(clock clockwork.Clock) Option {
	return func(h *Hub) { h.clock = clock }
}

// WithHooks registers lifecycle callbacks. Hooks run with the hub lock held
// and must not call back into the hub.
func WithHooks(onJoin func(Connection), onLeave func(c Connection, reason string)) Option {
	return func(h *Hub) {
		h.onJoin = onJoin
		h.onLeave = onLeave
	}
}

// Hub owns the shared grid and the set of joined connections
type Hub struct {
	mu      sync.Mutex
	grid    *grid.Store
	conns   *session.Registry[Connection]
	closed  bool
	logger  *slog.Logger
	metrics *metrics.HubMetrics
	clock   clockwork.Clock
	onJoin  func(Connection)
	onLeave func(Connection, string)
}

// New creates a hub around store. A nil store gets the default 50x50 grid.
func New(store *grid.Store, opts ...Option) *Hub {
	if store == nil {
		store = grid.NewDefault()
	}

	h := &Hub{
		grid:   store,
		logger: slog.Default(),
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.conns = session.NewRegistry[Connection](h.clock)
	return h
}

// Join registers c and sends it the current grid as an init message.
func (h *Hub) Join(c Connection) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}

	if err := h.conns.Add(c.ID(), c); err != nil {
		if errors.Is(err, session.ErrAlreadyExists) {
			return ErrDuplicateConn
		}
		return fmt.Errorf("failed to register connection: %w", err)
	}
	h.metrics.Joined()

	frame, err := protocol.Encode(protocol.Init{State: h.grid.State()})
	if err == nil {
		err = c.Send(frame)
	}
	if err != nil {
		h.leaveLocked(c, metrics.ReasonSendFailed)
		return fmt.Errorf("failed to send snapshot: %w", err)
	}

	h.logger.Info("Client connected", "conn_id", c.ID(), "total_clients", h.conns.Count())
	if h.onJoin != nil {
		h.onJoin(c)
	}
	return nil
}

// Leave removes c. Calling it for a connection that already left is a no-op.
func (h *Hub) Leave(c Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, metrics.ReasonDisconnect)
}

func (h *Hub) leaveLocked(c Connection, reason string) {
	if _, removed := h.conns.Remove(c.ID()); !removed {
		return
	}

	if err := c.Close(); err != nil {
		h.logger.Debug("Closing connection failed", "conn_id", c.ID(), "error", err)
	}
	h.metrics.Left(reason)
	h.logger.Info("Client disconnected", "conn_id", c.ID(), "reason", reason, "total_clients", h.conns.Count())

	if h.onLeave != nil {
		h.onLeave(c, reason)
	}
}

// HandleMessage parses a raw frame from sender and applies it. Malformed
// frames are dropped; nothing is returned to the caller.
func (h *Hub) HandleMessage(sender Connection, raw []byte) {
	msg, err := protocol.Parse(raw)
	if err != nil {
		h.metrics.Message("invalid", metrics.OutcomeMalformed)
		h.logger.Debug("Discarding malformed message", "conn_id", sender.ID(), "error", err)
		return
	}

	_ = h.conns.Touch(sender.ID())
	h.Apply(sender, msg)
}

// Apply executes a typed message on behalf of sender and reports whether the
// grid changed. A nil sender (REST or MCP callers) excludes nobody from the
// broadcast. Messages from connections that are no longer joined are ignored.
func (h *Hub) Apply(sender Connection, msg protocol.Message) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sender != nil && !h.conns.Contains(sender.ID()) {
		return false
	}

	switch m := msg.(type) {
	case protocol.Update:
		if !h.grid.ValidValue(m.Value) {
			h.metrics.Message(string(protocol.KindUpdate), metrics.OutcomeMalformed)
			h.logger.Debug("Discarding update with invalid value", "index", m.Index, "value", m.Value)
			return false
		}
		if !h.grid.SetCell(m.Index, m.Value) {
			h.metrics.Message(string(protocol.KindUpdate), metrics.OutcomeIgnored)
			h.logger.Debug("Discarding out-of-range update", "index", m.Index, "cells", h.grid.Len())
			return false
		}
		h.broadcastLocked(m, sender)
		h.metrics.Message(string(protocol.KindUpdate), metrics.OutcomeApplied)
		return true

	case protocol.Reset:
		h.grid.Reset()
		h.broadcastLocked(m, nil)
		h.metrics.Message(string(protocol.KindReset), metrics.OutcomeApplied)
		return true

	default:
		kind := "unknown"
		if msg != nil {
			kind = string(msg.Kind())
		}
		h.metrics.Message(kind, metrics.OutcomeMalformed)
		h.logger.Debug("Discarding unsupported message", "kind", kind)
		return false
	}
}

// broadcastLocked sends msg to every joined connection except the one with
// except's ID. Recipients that fail are removed once the loop is done.
func (h *Hub) broadcastLocked(msg protocol.Message, except Connection) {
	frame, err := protocol.Encode(msg)
	if err != nil {
		h.logger.Error("Failed to encode broadcast", "kind", msg.Kind(), "error", err)
		return
	}

	skip := ""
	if except != nil {
		skip = except.ID()
	}

	var failed []Connection
	sent := 0
	for _, e := range h.conns.List() {
		if e.ID == skip {
			continue
		}
		if err := e.Conn.Send(frame); err != nil {
			h.metrics.SendFailed()
			h.logger.Debug("Send failed, dropping client", "conn_id", e.ID, "error", err)
			failed = append(failed, e.Conn)
			continue
		}
		sent++
	}
	h.metrics.Broadcast(sent)

	for _, c := range failed {
		h.leaveLocked(c, metrics.ReasonSendFailed)
	}
}

// Snapshot returns a copy of the current grid.
func (h *Hub) Snapshot() []grid.Cell {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.grid.State()
}

// Cell returns the value at index and whether index is in range.
func (h *Hub) Cell(index int) (grid.Cell, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.grid.Get(index)
}

// Dimensions returns rows, cols and the number of cell states. They never
// change after construction.
func (h *Hub) Dimensions() (rows, cols, states int) {
	return h.grid.Rows(), h.grid.Cols(), h.grid.States()
}

// Stats returns connection and grid counters
func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	return Stats{
		Connections: h.conns.Count(),
		Rows:        h.grid.Rows(),
		Cols:        h.grid.Cols(),
		States:      h.grid.States(),
		Cells:       h.grid.Len(),
		Filled:      h.grid.Len() - h.grid.Count(0),
	}
}

// Connections returns the registry entries of every joined connection.
func (h *Hub) Connections() []session.Entry[Connection] {
	return h.conns.List()
}

// Touch marks c as active
func (h *Hub) Touch(c Connection) {
	_ = h.conns.Touch(c.ID())
}

// ReapIdle removes connections with no inbound activity within maxIdle and
// returns how many were dropped.
func (h *Hub) ReapIdle(maxIdle time.Duration) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	removed := 0
	for _, id := range h.conns.Idle(maxIdle) {
		e, err := h.conns.Get(id)
		if err != nil {
			continue
		}
		h.leaveLocked(e.Conn, metrics.ReasonIdle)
		removed++
	}
	return removed
}

// Close disconnects every connection and rejects further joins.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for _, e := range h.conns.List() {
		h.leaveLocked(e.Conn, metrics.ReasonShutdown)
	}
}
