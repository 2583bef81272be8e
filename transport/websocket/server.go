package websocket

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/mcp-training/gridshare/game/hub"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	defaultPongWait   = 60 * time.Second
	defaultReadLimit  = 512
	defaultSendBuffer = 256
)

// Options tunes the transport. Zero values fall back to defaults.
type Options struct {
	// Maximum message size allowed from peer.
	ReadLimit int64
	// Frames queued per client before Send fails.
	SendBuffer int
	// Origins accepted from browsers; empty accepts all.
	AllowedOrigins []string
	// Time allowed to read the next pong message from the peer.
	PongWait time.Duration
	// Send pings to peer with this period. Must be less than PongWait.
	PingPeriod time.Duration
}

func (o Options) withDefaults() Options {
	if o.ReadLimit <= 0 {
		o.ReadLimit = defaultReadLimit
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = defaultSendBuffer
	}
	if o.PongWait <= 0 {
		o.PongWait = defaultPongWait
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = (o.PongWait * 9) / 10
	}
	return o
}

// Server upgrades HTTP requests and attaches the resulting clients to a hub.
type Server struct {
	hub      *hub.Hub
	opts     Options
	upgrader websocket.Upgrader
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewServer creates a WebSocket endpoint for h
func NewServer(h *hub.Hub, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	opts = opts.withDefaults()

	return &Server{
		hub:  h,
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     NewCheckOrigin(opts.AllowedOrigins),
		},
		logger: logger,
	}
}

// ServeHTTP handles WebSocket requests from clients
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error response.
		s.logger.Debug("WebSocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	client := newClient(conn, s.opts, s.logger)
	client.prepareRead(s.opts.ReadLimit, func() { s.hub.Touch(client) })

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		client.writePump()
	}()
	go func() {
		defer s.wg.Done()
		s.readPump(client)
	}()
}

// readPump runs the client through the hub until the socket ends.
func (s *Server) readPump(c *Client) {
	err := s.hub.Serve(c, c.receive)
	switch {
	case err == nil:
	case errors.Is(err, hub.ErrHubClosed):
		c.logger.Debug("Rejected connection on closed hub")
	case errors.Is(err, hub.ErrConnectionPanic):
		c.logger.Error("Connection ended after panic", "error", err)
	case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure):
		c.logger.Warn("WebSocket error", "error", err)
	default:
		c.logger.Debug("WebSocket closed", "error", err)
	}

	// Unblocks the write pump if Serve returned before the hub closed us.
	c.Close()
}

// Wait blocks until every client goroutine has exited. Call it after
// hub.Close during shutdown.
func (s *Server) Wait() {
	s.wg.Wait()
}
