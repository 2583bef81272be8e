package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/wricardo/mcp-training/gridshare/api"
	"github.com/wricardo/mcp-training/gridshare/game/config"
	"github.com/wricardo/mcp-training/gridshare/game/hub"
	"github.com/wricardo/mcp-training/gridshare/game/service"
	"github.com/wricardo/mcp-training/gridshare/logging"
	"github.com/wricardo/mcp-training/gridshare/metrics"
	"github.com/wricardo/mcp-training/gridshare/transport/mcp"
	"github.com/wricardo/mcp-training/gridshare/transport/websocket"
)

// runningServer is a started HTTP server with everything behind it.
type runningServer struct {
	httpServer *http.Server
	listener   net.Listener
	handler    http.Handler
	hub        *hub.Hub
	ws         *websocket.Server
	mcp        *mcp.Client
	registry   *prometheus.Registry

	stopReaper context.CancelFunc
	wg         sync.WaitGroup
}

// startServer wires the grid, hub, transports and API for cfg and starts
// serving on cfg's address. Port 0 picks a free port.
func startServer(cfg *config.Config, logger *slog.Logger) (*runningServer, error) {
	if logger == nil {
		logger = logging.Logger
	}

	store, err := cfg.NewGrid()
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.Addr(), err)
	}

	registry := metrics.NewRegistry()
	h := hub.New(store,
		hub.WithLogger(logger),
		hub.WithMetrics(metrics.NewHubMetrics(registry)),
	)

	ws := websocket.NewServer(h, websocket.Options{
		ReadLimit:      cfg.ReadLimit,
		SendBuffer:     cfg.SendBuffer,
		AllowedOrigins: cfg.AllowedOrigins,
	}, logger)

	// The MCP tools call back into our own REST API over loopback.
	mcpClient := mcp.NewClient(loopbackURL(listener.Addr()))

	handler := api.NewServer(service.NewGridService(h), api.Options{
		StaticDir: cfg.StaticDir,
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
		WebSocket: ws,
		MCP:       mcpClient.HTTPHandler(),
		Metrics:   metrics.Handler(registry),
		Logger:    logger,

		TrustedProxies: cfg.TrustedProxies,
	})

	s := &runningServer{
		httpServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		listener: listener,
		handler:  handler,
		hub:      h,
		ws:       ws,
		mcp:      mcpClient,
		registry: registry,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
		}
	}()

	reaperCtx, cancel := context.WithCancel(context.Background())
	s.stopReaper = cancel
	if idle := cfg.IdleTimeout.Duration; idle > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			idleReaper(reaperCtx, h, idle, logger)
		}()
	}

	return s, nil
}

// idleReaper periodically drops clients that have been silent for maxIdle.
func idleReaper(ctx context.Context, h *hub.Hub, maxIdle time.Duration, logger *slog.Logger) {
	interval := maxIdle / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := h.ReapIdle(maxIdle); removed > 0 {
				logger.Info("Dropped idle clients", "count", removed, "max_idle", maxIdle)
			}
		}
	}
}

// Addr returns the address the server is listening on.
func (s *runningServer) Addr() string {
	return s.listener.Addr().String()
}

// URL returns a loopback base URL for the server.
func (s *runningServer) URL() string {
	return loopbackURL(s.listener.Addr())
}

// Handler returns the root HTTP handler, for serving on extra listeners.
func (s *runningServer) Handler() http.Handler {
	return s.handler
}

// Shutdown stops accepting requests, disconnects every WebSocket client and
// waits for their goroutines to finish or ctx to expire.
func (s *runningServer) Shutdown(ctx context.Context) error {
	s.stopReaper()
	err := s.httpServer.Shutdown(ctx)

	// Hijacked WebSocket connections are not tracked by http.Server.
	s.hub.Close()

	done := make(chan struct{})
	go func() {
		s.ws.Wait()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return errors.Join(err, ctx.Err())
	}
	return err
}

func loopbackURL(addr net.Addr) string {
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return "http://" + addr.String()
	}
	if ip := net.ParseIP(host); ip == nil || ip.IsUnspecified() {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// runStdioMCP serves MCP over stdio. With an empty apiURL it starts an
// internal server on a loopback port and proxies to that.
func runStdioMCP(ctx context.Context, opts *options, apiURL string) error {
	logger := logging.Logger

	if apiURL == "" {
		cfg := *opts.cfg
		cfg.Host = "127.0.0.1"
		cfg.Port = 0

		srv, err := startServer(&cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to start internal server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		apiURL = srv.URL()
		logger.Info("Started internal HTTP server for MCP stdio", "url", apiURL)
	}

	client := mcp.NewClient(apiURL)
	logger.Info("MCP stdio server ready", "api", apiURL)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ServeStdio(client.GetMCPServer())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}
