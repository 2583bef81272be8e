package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/wricardo/mcp-training/gridshare/game/grid"
	"github.com/wricardo/mcp-training/gridshare/game/service"
)

const indexFile = "index.html"

// Options wires the optional parts of the server. Nil handlers leave their
// routes unregistered.
type Options struct {
	// Directory holding index.html and sibling assets.
	StaticDir string
	// Requests per second per client IP on mutating routes; 0 disables.
	RateLimit float64
	RateBurst int
	// Reverse proxies (IPs or CIDRs) allowed to set X-Forwarded-For and
	// X-Real-IP. Empty means the connection's peer address is the client.
	TrustedProxies []string

	WebSocket http.Handler
	MCP       http.Handler
	Metrics   http.Handler

	Logger *slog.Logger
	Clock  clockwork.Clock
}

// Server represents the REST API server
type Server struct {
	service   service.GridService
	router    *mux.Router
	staticDir string
	limiter   *ipRateLimiter
	proxies   proxySet
	logger    *slog.Logger
}

// NewServer creates a new API server
func NewServer(gridService service.GridService, opts Options) *Server {
	s := &Server{
		service:   gridService,
		router:    mux.NewRouter(),
		staticDir: opts.StaticDir,
		logger:    opts.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	proxies, err := parseTrustedProxies(opts.TrustedProxies)
	if err != nil {
		s.logger.Warn("Ignoring trusted proxies, forwarding headers will not be read", "error", err)
	}
	s.proxies = proxies
	if opts.RateLimit > 0 {
		s.limiter = newIPRateLimiter(opts.RateLimit, opts.RateBurst, opts.Clock)
	}

	s.setupRoutes(opts)
	return s
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(opts Options) {
	api := s.router.PathPrefix("/api").Subrouter()

	// Reads
	api.HandleFunc("/grid", s.handleGetGrid).Methods("GET")
	api.HandleFunc("/grid/cells/{index}", s.handleGetCell).Methods("GET")
	api.HandleFunc("/stats", s.handleStats).Methods("GET")
	api.HandleFunc("/connections", s.handleConnections).Methods("GET")

	// Mutations
	api.Handle("/grid/cells/{index}", s.limited(s.handleSetCell)).Methods("PUT")
	api.Handle("/grid/reset", s.limited(s.handleReset)).Methods("POST")

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	if opts.Metrics != nil {
		s.router.Handle("/metrics", opts.Metrics).Methods("GET")
	}
	if opts.WebSocket != nil {
		s.router.Handle("/ws", opts.WebSocket)
	}
	if opts.MCP != nil {
		s.router.Handle("/mcp", opts.MCP)
	}

	// Client document and its sibling files
	s.router.HandleFunc("/", s.handleIndex).Methods("GET", "HEAD")
	s.router.HandleFunc("/{filename}", s.handleStatic).Methods("GET", "HEAD")
}

// limited applies the per-IP rate limit when one is configured
func (s *Server) limited(h http.HandlerFunc) http.Handler {
	if s.limiter == nil {
		return h
	}
	return s.limiter.middleware(s.proxies, h)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrCellOutOfRange), errors.Is(err, service.ErrInvalidValue):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func parseIndex(r *http.Request) (int, error) {
	raw := mux.Vars(r)["index"]
	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid cell index %q", raw)
	}
	return index, nil
}

// Grid Handlers

func (s *Server) handleGetGrid(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.GetGrid(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleGetCell(w http.ResponseWriter, r *http.Request) {
	index, err := parseIndex(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	cell, err := s.service.GetCell(r.Context(), index)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, cell)
}

func (s *Server) handleSetCell(w http.ResponseWriter, r *http.Request) {
	index, err := parseIndex(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Value *int `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Value == nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: expected {\"value\": <int>}")
		return
	}

	cell, err := s.service.SetCell(r.Context(), index, grid.Cell(*req.Value))
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	s.logger.Info("Cell set via API", "index", cell.Index, "value", cell.Value, "remote_addr", s.proxies.clientIP(r))
	respondJSON(w, http.StatusOK, cell)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Reset(r.Context()); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	s.logger.Info("Grid reset via API", "remote_addr", s.proxies.clientIP(r))
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Grid reset successfully",
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := s.service.Connections(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":       len(conns),
		"connections": conns,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Static Handlers

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.serveFile(w, r, indexFile)
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	s.serveFile(w, r, mux.Vars(r)["filename"])
}

// serveFile serves a regular file directly inside the static directory.
// Names that could escape it are treated as missing.
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, name string) {
	if !safeFilename(name) {
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(s.staticDir, name)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		http.NotFound(w, r)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	http.ServeContent(w, r, name, info.ModTime(), f)
}

func safeFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	return filepath.Base(name) == name
}
