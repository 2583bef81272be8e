// Command gridshare serves a shared grid that many browsers edit live.
//
// It supports two modes:
//  1. default: runs the HTTP server exposing the browser client, REST API,
//     WebSocket endpoint, /mcp endpoint and Prometheus metrics
//  2. "mcp": runs an MCP stdio server against a running API, or against an
//     internal one started on a loopback port
//
// Every flag can also be set from the environment (PORT, HOST, ...) or a
// .env file, and most from a JSON config file given with --config.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/gridshare/game/config"
	"github.com/wricardo/mcp-training/gridshare/logging"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "gridshare"
)

// options is everything the command line resolves to
type options struct {
	cfg   *config.Config
	ngrok ngrokOptions
}

type serveFunc func(ctx context.Context, opts *options) error

type stdioFunc func(ctx context.Context, opts *options, apiURL string) error

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand(runServer, runStdioMCP).Run(ctx, os.Args); err != nil {
		slog.Error("Exiting", "error", err)
		os.Exit(1)
	}
}

// newCommand builds the CLI. serve and stdio are the mode entry points.
func newCommand(serve serveFunc, stdio stdioFunc) *cli.Command {
	return &cli.Command{
		Name:    AppName,
		Usage:   "real-time collaborative shared grid",
		Version: Version,
		Flags:   serverFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts, err := resolveOptions(cmd)
			if err != nil {
				return err
			}
			return serve(ctx, opts)
		},
		Commands: []*cli.Command{
			{
				Name:  "mcp",
				Usage: "run an MCP stdio server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "api-url",
						Usage:   "REST API to proxy to; empty starts an internal server",
						Sources: cli.EnvVars("GRIDSHARE_API_URL"),
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					opts, err := resolveOptions(cmd)
					if err != nil {
						return err
					}
					return stdio(ctx, opts, cmd.String("api-url"))
				},
			},
		},
	}
}

func serverFlags() []cli.Flag {
	d := config.Default()

	return []cli.Flag{
		&cli.StringFlag{Name: "config", Usage: "JSON config file layered under the flags", Sources: cli.EnvVars("GRIDSHARE_CONFIG")},
		&cli.StringFlag{Name: "host", Value: d.Host, Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
		&cli.Int64Flag{Name: "port", Value: int64(d.Port), Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
		&cli.StringFlag{Name: "static-dir", Value: d.StaticDir, Usage: "directory holding index.html", Sources: cli.EnvVars("STATIC_DIR")},
		&cli.Int64Flag{Name: "rows", Value: int64(d.Rows), Usage: "grid rows", Sources: cli.EnvVars("GRID_ROWS")},
		&cli.Int64Flag{Name: "cols", Value: int64(d.Cols), Usage: "grid columns", Sources: cli.EnvVars("GRID_COLS")},
		&cli.Int64Flag{Name: "states", Value: int64(d.States), Usage: "number of cell values", Sources: cli.EnvVars("GRID_STATES")},
		&cli.Int64Flag{Name: "read-limit", Value: d.ReadLimit, Usage: "maximum inbound WebSocket frame in bytes", Sources: cli.EnvVars("READ_LIMIT")},
		&cli.Int64Flag{Name: "send-buffer", Value: int64(d.SendBuffer), Usage: "frames queued per client before it is dropped", Sources: cli.EnvVars("SEND_BUFFER")},
		&cli.DurationFlag{Name: "idle-timeout", Value: d.IdleTimeout.Duration, Usage: "drop clients silent this long (0 disables)", Sources: cli.EnvVars("IDLE_TIMEOUT")},
		&cli.StringSliceFlag{Name: "allowed-origins", Usage: "WebSocket origins to accept (empty accepts all)", Sources: cli.EnvVars("ALLOWED_ORIGINS")},
		&cli.FloatFlag{Name: "rate-limit", Value: d.RateLimit, Usage: "REST mutations per second per IP (0 disables)", Sources: cli.EnvVars("RATE_LIMIT")},
		&cli.StringSliceFlag{Name: "trusted-proxies", Usage: "proxy IPs or CIDRs whose X-Forwarded-For is trusted (empty trusts none)", Sources: cli.EnvVars("TRUSTED_PROXIES")},
		&cli.Int64Flag{Name: "rate-burst", Value: int64(d.RateBurst), Usage: "REST mutation burst per IP", Sources: cli.EnvVars("RATE_BURST")},
		&cli.StringFlag{Name: "log-level", Value: d.LogLevel, Usage: "debug, info, warn or error", Sources: cli.EnvVars("LOG_LEVEL")},
		&cli.StringFlag{Name: "log-format", Value: d.LogFormat, Usage: "text or json", Sources: cli.EnvVars("LOG_FORMAT")},
		&cli.BoolFlag{Name: "ngrok", Usage: "expose the server through an ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
		&cli.StringFlag{Name: "ngrok-auth", Usage: "ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
		&cli.StringFlag{Name: "ngrok-domain", Usage: "custom ngrok domain", Sources: cli.EnvVars("NGROK_DOMAIN")},
	}
}

// resolveOptions layers explicitly set flags over the config file over the
// defaults, validates the result and installs the logger.
func resolveOptions(cmd *cli.Command) (*options, error) {
	cfg := config.Default()
	if path := cmd.String("config"); path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = int(cmd.Int64("port"))
	}
	if cmd.IsSet("static-dir") {
		cfg.StaticDir = cmd.String("static-dir")
	}
	if cmd.IsSet("rows") {
		cfg.Rows = int(cmd.Int64("rows"))
	}
	if cmd.IsSet("cols") {
		cfg.Cols = int(cmd.Int64("cols"))
	}
	if cmd.IsSet("states") {
		cfg.States = int(cmd.Int64("states"))
	}
	if cmd.IsSet("read-limit") {
		cfg.ReadLimit = cmd.Int64("read-limit")
	}
	if cmd.IsSet("send-buffer") {
		cfg.SendBuffer = int(cmd.Int64("send-buffer"))
	}
	if cmd.IsSet("idle-timeout") {
		cfg.IdleTimeout = config.Duration{Duration: cmd.Duration("idle-timeout")}
	}
	if cmd.IsSet("allowed-origins") {
		cfg.AllowedOrigins = cmd.StringSlice("allowed-origins")
	}
	if cmd.IsSet("rate-limit") {
		cfg.RateLimit = cmd.Float("rate-limit")
	}
	if cmd.IsSet("rate-burst") {
		cfg.RateBurst = int(cmd.Int64("rate-burst"))
	}
	if cmd.IsSet("trusted-proxies") {
		cfg.TrustedProxies = cmd.StringSlice("trusted-proxies")
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}
	if cmd.IsSet("log-format") {
		cfg.LogFormat = cmd.String("log-format")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logging.Init(cfg.LogLevel, cfg.LogFormat)

	return &options{
		cfg: cfg,
		ngrok: ngrokOptions{
			Enabled: cmd.Bool("ngrok"),
			Token:   cmd.String("ngrok-auth"),
			Domain:  cmd.String("ngrok-domain"),
		},
	}, nil
}

// runServer serves until ctx is cancelled, then shuts down gracefully.
func runServer(ctx context.Context, opts *options) error {
	logger := logging.Logger
	logger.Info("Starting server", "app", AppName, "version", Version)

	srv, err := startServer(opts.cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("HTTP server listening", "addr", srv.Addr())
	logger.Info("Endpoints",
		"client", srv.URL()+"/",
		"api", srv.URL()+"/api/grid",
		"websocket", strings.Replace(srv.URL(), "http://", "ws://", 1)+"/ws",
		"mcp", srv.URL()+"/mcp",
		"metrics", srv.URL()+"/metrics",
	)

	if opts.ngrok.Enabled {
		go runTunnel(ctx, opts.ngrok, srv.Handler(), logger)
	}

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}
