package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

type ngrokOptions struct {
	Enabled bool
	Token   string
	Domain  string
}

// runTunnel exposes handler through an ngrok HTTP endpoint until ctx is done.
func runTunnel(ctx context.Context, opts ngrokOptions, handler http.Handler, logger *slog.Logger) {
	if opts.Token == "" {
		logger.Warn("Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN or NGROK_AUTH_TOKEN)")
		return
	}

	logger.Info("Starting ngrok tunnel")

	var tunnel ngrokConfig.Tunnel
	if opts.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.Domain))
		logger.Info("Using custom ngrok domain", "domain", opts.Domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(opts.Token))
	if err != nil {
		logger.Error("Failed to start ngrok tunnel", "error", err)
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Debug("Failed to close ngrok tunnel", "error", err)
		}
	}()

	url := tun.URL()
	logger.Info("Ngrok tunnel established",
		"url", url,
		"client", url+"/",
		"websocket", strings.Replace(url, "https://", "wss://", 1)+"/ws",
		"mcp", url+"/mcp",
	)

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Error("Ngrok server error", "error", err)
	}
	logger.Info("Ngrok tunnel closed")
}
