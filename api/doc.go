// Package api provides the HTTP surface of the grid server.
//
// The api package implements:
//   - REST endpoints for reading and editing the shared grid
//   - Health and metrics endpoints
//   - Mounting the WebSocket and MCP handlers
//   - Serving the browser client from a static directory
//
// Endpoints:
//
// Grid:
//   - GET /api/grid - Rows, cols, states and the full cell array
//   - GET /api/grid/cells/{index} - One cell with its row and column
//   - PUT /api/grid/cells/{index} - Set a cell, body {"value": 1}
//   - POST /api/grid/reset - Clear every cell
//
// Status:
//   - GET /api/stats - Connection count and grid counters
//   - GET /api/connections - Joined WebSocket clients
//   - GET /healthz - Liveness probe
//   - GET /metrics - Prometheus metrics
//
// Realtime:
//   - GET /ws - WebSocket upgrade, see package websocket
//   - POST /mcp - MCP streamable HTTP endpoint
//
// Static:
//   - GET / - index.html from the static directory
//   - GET /{filename} - Any regular file in that directory, 404 otherwise
//
// Edits made through PUT and POST go through the hub like WebSocket edits,
// so every connected client receives them. Both routes are rate limited per
// client IP when a limit is configured.
//
// Usage:
//
//	srv := api.NewServer(service.NewGridService(h), api.Options{
//		StaticDir: "static",
//		WebSocket: websocket.NewServer(h, websocket.Options{}, logger),
//		Metrics:   metrics.Handler(reg),
//		RateLimit: 20,
//		RateBurst: 40,
//	})
//	http.ListenAndServe(":8000", srv)
//
// Error Handling:
//
// Errors are returned as JSON with an appropriate HTTP status code:
//
//	{
//	  "error": "cell index out of range: 2500 (grid has 2500 cells)"
//	}
package api
