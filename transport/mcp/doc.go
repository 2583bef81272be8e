// Package mcp provides a Model Context Protocol server for the shared grid.
//
// The mcp package implements:
//   - MCP tools for reading and editing the grid
//   - A thin client that proxies every tool to the REST API
//   - An HTTP handler for the /mcp endpoint
//
// MCP Tools:
//   - grid_state: Render the grid as text, one row per line
//   - get_cell: Read one cell by index or by row and col
//   - set_cell: Set one cell; every WebSocket client sees the change
//   - reset_grid: Clear the whole grid
//   - grid_stats: Connection count and filled cells
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer()) for local MCP clients
//   - HTTP: client.HTTPHandler() mounted at /mcp
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8000")
//	router.Handle("/mcp", client.HTTPHandler())
//
// Because the tools go through the REST API, an agent editing the grid is
// indistinguishable from any other API caller: edits are validated, rate
// limited and broadcast the same way.
package mcp
