package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/mcp-training/gridshare/game/hub"
	"github.com/wricardo/mcp-training/gridshare/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"gridshare",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`gridshare - MCP Interface

A shared grid of cells edited live by everyone connected. This is a thin
client that proxies all requests to the REST API server.

GRID:
Cells are numbered row by row: index = row * cols + col. Each cell holds a
value from 0 to states-1 (0 and 1 on the default 50x50 grid).

AVAILABLE TOOLS:
- grid_state: See the grid ('.' is 0, '#' is 1, digits for higher states)
- get_cell: Read one cell by index or by row and col
- set_cell: Set one cell; all connected browsers update immediately
- reset_grid: Clear every cell for everyone
- grid_stats: Connected clients and filled cell count`),
	)

	c.registerTools()
}

// cellArgs are the shared index/row/col properties
func cellArgs() map[string]interface{} {
	return map[string]interface{}{
		"index": map[string]interface{}{
			"type":        "integer",
			"description": "Cell index (row * cols + col). Use either index or row and col.",
		},
		"row": map[string]interface{}{
			"type":        "integer",
			"description": "Row, starting at 0",
		},
		"col": map[string]interface{}{
			"type":        "integer",
			"description": "Column, starting at 0",
		},
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "grid_state",
		Description: "Render the current grid as text, one row per line",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGridState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_cell",
		Description: "Read the value of one cell",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: cellArgs(),
		},
	}, c.handleGetCell)

	setProps := cellArgs()
	setProps["value"] = map[string]interface{}{
		"type":        "integer",
		"description": "New value, 0 to states-1",
	}
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "set_cell",
		Description: "Set one cell. The change is broadcast to every connected client.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: setProps,
			Required:   []string{"value"},
		},
	}, c.handleSetCell)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_grid",
		Description: "Set every cell back to 0 for everyone",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleResetGrid)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "grid_stats",
		Description: "Connected clients, grid size and number of non-zero cells",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGridStats)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// HTTPHandler serves single JSON-RPC messages posted to it.
func (c *Client) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := c.mcpServer.HandleMessage(r.Context(), body)
		if response == nil {
			// notifications have no response
			w.WriteHeader(http.StatusAccepted)
			return
		}

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	})
}

// apiCall makes an HTTP request to the REST API
func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Tool handlers

func (c *Client) handleGridState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var view service.GridView
	if err := c.apiCall(ctx, "GET", "/api/grid", nil, &view); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGrid(&view)), nil
}

func (c *Client) handleGetCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	index, err := c.resolveIndex(ctx, args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var cell service.CellInfo
	if err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/grid/cells/%d", index), nil, &cell); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatCell(&cell)), nil
}

func (c *Client) handleSetCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	value, ok, err := intArg(args, "value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultError("value is required"), nil
	}

	index, err := c.resolveIndex(ctx, args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var cell service.CellInfo
	body := map[string]int{"value": value}
	if err := c.apiCall(ctx, "PUT", fmt.Sprintf("/api/grid/cells/%d", index), body, &cell); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Set " + formatCell(&cell)), nil
}

func (c *Client) handleResetGrid(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := c.apiCall(ctx, "POST", "/api/grid/reset", nil, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Grid reset: every cell is now 0"), nil
}

func (c *Client) handleGridStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var stats hub.Stats
	if err := c.apiCall(ctx, "GET", "/api/stats", nil, &stats); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatStats(&stats)), nil
}

// resolveIndex turns index, or row and col, into a cell index. Row and col
// need the grid width, which is fetched from the API.
func (c *Client) resolveIndex(ctx context.Context, args map[string]interface{}) (int, error) {
	index, hasIndex, err := intArg(args, "index")
	if err != nil {
		return 0, err
	}
	row, hasRow, err := intArg(args, "row")
	if err != nil {
		return 0, err
	}
	col, hasCol, err := intArg(args, "col")
	if err != nil {
		return 0, err
	}

	switch {
	case hasIndex && (hasRow || hasCol):
		return 0, fmt.Errorf("use either index or row and col, not both")
	case hasIndex:
		return index, nil
	case hasRow && hasCol:
	default:
		return 0, fmt.Errorf("index, or both row and col, are required")
	}

	var stats hub.Stats
	if err := c.apiCall(ctx, "GET", "/api/stats", nil, &stats); err != nil {
		return 0, err
	}
	if row < 0 || row >= stats.Rows || col < 0 || col >= stats.Cols {
		return 0, fmt.Errorf("row %d, col %d is outside the %dx%d grid", row, col, stats.Rows, stats.Cols)
	}
	return row*stats.Cols + col, nil
}

// intArg reads a whole-number argument. JSON numbers arrive as float64.
func intArg(args map[string]interface{}, name string) (int, bool, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return 0, false, nil
	}

	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
			return 0, true, fmt.Errorf("%s must be a whole number, got %v", name, v)
		}
		return int(v), true, nil
	case int:
		return v, true, nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, true, fmt.Errorf("%s must be a whole number, got %v", name, v)
		}
		return int(n), true, nil
	default:
		return 0, true, fmt.Errorf("%s must be a number, got %T", name, raw)
	}
}

// Formatting

func formatGrid(view *service.GridView) string {
	var b strings.Builder

	filled := 0
	for _, v := range view.State {
		if v != 0 {
			filled++
		}
	}
	fmt.Fprintf(&b, "Grid %dx%d, %d of %d cells set\n", view.Rows, view.Cols, filled, len(view.State))

	for row := 0; row < view.Rows; row++ {
		for col := 0; col < view.Cols; col++ {
			i := row*view.Cols + col
			if i >= len(view.State) {
				break
			}
			b.WriteByte(cellChar(int(view.State[i])))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func cellChar(v int) byte {
	switch {
	case v == 0:
		return '.'
	case v == 1:
		return '#'
	case v < 10:
		return byte('0' + v)
	default:
		return '+'
	}
}

func formatCell(cell *service.CellInfo) string {
	return fmt.Sprintf("cell %d (row %d, col %d) = %d", cell.Index, cell.Row, cell.Col, cell.Value)
}

func formatStats(stats *hub.Stats) string {
	return fmt.Sprintf("Connected clients: %d\nGrid: %dx%d (%d cells, %d states)\nNon-zero cells: %d",
		stats.Connections, stats.Rows, stats.Cols, stats.Cells, stats.States, stats.Filled)
}
