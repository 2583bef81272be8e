package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/mcp-training/gridshare/api"
	"github.com/wricardo/mcp-training/gridshare/game/grid"
	"github.com/wricardo/mcp-training/gridshare/game/hub"
	"github.com/wricardo/mcp-training/gridshare/game/protocol"
	"github.com/wricardo/mcp-training/gridshare/game/service"
	"github.com/wricardo/mcp-training/gridshare/logging"
)

// newBackedClient starts a real REST API over a small grid and points a client at it.
func newBackedClient(t *testing.T, rows, cols int) (*Client, *hub.Hub) {
	t.Helper()

	store, err := grid.New(rows, cols, 2)
	require.NoError(t, err)
	h := hub.New(store, hub.WithLogger(logging.Discard()))
	srv := httptest.NewServer(api.NewServer(service.NewGridService(h), api.Options{Logger: logging.Discard()}))
	t.Cleanup(srv.Close)

	return NewClient(srv.URL), h
}

func callTool(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8000/")

	assert.Equal(t, "http://localhost:8000", client.baseURL)
	assert.NotNil(t, client.httpClient)
	assert.NotNil(t, client.GetMCPServer())
}

func TestHandleGridState(t *testing.T) {
	client, h := newBackedClient(t, 3, 4)
	require.True(t, h.Apply(nil, updateMsg(5, 1)))

	result, err := client.handleGridState(context.Background(), callTool("grid_state", nil))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	text := resultText(t, result)
	assert.Equal(t, "Grid 3x4, 1 of 12 cells set\n....\n.#..\n....\n", text)
}

func TestHandleSetCell(t *testing.T) {
	t.Run("by index", func(t *testing.T) {
		client, h := newBackedClient(t, 5, 5)

		result, err := client.handleSetCell(context.Background(), callTool("set_cell", map[string]interface{}{
			"index": float64(7),
			"value": float64(1),
		}))
		require.NoError(t, err)
		assert.False(t, result.IsError, resultText(t, result))
		assert.Contains(t, resultText(t, result), "cell 7 (row 1, col 2) = 1")

		v, _ := h.Cell(7)
		assert.Equal(t, grid.Cell(1), v)
	})

	t.Run("by row and col", func(t *testing.T) {
		client, h := newBackedClient(t, 5, 5)

		result, err := client.handleSetCell(context.Background(), callTool("set_cell", map[string]interface{}{
			"row":   float64(4),
			"col":   float64(4),
			"value": float64(1),
		}))
		require.NoError(t, err)
		assert.False(t, result.IsError, resultText(t, result))

		v, _ := h.Cell(24)
		assert.Equal(t, grid.Cell(1), v)
	})

	errorCases := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"missing value", map[string]interface{}{"index": float64(1)}, "value is required"},
		{"fractional value", map[string]interface{}{"index": float64(1), "value": 0.5}, "whole number"},
		{"string index", map[string]interface{}{"index": "1", "value": float64(1)}, "must be a number"},
		{"no target", map[string]interface{}{"value": float64(1)}, "required"},
		{"both targets", map[string]interface{}{"index": float64(1), "row": float64(0), "col": float64(1), "value": float64(1)}, "not both"},
		{"row outside", map[string]interface{}{"row": float64(5), "col": float64(0), "value": float64(1)}, "outside the 5x5 grid"},
		{"index outside", map[string]interface{}{"index": float64(25), "value": float64(1)}, "out of range"},
		{"value outside", map[string]interface{}{"index": float64(0), "value": float64(3)}, "invalid cell value"},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			client, h := newBackedClient(t, 5, 5)

			result, err := client.handleSetCell(context.Background(), callTool("set_cell", tc.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tc.want)
			assert.Equal(t, 0, h.Stats().Filled)
		})
	}
}

func TestHandleGetCell(t *testing.T) {
	client, h := newBackedClient(t, 5, 5)
	require.True(t, h.Apply(nil, updateMsg(13, 1)))

	result, err := client.handleGetCell(context.Background(), callTool("get_cell", map[string]interface{}{
		"row": float64(2),
		"col": float64(3),
	}))
	require.NoError(t, err)
	assert.Equal(t, "cell 13 (row 2, col 3) = 1", resultText(t, result))
}

func TestHandleResetAndStats(t *testing.T) {
	client, h := newBackedClient(t, 5, 5)
	require.True(t, h.Apply(nil, updateMsg(1, 1)))
	require.True(t, h.Apply(nil, updateMsg(2, 1)))

	result, err := client.handleGridStats(context.Background(), callTool("grid_stats", nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "Non-zero cells: 2")

	result, err = client.handleResetGrid(context.Background(), callTool("reset_grid", nil))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, 0, h.Stats().Filled)
}

func TestApiCall_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/plain" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "nope"})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	err := client.apiCall(context.Background(), "GET", "/json", nil, nil)
	assert.EqualError(t, err, "nope")

	err = client.apiCall(context.Background(), "GET", "/plain", nil, nil)
	assert.EqualError(t, err, "API error: 502")

	unreachable := NewClient("http://127.0.0.1:1")
	assert.Error(t, unreachable.apiCall(context.Background(), "GET", "/api/grid", nil, nil))
}

func TestHTTPHandler(t *testing.T) {
	client, _ := newBackedClient(t, 2, 2)
	handler := client.HTTPHandler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/mcp", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/mcp", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	for _, tool := range []string{"grid_state", "get_cell", "set_cell", "reset_grid", "grid_stats"} {
		assert.Contains(t, rec.Body.String(), `"`+tool+`"`)
	}

	notification := `{"jsonrpc":"2.0","method":"notifications/initialized"}`
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/mcp", strings.NewReader(notification)))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestIntArg(t *testing.T) {
	args := map[string]interface{}{
		"f":   float64(3),
		"i":   4,
		"n":   json.Number("5"),
		"big": float64(1 << 40),
		"nil": nil,
	}

	v, ok, err := intArg(args, "f")
	assert.Equal(t, 3, v)
	assert.True(t, ok)
	assert.NoError(t, err)

	v, _, _ = intArg(args, "i")
	assert.Equal(t, 4, v)
	v, _, _ = intArg(args, "n")
	assert.Equal(t, 5, v)

	_, ok, err = intArg(args, "big")
	assert.True(t, ok)
	assert.Error(t, err)

	_, ok, err = intArg(args, "nil")
	assert.False(t, ok)
	assert.NoError(t, err)

	_, ok, _ = intArg(nil, "missing")
	assert.False(t, ok)
}

func TestCellChar(t *testing.T) {
	assert.Equal(t, byte('.'), cellChar(0))
	assert.Equal(t, byte('#'), cellChar(1))
	assert.Equal(t, byte('7'), cellChar(7))
	assert.Equal(t, byte('+'), cellChar(12))
}

func updateMsg(index int, value grid.Cell) protocol.Update {
	return protocol.Update{Index: index, Value: value}
}
