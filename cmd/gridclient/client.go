package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/mcp-training/gridshare/game/grid"
	"github.com/wricardo/mcp-training/gridshare/game/protocol"
	"github.com/wricardo/mcp-training/gridshare/game/service"
)

const (
	requestTimeout = 10 * time.Second
	// How long Reset waits for the server to echo the reset back.
	confirmWait = 5 * time.Second
)

type client struct {
	baseURL    string
	httpClient *http.Client
	dialer     *websocket.Dialer
}

func newClient(baseURL string) *client {
	return &client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: requestTimeout},
		dialer:     websocket.DefaultDialer,
	}
}

func (c *client) wsURL() string {
	switch {
	case strings.HasPrefix(c.baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(c.baseURL, "https://") + "/ws"
	case strings.HasPrefix(c.baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(c.baseURL, "http://") + "/ws"
	default:
		return c.baseURL + "/ws"
	}
}

// Grid fetches the grid with its dimensions over REST.
func (c *client) Grid(ctx context.Context) (*service.GridView, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/grid", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET /api/grid: %s", resp.Status)
	}

	var view service.GridView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return nil, fmt.Errorf("decode grid: %w", err)
	}
	return &view, nil
}

// join dials the WebSocket endpoint and consumes the init snapshot.
func (c *client) join(ctx context.Context) (*websocket.Conn, protocol.Init, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.wsURL(), nil)
	if err != nil {
		return nil, protocol.Init{}, fmt.Errorf("dial %s: %w", c.wsURL(), err)
	}

	msg, err := readMessage(conn, time.Now().Add(requestTimeout))
	if err != nil {
		conn.Close()
		return nil, protocol.Init{}, err
	}
	init, ok := msg.(protocol.Init)
	if !ok {
		conn.Close()
		return nil, protocol.Init{}, fmt.Errorf("expected init, got %s", msg.Kind())
	}
	return conn, init, nil
}

func readMessage(conn *websocket.Conn, deadline time.Time) (protocol.Message, error) {
	conn.SetReadDeadline(deadline)
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return protocol.Parse(data)
}

func send(conn *websocket.Conn, msg protocol.Message) error {
	frame, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, frame)
}

func closeConn(conn *websocket.Conn) {
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	conn.Close()
}

// Set sends an update. The server never echoes updates to their sender and
// drops invalid ones silently, so the value is checked against the grid's
// state count and the index against the snapshot length before sending.
func (c *client) Set(ctx context.Context, index int, value grid.Cell) error {
	view, err := c.Grid(ctx)
	if err != nil {
		return err
	}
	if int(value) >= view.States {
		return fmt.Errorf("value %d outside grid states 0..%d", value, view.States-1)
	}

	conn, init, err := c.join(ctx)
	if err != nil {
		return err
	}
	defer closeConn(conn)

	if index < 0 || index >= len(init.State) {
		return fmt.Errorf("index %d outside grid of %d cells", index, len(init.State))
	}
	return send(conn, protocol.Update{Index: index, Value: value})
}

// Reset sends a reset and waits for the server to broadcast it back.
func (c *client) Reset(ctx context.Context) error {
	conn, _, err := c.join(ctx)
	if err != nil {
		return err
	}
	defer closeConn(conn)

	if err := send(conn, protocol.Reset{}); err != nil {
		return err
	}

	deadline := time.Now().Add(confirmWait)
	for {
		msg, err := readMessage(conn, deadline)
		if err != nil {
			var netErr interface{ Timeout() bool }
			if errors.As(err, &netErr) && netErr.Timeout() {
				return fmt.Errorf("reset not confirmed within %s", confirmWait)
			}
			if errors.Is(err, protocol.ErrMalformed) || errors.Is(err, protocol.ErrUnknownType) {
				continue
			}
			return err
		}
		if _, ok := msg.(protocol.Reset); ok {
			return nil
		}
	}
}

// Watch prints the snapshot summary and then one line per message until ctx
// is cancelled or the server closes the connection.
func (c *client) Watch(ctx context.Context, w io.Writer) error {
	conn, init, err := c.join(ctx)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		closeConn(conn)
	}()

	filled := 0
	for _, v := range init.State {
		if v != 0 {
			filled++
		}
	}
	fmt.Fprintf(w, "init: %d cells, %d set\n", len(init.State), filled)

	for {
		conn.SetReadDeadline(time.Time{})
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}

		msg, err := protocol.Parse(data)
		if err != nil {
			fmt.Fprintf(w, "unparseable: %s\n", data)
			continue
		}
		switch m := msg.(type) {
		case protocol.Update:
			fmt.Fprintf(w, "update: cell %d = %d\n", m.Index, m.Value)
		case protocol.Reset:
			fmt.Fprintln(w, "reset")
		default:
			fmt.Fprintf(w, "%s\n", msg.Kind())
		}
	}
}

func parseSetArgs(rawIndex, rawValue string) (int, grid.Cell, error) {
	index, err := strconv.Atoi(rawIndex)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid index %q", rawIndex)
	}
	value, err := strconv.Atoi(rawValue)
	if err != nil || value < 0 {
		return 0, 0, fmt.Errorf("invalid value %q", rawValue)
	}
	return index, grid.Cell(value), nil
}

// renderGrid prints one line per row, '.' for empty and '#' for set cells.
func renderGrid(w io.Writer, view *service.GridView) error {
	var b strings.Builder
	for row := 0; row < view.Rows; row++ {
		for col := 0; col < view.Cols; col++ {
			switch v := view.At(row, col); {
			case v == 0:
				b.WriteByte('.')
			case v == 1:
				b.WriteByte('#')
			case v < 10:
				b.WriteByte(byte('0' + v))
			default:
				b.WriteByte('+')
			}
		}
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}
