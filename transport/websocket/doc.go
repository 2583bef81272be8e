// Package websocket provides the WebSocket transport for the shared grid.
//
// The websocket package implements:
//   - Upgrading HTTP requests and attaching them to a hub.Hub
//   - One frame per protocol message, in the order the hub queued them
//   - Ping/pong keepalive with read deadlines
//   - An origin allow-list for browser clients
//
// Architecture:
//
// Each accepted connection becomes a Client with two goroutines. The read
// pump runs hub.Serve, which joins the client, hands every inbound frame to
// the hub and leaves when the socket fails or closes. The write pump drains
// the client's buffered send queue onto the socket and sends pings.
//
// Backpressure:
//
// Client.Send never blocks. When the send queue is full the client is
// considered dead, the hub drops it and the write pump closes the socket.
// A slow reader never stalls the broadcast to other clients.
//
// Usage:
//
//	h := hub.New(grid.NewDefault())
//	ws := websocket.NewServer(h, websocket.Options{}, logger)
//	router.Handle("/ws", ws)
//
//	// on shutdown
//	h.Close()
//	ws.Wait()
package websocket
