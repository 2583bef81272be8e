// Package hub implements the connection hub for the shared grid.
//
// The hub package implements:
//   - Connection registration with an initial grid snapshot
//   - Routing of inbound update and reset messages to the grid store
//   - Fan-out of accepted changes to every other connection
//   - Removal of connections on disconnect or failed send
//
// Architecture:
//
// Hub owns a grid.Store and a session.Registry of Connection values, both
// injected or created at construction. A single mutex guards the two together
// so that a mutation and its broadcast form one unit: if update A is applied
// before update B, every connection that receives both sees A first. Join
// takes the snapshot under the same lock, so a new connection never observes
// a half-applied change and receives every later update after its init.
//
// Connection.Send must not block. The websocket transport enqueues into a
// bounded per-client queue and reports a full queue as an error; the hub
// treats any send error as a disconnect.
//
// Message Protocol:
//
//   - On join: {type: "init", state: [...]} to the joining connection
//   - {type: "update", index, value}: applied, then sent to all but the sender
//   - {type: "reset"}: applied, then sent to everyone including the sender
//   - Anything else is dropped without a reply
//
// Usage:
//
//	h := hub.New(grid.NewDefault(), hub.WithLogger(logger))
//
//	// per connection, from the transport goroutine
//	err := h.Serve(conn, conn.Receive)
//
// Connection Lifecycle:
//
// 1. Serve calls Join: the connection is registered and sent a snapshot
// 2. Each inbound frame goes through HandleMessage
// 3. On read error, panic, or prior removal, Serve returns and Leave runs
// 4. Leave is idempotent; a connection is closed exactly once
package hub
