// Package service provides the request-level operations on the shared grid.
//
// The service package implements:
//   - Reading the whole grid or a single cell
//   - Setting a cell with explicit validation errors
//   - Resetting the grid
//   - Hub and connection statistics
//
// Architecture:
//
// The WebSocket protocol talks to hub.Hub directly and discards bad input
// silently. The REST API and the MCP tools go through GridService instead,
// which checks requests up front and reports what was wrong. Every mutation
// still goes through Hub.Apply, so WebSocket clients see REST and MCP edits
// in the same order as their own.
//
// Usage:
//
//	h := hub.New(grid.NewDefault())
//	svc := service.NewGridService(h)
//
//	cell, err := svc.SetCell(ctx, 42, 1)
//	if errors.Is(err, service.ErrCellOutOfRange) {
//		// 400
//	}
package service
