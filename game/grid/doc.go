// Package grid provides the authoritative cell store for the shared board.
//
// The grid package implements:
//   - A fixed-size, row-major array of cells
//   - Bounds-checked reads and writes
//   - Unconditional reset to the zero state
//
// Core Types:
//
// Store owns the cell array. Its length is fixed at construction and never
// changes for the lifetime of the value. Cell is a small integer drawn from
// the closed set [0, States()).
//
// Usage:
//
//	store := grid.New(grid.DefaultRows, grid.DefaultCols, grid.DefaultStates)
//
//	if store.SetCell(10, 1) {
//		// mutation happened, tell the others
//	}
//
//	snapshot := store.State()
//	store.Reset()
//
// Concurrency:
//
// Store has no locking of its own. Callers serialize access; the hub holds a
// single mutex across mutation and fan-out.
package grid
