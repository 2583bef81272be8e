package service

import (
	"time"

	"github.com/wricardo/mcp-training/gridshare/game/grid"
)

// GridView is a full copy of the grid with its shape
type GridView struct {
	Rows   int         `json:"rows"`
	Cols   int         `json:"cols"`
	States int         `json:"states"`
	State  []grid.Cell `json:"state"`
}

// At returns the cell at row, col. Callers must stay within Rows and Cols.
func (g *GridView) At(row, col int) grid.Cell {
	return g.State[row*g.Cols+col]
}

// CellInfo describes one cell
type CellInfo struct {
	Index int       `json:"index"`
	Row   int       `json:"row"`
	Col   int       `json:"col"`
	Value grid.Cell `json:"value"`
}

// ConnectionInfo describes a joined WebSocket client
type ConnectionInfo struct {
	ID           string    `json:"id"`
	JoinedAt     time.Time `json:"joined_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}
