package service

import (
	"context"
	"errors"

	"github.com/wricardo/mcp-training/gridshare/game/grid"
	"github.com/wricardo/mcp-training/gridshare/game/hub"
)

var (
	ErrCellOutOfRange = errors.New("cell index out of range")
	ErrInvalidValue   = errors.New("invalid cell value")
)

// GridService defines all grid operations available outside the WebSocket protocol
type GridService interface {
	GetGrid(ctx context.Context) (*GridView, error)
	GetCell(ctx context.Context, index int) (*CellInfo, error)
	SetCell(ctx context.Context, index int, value grid.Cell) (*CellInfo, error)
	Reset(ctx context.Context) error

	Stats(ctx context.Context) (*hub.Stats, error)
	Connections(ctx context.Context) ([]ConnectionInfo, error)
}
