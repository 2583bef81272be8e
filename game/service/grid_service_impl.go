package service

import (
	"context"
	"fmt"

	"github.com/wricardo/mcp-training/gridshare/game/grid"
	"github.com/wricardo/mcp-training/gridshare/game/hub"
	"github.com/wricardo/mcp-training/gridshare/game/protocol"
)

// gridServiceImpl implements GridService on top of a hub
type gridServiceImpl struct {
	hub *hub.Hub
}

// NewGridService creates a grid service backed by h
func NewGridService(h *hub.Hub) GridService {
	return &gridServiceImpl{hub: h}
}

func (s *gridServiceImpl) GetGrid(ctx context.Context) (*GridView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, cols, states := s.hub.Dimensions()
	return &GridView{
		Rows:   rows,
		Cols:   cols,
		States: states,
		State:  s.hub.Snapshot(),
	}, nil
}

func (s *gridServiceImpl) GetCell(ctx context.Context, index int) (*CellInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	value, ok := s.hub.Cell(index)
	if !ok {
		return nil, s.outOfRange(index)
	}
	return s.cellInfo(index, value), nil
}

// SetCell applies an update as if a client had sent it, broadcasting it to
// every WebSocket client.
func (s *gridServiceImpl) SetCell(ctx context.Context, index int, value grid.Cell) (*CellInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, ok := s.hub.Cell(index); !ok {
		return nil, s.outOfRange(index)
	}
	if _, _, states := s.hub.Dimensions(); value < 0 || int(value) >= states {
		return nil, fmt.Errorf("%w: %d (allowed 0..%d)", ErrInvalidValue, value, states-1)
	}

	if !s.hub.Apply(nil, protocol.Update{Index: index, Value: value}) {
		return nil, fmt.Errorf("update of cell %d was not applied", index)
	}
	return s.cellInfo(index, value), nil
}

func (s *gridServiceImpl) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.hub.Apply(nil, protocol.Reset{})
	return nil
}

func (s *gridServiceImpl) Stats(ctx context.Context) (*hub.Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats := s.hub.Stats()
	return &stats, nil
}

func (s *gridServiceImpl) Connections(ctx context.Context) ([]ConnectionInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries := s.hub.Connections()
	infos := make([]ConnectionInfo, 0, len(entries))
	for _, e := range entries {
		infos = append(infos, ConnectionInfo{
			ID:           e.ID,
			JoinedAt:     e.JoinedAt,
			LastActiveAt: e.LastActiveAt,
		})
	}
	return infos, nil
}

func (s *gridServiceImpl) cellInfo(index int, value grid.Cell) *CellInfo {
	_, cols, _ := s.hub.Dimensions()
	return &CellInfo{
		Index: index,
		Row:   index / cols,
		Col:   index % cols,
		Value: value,
	}
}

func (s *gridServiceImpl) outOfRange(index int) error {
	rows, cols, _ := s.hub.Dimensions()
	return fmt.Errorf("%w: %d (grid has %d cells)", ErrCellOutOfRange, index, rows*cols)
}
