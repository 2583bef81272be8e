package grid

import "fmt"

// Cell is the value held by a single grid position.
type Cell int

const (
	DefaultRows   = 50
	DefaultCols   = 50
	DefaultStates = 2

	// Upper bound on rows and cols, keeps snapshots small enough for one frame.
	MaxDimension = 500
)

// Store holds the shared cell array
type Store struct {
	rows   int
	cols   int
	states int
	cells  []Cell
}

// New creates an all-zero store of rows x cols cells where each cell may hold
// one of states values.
func New(rows, cols, states int) (*Store, error) {
	if rows <= 0 || cols <= 0 || rows > MaxDimension || cols > MaxDimension {
		return nil, fmt.Errorf("grid dimensions must be within 1..%d, got %dx%d", MaxDimension, rows, cols)
	}
	if states < 2 {
		return nil, fmt.Errorf("grid needs at least 2 cell states, got %d", states)
	}

	return &Store{
		rows:   rows,
		cols:   cols,
		states: states,
		cells:  make([]Cell, rows*cols),
	}, nil
}

// NewDefault creates the standard 50x50 binary store.
func NewDefault() *Store {
	s, _ := New(DefaultRows, DefaultCols, DefaultStates)
	return s
}

// Len returns the number of cells
func (s *Store) Len() int { return len(s.cells) }

// Rows returns the number of rows
func (s *Store) Rows() int { return s.rows }

// Cols returns the number of columns
func (s *Store) Cols() int { return s.cols }

// States returns the number of allowed cell values
func (s *Store) States() int { return s.states }

// ValidValue reports whether v is one of the allowed cell values.
func (s *Store) ValidValue(v Cell) bool {
	return v >= 0 && int(v) < s.states
}

// State returns a copy of every cell in row-major order.
func (s *Store) State() []Cell {
	out := make([]Cell, len(s.cells))
	copy(out, s.cells)
	return out
}

// Get returns the cell at index and whether index was in range.
func (s *Store) Get(index int) (Cell, bool) {
	if index < 0 || index >= len(s.cells) {
		return 0, false
	}
	return s.cells[index], true
}

// SetCell writes value at index. It returns false, leaving the grid
// untouched, when index is out of range.
func (s *Store) SetCell(index int, value Cell) bool {
	if index < 0 || index >= len(s.cells) {
		return false
	}
	s.cells[index] = value
	return true
}

// Reset zeroes every cell
func (s *Store) Reset() {
	clear(s.cells)
}

// Count returns how many cells currently hold value.
func (s *Store) Count(value Cell) int {
	n := 0
	for _, c := range s.cells {
		if c == value {
			n++
		}
	}
	return n
}
