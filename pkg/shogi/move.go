package shogi

import "fmt"

// Move is either a BoardMove or a DropMove. Both are comparable values and
// may be used as map keys.
type Move interface {
	// To returns the destination square.
	To() Square
	String() string
	isMove()
}

type BoardMove struct {
	FromRow, FromCol int
	ToRow, ToCol     int
	Promote          bool
}

func (m BoardMove) From() Square { return Square{Row: m.FromRow, Col: m.FromCol} }
func (m BoardMove) To() Square   { return Square{Row: m.ToRow, Col: m.ToCol} }
func (m BoardMove) String() string {
	return FormatMove(m)
}
func (BoardMove) isMove() {}

type DropMove struct {
	ToRow, ToCol int
	Piece        PieceType
}

func (m DropMove) To() Square { return Square{Row: m.ToRow, Col: m.ToCol} }
func (m DropMove) String() string {
	return FormatMove(m)
}
func (DropMove) isMove() {}

func validateMove(m Move) error {
	switch m := m.(type) {
	case BoardMove:
		if err := checkSquare(m.FromRow, m.FromCol); err != nil {
			return err
		}
		return checkSquare(m.ToRow, m.ToCol)
	case DropMove:
		if !m.Piece.Droppable() {
			return fmt.Errorf("drop of %s: %w", m.Piece, ErrInvalidArgument)
		}
		return checkSquare(m.ToRow, m.ToCol)
	default:
		return fmt.Errorf("unknown move type %T: %w", m, ErrInvalidArgument)
	}
}

// MoveResult describes what a single applied move did.
type MoveResult struct {
	Captured Piece
	// Check reports whether the side now to move is in check.
	Check  bool
	Reason TerminationReason
	Winner Color
}

// Step is returned by Game.ApplyMove.
type Step struct {
	Observation Observation
	// Reward is from the point of view of the side that just moved.
	Reward float64
	Done   bool
	Info   MoveResult
}
