package shogi

import "fmt"

// Hand holds the captured piece counts of one side, indexed by base PieceType.
type Hand [Rook + 1]int

func (h *Hand) Count(t PieceType) int {
	if !t.Droppable() {
		return 0
	}
	return h[t]
}

func (h *Hand) Empty() bool {
	for _, t := range DroppableTypes {
		if h[t] > 0 {
			return false
		}
	}
	return true
}

type Board [9][9]Piece

// Position is a board with both hands and the side to move. It holds no
// pointers, so assignment copies it completely.
type Position struct {
	board Board
	hands [2]Hand
	turn  Color
}

// NewPosition returns an empty board with Black to move.
func NewPosition() Position {
	return Position{turn: Black}
}

var backRank = [9]PieceType{Lance, Knight, Silver, Gold, King, Gold, Silver, Knight, Lance}

// StandardPosition returns the even-game opening layout.
func StandardPosition() Position {
	pos := NewPosition()
	for col, t := range backRank {
		pos.board[0][col] = Piece{Type: t, Color: White}
		pos.board[8][col] = Piece{Type: t, Color: Black}
	}
	pos.board[1][1] = Piece{Type: Rook, Color: White}
	pos.board[1][7] = Piece{Type: Bishop, Color: White}
	pos.board[7][1] = Piece{Type: Bishop, Color: Black}
	pos.board[7][7] = Piece{Type: Rook, Color: Black}
	for col := 0; col < 9; col++ {
		pos.board[2][col] = Piece{Type: Pawn, Color: White}
		pos.board[6][col] = Piece{Type: Pawn, Color: Black}
	}
	return pos
}

func (p *Position) Turn() Color {
	return p.turn
}

func (p *Position) SetTurn(c Color) error {
	if !c.Valid() {
		return fmt.Errorf("turn %d: %w", c, ErrInvalidArgument)
	}
	p.turn = c
	return nil
}

func (p *Position) PieceAt(row, col int) (Piece, error) {
	if err := checkSquare(row, col); err != nil {
		return Piece{}, err
	}
	return p.board[row][col], nil
}

func (p *Position) SetPiece(row, col int, piece Piece) error {
	if err := checkSquare(row, col); err != nil {
		return err
	}
	p.board[row][col] = piece
	return nil
}

func (p *Position) at(row, col int) Piece {
	return p.board[row][col]
}

// Hand returns a copy of the hand of c.
func (p *Position) Hand(c Color) Hand {
	return p.hands[c]
}

func (p *Position) HandCount(c Color, t PieceType) int {
	return p.hands[c].Count(t)
}

func (p *Position) SetHandCount(c Color, t PieceType, n int) error {
	if !c.Valid() {
		return fmt.Errorf("hand color %d: %w", c, ErrInvalidArgument)
	}
	if !t.Droppable() || n < 0 {
		return fmt.Errorf("hand %s x%d: %w", t, n, ErrInvalidArgument)
	}
	p.hands[c][t] = n
	return nil
}

// apply plays m without any legality checks and returns the captured piece.
func (p *Position) apply(m Move) Piece {
	var captured Piece
	switch m := m.(type) {
	case BoardMove:
		piece := p.board[m.FromRow][m.FromCol]
		captured = p.board[m.ToRow][m.ToCol]
		if !captured.Empty() {
			p.hands[p.turn][captured.Type.Base()]++
		}
		if m.Promote {
			piece = piece.Promote()
		}
		p.board[m.FromRow][m.FromCol] = Piece{}
		p.board[m.ToRow][m.ToCol] = piece
	case DropMove:
		p.hands[p.turn][m.Piece]--
		p.board[m.ToRow][m.ToCol] = Piece{Type: m.Piece, Color: p.turn}
	}
	p.turn = p.turn.Opponent()
	return captured
}

// Material returns the number of pieces of each base type on the board and
// in both hands. It is constant across legal play.
func (p *Position) Material() map[PieceType]int {
	counts := make(map[PieceType]int)
	for r := 0; r < 9; r++ {
		for c := 0; c < 9; c++ {
			if piece := p.board[r][c]; !piece.Empty() {
				counts[piece.Type.Base()]++
			}
		}
	}
	for _, color := range []Color{Black, White} {
		for _, t := range DroppableTypes {
			counts[t] += p.hands[color][t]
		}
	}
	return counts
}

// PositionKey identifies a position by board, hands and side to move.
type PositionKey string

// Key returns the SFEN text of the position without the ply field.
func (p *Position) Key() PositionKey {
	return PositionKey(p.boardSFEN() + " " + p.turnSFEN() + " " + p.handsSFEN())
}
