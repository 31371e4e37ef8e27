package shogi

// InPromotionZone reports whether row lies in the three ranks nearest the
// opponent of c.
func InPromotionZone(c Color, row int) bool {
	if c == Black {
		return row >= 0 && row <= 2
	}
	return row >= 6 && row <= 8
}

// ranksToEdge counts how many ranks remain in front of a piece of color c
// standing on row.
func ranksToEdge(c Color, row int) int {
	if c == Black {
		return row
	}
	return 8 - row
}

// CanPromoteSpecificPiece reports whether a move of piece from fromRow to
// toRow may promote.
func CanPromoteSpecificPiece(piece Piece, fromRow, toRow int) bool {
	if !piece.Type.CanPromote() {
		return false
	}
	return InPromotionZone(piece.Color, fromRow) || InPromotionZone(piece.Color, toRow)
}

// MustPromoteSpecificPiece reports whether the unpromoted piece would have
// no further move from toRow.
func MustPromoteSpecificPiece(piece Piece, toRow int) bool {
	return deadEnd(piece.Type, piece.Color, toRow)
}

func deadEnd(t PieceType, c Color, row int) bool {
	switch t {
	case Pawn, Lance:
		return ranksToEdge(c, row) < 1
	case Knight:
		return ranksToEdge(c, row) < 2
	default:
		return false
	}
}

func (p *Position) hasPawnOnFile(c Color, col int) bool {
	for r := 0; r < 9; r++ {
		piece := p.board[r][col]
		if piece.Type == Pawn && piece.Color == c {
			return true
		}
	}
	return false
}

// CanDropSpecificPiece reports whether color may place a piece of type t on
// (row, col): the square is empty, the piece keeps a move, no second
// unpromoted pawn lands on a file and a pawn drop does not mate. Hand
// contents and own-king safety are not checked here.
func (p *Position) CanDropSpecificPiece(t PieceType, row, col int, color Color) bool {
	if checkSquare(row, col) != nil || !t.Droppable() || !color.Valid() {
		return false
	}
	return p.canDrop(t, row, col, color, true)
}

func (p *Position) canDrop(t PieceType, row, col int, color Color, checkMate bool) bool {
	if !p.board[row][col].Empty() {
		return false
	}
	if deadEnd(t, color, row) {
		return false
	}
	if t == Pawn {
		if p.hasPawnOnFile(color, col) {
			return false
		}
		if checkMate && p.isUchifuzume(row, col, color) {
			return false
		}
	}
	return true
}

// IsUchifuzume reports whether a pawn dropped by color on (row, col) would
// checkmate the opponent immediately.
func (p *Position) IsUchifuzume(row, col int, color Color) bool {
	if checkSquare(row, col) != nil || !color.Valid() || !p.board[row][col].Empty() {
		return false
	}
	return p.isUchifuzume(row, col, color)
}

func (p *Position) isUchifuzume(row, col int, color Color) bool {
	king, ok := p.FindKing(color.Opponent())
	if !ok {
		return false
	}
	if king.Row != row+forward(color) || king.Col != col {
		return false
	}
	next := *p
	next.board[row][col] = Piece{Type: Pawn, Color: color}
	next.turn = color.Opponent()
	if !next.IsInCheck(next.turn) {
		return false
	}
	return !next.hasLegalMove(false)
}

// leavesKingSafe plays m on a copy and reports whether the mover's king is
// not attacked afterwards.
func (p *Position) leavesKingSafe(m Move) bool {
	next := *p
	mover := next.turn
	next.apply(m)
	return !next.IsInCheck(mover)
}

// LegalMoves returns every legal move for the side to move in a fixed
// order: board moves by source square, then drops by square.
func (p *Position) LegalMoves() []Move {
	return p.legalMoves(true, false)
}

func (p *Position) hasLegalMove(checkMate bool) bool {
	return len(p.legalMoves(checkMate, true)) > 0
}

func (p *Position) legalMoves(checkMate, firstOnly bool) []Move {
	var moves []Move
	var pseudo []Move
	for r := 0; r < 9; r++ {
		for c := 0; c < 9; c++ {
			piece := p.board[r][c]
			if piece.Empty() || piece.Color != p.turn {
				continue
			}
			pseudo = pseudo[:0]
			p.appendPseudoLegal(&pseudo, r, c)
			for _, m := range pseudo {
				if p.leavesKingSafe(m) {
					moves = append(moves, m)
					if firstOnly {
						return moves
					}
				}
			}
		}
	}
	hand := p.hands[p.turn]
	if hand.Empty() {
		return moves
	}
	for r := 0; r < 9; r++ {
		for c := 0; c < 9; c++ {
			if !p.board[r][c].Empty() {
				continue
			}
			for _, t := range DroppableTypes {
				if hand[t] == 0 || !p.canDrop(t, r, c, p.turn, checkMate) {
					continue
				}
				m := DropMove{ToRow: r, ToCol: c, Piece: t}
				if p.leavesKingSafe(m) {
					moves = append(moves, m)
					if firstOnly {
						return moves
					}
				}
			}
		}
	}
	return moves
}

// IsLegalMove reports whether m may be played by the side to move.
func (p *Position) IsLegalMove(m Move) bool {
	switch m := m.(type) {
	case BoardMove:
		if checkSquare(m.FromRow, m.FromCol) != nil || checkSquare(m.ToRow, m.ToCol) != nil {
			return false
		}
		piece := p.board[m.FromRow][m.FromCol]
		if piece.Empty() || piece.Color != p.turn {
			return false
		}
		var pseudo []Move
		p.appendPseudoLegal(&pseudo, m.FromRow, m.FromCol)
		for _, candidate := range pseudo {
			if candidate == Move(m) {
				return p.leavesKingSafe(m)
			}
		}
		return false
	case DropMove:
		if checkSquare(m.ToRow, m.ToCol) != nil || !m.Piece.Droppable() {
			return false
		}
		if p.hands[p.turn][m.Piece] == 0 {
			return false
		}
		if !p.canDrop(m.Piece, m.ToRow, m.ToCol, p.turn, true) {
			return false
		}
		return p.leavesKingSafe(m)
	default:
		return false
	}
}
