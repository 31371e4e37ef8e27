package shogi

// offset is expressed in the mover's frame: dr > 0 means forward.
type offset struct {
	dr, dc int
}

var (
	kingSteps   = []offset{{1, -1}, {1, 0}, {1, 1}, {0, -1}, {0, 1}, {-1, -1}, {-1, 0}, {-1, 1}}
	goldSteps   = []offset{{1, -1}, {1, 0}, {1, 1}, {0, -1}, {0, 1}, {-1, 0}}
	silverSteps = []offset{{1, -1}, {1, 0}, {1, 1}, {-1, -1}, {-1, 1}}
	knightSteps = []offset{{2, -1}, {2, 1}}
	pawnSteps   = []offset{{1, 0}}
	orthoSteps  = []offset{{1, 0}, {-1, 0}, {0, -1}, {0, 1}}
	diagSteps   = []offset{{1, -1}, {1, 1}, {-1, -1}, {-1, 1}}
	lanceRays   = []offset{{1, 0}}
)

func stepsFor(t PieceType) []offset {
	switch t {
	case King:
		return kingSteps
	case Gold, ProPawn, ProLance, ProKnight, ProSilver:
		return goldSteps
	case Silver:
		return silverSteps
	case Knight:
		return knightSteps
	case Pawn:
		return pawnSteps
	case Horse:
		return orthoSteps
	case Dragon:
		return diagSteps
	default:
		return nil
	}
}

func raysFor(t PieceType) []offset {
	switch t {
	case Lance:
		return lanceRays
	case Bishop, Horse:
		return diagSteps
	case Rook, Dragon:
		return orthoSteps
	default:
		return nil
	}
}

func forward(c Color) int {
	if c == Black {
		return -1
	}
	return 1
}

// forEachTarget calls fn for every square the piece on (row, col) attacks,
// including squares occupied by its own side.
func (p *Position) forEachTarget(row, col int, piece Piece, fn func(r, c int) bool) {
	fwd := forward(piece.Color)
	for _, o := range stepsFor(piece.Type) {
		r, c := row+o.dr*fwd, col+o.dc
		if r < 0 || r > 8 || c < 0 || c > 8 {
			continue
		}
		if !fn(r, c) {
			return
		}
	}
	for _, o := range raysFor(piece.Type) {
		r, c := row, col
		for {
			r, c = r+o.dr*fwd, c+o.dc
			if r < 0 || r > 8 || c < 0 || c > 8 {
				break
			}
			if !fn(r, c) {
				return
			}
			if !p.board[r][c].Empty() {
				break
			}
		}
	}
}

// PseudoLegalMoves returns the moves of the piece on (row, col) that obey
// its movement pattern, ignoring whether the own king is left in check.
// An empty square yields no moves.
func (p *Position) PseudoLegalMoves(row, col int) ([]Move, error) {
	if err := checkSquare(row, col); err != nil {
		return nil, err
	}
	var moves []Move
	p.appendPseudoLegal(&moves, row, col)
	return moves, nil
}

func (p *Position) appendPseudoLegal(moves *[]Move, row, col int) {
	piece := p.board[row][col]
	if piece.Empty() {
		return
	}
	p.forEachTarget(row, col, piece, func(r, c int) bool {
		target := p.board[r][c]
		if !target.Empty() && target.Color == piece.Color {
			return true
		}
		base := BoardMove{FromRow: row, FromCol: col, ToRow: r, ToCol: c}
		if CanPromoteSpecificPiece(piece, row, r) {
			if !MustPromoteSpecificPiece(piece, r) {
				*moves = append(*moves, base)
			}
			base.Promote = true
			*moves = append(*moves, base)
			return true
		}
		*moves = append(*moves, base)
		return true
	})
}

// IsSquareAttacked reports whether any piece of color by reaches (row, col).
func (p *Position) IsSquareAttacked(row, col int, by Color) bool {
	if checkSquare(row, col) != nil {
		return false
	}
	for r := 0; r < 9; r++ {
		for c := 0; c < 9; c++ {
			piece := p.board[r][c]
			if piece.Empty() || piece.Color != by {
				continue
			}
			hit := false
			p.forEachTarget(r, c, piece, func(tr, tc int) bool {
				if tr == row && tc == col {
					hit = true
					return false
				}
				return true
			})
			if hit {
				return true
			}
		}
	}
	return false
}

// FindKing returns the square of the king of color c.
func (p *Position) FindKing(c Color) (Square, bool) {
	for r := 0; r < 9; r++ {
		for col := 0; col < 9; col++ {
			piece := p.board[r][col]
			if piece.Type == King && piece.Color == c {
				return Square{Row: r, Col: col}, true
			}
		}
	}
	return Square{}, false
}

// IsInCheck reports whether the king of c is attacked. A side without a
// king is never in check.
func (p *Position) IsInCheck(c Color) bool {
	king, ok := p.FindKing(c)
	if !ok {
		return false
	}
	return p.IsSquareAttacked(king.Row, king.Col, c.Opponent())
}

// IsLegalPosition reports whether the side that just moved left its own
// king safe.
func (p *Position) IsLegalPosition() bool {
	return !p.IsInCheck(p.turn.Opponent())
}
