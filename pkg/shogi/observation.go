package shogi

// Observation plane layout.
const (
	NumPlanes = 46

	blackPiecePlanes = 0
	whitePiecePlanes = blackPiecePlanes + NumPieceTypes
	blackHandPlanes  = whitePiecePlanes + NumPieceTypes
	whiteHandPlanes  = blackHandPlanes + 7
	TurnPlane        = whiteHandPlanes + 7
	MoveCountPlane   = TurnPlane + 1
	blackCheckPlane  = MoveCountPlane + 1
	whiteCheckPlane  = blackCheckPlane + 1

	// handScale normalizes hand counts; no side holds more than 18 of a kind.
	handScale = 18
)

// Observation is the learner-facing encoding of a position. Planes are
// indexed [plane][row][col].
type Observation [NumPlanes][9][9]float32

// PiecePlane returns the plane index holding pieces of type t and color c.
func PiecePlane(t PieceType, c Color) int {
	base := blackPiecePlanes
	if c == White {
		base = whitePiecePlanes
	}
	return base + int(t) - 1
}

// HandPlane returns the plane index holding the hand count of t for c.
func HandPlane(t PieceType, c Color) int {
	base := blackHandPlanes
	if c == White {
		base = whiteHandPlanes
	}
	for i, kind := range DroppableTypes {
		if kind == t {
			return base + i
		}
	}
	return -1
}

// Observation encodes the current game position.
func (g *Game) Observation() Observation {
	return EncodePosition(&g.pos, g.moveCount, g.maxMoves)
}

// EncodePosition builds the observation of pos. moveCount is normalized by
// maxMoves into MoveCountPlane.
func EncodePosition(pos *Position, moveCount, maxMoves int) Observation {
	var obs Observation
	for r := 0; r < 9; r++ {
		for c := 0; c < 9; c++ {
			piece := pos.board[r][c]
			if piece.Empty() {
				continue
			}
			obs[PiecePlane(piece.Type, piece.Color)][r][c] = 1
		}
	}
	for _, color := range []Color{Black, White} {
		for _, t := range DroppableTypes {
			count := pos.hands[color][t]
			if count > 0 {
				fill(&obs[HandPlane(t, color)], float32(count)/handScale)
			}
		}
	}
	if pos.turn == Black {
		fill(&obs[TurnPlane], 1)
	}
	if maxMoves > 0 {
		fill(&obs[MoveCountPlane], float32(moveCount)/float32(maxMoves))
	}
	if pos.IsInCheck(Black) {
		fill(&obs[blackCheckPlane], 1)
	}
	if pos.IsInCheck(White) {
		fill(&obs[whiteCheckPlane], 1)
	}
	return obs
}

func fill(plane *[9][9]float32, v float32) {
	for r := range plane {
		for c := range plane[r] {
			plane[r][c] = v
		}
	}
}
