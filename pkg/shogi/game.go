package shogi

import (
	"fmt"
	"math/rand"
)

type TerminationReason string

// Stalemate is scored as a loss for the side without moves.
const (
	NotTerminated TerminationReason = ""
	Checkmate     TerminationReason = "checkmate"
	Stalemate     TerminationReason = "stalemate"
	MaxMoves      TerminationReason = "max_moves"
	Sennichite    TerminationReason = "sennichite"
	Resignation   TerminationReason = "resignation"
)

const (
	DefaultMaxMoves   = 500
	sennichiteRepeats = 4
)

// HistoryEntry is one played move together with what is needed to undo it
// and to write it down in KIF.
type HistoryEntry struct {
	Move     Move
	Piece    Piece
	Captured Piece
	prev     Position
}

// Game is a shogi game in progress. A Game is not safe for concurrent use;
// use Clone to hand an independent copy to another goroutine.
type Game struct {
	pos        Position
	startSFEN  string
	moveCount  int
	maxMoves   int
	history    []HistoryEntry
	repetition map[PositionKey]int

	over   bool
	winner Color
	reason TerminationReason

	seed int64
	rng  *rand.Rand
}

// NewGame returns a game at the standard opening position.
func NewGame() *Game {
	g := &Game{maxMoves: DefaultMaxMoves}
	g.Seed(0)
	g.Reset()
	return g
}

// NewGameFromSFEN starts a game from a position record. The record's move
// number counts towards the move limit. A position in which the side to move
// has no legal move is loaded as already finished.
func NewGameFromSFEN(sfen string) (*Game, error) {
	pos, ply, err := ParseSFEN(sfen)
	if err != nil {
		return nil, err
	}
	g := &Game{maxMoves: DefaultMaxMoves}
	g.Seed(0)
	g.load(pos, ply-1)
	if !g.pos.hasLegalMove(true) {
		g.evaluateTermination(g.pos.turn.Opponent())
	}
	return g, nil
}

// Reset restores the standard opening position and clears all history.
func (g *Game) Reset() {
	g.load(StandardPosition(), 0)
}

func (g *Game) load(pos Position, moveCount int) {
	g.pos = pos
	g.moveCount = moveCount
	g.startSFEN = pos.SFEN(moveCount + 1)
	g.history = nil
	g.repetition = map[PositionKey]int{pos.Key(): 1}
	g.over = false
	g.winner = NoColor
	g.reason = NotTerminated
}

// SetMaxMoves sets the move count at which the game is drawn. Values <= 0
// restore the default.
func (g *Game) SetMaxMoves(n int) {
	if n <= 0 {
		n = DefaultMaxMoves
	}
	g.maxMoves = n
}

func (g *Game) MaxMoves() int {
	return g.maxMoves
}

// Seed reseeds the random source used by RandomMove. It never affects legality.
func (g *Game) Seed(seed int64) {
	g.seed = seed
	g.rng = rand.New(rand.NewSource(seed))
}

func (g *Game) Position() Position {
	return g.pos
}

func (g *Game) Turn() Color {
	return g.pos.turn
}

// MoveCount is the number of moves played, including those implied by the
// starting record's move number.
func (g *Game) MoveCount() int {
	return g.moveCount
}

func (g *Game) IsOver() bool {
	return g.over
}

// Winner returns NoColor while the game runs or after a draw.
func (g *Game) Winner() Color {
	return g.winner
}

func (g *Game) Reason() TerminationReason {
	return g.reason
}

func (g *Game) StartSFEN() string {
	return g.startSFEN
}

// SFEN serializes the current position.
func (g *Game) SFEN() string {
	return g.pos.SFEN(g.moveCount + 1)
}

func (g *Game) BoardStateHash() PositionKey {
	return g.pos.Key()
}

// RepetitionCount returns how often the current position has occurred.
func (g *Game) RepetitionCount() int {
	return g.repetition[g.pos.Key()]
}

func (g *Game) History() []HistoryEntry {
	out := make([]HistoryEntry, len(g.history))
	copy(out, g.history)
	return out
}

// Moves returns the played moves in order.
func (g *Game) Moves() []Move {
	out := make([]Move, len(g.history))
	for i, entry := range g.history {
		out[i] = entry.Move
	}
	return out
}

func (g *Game) LegalMoves() []Move {
	if g.over {
		return nil
	}
	return g.pos.LegalMoves()
}

func (g *Game) IsLegalMove(m Move) bool {
	return !g.over && m != nil && g.pos.IsLegalMove(m)
}

func (g *Game) IsInCheck(c Color) bool {
	return g.pos.IsInCheck(c)
}

// ApplyMove plays m for the side to move. It returns an error wrapping
// ErrIllegalMove when m is not legal or the game is already over.
func (g *Game) ApplyMove(m Move) (Step, error) {
	if m == nil {
		return Step{}, fmt.Errorf("nil move: %w", ErrInvalidArgument)
	}
	if err := validateMove(m); err != nil {
		return Step{}, err
	}
	if g.over {
		return Step{}, fmt.Errorf("%s: game is over: %w", m, ErrIllegalMove)
	}
	if !g.pos.IsLegalMove(m) {
		return Step{}, fmt.Errorf("%s: %w", m, ErrIllegalMove)
	}

	mover := g.pos.turn
	entry := HistoryEntry{Move: m, prev: g.pos}
	switch m := m.(type) {
	case BoardMove:
		entry.Piece = g.pos.board[m.FromRow][m.FromCol]
	case DropMove:
		entry.Piece = Piece{Type: m.Piece, Color: mover}
	}
	entry.Captured = g.pos.apply(m)
	g.history = append(g.history, entry)
	g.moveCount++
	g.repetition[g.pos.Key()]++

	g.evaluateTermination(mover)

	info := MoveResult{
		Captured: entry.Captured,
		Check:    g.pos.IsInCheck(g.pos.turn),
		Reason:   g.reason,
		Winner:   g.winner,
	}
	return Step{
		Observation: g.Observation(),
		Reward:      g.reward(mover),
		Done:        g.over,
		Info:        info,
	}, nil
}

func (g *Game) evaluateTermination(mover Color) {
	switch {
	case !g.pos.hasLegalMove(true):
		g.over = true
		g.winner = mover
		if g.pos.IsInCheck(g.pos.turn) {
			g.reason = Checkmate
		} else {
			g.reason = Stalemate
		}
	case g.moveCount >= g.maxMoves:
		g.over = true
		g.reason = MaxMoves
	case g.repetition[g.pos.Key()] >= sennichiteRepeats:
		g.over = true
		g.reason = Sennichite
	}
}

// Resign ends the game as a loss for the side to move.
func (g *Game) Resign() error {
	if g.over {
		return fmt.Errorf("resign: game is over: %w", ErrIllegalMove)
	}
	g.over = true
	g.winner = g.pos.turn.Opponent()
	g.reason = Resignation
	return nil
}

// Undo takes back the last move. It returns false when there is nothing to
// take back.
func (g *Game) Undo() bool {
	if len(g.history) == 0 {
		return false
	}
	key := g.pos.Key()
	if g.repetition[key] <= 1 {
		delete(g.repetition, key)
	} else {
		g.repetition[key]--
	}
	last := g.history[len(g.history)-1]
	g.history = g.history[:len(g.history)-1]
	g.pos = last.prev
	g.moveCount--
	g.over = false
	g.winner = NoColor
	g.reason = NotTerminated
	return true
}

// Reward returns +1 if perspective won, -1 if it lost and 0 otherwise.
func (g *Game) Reward(perspective Color) (float64, error) {
	if !perspective.Valid() {
		return 0, fmt.Errorf("reward perspective %s: %w", perspective, ErrInvalidArgument)
	}
	return g.reward(perspective), nil
}

func (g *Game) reward(perspective Color) float64 {
	if !g.over || g.winner == NoColor {
		return 0
	}
	if g.winner == perspective {
		return 1
	}
	return -1
}

// Clone returns an independent copy. The copy's random source is reseeded
// from the original seed and the number of moves played.
func (g *Game) Clone() *Game {
	clone := *g
	clone.history = make([]HistoryEntry, len(g.history))
	copy(clone.history, g.history)
	clone.repetition = make(map[PositionKey]int, len(g.repetition))
	for key, n := range g.repetition {
		clone.repetition[key] = n
	}
	clone.rng = rand.New(rand.NewSource(g.seed + int64(len(g.history))))
	return &clone
}

// TestMove plays m on a clone and leaves g untouched.
func (g *Game) TestMove(m Move) (*Game, Step, error) {
	clone := g.Clone()
	step, err := clone.ApplyMove(m)
	if err != nil {
		return nil, Step{}, err
	}
	return clone, step, nil
}

// RandomMove picks a uniformly random legal move from the seeded source.
func (g *Game) RandomMove() (Move, error) {
	moves := g.LegalMoves()
	if len(moves) == 0 {
		return nil, ErrNoLegalMoves
	}
	return moves[g.rng.Intn(len(moves))], nil
}
