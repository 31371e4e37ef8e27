// Package actionspace maps shogi moves to a dense integer index and back.
//
// Board moves come first: every (from, to) pair with from != to, each in an
// unpromoted and a promoted variant. Drops follow, for every square and
// every droppable piece in P, L, N, S, G, B, R order.
package actionspace

import (
	"errors"
	"fmt"
	"sync"

	"shogi/pkg/shogi"
)

const (
	numSquares    = 81
	numBoardMoves = numSquares * (numSquares - 1) * 2
	numDropMoves  = numSquares * 7
	NumActions    = numBoardMoves + numDropMoves
)

var ErrIndexOutOfRange = errors.New("action index out of range")

var dropOrder = []shogi.PieceType{
	shogi.Pawn,
	shogi.Lance,
	shogi.Knight,
	shogi.Silver,
	shogi.Gold,
	shogi.Bishop,
	shogi.Rook,
}

type table struct {
	moves   []shogi.Move
	indices map[shogi.Move]int
}

var (
	once   sync.Once
	shared *table
)

func load() *table {
	once.Do(func() {
		shared = build()
	})
	return shared
}

func build() *table {
	t := &table{
		moves:   make([]shogi.Move, 0, NumActions),
		indices: make(map[shogi.Move]int, NumActions),
	}
	add := func(m shogi.Move) {
		t.indices[m] = len(t.moves)
		t.moves = append(t.moves, m)
	}
	for from := 0; from < numSquares; from++ {
		for to := 0; to < numSquares; to++ {
			if from == to {
				continue
			}
			for _, promote := range []bool{false, true} {
				add(shogi.BoardMove{
					FromRow: from / 9,
					FromCol: from % 9,
					ToRow:   to / 9,
					ToCol:   to % 9,
					Promote: promote,
				})
			}
		}
	}
	for sq := 0; sq < numSquares; sq++ {
		for _, piece := range dropOrder {
			add(shogi.DropMove{ToRow: sq / 9, ToCol: sq % 9, Piece: piece})
		}
	}
	return t
}

// TotalActions returns the size of the action space.
func TotalActions() int {
	return len(load().moves)
}

// MoveToIndex returns the index of m. Moves with off-board squares, a
// zero-length board move or a non-droppable drop piece have no index.
func MoveToIndex(m shogi.Move) (int, error) {
	if m == nil {
		return 0, fmt.Errorf("nil move: %w", shogi.ErrInvalidArgument)
	}
	idx, ok := load().indices[m]
	if !ok {
		return 0, fmt.Errorf("move %v has no action index: %w", m, shogi.ErrInvalidArgument)
	}
	return idx, nil
}

// IndexToMove returns the move stored at idx.
func IndexToMove(idx int) (shogi.Move, error) {
	t := load()
	if idx < 0 || idx >= len(t.moves) {
		return nil, fmt.Errorf("index %d not in [0, %d): %w", idx, len(t.moves), ErrIndexOutOfRange)
	}
	return t.moves[idx], nil
}

// LegalMask returns a TotalActions-sized mask with true at the index of
// every move in moves.
func LegalMask(moves []shogi.Move) ([]bool, error) {
	mask := make([]bool, TotalActions())
	for _, m := range moves {
		idx, err := MoveToIndex(m)
		if err != nil {
			return nil, err
		}
		mask[idx] = true
	}
	return mask, nil
}

// LegalIndices returns the indices of the game's legal moves in the order
// LegalMoves returns them.
func LegalIndices(g *shogi.Game) ([]int, error) {
	moves := g.LegalMoves()
	out := make([]int, len(moves))
	for i, m := range moves {
		idx, err := MoveToIndex(m)
		if err != nil {
			return nil, err
		}
		out[i] = idx
	}
	return out, nil
}
