package actionspace_test

import (
	"errors"
	"testing"

	"shogi/pkg/actionspace"
	"shogi/pkg/shogi"
)

func TestTotalActions(t *testing.T) {
	if got := actionspace.TotalActions(); got != 13527 {
		t.Fatalf("total actions: got %d want 13527", got)
	}
	if actionspace.NumActions != 13527 {
		t.Fatalf("NumActions: %d", actionspace.NumActions)
	}
}

func TestIndexRoundTrip(t *testing.T) {
	seen := make(map[shogi.Move]int, actionspace.TotalActions())
	for i := 0; i < actionspace.TotalActions(); i++ {
		m, err := actionspace.IndexToMove(i)
		if err != nil {
			t.Fatalf("index %d: %v", i, err)
		}
		if prev, ok := seen[m]; ok {
			t.Fatalf("indices %d and %d share move %s", prev, i, m)
		}
		seen[m] = i
		idx, err := actionspace.MoveToIndex(m)
		if err != nil {
			t.Fatalf("move %s: %v", m, err)
		}
		if idx != i {
			t.Fatalf("move %s: got index %d want %d", m, idx, i)
		}
	}
}

func TestKnownIndices(t *testing.T) {
	cases := []struct {
		move shogi.Move
		want int
	}{
		{shogi.BoardMove{FromRow: 0, FromCol: 0, ToRow: 0, ToCol: 1}, 0},
		{shogi.BoardMove{FromRow: 0, FromCol: 0, ToRow: 0, ToCol: 1, Promote: true}, 1},
		{shogi.BoardMove{FromRow: 0, FromCol: 1, ToRow: 0, ToCol: 0}, 160},
		{shogi.BoardMove{FromRow: 8, FromCol: 8, ToRow: 8, ToCol: 7, Promote: true}, 12959},
		{shogi.DropMove{ToRow: 0, ToCol: 0, Piece: shogi.Pawn}, 12960},
		{shogi.DropMove{ToRow: 0, ToCol: 0, Piece: shogi.Rook}, 12966},
		{shogi.DropMove{ToRow: 8, ToCol: 8, Piece: shogi.Rook}, 13526},
	}
	for _, tc := range cases {
		got, err := actionspace.MoveToIndex(tc.move)
		if err != nil {
			t.Fatalf("%s: %v", tc.move, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got %d want %d", tc.move, got, tc.want)
		}
	}
}

func TestIndexOutOfRange(t *testing.T) {
	for _, idx := range []int{-1, 13527, 1 << 20} {
		if _, err := actionspace.IndexToMove(idx); !errors.Is(err, actionspace.ErrIndexOutOfRange) {
			t.Fatalf("index %d: expected ErrIndexOutOfRange, got %v", idx, err)
		}
	}
}

func TestUnrepresentableMoves(t *testing.T) {
	for _, m := range []shogi.Move{
		nil,
		shogi.BoardMove{FromRow: 4, FromCol: 4, ToRow: 4, ToCol: 4},
		shogi.BoardMove{FromRow: 9, FromCol: 0, ToRow: 0, ToCol: 0},
		shogi.DropMove{ToRow: 0, ToCol: 0, Piece: shogi.King},
		shogi.DropMove{ToRow: 0, ToCol: 0, Piece: shogi.Dragon},
	} {
		if _, err := actionspace.MoveToIndex(m); !errors.Is(err, shogi.ErrInvalidArgument) {
			t.Fatalf("%v: expected ErrInvalidArgument, got %v", m, err)
		}
	}
}

func TestLegalMaskMatchesLegalMoves(t *testing.T) {
	g := shogi.NewGame()
	g.Seed(7)
	for ply := 0; ply < 60 && !g.IsOver(); ply++ {
		moves := g.LegalMoves()
		mask, err := actionspace.LegalMask(moves)
		if err != nil {
			t.Fatalf("mask: %v", err)
		}
		count := 0
		for idx, legal := range mask {
			if !legal {
				continue
			}
			count++
			m, err := actionspace.IndexToMove(idx)
			if err != nil {
				t.Fatalf("index %d: %v", idx, err)
			}
			if !g.IsLegalMove(m) {
				t.Fatalf("mask marks illegal move %s", m)
			}
		}
		if count != len(moves) {
			t.Fatalf("mask has %d moves, game has %d", count, len(moves))
		}
		indices, err := actionspace.LegalIndices(g)
		if err != nil || len(indices) != len(moves) {
			t.Fatalf("legal indices: %v (%d)", err, len(indices))
		}
		m, err := g.RandomMove()
		if err != nil {
			t.Fatalf("random move: %v", err)
		}
		if _, err := g.ApplyMove(m); err != nil {
			t.Fatalf("apply %s: %v", m, err)
		}
	}
}

func TestConcurrentLookups(t *testing.T) {
	done := make(chan int)
	for w := 0; w < 4; w++ {
		go func(w int) {
			sum := 0
			for i := w; i < actionspace.TotalActions(); i += 4 {
				m, err := actionspace.IndexToMove(i)
				if err != nil {
					done <- -1
					return
				}
				idx, _ := actionspace.MoveToIndex(m)
				sum += idx
			}
			done <- sum
		}(w)
	}
	total := 0
	for w := 0; w < 4; w++ {
		n := <-done
		if n < 0 {
			t.Fatal("lookup failed")
		}
		total += n
	}
	n := actionspace.TotalActions()
	if total != n*(n-1)/2 {
		t.Fatalf("sum of indices %d, want %d", total, n*(n-1)/2)
	}
}
