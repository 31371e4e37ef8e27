package shogi_test

import (
	"errors"
	"testing"

	"shogi/pkg/shogi"
)

var aigakariMoves = []string{
	"2g2f", "8c8d", "2f2e", "8d8e", "6i7h", "4a3b",
	"2e2d", "2c2d", "2h2d", "5a5b", "2d2b+", "3a2b",
}

var aigakariSFENs = []string{
	"lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b - 1",
	"lnsgkgsnl/1r5b1/ppppppppp/9/9/7P1/PPPPPPP1P/1B5R1/LNSGKGSNL w - 2",
	"lnsgkgsnl/1r5b1/p1ppppppp/1p7/9/7P1/PPPPPPP1P/1B5R1/LNSGKGSNL b - 3",
	"lnsgkgsnl/1r5b1/p1ppppppp/1p7/7P1/9/PPPPPPP1P/1B5R1/LNSGKGSNL w - 4",
	"lnsgkgsnl/1r5b1/p1ppppppp/9/1p5P1/9/PPPPPPP1P/1B5R1/LNSGKGSNL b - 5",
	"lnsgkgsnl/1r5b1/p1ppppppp/9/1p5P1/9/PPPPPPP1P/1BG4R1/LNS1KGSNL w - 6",
	"lnsgk1snl/1r4gb1/p1ppppppp/9/1p5P1/9/PPPPPPP1P/1BG4R1/LNS1KGSNL b - 7",
	"lnsgk1snl/1r4gb1/p1ppppppp/7P1/1p7/9/PPPPPPP1P/1BG4R1/LNS1KGSNL w - 8",
	"lnsgk1snl/1r4gb1/p1ppppp1p/7p1/1p7/9/PPPPPPP1P/1BG4R1/LNS1KGSNL b p 9",
	"lnsgk1snl/1r4gb1/p1ppppp1p/7R1/1p7/9/PPPPPPP1P/1BG6/LNS1KGSNL w Pp 10",
	"lnsg2snl/1r2k1gb1/p1ppppp1p/7R1/1p7/9/PPPPPPP1P/1BG6/LNS1KGSNL b Pp 11",
	"lnsg2snl/1r2k1g+R1/p1ppppp1p/9/1p7/9/PPPPPPP1P/1BG6/LNS1KGSNL w BPp 12",
	"lnsg3nl/1r2k1gs1/p1ppppp1p/9/1p7/9/PPPPPPP1P/1BG6/LNS1KGSNL b BPrp 13",
}

func play(t *testing.T, g *shogi.Game, moves ...string) shogi.Step {
	t.Helper()
	var step shogi.Step
	for _, text := range moves {
		m, err := shogi.ParseMove(text)
		if err != nil {
			t.Fatalf("parse %s: %v", text, err)
		}
		step, err = g.ApplyMove(m)
		if err != nil {
			t.Fatalf("apply %s at move %d: %v", text, g.MoveCount()+1, err)
		}
	}
	return step
}

func mustGame(t *testing.T, sfen string) *shogi.Game {
	t.Helper()
	g, err := shogi.NewGameFromSFEN(sfen)
	if err != nil {
		t.Fatalf("new game %q: %v", sfen, err)
	}
	return g
}

func TestGameAigakariSequence(t *testing.T) {
	g := shogi.NewGame()
	if got := g.SFEN(); got != aigakariSFENs[0] {
		t.Fatalf("start: got %s want %s", got, aigakariSFENs[0])
	}
	for i, text := range aigakariMoves {
		play(t, g, text)
		if got := g.SFEN(); got != aigakariSFENs[i+1] {
			t.Fatalf("after %s: got %s want %s", text, got, aigakariSFENs[i+1])
		}
		if g.IsOver() {
			t.Fatalf("game over after %s", text)
		}
	}
	hist := g.History()
	if captured := hist[10].Captured; captured.Type != shogi.Bishop || captured.Color != shogi.White {
		t.Fatalf("2d2b+ should capture the white bishop, got %v", captured)
	}
	if hist[10].Piece.Type != shogi.Rook {
		t.Fatalf("2d2b+ moved %v, want rook", hist[10].Piece)
	}
}

func TestApplyMoveRejectsIllegal(t *testing.T) {
	g := shogi.NewGame()
	before := g.SFEN()
	for _, text := range []string{"7g7e", "8c8d", "5i5g", "P*5e", "2h2b"} {
		m, err := shogi.ParseMove(text)
		if err != nil {
			t.Fatalf("parse %s: %v", text, err)
		}
		if _, err := g.ApplyMove(m); !errors.Is(err, shogi.ErrIllegalMove) {
			t.Fatalf("%s: expected ErrIllegalMove, got %v", text, err)
		}
	}
	if g.SFEN() != before || g.MoveCount() != 0 || len(g.History()) != 0 {
		t.Fatal("illegal moves must not change the game")
	}
}

func TestApplyMoveMalformed(t *testing.T) {
	g := shogi.NewGame()
	if _, err := g.ApplyMove(shogi.BoardMove{FromRow: 6, FromCol: 2, ToRow: -1, ToCol: 2}); !errors.Is(err, shogi.ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
	if _, err := g.ApplyMove(shogi.DropMove{ToRow: 4, ToCol: 4, Piece: shogi.King}); !errors.Is(err, shogi.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := g.ApplyMove(nil); !errors.Is(err, shogi.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestCheckmateByDrop(t *testing.T) {
	g := mustGame(t, "8k/9/8P/9/9/9/9/9/4K4 b G 1")
	step := play(t, g, "G*1b")
	if !step.Done || !g.IsOver() {
		t.Fatal("G*1b should end the game")
	}
	if g.Reason() != shogi.Checkmate || g.Winner() != shogi.Black {
		t.Fatalf("got %s/%s, want checkmate won by sente", g.Reason(), g.Winner())
	}
	if step.Reward != 1 || !step.Info.Check {
		t.Fatalf("step reward %v check %v", step.Reward, step.Info.Check)
	}
	if r, _ := g.Reward(shogi.White); r != -1 {
		t.Fatalf("gote reward %v, want -1", r)
	}
	if len(g.LegalMoves()) != 0 {
		t.Fatal("a finished game has no legal moves")
	}
	if _, err := g.RandomMove(); !errors.Is(err, shogi.ErrNoLegalMoves) {
		t.Fatalf("expected ErrNoLegalMoves, got %v", err)
	}
	m, _ := shogi.ParseMove("1a2a")
	if _, err := g.ApplyMove(m); !errors.Is(err, shogi.ErrIllegalMove) {
		t.Fatalf("move after game over: expected ErrIllegalMove, got %v", err)
	}
}

func TestNoMovesWithoutCheckLoses(t *testing.T) {
	g := mustGame(t, "8k/6S2/7G1/9/9/9/9/9/4K4 b - 1")
	step := play(t, g, "5i5h")
	if !step.Done {
		t.Fatal("gote has no legal moves and the game should end")
	}
	if g.Reason() != shogi.Stalemate || g.Winner() != shogi.Black {
		t.Fatalf("got %s/%s, want stalemate won by sente", g.Reason(), g.Winner())
	}
	if step.Info.Check {
		t.Fatal("gote is not in check")
	}
}

func TestNewGameFromFinishedPosition(t *testing.T) {
	g := mustGame(t, "8k/8G/8P/9/9/9/9/9/4K4 w - 2")
	if !g.IsOver() || g.Reason() != shogi.Checkmate || g.Winner() != shogi.Black {
		t.Fatalf("got over=%v %s/%s, want checkmate won by sente", g.IsOver(), g.Reason(), g.Winner())
	}
	g = mustGame(t, "8k/6S2/7G1/9/9/9/9/4K4/9 w - 2")
	if !g.IsOver() || g.Reason() != shogi.Stalemate || g.Winner() != shogi.Black {
		t.Fatalf("got over=%v %s/%s, want stalemate won by sente", g.IsOver(), g.Reason(), g.Winner())
	}
	if g := mustGame(t, "8k/6S2/7G1/9/9/9/9/4K4/9 b - 2"); g.IsOver() {
		t.Fatalf("sente to move should be playable, got %s", g.Reason())
	}
}

func TestSennichite(t *testing.T) {
	g := shogi.NewGame()
	cycle := []string{"4i4h", "6a6b", "4h4i", "6b6a"}
	for round := 1; round <= 3; round++ {
		for i, text := range cycle {
			step := play(t, g, text)
			last := round == 3 && i == len(cycle)-1
			if step.Done != last {
				t.Fatalf("round %d move %s: done=%v", round, text, step.Done)
			}
		}
		if got := g.RepetitionCount(); got != round+1 {
			t.Fatalf("round %d: repetition count %d, want %d", round, got, round+1)
		}
	}
	if g.Reason() != shogi.Sennichite || g.Winner() != shogi.NoColor {
		t.Fatalf("got %s/%s, want sennichite draw", g.Reason(), g.Winner())
	}
	for _, c := range []shogi.Color{shogi.Black, shogi.White} {
		if r, err := g.Reward(c); err != nil || r != 0 {
			t.Fatalf("%s reward %v (%v), want 0", c, r, err)
		}
	}
}

func TestMaxMoves(t *testing.T) {
	g := shogi.NewGame()
	g.SetMaxMoves(4)
	step := play(t, g, "4i4h", "6a6b", "4h4i")
	if step.Done {
		t.Fatal("game ended early")
	}
	step = play(t, g, "6b6a")
	if !step.Done || g.Reason() != shogi.MaxMoves || g.Winner() != shogi.NoColor {
		t.Fatalf("got done=%v %s/%s, want max_moves draw", step.Done, g.Reason(), g.Winner())
	}
	if step.Reward != 0 {
		t.Fatalf("reward %v, want 0", step.Reward)
	}
}

func TestMoveNumberCountsTowardsLimit(t *testing.T) {
	g := mustGame(t, "lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b - 499")
	if g.MoveCount() != 498 {
		t.Fatalf("move count %d, want 498", g.MoveCount())
	}
	play(t, g, "7g7f")
	if g.IsOver() {
		t.Fatal("move 499 is within the limit")
	}
	play(t, g, "3c3d")
	if g.Reason() != shogi.MaxMoves {
		t.Fatalf("reason %s, want max_moves", g.Reason())
	}
}

func TestRewardPerspective(t *testing.T) {
	g := shogi.NewGame()
	if _, err := g.Reward(shogi.NoColor); !errors.Is(err, shogi.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if r, err := g.Reward(shogi.Black); err != nil || r != 0 {
		t.Fatalf("running game reward %v (%v), want 0", r, err)
	}
}

func TestBoardStateHash(t *testing.T) {
	a := shogi.NewGame()
	b := shogi.NewGame()
	play(t, a, "7g7f", "3c3d", "2g2f")
	play(t, b, "2g2f", "3c3d", "7g7f")
	if a.BoardStateHash() != b.BoardStateHash() {
		t.Fatal("transposed move orders should give equal hashes")
	}
	c := shogi.NewGame()
	play(t, c, "7g7f", "3c3d")
	if a.BoardStateHash() == c.BoardStateHash() {
		t.Fatal("different positions should give different hashes")
	}

	withHand := mustGame(t, "4k4/9/9/9/9/9/9/9/4K4 b P 1")
	without := mustGame(t, "4k4/9/9/9/9/9/9/9/4K4 b - 1")
	whiteToMove := mustGame(t, "4k4/9/9/9/9/9/9/9/4K4 w P 1")
	if withHand.BoardStateHash() == without.BoardStateHash() {
		t.Fatal("hands are part of the hash")
	}
	if withHand.BoardStateHash() == whiteToMove.BoardStateHash() {
		t.Fatal("side to move is part of the hash")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	g := shogi.NewGame()
	play(t, g, "7g7f")
	clone := g.Clone()
	play(t, clone, "3c3d", "8h2b+")
	if g.MoveCount() != 1 || len(g.History()) != 1 {
		t.Fatalf("original changed: %d moves", g.MoveCount())
	}
	if g.SFEN() == clone.SFEN() {
		t.Fatal("clone shares position with original")
	}
	if g.RepetitionCount() != 1 {
		t.Fatalf("original repetition count %d", g.RepetitionCount())
	}
}

func TestTestMoveLeavesGameUntouched(t *testing.T) {
	g := shogi.NewGame()
	m, _ := shogi.ParseMove("7g7f")
	next, step, err := g.TestMove(m)
	if err != nil {
		t.Fatalf("test move: %v", err)
	}
	if step.Done || next.MoveCount() != 1 {
		t.Fatalf("unexpected step %+v", step.Info)
	}
	if g.MoveCount() != 0 || g.SFEN() != shogi.StandardSFEN {
		t.Fatal("TestMove modified the game")
	}
	bad, _ := shogi.ParseMove("7g7e")
	if _, _, err := g.TestMove(bad); !errors.Is(err, shogi.ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove, got %v", err)
	}
}

func TestUndo(t *testing.T) {
	g := shogi.NewGame()
	if g.Undo() {
		t.Fatal("nothing to undo")
	}
	play(t, g, aigakariMoves...)
	for i := len(aigakariMoves) - 1; i >= 0; i-- {
		if !g.Undo() {
			t.Fatalf("undo %d failed", i)
		}
		if got := g.SFEN(); got != aigakariSFENs[i] {
			t.Fatalf("undo to %d: got %s want %s", i, got, aigakariSFENs[i])
		}
	}
	if g.RepetitionCount() != 1 {
		t.Fatalf("repetition count %d after full undo", g.RepetitionCount())
	}
}

func TestUndoReopensFinishedGame(t *testing.T) {
	g := mustGame(t, "8k/9/8P/9/9/9/9/9/4K4 b G 1")
	play(t, g, "G*1b")
	g.Undo()
	if g.IsOver() || g.Winner() != shogi.NoColor || g.Reason() != shogi.NotTerminated {
		t.Fatal("undo should reopen the game")
	}
	pos := g.Position()
	if pos.HandCount(shogi.Black, shogi.Gold) != 1 {
		t.Fatal("gold should be back in hand")
	}
}

func TestResign(t *testing.T) {
	g := shogi.NewGame()
	play(t, g, "7g7f")
	if err := g.Resign(); err != nil {
		t.Fatalf("resign: %v", err)
	}
	if !g.IsOver() || g.Winner() != shogi.Black || g.Reason() != shogi.Resignation {
		t.Fatalf("over=%v winner=%s reason=%s", g.IsOver(), g.Winner(), g.Reason())
	}
	if r, _ := g.Reward(shogi.White); r != -1 {
		t.Fatalf("white reward %v, want -1", r)
	}
	if err := g.Resign(); !errors.Is(err, shogi.ErrIllegalMove) {
		t.Fatalf("second resign: %v", err)
	}
	m, _ := shogi.ParseMove("3c3d")
	if _, err := g.ApplyMove(m); !errors.Is(err, shogi.ErrIllegalMove) {
		t.Fatalf("move after resign: %v", err)
	}
}

func TestResetClearsHistory(t *testing.T) {
	g := shogi.NewGame()
	play(t, g, "7g7f", "3c3d")
	g.Reset()
	if g.MoveCount() != 0 || len(g.Moves()) != 0 || g.SFEN() != shogi.StandardSFEN {
		t.Fatal("reset did not restore the opening")
	}
}

func TestSeededRandomMovesRepeat(t *testing.T) {
	run := func() []shogi.Move {
		g := shogi.NewGame()
		g.Seed(42)
		for i := 0; i < 30 && !g.IsOver(); i++ {
			m, err := g.RandomMove()
			if err != nil {
				t.Fatalf("random move: %v", err)
			}
			if _, err := g.ApplyMove(m); err != nil {
				t.Fatalf("apply %s: %v", m, err)
			}
		}
		return g.Moves()
	}
	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("move %d differs: %s vs %s", i, a[i], b[i])
		}
	}
}

var fullMaterial = map[shogi.PieceType]int{
	shogi.Pawn:   18,
	shogi.Lance:  4,
	shogi.Knight: 4,
	shogi.Silver: 4,
	shogi.Gold:   4,
	shogi.Bishop: 2,
	shogi.Rook:   2,
	shogi.King:   2,
}

// TestRandomGameInvariants plays seeded random games and checks the
// properties every legal game keeps.
func TestRandomGameInvariants(t *testing.T) {
	for seed := int64(1); seed <= 4; seed++ {
		g := shogi.NewGame()
		g.Seed(seed)
		g.SetMaxMoves(160)
		for !g.IsOver() {
			m, err := g.RandomMove()
			if err != nil {
				t.Fatalf("seed %d: %v", seed, err)
			}
			mover := g.Turn()
			step, err := g.ApplyMove(m)
			if err != nil {
				t.Fatalf("seed %d apply %s: %v", seed, m, err)
			}
			pos := g.Position()
			if !pos.IsLegalPosition() || pos.IsInCheck(mover) {
				t.Fatalf("seed %d: %s left the mover in check", seed, m)
			}
			for kind, want := range fullMaterial {
				if got := pos.Material()[kind]; got != want {
					t.Fatalf("seed %d after %s: %d %s, want %d", seed, m, got, kind, want)
				}
			}
			reparsed, ply, err := shogi.ParseSFEN(g.SFEN())
			if err != nil || ply != g.MoveCount()+1 || reparsed.Key() != pos.Key() {
				t.Fatalf("seed %d: SFEN round trip failed for %s (%v)", seed, g.SFEN(), err)
			}
			packed, err := pos.Pack256()
			if err != nil {
				t.Fatalf("seed %d: pack: %v", seed, err)
			}
			unpacked, err := shogi.UnpackPosition256(packed)
			if err != nil || unpacked.Key() != pos.Key() {
				t.Fatalf("seed %d: pack round trip failed for %s (%v)", seed, pos.Key(), err)
			}
			if step.Done != g.IsOver() {
				t.Fatalf("seed %d: step done %v, game over %v", seed, step.Done, g.IsOver())
			}
		}
		if g.Reason() == shogi.NotTerminated {
			t.Fatalf("seed %d: finished game without a reason", seed)
		}
		if g.MoveCount() > 160 {
			t.Fatalf("seed %d: %d moves past the limit", seed, g.MoveCount())
		}
	}
}
