package selfplay_test

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"shogi/pkg/selfplay"
	"shogi/pkg/shogi"
)

const fakeEngineEnv = "SELFPLAY_FAKE_ENGINE"

func TestMain(m *testing.M) {
	if mode := os.Getenv(fakeEngineEnv); mode != "" {
		fakeEngine(mode)
		os.Exit(0)
	}
	os.Exit(m.Run())
}

// fakeEngine plays the first legal move, or resigns in "resign" mode.
func fakeEngine(mode string) {
	scanner := bufio.NewScanner(os.Stdin)
	var g *shogi.Game
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "usi":
			fmt.Println("id name first-move")
			fmt.Println("usiok")
		case "isready":
			fmt.Println("readyok")
		case "position":
			g = fakePosition(fields)
		case "go":
			if mode == "resign" || g == nil || len(g.LegalMoves()) == 0 {
				fmt.Println("bestmove resign")
				continue
			}
			fmt.Println("info depth 1 score cp 15")
			fmt.Println("bestmove " + shogi.FormatMove(g.LegalMoves()[0]))
		case "quit":
			return
		}
	}
}

func fakePosition(fields []string) *shogi.Game {
	var g *shogi.Game
	rest := fields[2:]
	if fields[1] == "startpos" {
		g = shogi.NewGame()
	} else {
		var err error
		if g, err = shogi.NewGameFromSFEN(strings.Join(fields[2:6], " ")); err != nil {
			return nil
		}
		rest = fields[6:]
	}
	if len(rest) > 0 && rest[0] == "moves" {
		for _, text := range rest[1:] {
			m, err := shogi.ParseMove(text)
			if err != nil {
				return nil
			}
			if _, err := g.ApplyMove(m); err != nil {
				return nil
			}
		}
	}
	return g
}

func enginePlayer(t *testing.T, mode string) string {
	t.Helper()
	t.Setenv(fakeEngineEnv, mode)
	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("executable: %v", err)
	}
	return "usi:" + exe
}

func TestRunWithEnginePlayer(t *testing.T) {
	cfg := selfplay.DefaultConfig
	cfg.Games = 2
	cfg.Workers = 1
	cfg.MaxMoves = 30
	cfg.MoveTimeMs = 1
	cfg.Players = selfplay.Players{Sente: enginePlayer(t, "play"), Gote: "random"}
	var results []selfplay.Result
	summary, err := selfplay.Run(context.Background(), cfg, func(res selfplay.Result) error {
		results = append(results, res)
		return nil
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Total != 2 {
		t.Fatalf("total %d", summary.Total)
	}
	for _, res := range results {
		g := res.Game
		if !g.IsOver() || len(g.Moves()) == 0 {
			t.Fatalf("game over=%v with %d moves", g.IsOver(), len(g.Moves()))
		}
		if res.Sente != "first-move" || res.Gote != "random" {
			t.Fatalf("players %q/%q", res.Sente, res.Gote)
		}
		if len(res.Evals) != (len(g.Moves())+1)/2 {
			t.Fatalf("%d evals for %d moves", len(res.Evals), len(g.Moves()))
		}
		for _, eval := range res.Evals {
			if eval.Ply%2 != 1 || eval.ScoreType != "cp" || eval.ScoreValue != 15 {
				t.Fatalf("unexpected eval %+v", eval)
			}
		}
		rec, err := res.Record("e", res.Seed)
		if err != nil {
			t.Fatalf("record: %v", err)
		}
		if rec.SenteName != res.Sente || len(rec.MoveEvals) != len(res.Evals) {
			t.Fatalf("record %+v", rec)
		}
	}
}

func TestEngineResignation(t *testing.T) {
	ctx := context.Background()
	cfg := selfplay.DefaultConfig
	cfg.MoveTimeMs = 1
	sente, err := selfplay.NewPlayer(ctx, enginePlayer(t, "resign"), cfg)
	if err != nil {
		t.Fatalf("start engine: %v", err)
	}
	defer sente.Close()
	if sente.Name() != "first-move" {
		t.Fatalf("name %q", sente.Name())
	}
	m, err := selfplay.PlayMatch(ctx, 1, 50, sente, selfplay.Random{})
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	g := m.Game
	if len(m.Evals) != 0 {
		t.Fatalf("evals %+v", m.Evals)
	}
	if g.Reason() != shogi.Resignation || g.Winner() != shogi.White || len(g.Moves()) != 0 {
		t.Fatalf("reason %s winner %s moves %d", g.Reason(), g.Winner(), len(g.Moves()))
	}
}

func TestNewPlayerUnknown(t *testing.T) {
	if _, err := selfplay.NewPlayer(context.Background(), "human", selfplay.DefaultConfig); !selfplay.IsInvalidConfig(err) {
		t.Fatalf("expected InvalidConfig, got %v", err)
	}
}
