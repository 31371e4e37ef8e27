// Package selfplay plays batches of games between random or USI engine
// players on a worker pool.
package selfplay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"shogi/pkg/record"
	"shogi/pkg/shogi"
)

// Match is a finished game with its players and the scores they reported.
type Match struct {
	Game  *shogi.Game
	Sente string
	Gote  string
	Evals []record.MoveEval
}

// Record builds the stored row of m.
func (m Match) Record(id string, seed int64) (record.GameRecord, error) {
	rec, err := record.FromGame(id, seed, m.Game)
	if err != nil {
		return record.GameRecord{}, err
	}
	rec.SenteName = m.Sente
	rec.GoteName = m.Gote
	rec.MoveEvals = m.Evals
	return rec, nil
}

// Result is one finished game. Index is the game's position in the batch.
type Result struct {
	Index int
	Seed  int64
	Match
}

// Summary tallies results from sente's point of view.
type Summary struct {
	Wins    int
	Losses  int
	Draws   int
	Total   int
	Moves   int
	Reasons map[shogi.TerminationReason]int
}

func (s *Summary) Add(g *shogi.Game) {
	if s.Reasons == nil {
		s.Reasons = map[shogi.TerminationReason]int{}
	}
	s.Total++
	s.Moves += len(g.Moves())
	s.Reasons[g.Reason()]++
	switch g.Winner() {
	case shogi.Black:
		s.Wins++
	case shogi.White:
		s.Losses++
	default:
		s.Draws++
	}
}

// MeanLength is the average number of moves per game.
func (s *Summary) MeanLength() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Moves) / float64(s.Total)
}

// PlayGame plays uniformly random legal moves for both sides until the game
// ends. The same seed and maxMoves always give the same game.
func PlayGame(ctx context.Context, seed int64, maxMoves int) (*shogi.Game, error) {
	m, err := PlayMatch(ctx, seed, maxMoves, Random{}, Random{})
	if err != nil {
		return nil, err
	}
	return m.Game, nil
}

// PlayMatch plays sente against gote from the opening. seed drives the
// game's random source; a player returning ErrResign loses. Scores reported
// by the players are kept in Match.Evals.
func PlayMatch(ctx context.Context, seed int64, maxMoves int, sente, gote Player) (Match, error) {
	g := shogi.NewGame()
	g.SetMaxMoves(maxMoves)
	g.Seed(seed)
	if err := sente.NewGame(ctx); err != nil {
		return Match{}, err
	}
	if gote != sente {
		if err := gote.NewGame(ctx); err != nil {
			return Match{}, err
		}
	}
	match := Match{Game: g, Sente: sente.Name(), Gote: gote.Name()}
	for !g.IsOver() {
		if err := ctx.Err(); err != nil {
			return Match{}, err
		}
		player := sente
		if g.Turn() == shogi.White {
			player = gote
		}
		ply := g.MoveCount() + 1
		d, err := player.Move(ctx, g)
		if errors.Is(err, ErrResign) {
			if err := g.Resign(); err != nil {
				return Match{}, err
			}
			break
		}
		if err != nil {
			return Match{}, fmt.Errorf("ply %d (%s): %w", ply, player.Name(), err)
		}
		if _, err := g.ApplyMove(d.Move); err != nil {
			return Match{}, fmt.Errorf("ply %d (%s): %w", ply, player.Name(), err)
		}
		if d.HasScore {
			match.Evals = append(match.Evals, record.MoveEval{
				Ply:        int32(ply),
				ScoreType:  d.Score.Kind,
				ScoreValue: int32(d.Score.Value),
			})
		}
	}
	return match, nil
}

// newPlayers starts the configured players. The same player name on both sides
// shares one player.
func newPlayers(ctx context.Context, cfg Config) (Player, Player, error) {
	sente, err := NewPlayer(ctx, cfg.Players.Sente, cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Players.Gote == cfg.Players.Sente {
		return sente, sente, nil
	}
	gote, err := NewPlayer(ctx, cfg.Players.Gote, cfg)
	if err != nil {
		sente.Close()
		return nil, nil, err
	}
	return sente, gote, nil
}

// Run plays cfg.Games games on cfg.Workers goroutines, each with its own
// players. Game i uses seed cfg.Seed+i. emit is called from the calling
// goroutine once per game, in completion order; an emit error stops the
// batch.
func Run(ctx context.Context, cfg Config, emit func(Result) error) (Summary, error) {
	if err := cfg.Validate(); err != nil {
		return Summary{}, err
	}
	var summary Summary
	workers := cfg.Workers
	if workers > cfg.Games {
		workers = cfg.Games
	}
	if workers == 0 {
		return summary, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int)
	results := make(chan Result, workers)
	errCh := make(chan error, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sente, gote, err := newPlayers(runCtx, cfg)
			if err != nil {
				errCh <- err
				cancel()
				return
			}
			defer func() {
				sente.Close()
				if gote != sente {
					gote.Close()
				}
			}()
			for i := range jobs {
				seed := cfg.Seed + int64(i)
				m, err := PlayMatch(runCtx, seed, cfg.MaxMoves, sente, gote)
				if err != nil {
					errCh <- fmt.Errorf("game %d (seed %d): %w", i, seed, err)
					cancel()
					return
				}
				select {
				case results <- Result{Index: i, Seed: seed, Match: m}:
				case <-runCtx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := 0; i < cfg.Games; i++ {
			select {
			case jobs <- i:
			case <-runCtx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var emitErr error
	for res := range results {
		if emitErr != nil {
			continue
		}
		summary.Add(res.Game)
		if emit != nil {
			if err := emit(res); err != nil {
				emitErr = err
				cancel()
			}
		}
	}
	close(errCh)

	if emitErr != nil {
		return summary, emitErr
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	if err, ok := <-errCh; ok {
		return summary, err
	}
	return summary, nil
}
