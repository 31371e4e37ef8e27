package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"shogi/pkg/record"
	"shogi/pkg/selfplay"
	"shogi/pkg/shogi"
)

func main() {
	configPath := flag.String("config", "", "path to config.json (default: search upwards, then XDG config dirs)")
	games := flag.Int("games", 0, "number of games (overrides config)")
	workers := flag.Int("workers", 0, "number of parallel workers (overrides config)")
	seed := flag.Int64("seed", 0, "base random seed (overrides config)")
	maxMoves := flag.Int("max-moves", 0, "move limit per game (overrides config)")
	sente := flag.String("sente", "", "sente player: random or usi:<engine path> (overrides config)")
	gote := flag.String("gote", "", "gote player: random or usi:<engine path> (overrides config)")
	moveTime := flag.Int("movetime", 0, "engine think time per move in ms (overrides config)")
	outputPath := flag.String("output", "selfplay.parquet", "output parquet file")
	kifDir := flag.String("kif-dir", "", "directory for KIF exports (empty: none)")
	sjis := flag.Bool("sjis", false, "write KIF files in Shift-JIS")
	saveConfig := flag.Bool("save-config", false, "store the effective config in the XDG config dir")
	flag.Parse()

	cfg, cfgPath, err := selfplay.ResolveConfig(*configPath)
	if err != nil {
		fatal(err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "games":
			cfg.Games = *games
		case "workers":
			cfg.Workers = *workers
		case "seed":
			cfg.Seed = *seed
		case "max-moves":
			cfg.MaxMoves = *maxMoves
		case "sente":
			cfg.Players.Sente = *sente
		case "gote":
			cfg.Players.Gote = *gote
		case "movetime":
			cfg.MoveTimeMs = *moveTime
		}
	})
	if err := cfg.Validate(); err != nil {
		fatal(err)
	}
	if cfgPath != "" {
		fmt.Fprintf(os.Stderr, "config: %s\n", cfgPath)
	}
	if *saveConfig {
		path, err := cfg.Save()
		if err != nil {
			fatal(err)
		}
		fmt.Fprintf(os.Stderr, "saved config to %s\n", path)
	}

	if dir := filepath.Dir(*outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fatal(err)
		}
	}
	if *kifDir != "" {
		if err := os.MkdirAll(*kifDir, 0o755); err != nil {
			fatal(err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	records := make(chan record.GameRecord, cfg.Workers)
	writeErr := make(chan error, 1)
	var writeWg sync.WaitGroup
	writeWg.Add(1)
	go func() {
		defer writeWg.Done()
		err := record.WriteParquet(*outputPath, records, int64(cfg.Workers))
		for range records {
		}
		writeErr <- err
	}()

	started := time.Now()
	done := 0
	summary, runErr := selfplay.Run(ctx, cfg, func(res selfplay.Result) error {
		id := fmt.Sprintf("selfplay-%d-%06d", cfg.Seed, res.Index)
		rec, err := res.Record(id, res.Seed)
		if err != nil {
			return err
		}
		records <- rec
		if *kifDir != "" {
			if err := writeKIF(*kifDir, id, res.Game, cfg.Players, started, *sjis); err != nil {
				return err
			}
		}
		done++
		if done%100 == 0 {
			fmt.Fprintf(os.Stderr, "%d/%d games\n", done, cfg.Games)
		}
		return nil
	})
	close(records)
	writeWg.Wait()
	if err := <-writeErr; err != nil {
		fatal(err)
	}
	if runErr != nil {
		fatal(runErr)
	}

	fmt.Printf("games: %d (%.1fs)\n", summary.Total, time.Since(started).Seconds())
	fmt.Printf("sente wins: %d\n", summary.Wins)
	fmt.Printf("gote wins: %d\n", summary.Losses)
	fmt.Printf("draws: %d\n", summary.Draws)
	fmt.Printf("mean length: %.1f\n", summary.MeanLength())
	for _, reason := range []shogi.TerminationReason{shogi.Checkmate, shogi.Stalemate, shogi.Resignation, shogi.Sennichite, shogi.MaxMoves} {
		fmt.Printf("%s: %d\n", reason, summary.Reasons[reason])
	}
	fmt.Printf("output: %s\n", *outputPath)
}

func writeKIF(dir, id string, g *shogi.Game, players selfplay.Players, start time.Time, sjis bool) error {
	text := shogi.ExportKIF(g, shogi.KIFHeader{Sente: players.Sente, Gote: players.Gote, Start: start})
	data := []byte(text)
	if sjis {
		encoded, err := shogi.EncodeShiftJIS(text)
		if err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
		data = encoded
	}
	return os.WriteFile(filepath.Join(dir, id+".kif"), data, 0o644)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
