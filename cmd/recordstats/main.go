package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"shogi/pkg/record"
	"shogi/pkg/shogi"
)

type lengthStats struct {
	binSize int
	count   int
	sum     int
	min     int
	max     int
	bins    map[int]int
}

func newLengthStats(binSize int) *lengthStats {
	return &lengthStats{
		binSize: binSize,
		bins:    make(map[int]int),
	}
}

func (ls *lengthStats) Add(moves int) {
	if ls.count == 0 || moves < ls.min {
		ls.min = moves
	}
	if moves > ls.max {
		ls.max = moves
	}
	ls.count++
	ls.sum += moves
	ls.bins[(moves/ls.binSize)*ls.binSize]++
}

type tally struct {
	results map[string]int
	reasons map[string]int
	lengths *lengthStats
	failed  int
}

func main() {
	kifDir := flag.String("kif-dir", "", "input directory for KIF files")
	parquetPath := flag.String("parquet", "", "input parquet file")
	binSize := flag.Int("bin-size", 50, "game length bin size")
	verify := flag.Bool("verify", false, "replay every game and check stored positions")
	flag.Parse()

	if *binSize <= 0 {
		fatal(fmt.Errorf("bin-size must be > 0"))
	}
	if (*kifDir == "") == (*parquetPath == "") {
		fatal(fmt.Errorf("specify exactly one of -kif-dir or -parquet"))
	}

	t := &tally{
		results: map[string]int{},
		reasons: map[string]int{},
		lengths: newLengthStats(*binSize),
	}

	if *parquetPath != "" {
		records, err := record.ReadParquet(*parquetPath, 4)
		if err != nil {
			fatal(err)
		}
		for _, rec := range records {
			if *verify {
				if err := verifyRecord(rec); err != nil {
					fmt.Fprintf(os.Stderr, "%s: %v\n", rec.GameID, err)
					t.failed++
					continue
				}
			}
			t.results[rec.Result]++
			t.reasons[rec.Reason]++
			t.lengths.Add(int(rec.MoveCount))
		}
		fmt.Printf("input parquet: %s\n", *parquetPath)
	} else {
		files, err := shogi.CollectKIF(*kifDir)
		if err != nil {
			fatal(err)
		}
		if len(files) == 0 {
			fatal(fmt.Errorf("no .kif files found in %s", *kifDir))
		}
		for _, path := range files {
			kif, err := shogi.LoadKIF(path)
			if err == nil && *verify {
				_, err = kif.Replay()
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to parse %s: %v\n", path, err)
				t.failed++
				continue
			}
			t.results[kifResult(kif)]++
			t.reasons[kif.Terminal]++
			t.lengths.Add(len(kif.Moves))
		}
		fmt.Printf("kif dir: %s\n", *kifDir)
	}

	fmt.Printf("failed games: %d\n", t.failed)
	fmt.Printf("games: %d\n", t.lengths.count)
	for _, result := range []string{record.ResultSenteWin, record.ResultGoteWin, record.ResultDraw, record.ResultAbort} {
		fmt.Printf("%s: %d\n", result, t.results[result])
	}
	fmt.Println("reasons:")
	for _, reason := range sortedKeys(t.reasons) {
		label := reason
		if label == "" {
			label = "(none)"
		}
		fmt.Printf("  %s: %d\n", label, t.reasons[reason])
	}
	if t.lengths.count > 0 {
		fmt.Printf("length range: %d-%d (mean %.1f)\n", t.lengths.min, t.lengths.max, float64(t.lengths.sum)/float64(t.lengths.count))
	}
	fmt.Printf("length distribution (bin size=%d):\n", t.lengths.binSize)
	starts := make([]int, 0, len(t.lengths.bins))
	for start := range t.lengths.bins {
		starts = append(starts, start)
	}
	sort.Ints(starts)
	for _, start := range starts {
		fmt.Printf("%d-%d,%d\n", start, start+t.lengths.binSize-1, t.lengths.bins[start])
	}
}

func verifyRecord(rec record.GameRecord) error {
	g, err := rec.Replay()
	if err != nil {
		return err
	}
	if g.SFEN() != rec.FinalSFEN {
		return fmt.Errorf("final position %q, recorded %q", g.SFEN(), rec.FinalSFEN)
	}
	if len(rec.Positions) == 0 {
		return nil
	}
	if len(rec.Positions) != len(rec.Moves)+1 {
		return fmt.Errorf("%d packed positions for %d moves", len(rec.Positions), len(rec.Moves))
	}
	last, err := rec.Position(len(rec.Positions) - 1)
	if err != nil {
		return err
	}
	final := g.Position()
	if last.Key() != final.Key() {
		return fmt.Errorf("packed final position %s does not match replay", last.Key())
	}
	return nil
}

func kifResult(kif *shogi.KIFRecord) string {
	switch kif.Winner {
	case shogi.Black:
		return record.ResultSenteWin
	case shogi.White:
		return record.ResultGoteWin
	}
	switch kif.Terminal {
	case "千日手", "持将棋":
		return record.ResultDraw
	default:
		return record.ResultAbort
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
