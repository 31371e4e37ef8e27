package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"shogi/pkg/record"
)

type scenario struct {
	player    string
	threshold int
}

type stats struct {
	totalGames    int
	crossings     int
	wins          int
	excludedGames int
}

// main prints CSV stats for eval threshold crossings, one row per player and threshold.
func main() {
	inputPath := flag.String("input", "selfplay.parquet", "input parquet file")
	thresholdsArg := flag.String("thresholds", "1000", "comma-separated eval thresholds")
	playerFilter := flag.String("player", "", "only report this player name")
	parallel := flag.Int64("parallel", 4, "parquet read parallelism")
	flag.Parse()

	thresholds, err := parseIntList(*thresholdsArg)
	if err != nil {
		fatal(err)
	}
	if len(thresholds) == 0 {
		fatal(fmt.Errorf("thresholds must be non-empty"))
	}

	records, err := record.ReadParquet(*inputPath, *parallel)
	if err != nil {
		fatal(err)
	}

	scenarios, results := analyze(records, thresholds, *playerFilter)
	printCSV(scenarios, results)
}

// analyze counts, for every player and threshold, the games in which that
// player's side first crossed the threshold and how many of those it won.
func analyze(records []record.GameRecord, thresholds []int, playerFilter string) ([]scenario, map[scenario]*stats) {
	results := map[scenario]*stats{}
	get := func(player string, threshold int) *stats {
		sc := scenario{player: player, threshold: threshold}
		st, ok := results[sc]
		if !ok {
			st = &stats{}
			results[sc] = st
		}
		return st
	}
	for _, rec := range records {
		resultSide := record.WinnerSide(rec.Result)
		for _, threshold := range thresholds {
			crossingSide := record.FirstCrossing(rec.MoveEvals, threshold)
			sides := []struct {
				player string
				side   string
			}{
				{rec.SenteName, record.SideSente},
				{rec.GoteName, record.SideGote},
			}
			for _, s := range sides {
				if playerFilter != "" && s.player != playerFilter {
					continue
				}
				st := get(s.player, threshold)
				st.totalGames++
				if crossingSide == record.SideNone || resultSide == record.SideNone {
					st.excludedGames++
				} else if crossingSide == s.side {
					st.crossings++
					if resultSide == s.side {
						st.wins++
					}
				}
			}
		}
	}

	scenarios := make([]scenario, 0, len(results))
	for sc := range results {
		scenarios = append(scenarios, sc)
	}
	sort.Slice(scenarios, func(i, j int) bool {
		if scenarios[i].player == scenarios[j].player {
			return scenarios[i].threshold < scenarios[j].threshold
		}
		return scenarios[i].player < scenarios[j].player
	})
	return scenarios, results
}

// parseIntList parses comma-separated integers with optional whitespace.
func parseIntList(raw string) ([]int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	values := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		value, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

func printCSV(scenarios []scenario, results map[scenario]*stats) {
	fmt.Println("player,threshold,total_games,crossings,wins,win_rate,excluded")
	for _, sc := range scenarios {
		st := results[sc]
		winRate := 0.0
		if st.crossings > 0 {
			winRate = float64(st.wins) / float64(st.crossings)
		}
		fmt.Printf("%s,%d,%d,%d,%d,%.6f,%d\n",
			csvField(sc.player),
			sc.threshold,
			st.totalGames,
			st.crossings,
			st.wins,
			winRate,
			st.excludedGames,
		)
	}
}

func csvField(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

// fatal prints an error to stderr and exits with status 1.
func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
