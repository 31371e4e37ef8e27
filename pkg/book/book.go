// Package book counts the moves played from each position of a set of games
// and writes them as a YaneuraOu DB opening book.
package book

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"sync"

	"shogi/pkg/record"
	"shogi/pkg/shogi"
)

// Entry is one book position.
type Entry struct {
	SFEN  string
	Count uint32
	Moves map[string]uint32
}

// Book is safe for concurrent use by multiple feeders.
type Book struct {
	mu      sync.Mutex
	entries map[shogi.Packed256]*Entry
}

func New() *Book {
	return &Book{entries: make(map[shogi.Packed256]*Entry)}
}

func (b *Book) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Lookup returns the entry for pos, if any.
func (b *Book) Lookup(pos shogi.Position) (*Entry, bool) {
	packed, err := pos.Pack256()
	if err != nil {
		return nil, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[packed]
	return e, ok
}

type sample struct {
	packed shogi.Packed256
	sfen   string
	move   string
}

func (b *Book) addBatch(batch []sample) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range batch {
		e := b.entries[s.packed]
		if e == nil {
			e = &Entry{SFEN: s.sfen, Moves: make(map[string]uint32)}
			b.entries[s.packed] = e
		}
		e.Count++
		e.Moves[s.move]++
	}
}

// AddGame replays moves from startSFEN and records the first maxPly moves.
// Replay stops at the first illegal move; positions without full material
// are skipped.
func (b *Book) AddGame(startSFEN string, moves []shogi.Move, maxPly int) error {
	g, err := shogi.NewGameFromSFEN(startSFEN)
	if err != nil {
		return err
	}
	limit := len(moves)
	if maxPly > 0 && limit > maxPly {
		limit = maxPly
	}
	batch := make([]sample, 0, limit)
	for i := 0; i < limit; i++ {
		pos := g.Position()
		if packed, err := pos.Pack256(); err == nil {
			batch = append(batch, sample{packed: packed, sfen: g.SFEN(), move: shogi.FormatMove(moves[i])})
		}
		if _, err := g.ApplyMove(moves[i]); err != nil {
			b.addBatch(batch)
			return fmt.Errorf("move %d: %w", i+1, err)
		}
	}
	b.addBatch(batch)
	return nil
}

// AddRecord records a stored game. Packed positions are decoded directly;
// records without them are replayed.
func (b *Book) AddRecord(rec record.GameRecord, maxPly int) error {
	if len(rec.Positions) != len(rec.Moves)+1 {
		moves := make([]shogi.Move, len(rec.Moves))
		for i, text := range rec.Moves {
			m, err := shogi.ParseMove(text)
			if err != nil {
				return fmt.Errorf("%s: %w", rec.GameID, err)
			}
			moves[i] = m
		}
		return b.AddGame(rec.StartSFEN, moves, maxPly)
	}
	_, ply, err := shogi.ParseSFEN(rec.StartSFEN)
	if err != nil {
		return fmt.Errorf("%s: %w", rec.GameID, err)
	}
	limit := len(rec.Moves)
	if maxPly > 0 && limit > maxPly {
		limit = maxPly
	}
	batch := make([]sample, 0, limit)
	for i := 0; i < limit; i++ {
		packed, err := shogi.Packed256FromBytes([]byte(rec.Positions[i]))
		if err != nil {
			return fmt.Errorf("%s: %w", rec.GameID, err)
		}
		pos, err := shogi.UnpackPosition256(packed)
		if err != nil {
			return fmt.Errorf("%s position %d: %w", rec.GameID, i, err)
		}
		batch = append(batch, sample{packed: packed, sfen: pos.SFEN(ply + i), move: rec.Moves[i]})
	}
	b.addBatch(batch)
	return nil
}

// Write emits every position seen at least threshold times, sorted by SFEN,
// with moves by descending count. It returns the number of positions written.
func (b *Book) Write(out io.Writer, threshold int) (int, error) {
	b.mu.Lock()
	entries := make([]*Entry, 0, len(b.entries))
	for _, e := range b.entries {
		if int(e.Count) >= threshold {
			entries = append(entries, e)
		}
	}
	b.mu.Unlock()
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].SFEN < entries[j].SFEN
	})

	w := bufio.NewWriter(out)
	fmt.Fprintln(w, "#YANEURAOU-DB2016 1.00")
	for _, e := range entries {
		fmt.Fprintf(w, "sfen %s\n", e.SFEN)
		type moveCount struct {
			move  string
			count uint32
		}
		ms := make([]moveCount, 0, len(e.Moves))
		for m, c := range e.Moves {
			ms = append(ms, moveCount{m, c})
		}
		sort.Slice(ms, func(i, j int) bool {
			if ms[i].count != ms[j].count {
				return ms[i].count > ms[j].count
			}
			return ms[i].move < ms[j].move
		})
		// <move> <response> <eval> <depth> <count>
		for _, m := range ms {
			fmt.Fprintf(w, "%s none 0 0 %d\n", m.move, m.count)
		}
	}
	return len(entries), w.Flush()
}
