package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"shogi/pkg/book"
	"shogi/pkg/record"
	"shogi/pkg/shogi"
)

func main() {
	kifDir := flag.String("kif-dir", "", "input directory for KIF files")
	parquetPath := flag.String("parquet", "", "input self-play parquet file")
	outputPath := flag.String("output", "book.db", "output book file")
	threshold := flag.Int("threshold", 3, "minimum occurrence count to include in book")
	maxPly := flag.Int("max-ply", 60, "maximum ply to process per game")
	maxFiles := flag.Int("max-files", 0, "maximum number of KIF files to process (0=all)")
	workers := flag.Int("workers", 0, "number of parallel workers (0=NumCPU)")
	flag.Parse()

	if (*kifDir == "") == (*parquetPath == "") {
		fatal(fmt.Errorf("exactly one of -kif-dir or -parquet is required"))
	}
	if *workers <= 0 {
		*workers = runtime.NumCPU()
	}

	start := time.Now()
	b := book.New()
	var games, errGames int
	var err error
	if *kifDir != "" {
		games, errGames, err = addKIF(b, *kifDir, *maxFiles, *maxPly, *workers)
	} else {
		games, errGames, err = addParquet(b, *parquetPath, *maxPly, *workers)
	}
	if err != nil {
		fatal(err)
	}
	fmt.Fprintf(os.Stderr, "games: %d, errors: %d, unique positions: %d\n", games, errGames, b.Len())

	f, err := os.Create(*outputPath)
	if err != nil {
		fatal(err)
	}
	n, err := b.Write(f, *threshold)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		fatal(err)
	}
	fmt.Fprintf(os.Stderr, "wrote %d positions (>=%d) to %s in %s\n",
		n, *threshold, *outputPath, time.Since(start).Round(time.Millisecond))
}

func addKIF(b *book.Book, dir string, maxFiles, maxPly, workers int) (int, int, error) {
	files, err := shogi.CollectKIF(dir)
	if err != nil {
		return 0, 0, err
	}
	if len(files) == 0 {
		return 0, 0, fmt.Errorf("no .kif files found in %s", dir)
	}
	if maxFiles > 0 && len(files) > maxFiles {
		files = files[:maxFiles]
	}
	fmt.Fprintf(os.Stderr, "files: %d, workers: %d, max-ply: %d\n", len(files), workers, maxPly)

	var processed, errCount atomic.Int64
	total := int64(len(files))
	paths := make(chan string, workers*4)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range paths {
				if err := addKIFFile(b, path, maxPly); err != nil {
					errCount.Add(1)
				}
				done := processed.Add(1)
				if done%10000 == 0 || done == total {
					fmt.Fprintf(os.Stderr, "\r  processed: %d/%d", done, total)
				}
			}
		}()
	}
	for _, path := range files {
		paths <- path
	}
	close(paths)
	wg.Wait()
	fmt.Fprintln(os.Stderr)
	return int(processed.Load()), int(errCount.Load()), nil
}

func addKIFFile(b *book.Book, path string, maxPly int) error {
	rec, err := shogi.LoadKIF(path)
	if err != nil {
		return err
	}
	return b.AddGame(rec.StartSFEN, rec.Moves, maxPly)
}

func addParquet(b *book.Book, path string, maxPly, workers int) (int, int, error) {
	records, err := record.ReadParquet(path, int64(workers))
	if err != nil {
		return 0, 0, err
	}
	errCount := 0
	for _, rec := range records {
		if err := b.AddRecord(rec, maxPly); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			errCount++
		}
	}
	return len(records), errCount, nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
