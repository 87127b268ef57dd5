// Command perft counts move-generation leaf nodes for a position.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/hailam/blackbit/internal/board"
	"github.com/hailam/blackbit/internal/storage"
)

type config struct {
	fen      string
	depth    int
	divide   bool
	workers  int
	cache    bool
	dbDir    string
	logLevel string
}

func main() {
	var cfg config
	flag.StringVar(&cfg.fen, "fen", board.StartFEN, "position to count")
	flag.IntVar(&cfg.depth, "depth", 5, "perft depth")
	flag.BoolVar(&cfg.divide, "divide", false, "print counts per root move")
	flag.IntVar(&cfg.workers, "workers", runtime.NumCPU(), "goroutines for the parallel count")
	flag.BoolVar(&cfg.cache, "cache", false, "cache totals in the database")
	flag.StringVar(&cfg.dbDir, "db", "", "database directory (default: platform data dir)")
	flag.StringVar(&cfg.logLevel, "log-level", "info", "log level")
	flag.Parse()

	lvl, err := zerolog.ParseLevel(cfg.logLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(lvl).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("perft failed")
	}
}

func run(ctx context.Context, cfg config, log zerolog.Logger) error {
	pos, err := board.ParseFEN(cfg.fen)
	if err != nil {
		return err
	}
	fen := pos.FEN()

	var store *storage.Storage
	if cfg.cache {
		store, err = storage.Open(storage.Options{Dir: cfg.dbDir, Logger: log})
		if err != nil {
			return err
		}
		defer store.Close()

		rec, err := store.GetPerft(fen, cfg.depth)
		switch {
		case err == nil && !cfg.divide:
			log.Info().Dur("original_time", rec.Duration).Msg("cached result")
			fmt.Printf("Nodes: %d\n", rec.Nodes)
			return nil
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			return err
		}
	}

	start := time.Now()
	var nodes uint64
	if cfg.divide {
		entries := board.Divide(&pos, cfg.depth)
		for _, e := range entries {
			fmt.Printf("%s: %d\n", e.Move, e.Nodes)
		}
		nodes = lo.SumBy(entries, func(e board.DivideEntry) uint64 { return e.Nodes })
		fmt.Println()
	} else {
		nodes, err = board.PerftParallel(ctx, &pos, cfg.depth, cfg.workers)
		if err != nil {
			return err
		}
	}
	elapsed := time.Since(start)

	fmt.Printf("Nodes: %d\n", nodes)
	fmt.Printf("Time: %v\n", elapsed)
	if elapsed > 0 {
		fmt.Printf("NPS: %.0f\n", float64(nodes)/elapsed.Seconds())
	}

	if store != nil {
		return store.PutPerft(storage.PerftRecord{FEN: fen, Depth: cfg.depth, Nodes: nodes, Duration: elapsed})
	}
	return nil
}
