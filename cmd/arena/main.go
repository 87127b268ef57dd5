// Command arena plays engine self-play matches.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/hailam/blackbit/internal/arena"
	"github.com/hailam/blackbit/internal/book"
	"github.com/hailam/blackbit/internal/engine"
	"github.com/hailam/blackbit/internal/storage"
)

func main() {
	var (
		games       = flag.Int("games", 0, "number of games (default: two per opening)")
		concurrency = flag.Int("concurrency", 4, "games played at once")
		depth       = flag.Int("depth", 0, "search depth per move")
		nodes       = flag.Uint64("nodes", 0, "node budget per move")
		moveTime    = flag.Duration("movetime", 0, "time per move")
		maxPlies    = flag.Int("maxplies", 300, "adjudicate a draw after this many plies")
		randomPlies = flag.Int("random", 0, "random plies played from each opening")
		hashMB      = flag.Int("hash", 16, "transposition table size in MB per engine")
		learn       = flag.Bool("learn", false, "learn winners' moves into the stored book and record results")
		dbDir       = flag.String("db", "", "database directory (default: platform data dir)")
		pgnPath     = flag.String("pgn", "", "write games to this PGN file")
		logLevel    = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	lvl, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(lvl).With().Timestamp().Logger()

	cfg := arena.Config{
		Games:       *games,
		Concurrency: *concurrency,
		MaxPlies:    *maxPlies,
		Limits:      engine.Limits{Depth: *depth, Nodes: *nodes, MoveTime: *moveTime},
		EngineA:     engine.Options{TTSizeMB: *hashMB, Logger: log},
		EngineB:     engine.Options{TTSizeMB: *hashMB, Logger: log},
		RandomPlies: *randomPlies,
		Logger:      log,
	}

	if *learn {
		store, err := storage.Open(storage.Options{Dir: *dbDir, Logger: log})
		if err != nil {
			log.Fatal().Err(err).Msg("open storage")
		}
		defer store.Close()
		cfg.Store = store
		cfg.Book = book.New(store)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	summary, err := arena.Run(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("arena stopped")
	}

	fmt.Printf("Score: %d - %d - %d  [%.3f] %d\n",
		summary.WinsA, summary.LossesA, summary.Draws, summary.Stats.WinningFraction, len(summary.Games))
	fmt.Printf("Elo difference: %.1f, LOS: %.1f %%\n", summary.Stats.EloDifference, summary.Stats.LOS*100)

	byTermination := lo.CountValuesBy(summary.Games, func(g arena.Game) arena.Termination { return g.Termination })
	terms := lo.Keys(byTermination)
	slices.Sort(terms)
	for _, term := range terms {
		fmt.Printf("  %-22s %d\n", term, byTermination[term])
	}

	if *pgnPath != "" {
		pgn := strings.Join(lo.Map(summary.Games, func(g arena.Game, _ int) string { return g.PGN() }), "\n")
		if err := os.WriteFile(*pgnPath, []byte(pgn), 0o644); err != nil {
			log.Error().Err(err).Msg("write pgn")
		}
	}
}
