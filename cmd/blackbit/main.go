// Command blackbit runs the engine as a UCI chess engine on stdin/stdout.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime/pprof"
	"time"

	"github.com/rs/zerolog"

	"github.com/hailam/blackbit/internal/book"
	"github.com/hailam/blackbit/internal/storage"
	"github.com/hailam/blackbit/internal/tablebase"
	"github.com/hailam/blackbit/internal/uci"
)

var (
	hashMB     = flag.Int("hash", 64, "transposition table size in MB")
	bookPath   = flag.String("book", "", "binary opening book to load")
	useStore   = flag.Bool("store", false, "persist analysis and the learned book in the data directory")
	dbDir      = flag.String("db", "", "database directory (default: platform data dir)")
	useTB      = flag.Bool("tablebase", false, "probe the Lichess tablebase for endgames")
	tbURL      = flag.String("tablebase-url", tablebase.DefaultLichessURL, "tablebase endpoint")
	logLevel   = flag.String("log-level", "warn", "log level (trace, debug, info, warn, error)")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
)

func main() {
	flag.Parse()
	log := newLogger(*logLevel)

	// Start CPU profiling if requested (via flag or environment variable)
	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create CPU profile")
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal().Err(err).Msg("could not start CPU profile")
		}
		defer pprof.StopCPUProfile()
		log.Info().Str("path", profilePath).Msg("CPU profiling enabled")
	}

	opts := uci.Options{HashMB: *hashMB, Logger: log}

	if *useStore {
		store, err := storage.Open(storage.Options{Dir: *dbDir, Logger: log})
		if err != nil {
			log.Fatal().Err(err).Msg("open storage")
		}
		defer store.Close()
		opts.Store = store
		opts.Book = book.New(store)
	}

	if *bookPath != "" {
		if opts.Book == nil {
			opts.Book = book.NewMemory()
		}
		if err := importBook(opts.Book, *bookPath); err != nil {
			log.Error().Err(err).Str("path", *bookPath).Msg("book not loaded")
		}
	}

	if *useTB {
		opts.Tablebase = tablebase.NewCachedLichessProber(tablebase.LichessOptions{
			BaseURL: *tbURL,
			Logger:  log,
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := uci.New(opts).Run(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("uci loop failed")
	}
}

func importBook(b *book.Book, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = b.Import(f)
	return err
}

// newLogger writes human-readable logs to stderr; stdout belongs to the protocol.
func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(lvl).
		With().Timestamp().Logger()
}
