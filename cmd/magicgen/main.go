// Command magicgen searches magic multipliers for the slider attack tables
// and checks the built-in tables against ray casting.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/rs/zerolog"
	"lukechampine.com/frand"

	"github.com/hailam/blackbit/internal/board"
)

func main() {
	var (
		maxTries = flag.Int("tries", 100000000, "candidates tried per square")
		verify   = flag.Int("verify", 10000, "random occupancies checked per square against ray casting (0 = skip)")
	)
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()

	rng := board.NewMagicRNG()
	for _, piece := range []struct {
		name   string
		bishop bool
	}{{"rook", false}, {"bishop", true}} {
		fmt.Printf("var %sMagicNumbers = [64]uint64{\n", piece.name)
		for sq := board.A8; sq <= board.H1; sq++ {
			magic, ok := board.FindMagic(sq, piece.bishop, rng, *maxTries)
			if !ok {
				log.Fatal().Str("piece", piece.name).Str("square", sq.String()).Msg("no magic found")
			}
			fmt.Printf("\t0x%016x, // %s\n", magic, sq)
		}
		fmt.Println("}")
		fmt.Println()
	}

	if *verify > 0 {
		if err := board.CheckSliderTables(*verify, randomOccupancy); err != nil {
			log.Fatal().Err(err).Msg("attack tables disagree with ray casting")
		}
		log.Info().Int("samples", *verify).Msg("attack tables verified")
	}
}

func randomOccupancy() uint64 {
	return frand.Uint64n(math.MaxUint64) & frand.Uint64n(math.MaxUint64)
}
