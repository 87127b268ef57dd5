// Package arena plays engine-versus-engine matches.
package arena

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"lukechampine.com/frand"

	"github.com/hailam/blackbit/internal/board"
	"github.com/hailam/blackbit/internal/engine"
	"github.com/hailam/blackbit/internal/storage"
)

// Run plays a match between engine A and engine B. Each worker owns one
// Bot per engine, so Bots are never shared between goroutines.
func Run(ctx context.Context, cfg Config) (Summary, error) {
	cfg = cfg.withDefaults()
	log := cfg.Logger.With().Str("component", "arena").Logger()

	for _, fen := range cfg.Openings {
		if _, err := board.ParseFEN(fen); err != nil {
			return Summary{}, fmt.Errorf("opening %q: %w", fen, err)
		}
	}

	log.Info().
		Int("games", cfg.Games).
		Int("concurrency", cfg.Concurrency).
		Int("gomaxprocs", runtime.GOMAXPROCS(0)).
		Msg("arena started")

	g, ctx := errgroup.WithContext(ctx)

	gameInfos := make(chan gameInfo)
	gameResults := make(chan Game)

	g.Go(func() error {
		defer close(gameInfos)
		for i := 0; i < cfg.Games; i++ {
			info := gameInfo{
				id:             uuid.New(),
				number:         i + 1,
				opening:        cfg.Openings[(i/2)%len(cfg.Openings)],
				engineAIsWhite: i%2 == 0,
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case gameInfos <- info:
			}
		}
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			return playGames(ctx, cfg, log, gameInfos, gameResults)
		})
	}

	g.Go(func() error {
		wg.Wait()
		close(gameResults)
		return nil
	})

	var summary Summary
	for game := range gameResults {
		summary.Games = append(summary.Games, game)
		summary.score(game)
		log.Info().
			Int("game", game.Number).
			Str("id", game.ID.String()).
			Str("result", game.Outcome.String()).
			Str("termination", string(game.Termination)).
			Int("plies", len(game.Moves)).
			Str("score", fmt.Sprintf("%d-%d-%d", summary.WinsA, summary.LossesA, summary.Draws)).
			Float64("elo", summary.Stats.EloDifference).
			Msg("game finished")
	}

	if err := g.Wait(); err != nil {
		return summary, err
	}

	sort.Slice(summary.Games, func(i, j int) bool {
		return summary.Games[i].Number < summary.Games[j].Number
	})
	log.Info().
		Float64("fraction", summary.Stats.WinningFraction).
		Float64("los", summary.Stats.LOS).
		Msg("arena finished")
	return summary, nil
}

func playGames(
	ctx context.Context,
	cfg Config,
	log zerolog.Logger,
	gameInfos <-chan gameInfo,
	gameResults chan<- Game,
) error {
	engineA := engine.NewBot(cfg.EngineA)
	engineB := engine.NewBot(cfg.EngineB)

	for info := range gameInfos {
		game, err := playGame(ctx, cfg, engineA, engineB, info)
		if err != nil {
			return fmt.Errorf("game %d: %w", info.number, err)
		}
		if err := record(cfg, game); err != nil {
			log.Warn().Err(err).Int("game", game.Number).Msg("record game")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case gameResults <- game:
		}
	}
	return nil
}

func playGame(ctx context.Context, cfg Config, engineA, engineB *engine.Bot, info gameInfo) (Game, error) {
	start := time.Now()
	pos, err := board.ParseFEN(info.opening)
	if err != nil {
		return Game{}, err
	}

	// Random plies are part of the opening, not of the game record
	for i := 0; i < cfg.RandomPlies; i++ {
		legal := pos.LegalMoves()
		if len(legal) == 0 {
			break
		}
		pos, _ = pos.MakeMove(legal[frand.Intn(len(legal))], false)
	}

	game := Game{
		ID:             info.id,
		Number:         info.number,
		Opening:        pos.FEN(),
		EngineAIsWhite: info.engineAIsWhite,
	}
	startPos := pos

	engineA.Clear()
	engineB.Clear()
	white, black := engineA, engineB
	if !info.engineAIsWhite {
		white, black = black, white
	}

	hashes := []uint64{pos.Hash}
	for {
		if outcome, term, over := adjudicate(&pos, hashes, len(game.Moves), cfg.MaxPlies); over {
			game.Outcome, game.Termination = outcome, term
			break
		}

		bot := white
		if pos.SideToMove == board.Black {
			bot = black
		}
		bot.SetHistory(hashes[:len(hashes)-1])

		res, err := bot.Search(ctx, pos, cfg.Limits, nil)
		if err != nil {
			return Game{}, err
		}
		if ctx.Err() != nil {
			return Game{}, ctx.Err()
		}

		next, ok := pos.MakeMove(res.Move, false)
		if !ok {
			return Game{}, fmt.Errorf("engine played illegal move %s in %s", res.Move, pos.FEN())
		}
		game.Moves = append(game.Moves, res.Move)
		pos = next
		hashes = append(hashes, pos.Hash)
	}

	game.SAN = board.MovesToSAN(&startPos, game.Moves)
	game.Duration = time.Since(start)

	if err := learn(cfg, startPos, game); err != nil {
		return game, fmt.Errorf("learn game: %w", err)
	}
	return game, nil
}

// adjudicate decides whether the game is over before the side to move plays.
func adjudicate(pos *board.Position, hashes []uint64, plies, maxPlies int) (Outcome, Termination, bool) {
	if !pos.HasLegalMoves() {
		if !pos.InCheck() {
			return Draw, Stalemate, true
		}
		if pos.SideToMove == board.White {
			return BlackWins, Checkmate, true
		}
		return WhiteWins, Checkmate, true
	}
	if isThreefold(hashes) {
		return Draw, ThreefoldRepetition, true
	}
	if pos.HalfMoveClock >= 100 {
		return Draw, FiftyMoveRule, true
	}
	if pos.IsInsufficientMaterial() {
		return Draw, InsufficientMaterial, true
	}
	if plies >= maxPlies {
		return Draw, MaxPlies, true
	}
	return Draw, "", false
}

// isThreefold reports whether the last position occurred three times.
func isThreefold(hashes []uint64) bool {
	if len(hashes) == 0 {
		return false
	}
	last := hashes[len(hashes)-1]
	count := 0
	for _, h := range hashes {
		if h == last {
			count++
		}
	}
	return count >= 3
}

// learn feeds the winner's opening moves into the book.
func learn(cfg Config, start board.Position, game Game) error {
	if cfg.Book == nil || game.Outcome == Draw {
		return nil
	}
	winner := board.White
	if game.Outcome == BlackWins {
		winner = board.Black
	}

	pos := start
	for i, m := range game.Moves {
		if i >= cfg.BookPlies {
			break
		}
		if pos.SideToMove == winner {
			if err := cfg.Book.Learn(&pos, m, 1); err != nil {
				return err
			}
		}
		pos, _ = pos.MakeMove(m, false)
	}
	return nil
}

func record(cfg Config, game Game) error {
	if cfg.Store == nil {
		return nil
	}
	winner := ""
	switch game.Outcome {
	case WhiteWins:
		winner = "white"
	case BlackWins:
		winner = "black"
	}
	return cfg.Store.RecordGame(storage.GameResult{
		Winner:      winner,
		Termination: string(game.Termination),
		Plies:       len(game.Moves),
		Duration:    game.Duration,
	})
}
