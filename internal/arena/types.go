package arena

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/hailam/blackbit/internal/board"
	"github.com/hailam/blackbit/internal/book"
	"github.com/hailam/blackbit/internal/engine"
	"github.com/hailam/blackbit/internal/storage"
)

// Outcome of a finished game.
type Outcome int

const (
	Draw Outcome = iota
	WhiteWins
	BlackWins
)

func (o Outcome) String() string {
	switch o {
	case WhiteWins:
		return "1-0"
	case BlackWins:
		return "0-1"
	}
	return "1/2-1/2"
}

// Termination says why a game ended.
type Termination string

const (
	Checkmate            Termination = "checkmate"
	Stalemate            Termination = "stalemate"
	ThreefoldRepetition  Termination = "threefold repetition"
	FiftyMoveRule        Termination = "fifty-move rule"
	InsufficientMaterial Termination = "insufficient material"
	MaxPlies             Termination = "max plies"
)

// Config configures Run. Zero fields take their defaults.
type Config struct {
	Games       int // Number of games, two per opening when zero
	Concurrency int // Games played at once
	MaxPlies    int // Adjudicate a draw after this many plies

	Limits  engine.Limits  // Per move
	EngineA engine.Options // Player A, White in even-numbered games
	EngineB engine.Options

	Openings    []string // Starting FENs
	RandomPlies int      // Random legal plies played before the engines take over

	Book      *book.Book // Winners' moves are learned when set
	BookPlies int        // Plies of a won game that are learned
	Store     *storage.Storage

	Logger zerolog.Logger
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.MaxPlies <= 0 {
		c.MaxPlies = 300
	}
	if c.Limits == (engine.Limits{}) {
		c.Limits = engine.Limits{Depth: 4}
	}
	if len(c.Openings) == 0 {
		c.Openings = DefaultOpenings
	}
	if c.Games <= 0 {
		c.Games = 2 * len(c.Openings)
	}
	if c.BookPlies <= 0 {
		c.BookPlies = 16
	}
	return c
}

type gameInfo struct {
	id             uuid.UUID
	number         int
	opening        string
	engineAIsWhite bool
}

// Game is a finished game.
type Game struct {
	ID             uuid.UUID
	Number         int
	Opening        string // FEN the engines started from
	EngineAIsWhite bool
	Moves          []board.Move
	SAN            []string
	Outcome        Outcome
	Termination    Termination
	Duration       time.Duration
}

// MoveText renders the moves as numbered SAN ("1. e4 e5 2. Nf3").
func (g Game) MoveText() string {
	pos, err := board.ParseFEN(g.Opening)
	if err != nil {
		return strings.Join(g.SAN, " ")
	}

	number := pos.FullMoveNumber
	tokens := lo.FlatMap(g.SAN, func(san string, i int) []string {
		whiteToMove := (int(pos.SideToMove)+i)%2 == 0
		switch {
		case whiteToMove:
			n := number
			number++
			return []string{fmt.Sprintf("%d.", n), san}
		case i == 0:
			n := number
			number++
			return []string{fmt.Sprintf("%d...", n), san}
		default:
			return []string{san}
		}
	})
	return strings.Join(tokens, " ")
}

// PGN renders the game in PGN export format.
func (g Game) PGN() string {
	var sb strings.Builder
	white, black := "A", "B"
	if !g.EngineAIsWhite {
		white, black = black, white
	}
	fmt.Fprintf(&sb, "[Event \"blackbit arena\"]\n")
	fmt.Fprintf(&sb, "[Round \"%d\"]\n", g.Number)
	fmt.Fprintf(&sb, "[White \"%s\"]\n", white)
	fmt.Fprintf(&sb, "[Black \"%s\"]\n", black)
	fmt.Fprintf(&sb, "[Result \"%s\"]\n", g.Outcome)
	if g.Opening != board.StartFEN {
		fmt.Fprintf(&sb, "[SetUp \"1\"]\n[FEN \"%s\"]\n", g.Opening)
	}
	fmt.Fprintf(&sb, "[Termination \"%s\"]\n", g.Termination)
	fmt.Fprintf(&sb, "[GameId \"%s\"]\n\n", g.ID)
	fmt.Fprintf(&sb, "%s %s\n", g.MoveText(), g.Outcome)
	return sb.String()
}

// Summary is the result of a match between engine A and engine B.
type Summary struct {
	Games   []Game // Ordered by game number
	WinsA   int
	LossesA int
	Draws   int
	Stats   Statistics
}
