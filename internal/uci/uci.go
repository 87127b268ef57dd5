// Package uci implements the Universal Chess Interface protocol.
package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hailam/blackbit/internal/board"
	"github.com/hailam/blackbit/internal/book"
	"github.com/hailam/blackbit/internal/engine"
	"github.com/hailam/blackbit/internal/storage"
	"github.com/hailam/blackbit/internal/tablebase"
)

// Options configures the protocol handler.
type Options struct {
	Name      string
	Author    string
	HashMB    int
	Book      *book.Book       // OwnBook is on when set
	Tablebase tablebase.Prober // Consulted at the root when set
	Store     *storage.Storage // Completed searches are saved when set
	Logger    zerolog.Logger
}

// UCI implements the Universal Chess Interface protocol.
type UCI struct {
	opts Options
	bot  *engine.Bot
	log  zerolog.Logger

	position board.Position
	// Hashes of every position of the game so far, current one last
	positionHashes []uint64

	ownBook      bool
	useTablebase bool

	out   io.Writer
	outMu sync.Mutex

	// Search state
	cancel     context.CancelFunc
	searchDone chan struct{}
	infinite   bool // bestmove is held until "stop"
}

// New creates a new UCI protocol handler.
func New(opts Options) *UCI {
	if opts.Name == "" {
		opts.Name = "Blackbit"
	}
	if opts.Author == "" {
		opts.Author = "Blackbit Authors"
	}
	if opts.HashMB <= 0 {
		opts.HashMB = engine.DefaultOptions().TTSizeMB
	}

	log := opts.Logger.With().Str("component", "uci").Logger()
	u := &UCI{
		opts:         opts,
		log:          log,
		bot:          engine.NewBot(engine.Options{TTSizeMB: opts.HashMB, Logger: opts.Logger}),
		ownBook:      opts.Book != nil,
		useTablebase: opts.Tablebase != nil && opts.Tablebase.Available(),
	}
	u.resetPosition(board.NewPosition())
	return u
}

func (u *UCI) resetPosition(pos board.Position) {
	u.position = pos
	u.positionHashes = append(u.positionHashes[:0], pos.Hash)
}

func (u *UCI) printf(format string, args ...any) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	fmt.Fprintf(u.out, format, args...)
}

// Run reads commands from r until "quit" or end of input and writes
// responses to w. A running search is waited for at end of input and
// stopped on "quit" or when ctx is done.
func (u *UCI) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	u.out = w
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		if ctx.Err() != nil {
			u.handleStop()
			return ctx.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "uci":
			u.handleUCI()
		case "isready":
			u.printf("readyok\n")
		case "ucinewgame":
			u.handleNewGame()
		case "position":
			u.handlePosition(args)
		case "go":
			u.handleGo(ctx, args)
		case "stop":
			u.handleStop()
		case "quit":
			u.handleStop()
			return nil
		case "setoption":
			u.handleSetOption(args)
		// Debug commands
		case "d":
			u.printf("%s\nFen: %s\n", u.position.String(), u.position.FEN())
		case "perft":
			u.handlePerft(args)
		case "eval":
			u.printf("Evaluation: %s (%d cp, side to move)\n",
				engine.ScoreToString(u.bot.Evaluate(&u.position)), u.bot.Evaluate(&u.position))
		default:
			u.log.Debug().Str("command", cmd).Msg("unknown command")
		}
	}

	if u.infinite {
		// Nobody is left to send "stop".
		u.handleStop()
	} else {
		u.waitSearch()
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read commands: %w", err)
	}
	return nil
}

// handleUCI responds to the "uci" command.
func (u *UCI) handleUCI() {
	u.printf("id name %s\n", u.opts.Name)
	u.printf("id author %s\n", u.opts.Author)
	u.printf("\n")
	u.printf("option name Hash type spin default %d min 1 max 4096\n", u.opts.HashMB)
	u.printf("option name Clear Hash type button\n")
	u.printf("option name OwnBook type check default %t\n", u.ownBook)
	u.printf("option name BookPath type string default <empty>\n")
	u.printf("option name Tablebase type check default %t\n", u.useTablebase)
	u.printf("uciok\n")
}

// handleNewGame resets the engine for a new game.
func (u *UCI) handleNewGame() {
	u.handleStop()
	u.bot.Clear()
	u.resetPosition(board.NewPosition())
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos
//   - position startpos moves e2e4 e7e5
//   - position fen <fen>
//   - position fen <fen> moves e2e4
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	movesAt := len(args)
	for i, arg := range args {
		if arg == "moves" {
			movesAt = i
			break
		}
	}

	var pos board.Position
	switch args[0] {
	case "startpos":
		pos = board.NewPosition()
	case "fen":
		var err error
		pos, err = board.ParseFEN(strings.Join(args[1:movesAt], " "))
		if err != nil {
			u.log.Warn().Err(err).Msg("invalid FEN")
			u.printf("info string Invalid FEN: %v\n", err)
			return
		}
	default:
		return
	}
	u.resetPosition(pos)

	if movesAt >= len(args) {
		return
	}
	for _, moveStr := range args[movesAt+1:] {
		m, err := board.ParseMove(moveStr, &u.position)
		if err != nil {
			u.log.Warn().Err(err).Str("move", moveStr).Msg("invalid move")
			u.printf("info string Invalid move: %s\n", moveStr)
			return
		}
		next, ok := u.position.MakeMove(m, false)
		if !ok {
			u.log.Warn().Str("move", moveStr).Msg("illegal move")
			u.printf("info string Illegal move: %s\n", moveStr)
			return
		}
		u.position = next
		u.positionHashes = append(u.positionHashes, next.Hash)
	}
}

// GoOptions holds parsed "go" command options.
type GoOptions struct {
	Depth     int
	Nodes     uint64
	MoveTime  time.Duration
	Infinite  bool
	WTime     time.Duration
	BTime     time.Duration
	WInc      time.Duration
	BInc      time.Duration
	MovesToGo int
}

// ParseGoOptions parses "go" command arguments. Unknown tokens are ignored.
func ParseGoOptions(args []string) GoOptions {
	opts := GoOptions{}

	next := func(i *int) string {
		if *i+1 < len(args) {
			*i++
			return args[*i]
		}
		return ""
	}
	millis := func(s string) time.Duration {
		ms, _ := strconv.Atoi(s)
		return time.Duration(ms) * time.Millisecond
	}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "depth":
			opts.Depth, _ = strconv.Atoi(next(&i))
		case "nodes":
			opts.Nodes, _ = strconv.ParseUint(next(&i), 10, 64)
		case "movetime":
			opts.MoveTime = millis(next(&i))
		case "infinite":
			opts.Infinite = true
		case "wtime":
			opts.WTime = millis(next(&i))
		case "btime":
			opts.BTime = millis(next(&i))
		case "winc":
			opts.WInc = millis(next(&i))
		case "binc":
			opts.BInc = millis(next(&i))
		case "movestogo":
			opts.MovesToGo, _ = strconv.Atoi(next(&i))
		}
	}
	return opts
}

// Limits converts GoOptions to engine limits.
func (o GoOptions) Limits() engine.Limits {
	if o.Infinite {
		return engine.Limits{}
	}
	return engine.Limits{
		Depth:    o.Depth,
		Nodes:    o.Nodes,
		MoveTime: o.MoveTime,
		Clock: engine.Clock{
			Time:      [2]time.Duration{o.WTime, o.BTime},
			Inc:       [2]time.Duration{o.WInc, o.BInc},
			MovesToGo: o.MovesToGo,
		},
	}
}

// handleGo starts a search with the given parameters.
func (u *UCI) handleGo(parent context.Context, args []string) {
	u.handleStop()

	goOpts := ParseGoOptions(args)
	limits := goOpts.Limits()
	pos := u.position
	u.bot.SetHistory(u.positionHashes[:len(u.positionHashes)-1])

	ctx, cancel := context.WithCancel(parent)
	u.cancel = cancel
	u.searchDone = make(chan struct{})
	u.infinite = goOpts.Infinite

	go func() {
		defer close(u.searchDone)
		defer cancel()
		best := u.think(ctx, pos, limits)
		if goOpts.Infinite {
			// A finished infinite search (e.g. a found mate) still waits for "stop".
			<-ctx.Done()
		}
		u.printf("bestmove %s\n", best)
	}()
}

// think picks the move to play: book, then tablebase, then search.
func (u *UCI) think(ctx context.Context, pos board.Position, limits engine.Limits) board.Move {
	if u.ownBook && u.opts.Book != nil {
		m, err := u.opts.Book.Probe(&pos)
		switch {
		case err == nil:
			u.printf("info string book move %s\n", m)
			return m
		case !errors.Is(err, book.ErrNoEntry):
			u.log.Warn().Err(err).Msg("book probe failed")
		}
	}

	if u.useTablebase && tablebase.CountPieces(&pos) <= u.opts.Tablebase.MaxPieces() {
		res, err := u.opts.Tablebase.ProbeRoot(ctx, &pos)
		switch {
		case err == nil:
			u.printf("info depth 1 score cp %d pv %s\n", tablebase.WDLToScore(res.WDL, 0), res.Move)
			u.printf("info string tablebase %s dtz %d\n", res.WDL, res.DTZ)
			return res.Move
		case !errors.Is(err, tablebase.ErrUnavailable):
			u.log.Warn().Err(err).Msg("tablebase probe failed")
		}
	}

	res, err := u.bot.Search(ctx, pos, limits, func(r engine.Result) bool {
		u.sendInfo(r)
		return true
	})
	if err != nil {
		u.log.Error().Err(err).Msg("search failed")
		return board.NoMove
	}

	if u.opts.Store != nil && res.Depth > 0 {
		err := u.opts.Store.PutAnalysis(pos.Hash, storage.Analysis{
			FEN:      pos.FEN(),
			Depth:    res.Depth,
			Score:    res.Score,
			BestMove: res.Move.String(),
			PV:       strings.Fields(engine.FormatPV(res.PV)),
			Nodes:    res.Nodes,
		})
		if err != nil {
			u.log.Warn().Err(err).Msg("save analysis")
		}
	}
	return res.Move
}

// FormatInfo renders a search result as a UCI info line.
func FormatInfo(r engine.Result) string {
	parts := []string{fmt.Sprintf("depth %d", r.Depth)}

	if n, ok := engine.MateIn(r.Score); ok {
		parts = append(parts, fmt.Sprintf("score mate %d", n))
	} else {
		parts = append(parts, fmt.Sprintf("score cp %d", r.Score))
	}

	parts = append(parts, fmt.Sprintf("nodes %d", r.Nodes))
	parts = append(parts, fmt.Sprintf("time %d", r.Time.Milliseconds()))
	if r.Time > 0 {
		parts = append(parts, fmt.Sprintf("nps %d", uint64(float64(r.Nodes)/r.Time.Seconds())))
	}
	parts = append(parts, fmt.Sprintf("hashfull %d", r.HashFull))

	if len(r.PV) > 0 {
		parts = append(parts, "pv "+engine.FormatPV(r.PV))
	}
	return "info " + strings.Join(parts, " ")
}

// sendInfo outputs search info in UCI format.
func (u *UCI) sendInfo(r engine.Result) {
	u.printf("%s\n", FormatInfo(r))
}

// handleStop stops the current search and waits for its bestmove.
func (u *UCI) handleStop() {
	if u.cancel != nil {
		u.cancel()
	}
	u.waitSearch()
}

func (u *UCI) waitSearch() {
	if u.searchDone != nil {
		<-u.searchDone
		u.searchDone = nil
		u.cancel = nil
		u.infinite = false
	}
}

// handleSetOption processes "setoption name <name> [value <value>]".
func (u *UCI) handleSetOption(args []string) {
	var name, value []string
	target := &name
	for _, arg := range args {
		switch arg {
		case "name":
			target = &name
		case "value":
			target = &value
		default:
			*target = append(*target, arg)
		}
	}

	u.handleStop()
	val := strings.Join(value, " ")

	switch strings.ToLower(strings.Join(name, " ")) {
	case "hash":
		mb, err := strconv.Atoi(val)
		if err != nil || mb < 1 {
			u.printf("info string Invalid hash size: %s\n", val)
			return
		}
		u.bot.ResizeHash(mb)
	case "clear hash":
		u.bot.Clear()
	case "ownbook":
		u.ownBook = strings.EqualFold(val, "true")
		if u.ownBook && u.opts.Book == nil {
			u.opts.Book = book.NewMemory()
		}
	case "bookpath":
		u.loadBook(val)
	case "tablebase":
		u.useTablebase = strings.EqualFold(val, "true")
		if u.useTablebase && u.opts.Tablebase == nil {
			u.opts.Tablebase = tablebase.NewCachedLichessProber(tablebase.LichessOptions{Logger: u.opts.Logger})
		}
	default:
		u.log.Debug().Strs("name", name).Msg("unknown option")
	}
}

// loadBook imports a binary book file into the current book.
func (u *UCI) loadBook(path string) {
	f, err := os.Open(path)
	if err != nil {
		u.printf("info string Failed to open book: %v\n", err)
		return
	}
	defer f.Close()

	if u.opts.Book == nil {
		u.opts.Book = book.NewMemory()
	}
	n, err := u.opts.Book.Import(f)
	if err != nil {
		u.printf("info string Failed to load book: %v\n", err)
		return
	}
	u.ownBook = true
	u.log.Info().Str("path", path).Int("entries", n).Msg("book loaded")
	u.printf("info string Loaded %d book entries\n", n)
}

// handlePerft runs a perft test with per-move counts.
func (u *UCI) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		if d, err := strconv.Atoi(args[0]); err == nil && d > 0 {
			depth = d
		}
	}

	start := time.Now()
	var nodes uint64
	for _, e := range board.Divide(&u.position, depth) {
		u.printf("%s: %d\n", e.Move, e.Nodes)
		nodes += e.Nodes
	}
	elapsed := time.Since(start)

	u.printf("\nNodes: %d\n", nodes)
	u.printf("Time: %v\n", elapsed)
	if elapsed > 0 {
		u.printf("NPS: %.0f\n", float64(nodes)/elapsed.Seconds())
	}
}
