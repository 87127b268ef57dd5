// Package engine implements the alpha-beta game-tree search.
package engine

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/hailam/blackbit/internal/board"
	"github.com/hailam/blackbit/internal/eval"
)

// ErrBusy is returned when a Bot is asked to search while a search is running.
var ErrBusy = errors.New("engine: search already in progress")

// Evaluator scores a position in centipawns from the side to move's view.
type Evaluator interface {
	Evaluate(pos *board.Position) int
}

// Options configures a Bot.
type Options struct {
	TTSizeMB  int       // Transposition table size
	Evaluator Evaluator // Static evaluation, defaults to eval.Classical
	Logger    zerolog.Logger // The zero Logger discards everything
}

// DefaultOptions returns the options used by NewBot when fields are left zero.
func DefaultOptions() Options {
	return Options{
		TTSizeMB:  16,
		Evaluator: eval.Classical{},
		Logger:    zerolog.Nop(),
	}
}

// Limits specifies constraints on a search. Zero values mean no limit.
type Limits struct {
	Depth    int           // Maximum depth
	Nodes    uint64        // Maximum nodes
	MoveTime time.Duration // Fixed time for this move
	Clock    Clock         // Game clock, used when MoveTime is zero
}

// Result describes one completed iteration of the search.
type Result struct {
	Depth    int
	Move     board.Move
	Score    int
	Nodes    uint64
	Time     time.Duration
	PV       []board.Move
	HashFull int // Permille of hash table used
}

// Bot owns all search state. It serves one search at a time.
type Bot struct {
	eval Evaluator
	log  zerolog.Logger
	tt   *TranspositionTable

	killers [2][MaxPly]board.Move
	history [2][6][64]int
	pv      PVTable

	followPV bool
	scorePV  bool

	gameHistory []uint64
	repetitions []uint64

	nodes   uint64
	ply     int
	stopped bool
	busy    atomic.Bool

	ctx    context.Context
	limits Limits
	tm     TimeManager
}

// NewBot creates a Bot. Zero fields of opts take their defaults.
func NewBot(opts Options) *Bot {
	def := DefaultOptions()
	if opts.TTSizeMB <= 0 {
		opts.TTSizeMB = def.TTSizeMB
	}
	if opts.Evaluator == nil {
		opts.Evaluator = def.Evaluator
	}

	return &Bot{
		eval:        opts.Evaluator,
		log:         opts.Logger.With().Str("component", "engine").Logger(),
		tt:          NewTranspositionTable(opts.TTSizeMB),
		repetitions: make([]uint64, 0, 2*MaxPly),
	}
}

// SetHistory sets the hashes of the positions played before the position
// that will be searched next. They take part in repetition detection.
func (b *Bot) SetHistory(hashes []uint64) {
	b.gameHistory = append(b.gameHistory[:0], hashes...)
}

// Clear clears the transposition table and the move ordering tables.
func (b *Bot) Clear() {
	b.tt.Clear()
	b.killers = [2][MaxPly]board.Move{}
	b.history = [2][6][64]int{}
}

// ResizeHash replaces the transposition table.
func (b *Bot) ResizeHash(sizeMB int) {
	b.tt = NewTranspositionTable(sizeMB)
}

// Evaluate returns the static evaluation of a position.
func (b *Bot) Evaluate(pos *board.Position) int {
	return b.eval.Evaluate(pos)
}

func (b *Bot) reset(ctx context.Context, pos *board.Position, limits Limits) {
	b.killers = [2][MaxPly]board.Move{}
	b.history = [2][6][64]int{}
	b.pv = PVTable{}
	b.followPV = false
	b.scorePV = false
	b.nodes = 0
	b.ply = 0
	b.stopped = false
	b.ctx = ctx
	b.limits = limits
	b.repetitions = append(b.repetitions[:0], b.gameHistory...)

	gamePly := (pos.FullMoveNumber-1)*2 + int(pos.SideToMove)
	b.tm.Init(limits, pos.SideToMove, gamePly)
}

// Search runs iterative deepening on pos until a limit is hit or ctx is
// cancelled. onDepth, if not nil, is called after every completed depth;
// returning false ends the search. The returned Result is the last
// completed depth. Cancellation is not an error.
func (b *Bot) Search(ctx context.Context, pos board.Position, limits Limits, onDepth func(Result) bool) (Result, error) {
	if !b.busy.CompareAndSwap(false, true) {
		return Result{}, ErrBusy
	}
	defer b.busy.Store(false)

	b.reset(ctx, &pos, limits)

	legal := pos.LegalMoves()
	if len(legal) == 0 {
		res := Result{Move: board.NoMove}
		if pos.InCheck() {
			res.Score = -MateScore
		}
		if onDepth != nil {
			onDepth(res)
		}
		return res, nil
	}

	maxDepth := MaxPly - 1
	if limits.Depth > 0 && limits.Depth < maxDepth {
		maxDepth = limits.Depth
	}

	b.log.Debug().
		Str("fen", pos.FEN()).
		Int("depth", limits.Depth).
		Uint64("nodes", limits.Nodes).
		Dur("optimum", b.tm.OptimumTime()).
		Dur("maximum", b.tm.MaximumTime()).
		Msg("search started")

	var best Result
	alpha, beta := -Infinity, Infinity

	for depth := 1; depth <= maxDepth; depth++ {
		b.followPV = true
		score := b.negamax(&pos, depth, alpha, beta)

		if b.stopped {
			break
		}

		// Fell outside the aspiration window: repeat with a full window
		if score <= alpha || score >= beta {
			alpha, beta = -Infinity, Infinity
			depth--
			continue
		}

		best = Result{
			Depth:    depth,
			Move:     b.pv.moves[0][0],
			Score:    score,
			Nodes:    b.nodes,
			Time:     b.tm.Elapsed(),
			PV:       b.pv.line(),
			HashFull: b.tt.HashFull(),
		}

		b.log.Debug().
			Int("depth", depth).
			Int("score", score).
			Uint64("nodes", b.nodes).
			Str("pv", FormatPV(best.PV)).
			Msg("iteration complete")

		if onDepth != nil && !onDepth(best) {
			break
		}

		if score > MateScore-MaxPly || score < -MateScore+MaxPly {
			break
		}
		if limits.Nodes > 0 && b.nodes >= limits.Nodes {
			break
		}
		if b.tm.PastOptimum() {
			break
		}

		if depth+1 >= aspirationDepth {
			alpha, beta = score-aspirationWindow, score+aspirationWindow
		}
	}

	if best.Move == board.NoMove {
		// Stopped before depth 1 completed
		best = Result{Move: legal[0], PV: []board.Move{legal[0]}, Nodes: b.nodes, Time: b.tm.Elapsed()}
	}

	b.log.Debug().
		Int("depth", best.Depth).
		Str("move", best.Move.String()).
		Int("score", best.Score).
		Uint64("nodes", b.nodes).
		Bool("stopped", b.stopped).
		Msg("search finished")

	return best, nil
}

// Stream runs Search in a new goroutine and delivers every completed depth
// on the returned channel, which is closed when the search ends. A consumer
// that stops reading must cancel ctx.
func (b *Bot) Stream(ctx context.Context, pos board.Position, limits Limits) <-chan Result {
	out := make(chan Result)
	go func() {
		defer close(out)
		_, err := b.Search(ctx, pos, limits, func(r Result) bool {
			select {
			case out <- r:
				return true
			case <-ctx.Done():
				return false
			}
		})
		if err != nil {
			b.log.Error().Err(err).Msg("stream search failed")
		}
	}()
	return out
}

// MateIn returns the number of moves to mate encoded in score, negative
// when the side to move is being mated.
func MateIn(score int) (int, bool) {
	switch {
	case score > MateScore-MaxPly:
		return (MateScore - score + 1) / 2, true
	case score < -MateScore+MaxPly:
		return -(MateScore + score) / 2, true
	}
	return 0, false
}

// ScoreToString converts a score to a human-readable string.
func ScoreToString(score int) string {
	if n, ok := MateIn(score); ok {
		if n > 0 {
			return "Mate in " + strconv.Itoa(n)
		}
		return "Mated in " + strconv.Itoa(-n)
	}

	sign := ""
	if score < 0 {
		sign = "-"
		score = -score
	}
	return sign + strconv.Itoa(score/100) + "." + strconv.Itoa(score%100/10) + strconv.Itoa(score%10)
}

// FormatPV joins moves in UCI notation.
func FormatPV(pv []board.Move) string {
	return strings.Join(lo.Map(pv, func(m board.Move, _ int) string {
		return m.String()
	}), " ")
}
