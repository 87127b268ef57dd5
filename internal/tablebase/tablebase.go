// Package tablebase provides endgame tablebase lookups.
package tablebase

import (
	"context"
	"errors"

	"github.com/hailam/blackbit/internal/board"
)

// ErrUnavailable is returned when a prober cannot answer for a position.
var ErrUnavailable = errors.New("tablebase: position not available")

// WDL represents Win/Draw/Loss result from the side to move's view.
type WDL int

const (
	WDLLoss        WDL = -2
	WDLBlessedLoss WDL = -1 // Loss, but the 50-move rule saves it
	WDLDraw        WDL = 0
	WDLCursedWin   WDL = 1 // Win, but the 50-move rule spoils it
	WDLWin         WDL = 2
)

func (w WDL) String() string {
	switch w {
	case WDLLoss:
		return "loss"
	case WDLBlessedLoss:
		return "blessed-loss"
	case WDLDraw:
		return "draw"
	case WDLCursedWin:
		return "cursed-win"
	case WDLWin:
		return "win"
	}
	return "unknown"
}

// ProbeResult contains the result of a tablebase probe.
type ProbeResult struct {
	WDL WDL
	DTZ int // Distance to zeroing move (pawn move or capture)
}

// RootResult contains the best move from tablebase at root position.
type RootResult struct {
	Move board.Move
	WDL  WDL
	DTZ  int
}

// Prober is the interface for tablebase probing.
type Prober interface {
	// Probe looks up a position in the tablebase.
	Probe(ctx context.Context, pos *board.Position) (ProbeResult, error)

	// ProbeRoot finds the best move from the tablebase at the root position.
	ProbeRoot(ctx context.Context, pos *board.Position) (RootResult, error)

	// MaxPieces returns the maximum number of pieces supported.
	MaxPieces() int

	// Available returns true if the prober can answer at all.
	Available() bool
}

// Tablebase scores sit below engine mate scores so that a real mate found
// by search is always preferred.
const (
	tbWinScore    = 20000
	tbCursedScore = 100
)

// WDLToScore converts a WDL result to a search score.
func WDLToScore(wdl WDL, ply int) int {
	switch wdl {
	case WDLWin:
		return tbWinScore - ply
	case WDLCursedWin:
		return tbCursedScore
	case WDLBlessedLoss:
		return -tbCursedScore
	case WDLLoss:
		return -tbWinScore + ply
	default:
		return 0
	}
}

// NoopProber is a prober that never finds anything.
type NoopProber struct{}

func (NoopProber) Probe(context.Context, *board.Position) (ProbeResult, error) {
	return ProbeResult{}, ErrUnavailable
}

func (NoopProber) ProbeRoot(context.Context, *board.Position) (RootResult, error) {
	return RootResult{}, ErrUnavailable
}

func (NoopProber) MaxPieces() int {
	return 0
}

func (NoopProber) Available() bool {
	return false
}

// CountPieces returns the total number of pieces on the board.
func CountPieces(pos *board.Position) int {
	return pos.AllOccupied.PopCount()
}
