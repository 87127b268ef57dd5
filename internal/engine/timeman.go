package engine

import (
	"time"

	"github.com/hailam/blackbit/internal/board"
)

// Clock holds the game clock as sent by a GUI.
type Clock struct {
	Time      [2]time.Duration // remaining time for each color
	Inc       [2]time.Duration // increment per move
	MovesToGo int              // moves until next time control (0 = sudden death)
}

// IsZero reports whether no clock was given.
func (c Clock) IsZero() bool {
	return c.Time[board.White] == 0 && c.Time[board.Black] == 0
}

// TimeManager turns limits into a soft and a hard deadline. A zero
// maximum means the search is not time limited.
type TimeManager struct {
	optimumTime time.Duration // Stop starting new iterations after this
	maximumTime time.Duration // Abort the running iteration after this
	startTime   time.Time
}

// Init initializes the time manager for a new search.
// ply is the current game ply (half-move number).
func (tm *TimeManager) Init(limits Limits, us board.Color, ply int) {
	tm.startTime = time.Now()
	tm.optimumTime = 0
	tm.maximumTime = 0

	if limits.MoveTime > 0 {
		tm.optimumTime = limits.MoveTime / 2
		tm.maximumTime = limits.MoveTime
		return
	}
	if limits.Clock.Time[us] == 0 {
		return
	}

	tm.optimumTime, tm.maximumTime = AllocateTime(limits.Clock, us, ply)
}

// AllocateTime splits the remaining clock into a target and a maximum
// thinking time for the side to move.
func AllocateTime(clock Clock, us board.Color, ply int) (optimum, maximum time.Duration) {
	timeLeft := clock.Time[us]
	inc := clock.Inc[us]

	mtg := clock.MovesToGo
	if mtg == 0 {
		// Sudden death: expect fewer moves as the game goes on
		mtg = min(max(50-ply/4, 10), 50)
	}

	baseTime := timeLeft/time.Duration(mtg) + inc*9/10

	optimum = baseTime
	if ply < 8 {
		optimum = baseTime * 85 / 100
	}

	// Maximum time: 5x optimum or 80% of remaining, whichever is smaller
	maximum = min(optimum*5, timeLeft*8/10)
	maximum = min(maximum, timeLeft*95/100)

	optimum = max(optimum, 10*time.Millisecond)
	maximum = max(maximum, 50*time.Millisecond)
	// Never plan past the flag; a zero maximum would mean unlimited.
	maximum = max(min(maximum, timeLeft), time.Millisecond)
	optimum = min(optimum, maximum)
	return optimum, maximum
}

// Elapsed returns the time elapsed since search started.
func (tm *TimeManager) Elapsed() time.Duration {
	return time.Since(tm.startTime)
}

// OptimumTime returns the target time for this move.
func (tm *TimeManager) OptimumTime() time.Duration {
	return tm.optimumTime
}

// MaximumTime returns the maximum time allowed.
func (tm *TimeManager) MaximumTime() time.Duration {
	return tm.maximumTime
}

// ShouldStop returns true once the hard deadline has passed.
func (tm *TimeManager) ShouldStop() bool {
	return tm.maximumTime > 0 && tm.Elapsed() >= tm.maximumTime
}

// PastOptimum returns true once the soft deadline has passed.
func (tm *TimeManager) PastOptimum() bool {
	return tm.optimumTime > 0 && tm.Elapsed() >= tm.optimumTime
}
