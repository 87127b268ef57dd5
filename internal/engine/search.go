package engine

import (
	"github.com/hailam/blackbit/internal/board"
)

// Search constants
const (
	Infinity  = 30000
	MateScore = 29000
	MaxPly    = 128
)

// Pruning constants
const (
	nullMoveMinDepth  = 3
	nullMoveReduction = 2
	fullDepthMoves    = 4 // Moves searched at full depth before LMR
	reductionLimit    = 3 // Minimum depth for LMR
	aspirationWindow  = 50
	aspirationDepth   = 4 // First depth searched with a narrow window
)

// nodeCheckMask decides how often the stop conditions are polled.
const nodeCheckMask = 2047

// PVTable stores the principal variation. Row p holds the line found at ply p.
type PVTable struct {
	length [MaxPly + 1]int
	moves  [MaxPly + 1][MaxPly + 1]board.Move
}

// update makes m the head of the line at ply and appends the child's line.
func (pv *PVTable) update(ply int, m board.Move) {
	pv.moves[ply][ply] = m
	next := ply + 1
	for i := next; i < pv.length[next]; i++ {
		pv.moves[ply][i] = pv.moves[next][i]
	}
	pv.length[ply] = pv.length[next]
}

// line returns a copy of the root principal variation.
func (pv *PVTable) line() []board.Move {
	n := pv.length[0]
	out := make([]board.Move, n)
	copy(out, pv.moves[0][:n])
	return out
}

// negamax is the main alpha-beta search with principal variation search,
// null move pruning and late move reductions.
func (b *Bot) negamax(pos *board.Position, depth, alpha, beta int) int {
	b.pv.length[b.ply] = b.ply

	if b.shouldStop() {
		return 0
	}

	isRoot := b.ply == 0
	pvNode := beta-alpha > 1

	if !isRoot && (b.isRepetition(pos.Hash) || pos.HalfMoveClock >= 100) {
		return 0
	}

	if !isRoot && !pvNode {
		if score, ok := b.tt.ProbeScore(pos.Hash, depth, alpha, beta, b.ply); ok {
			return score
		}
	}

	if depth <= 0 {
		return b.quiescence(pos, alpha, beta)
	}

	if b.ply >= MaxPly-1 {
		return b.eval.Evaluate(pos)
	}

	b.nodes++

	inCheck := pos.InCheck()
	if inCheck {
		depth++
	}

	// Null move pruning
	if depth >= nullMoveMinDepth && !inCheck && !isRoot {
		child := pos.MakeNullMove()
		b.push(pos.Hash)
		score := -b.negamax(&child, depth-1-nullMoveReduction, -beta, -beta+1)
		b.pop()

		if b.stopped {
			return 0
		}
		if score >= beta {
			return beta
		}
	}

	var ml board.MoveList
	pos.GenerateMoves(&ml)

	if b.followPV {
		b.enablePVScoring(&ml)
	}
	var scores [256]int
	b.scoreMoves(pos, &ml, scores[:])

	legal := 0
	flag := TTUpperBound
	bestMove := board.NoMove

	for i := 0; i < ml.Len(); i++ {
		pickMove(&ml, scores[:], i)
		m := ml.Get(i)

		child, ok := pos.MakeMove(m, false)
		if !ok {
			continue
		}

		b.push(pos.Hash)

		var score int
		if legal == 0 {
			score = -b.negamax(&child, depth-1, -beta, -alpha)
		} else {
			// Late move reduction
			if legal >= fullDepthMoves && depth >= reductionLimit && !inCheck && m.IsQuiet() {
				score = -b.negamax(&child, depth-2, -alpha-1, -alpha)
			} else {
				score = alpha + 1
			}

			if score > alpha {
				score = -b.negamax(&child, depth-1, -alpha-1, -alpha)
				if score > alpha && score < beta {
					score = -b.negamax(&child, depth-1, -beta, -alpha)
				}
			}
		}

		b.pop()
		legal++

		if b.stopped {
			return 0
		}

		if score > alpha {
			flag = TTExact
			bestMove = m
			if !m.IsCapture() {
				b.updateHistory(m, depth)
			}

			alpha = score
			b.pv.update(b.ply, m)

			if score >= beta {
				b.tt.Store(pos.Hash, depth, beta, TTLowerBound, m, b.ply)
				if !m.IsCapture() {
					b.storeKiller(m)
				}
				return beta
			}
		}
	}

	if legal == 0 {
		if inCheck {
			return -MateScore + b.ply
		}
		return 0
	}

	b.tt.Store(pos.Hash, depth, alpha, flag, bestMove, b.ply)
	return alpha
}

// quiescence searches captures only until the position is quiet.
func (b *Bot) quiescence(pos *board.Position, alpha, beta int) int {
	if b.shouldStop() {
		return 0
	}

	b.nodes++

	standPat := b.eval.Evaluate(pos)
	if b.ply >= MaxPly-1 {
		return standPat
	}
	if standPat >= beta {
		return beta
	}
	if standPat > alpha {
		alpha = standPat
	}

	var ml board.MoveList
	pos.GenerateMoves(&ml)
	var scores [256]int
	b.scoreMoves(pos, &ml, scores[:])

	for i := 0; i < ml.Len(); i++ {
		pickMove(&ml, scores[:], i)
		child, ok := pos.MakeMove(ml.Get(i), true)
		if !ok {
			continue
		}

		b.push(pos.Hash)
		score := -b.quiescence(&child, -beta, -alpha)
		b.pop()

		if b.stopped {
			return 0
		}

		if score > alpha {
			alpha = score
			if score >= beta {
				return beta
			}
		}
	}
	return alpha
}

// push records the hash of the position being left and descends one ply.
func (b *Bot) push(hash uint64) {
	b.repetitions = append(b.repetitions, hash)
	b.ply++
}

func (b *Bot) pop() {
	b.repetitions = b.repetitions[:len(b.repetitions)-1]
	b.ply--
}

// isRepetition reports whether hash occurred earlier in the game or on the
// current search path.
func (b *Bot) isRepetition(hash uint64) bool {
	for _, h := range b.repetitions {
		if h == hash {
			return true
		}
	}
	return false
}

// shouldStop polls the stop conditions every few thousand nodes.
func (b *Bot) shouldStop() bool {
	if b.stopped {
		return true
	}
	if b.nodes&nodeCheckMask != 0 {
		return false
	}

	switch {
	case b.ctx.Err() != nil:
		b.stopped = true
	case b.limits.Nodes > 0 && b.nodes >= b.limits.Nodes:
		b.stopped = true
	case b.tm.ShouldStop():
		b.stopped = true
	}
	return b.stopped
}
