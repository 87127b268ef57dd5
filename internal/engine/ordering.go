package engine

import (
	"github.com/hailam/blackbit/internal/board"
)

// Move ordering priorities
const (
	PVMoveScore  = 20000
	CaptureScore = 10000
	KillerScore1 = 9000
	KillerScore2 = 8000
)

// MVV-LVA (Most Valuable Victim - Least Valuable Attacker) scores,
// indexed [victim][attacker].
var mvvLva = [6][6]int{
	//        P    N    B    R    Q    K  (attacker)
	/* P */ {105, 104, 103, 102, 101, 100},
	/* N */ {205, 204, 203, 202, 201, 200},
	/* B */ {305, 304, 303, 302, 301, 300},
	/* R */ {405, 404, 403, 402, 401, 400},
	/* Q */ {505, 504, 503, 502, 501, 500},
	/* K */ {605, 604, 603, 602, 601, 600},
}

// enablePVScoring keeps PV following on only if this node's move list
// still contains the previous iteration's PV move for the current ply.
func (b *Bot) enablePVScoring(ml *board.MoveList) {
	b.followPV = false
	pvMove := b.pv.moves[0][b.ply]
	if pvMove != board.NoMove && ml.Contains(pvMove) {
		b.scorePV = true
		b.followPV = true
	}
}

// scoreMove ranks a move: PV move, captures by MVV-LVA, killers, then history.
func (b *Bot) scoreMove(pos *board.Position, m board.Move) int {
	if b.scorePV && b.pv.moves[0][b.ply] == m {
		b.scorePV = false
		return PVMoveScore
	}

	if m.IsCapture() {
		victim := board.Pawn
		if !m.IsEnPassant() {
			victim = pos.PieceAt(m.To()).Type()
		}
		return CaptureScore + mvvLva[victim][m.Piece()]
	}

	switch m {
	case b.killers[0][b.ply]:
		return KillerScore1
	case b.killers[1][b.ply]:
		return KillerScore2
	}
	return b.history[m.Side()][m.Piece()][m.To()]
}

// scoreMoves fills scores for every move in ml.
func (b *Bot) scoreMoves(pos *board.Position, ml *board.MoveList, scores []int) {
	for i := 0; i < ml.Len(); i++ {
		scores[i] = b.scoreMove(pos, ml.Get(i))
	}
}

// pickMove swaps the best-scored move among index..end into index.
func pickMove(ml *board.MoveList, scores []int, index int) {
	best := index
	for i := index + 1; i < ml.Len(); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	if best != index {
		ml.Swap(index, best)
		scores[index], scores[best] = scores[best], scores[index]
	}
}

// storeKiller records a quiet move that caused a beta cutoff.
func (b *Bot) storeKiller(m board.Move) {
	if b.killers[0][b.ply] == m {
		return
	}
	b.killers[1][b.ply] = b.killers[0][b.ply]
	b.killers[0][b.ply] = m
}

// updateHistory rewards a quiet move that raised alpha.
func (b *Bot) updateHistory(m board.Move, depth int) {
	b.history[m.Side()][m.Piece()][m.To()] += depth
}
