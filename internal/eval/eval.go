// Package eval implements the classical static evaluation used by the search.
package eval

import (
	"github.com/hailam/blackbit/internal/board"
)

// Material values in centipawns, indexed by board.PieceType.
var pieceValues = [6]int{100, 300, 350, 500, 1000, 10000}

// Pawn structure terms
const (
	doubledPawnPenalty  = -10
	isolatedPawnPenalty = -10
)

// passedPawnBonus is indexed by the pawn's relative rank (0 = own back rank).
var passedPawnBonus = [8]int{0, 10, 30, 50, 75, 100, 150, 200}

// File terms
const (
	rookSemiOpenFileBonus = 10
	rookOpenFileBonus     = 15
	kingSemiOpenFile      = -10
	kingOpenFile          = -15
)

const bishopPairBonus = 30

var (
	isolatedMask [8]board.Bitboard     // adjacent files
	passedMask   [2][64]board.Bitboard // squares in front on own and adjacent files
)

func init() {
	for file := 0; file < 8; file++ {
		if file > 0 {
			isolatedMask[file] |= board.FileMask[file-1]
		}
		if file < 7 {
			isolatedMask[file] |= board.FileMask[file+1]
		}
	}

	for sq := board.A8; sq <= board.H1; sq++ {
		files := isolatedMask[sq.File()] | board.FileMask[sq.File()]
		var ahead, behind board.Bitboard
		for rank := 0; rank < 8; rank++ {
			switch {
			case rank > sq.Rank():
				ahead |= board.RankMask[rank]
			case rank < sq.Rank():
				behind |= board.RankMask[rank]
			}
		}
		passedMask[board.White][sq] = files & ahead
		passedMask[board.Black][sq] = files & behind
	}
}

// Classical scores material, piece-square tables, pawn structure and file
// control. It is stateless and safe for concurrent use.
type Classical struct{}

// Evaluate returns the score from the side to move's perspective.
func (Classical) Evaluate(pos *board.Position) int {
	return Evaluate(pos)
}

// Evaluate returns the static score of pos in centipawns, positive when the
// side to move stands better.
func Evaluate(pos *board.Position) int {
	score := evaluateSide(pos, board.White) - evaluateSide(pos, board.Black)
	if pos.SideToMove == board.Black {
		return -score
	}
	return score
}

// Material returns the material balance from White's point of view.
func Material(pos *board.Position) int {
	score := 0
	for _, pt := range board.PieceTypes[:5] {
		score += pos.Pieces[board.White][pt].PopCount() * pieceValues[pt]
		score -= pos.Pieces[board.Black][pt].PopCount() * pieceValues[pt]
	}
	return score
}

func evaluateSide(pos *board.Position, us board.Color) int {
	them := us.Other()
	ownPawns := pos.Pieces[us][board.Pawn]
	enemyPawns := pos.Pieces[them][board.Pawn]
	allPawns := ownPawns | enemyPawns

	score := 0
	for _, pt := range board.PieceTypes {
		pieces := pos.Pieces[us][pt]
		for pieces != 0 {
			sq := pieces.PopLSB()
			score += pieceValues[pt] + pstValue(pt, us, sq)

			file := board.FileMask[sq.File()]
			switch pt {
			case board.Pawn:
				if (ownPawns & file).PopCount() > 1 {
					score += doubledPawnPenalty
				}
				if ownPawns&isolatedMask[sq.File()] == 0 {
					score += isolatedPawnPenalty
				}
				if enemyPawns&passedMask[us][sq] == 0 {
					score += passedPawnBonus[sq.RelativeRank(us)]
				}
			case board.Rook:
				if allPawns&file == 0 {
					score += rookOpenFileBonus
				} else if ownPawns&file == 0 {
					score += rookSemiOpenFileBonus
				}
			case board.King:
				if allPawns&file == 0 {
					score += kingOpenFile
				} else if ownPawns&file == 0 {
					score += kingSemiOpenFile
				}
			}
		}
	}

	if pos.Pieces[us][board.Bishop].PopCount() >= 2 {
		score += bishopPairBonus
	}
	return score
}

// pstValue looks up the table for White, mirroring the square for Black.
func pstValue(pt board.PieceType, c board.Color, sq board.Square) int {
	if c == board.Black {
		sq = sq.Mirror()
	}
	return pieceSquareTables[pt][sq]
}
