package board

// Pre-computed attack tables for non-sliding pieces
var (
	knightAttacks [64]Bitboard
	kingAttacks   [64]Bitboard
	pawnAttacks   [2][64]Bitboard // [Color][Square]
)

func init() {
	initKnightAttacks()
	initKingAttacks()
	initPawnAttacks()
	initMagics() // From magic.go
}

func initKnightAttacks() {
	for sq := A8; sq <= H1; sq++ {
		bb := SquareBB(sq)

		// Knight moves: 2+1 or 1+2 in any direction
		attacks := Empty

		// Two rows, one file
		attacks |= (bb << 17) & NotFileA
		attacks |= (bb << 15) & NotFileH
		attacks |= (bb >> 17) & NotFileH
		attacks |= (bb >> 15) & NotFileA

		// One row, two files
		attacks |= (bb << 10) & NotFileAB
		attacks |= (bb << 6) & NotFileGH
		attacks |= (bb >> 10) & NotFileGH
		attacks |= (bb >> 6) & NotFileAB

		knightAttacks[sq] = attacks
	}
}

func initKingAttacks() {
	for sq := A8; sq <= H1; sq++ {
		bb := SquareBB(sq)

		attacks := bb.North() | bb.South()
		attacks |= bb.East() | bb.West()
		attacks |= bb.NorthEast() | bb.NorthWest()
		attacks |= bb.SouthEast() | bb.SouthWest()

		kingAttacks[sq] = attacks
	}
}

func initPawnAttacks() {
	for sq := A8; sq <= H1; sq++ {
		bb := SquareBB(sq)

		// White captures toward the 8th rank, black toward the 1st.
		pawnAttacks[White][sq] = bb.NorthEast() | bb.NorthWest()
		pawnAttacks[Black][sq] = bb.SouthEast() | bb.SouthWest()
	}
}

// KnightAttacks returns the knight attack bitboard for a square.
func KnightAttacks(sq Square) Bitboard {
	return knightAttacks[sq]
}

// KingAttacks returns the king attack bitboard for a square.
func KingAttacks(sq Square) Bitboard {
	return kingAttacks[sq]
}

// PawnAttacks returns the squares a pawn of color c on sq attacks.
func PawnAttacks(sq Square, c Color) Bitboard {
	return pawnAttacks[c][sq]
}

// BishopAttacks returns the bishop attack bitboard for a square with given occupancy.
func BishopAttacks(sq Square, occupied Bitboard) Bitboard {
	return getBishopAttacks(sq, occupied)
}

// RookAttacks returns the rook attack bitboard for a square with given occupancy.
func RookAttacks(sq Square, occupied Bitboard) Bitboard {
	return getRookAttacks(sq, occupied)
}

// QueenAttacks returns the queen attack bitboard for a square with given occupancy.
func QueenAttacks(sq Square, occupied Bitboard) Bitboard {
	return getBishopAttacks(sq, occupied) | getRookAttacks(sq, occupied)
}

// IsSquareAttacked returns true if the square is attacked by the given color.
// A pawn of the other color standing on sq would capture exactly the squares
// an attacking pawn can come from.
func (p *Position) IsSquareAttacked(sq Square, byColor Color) bool {
	if pawnAttacks[byColor.Other()][sq]&p.Pieces[byColor][Pawn] != 0 {
		return true
	}
	if knightAttacks[sq]&p.Pieces[byColor][Knight] != 0 {
		return true
	}
	if getBishopAttacks(sq, p.AllOccupied)&(p.Pieces[byColor][Bishop]|p.Pieces[byColor][Queen]) != 0 {
		return true
	}
	if getRookAttacks(sq, p.AllOccupied)&(p.Pieces[byColor][Rook]|p.Pieces[byColor][Queen]) != 0 {
		return true
	}
	return kingAttacks[sq]&p.Pieces[byColor][King] != 0
}
