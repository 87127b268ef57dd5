package board

import "fmt"

// Magic bitboard implementation for sliding piece attacks.
// Magic numbers below are precomputed for the a8=0 square layout.

// Magic holds the magic bitboard data for a single square.
type Magic struct {
	Mask   Bitboard // Relevant occupancy mask (excludes edges)
	Magic  uint64   // Magic multiplier
	Shift  uint8    // Bits to shift right
	Offset uint32   // Index into attack table
}

var (
	bishopMagics [64]Magic
	rookMagics   [64]Magic

	// Attack tables (fancy magic bitboards)
	bishopTable [5248]Bitboard
	rookTable   [102400]Bitboard
)

var bishopMagicNumbers = [64]uint64{
	0x40040844404084, 0x2004208a004208, 0x10190041080202, 0x108060845042010,
	0x581104180800210, 0x2112080446200010, 0x1080820820060210, 0x3c0808410220200,
	0x4050404440404, 0x21001420088, 0x24d0080801082102, 0x1020a0a020400,
	0x40308200402, 0x4011002100800, 0x401484104104005, 0x801010402020200,
	0x400210c3880100, 0x404022024108200, 0x810018200204102, 0x4002801a02003,
	0x85040820080400, 0x810102c808880400, 0xe900410884800, 0x8002020480840102,
	0x220200865090201, 0x2010100a02021202, 0x152048408022401, 0x20080002081110,
	0x4001001021004000, 0x800040400a011002, 0xe4004081011002, 0x1c004001012080,
	0x8004200962a00220, 0x8422100208500202, 0x2000402200300c08, 0x8646020080080080,
	0x80020a0200100808, 0x2010004880111000, 0x623000a080011400, 0x42008c0340209202,
	0x209188240001000, 0x400408a884001800, 0x110400a6080400, 0x1840060a44020800,
	0x90080104000041, 0x201011000808101, 0x1a2208080504f080, 0x8012020600211212,
	0x500861011240000, 0x180806108200800, 0x4000020e01040044, 0x300000261044000a,
	0x802241102020002, 0x20906061210001, 0x5a84841004010310, 0x4010801011c04,
	0xa010109502200, 0x4a02012000, 0x500201010098b028, 0x8040002811040900,
	0x28000010020204, 0x6000020202d0240, 0x8918844842082200, 0x40040822862081,
}

var rookMagicNumbers = [64]uint64{
	0x8a80104000800020, 0x140002000100040, 0x2801880a0017001, 0x100081001000420,
	0x200020010080420, 0x3001c0002010008, 0x8480008002000100, 0x2080088004402900,
	0x800098204000, 0x2024401000200040, 0x100802000801000, 0x120800800801000,
	0x208808088000400, 0x2802200800400, 0x2200800100020080, 0x801000060821100,
	0x80044006422000, 0x100808020004000, 0x12108a0010204200, 0x140848010000802,
	0x481828014002800, 0x8094004002004100, 0x4010040010010802, 0x20008806104,
	0x100400080208000, 0x2040002120081000, 0x21200680100081, 0x20100080080080,
	0x2000a00200410, 0x20080800400, 0x80088400100102, 0x80004600042881,
	0x4040008040800020, 0x440003000200801, 0x4200011004500, 0x188020010100100,
	0x14800401802800, 0x2080040080800200, 0x124080204001001, 0x200046502000484,
	0x480400080088020, 0x1000422010034000, 0x30200100110040, 0x100021010009,
	0x2002080100110004, 0x202008004008002, 0x20020004010100, 0x2048440040820001,
	0x101002200408200, 0x40802000401080, 0x4008142004410100, 0x2060820c0120200,
	0x1001004080100, 0x20c020080040080, 0x2935610830022400, 0x44440041009200,
	0x280001040802101, 0x2100190040002085, 0x80c0084100102001, 0x4024081001000421,
	0x20030a0244872, 0x12001008414402, 0x2006104900a0804, 0x1004081002402,
}

func initMagics() {
	initSliderTable("bishop", &bishopMagics, bishopTable[:], &bishopMagicNumbers, bishopMask, bishopAttacksSlow)
	initSliderTable("rook", &rookMagics, rookTable[:], &rookMagicNumbers, rookMask, rookAttacksSlow)
}

// initSliderTable fills one fancy-magic table. Two occupancies with different
// attack sets landing on one slot mean a broken magic number, which is fatal.
func initSliderTable(name string, magics *[64]Magic, table []Bitboard, numbers *[64]uint64,
	maskFn func(Square) Bitboard, slowFn func(Square, Bitboard) Bitboard) {
	var offset uint32
	for sq := A8; sq <= H1; sq++ {
		mask := maskFn(sq)
		bits := mask.PopCount()

		magics[sq] = Magic{
			Mask:   mask,
			Magic:  numbers[sq],
			Shift:  uint8(64 - bits),
			Offset: offset,
		}

		numEntries := 1 << bits
		for i := 0; i < numEntries; i++ {
			occ := IndexToOccupancy(i, bits, mask)
			attacks := slowFn(sq, occ)
			idx := offset + uint32((uint64(occ)*numbers[sq])>>(64-bits))
			if table[idx] != 0 && table[idx] != attacks {
				panic(fmt.Sprintf("board: %s magic collision on %s", name, sq))
			}
			table[idx] = attacks
		}
		offset += uint32(numEntries)
	}
}

// bishopMask returns the relevant occupancy mask for a bishop on sq.
// Edge squares never change the result, so they are excluded.
func bishopMask(sq Square) Bitboard {
	return bishopAttacksSlow(sq, 0) &^ (Rank1 | Rank8 | FileA | FileH)
}

// rookMask returns the relevant occupancy mask for a rook on sq.
func rookMask(sq Square) Bitboard {
	file := sq.File()
	rank := sq.Rank()

	var mask Bitboard
	for f := 1; f < 7; f++ {
		if f != file {
			mask |= SquareBB(NewSquare(f, rank))
		}
	}
	for r := 1; r < 7; r++ {
		if r != rank {
			mask |= SquareBB(NewSquare(file, r))
		}
	}
	return mask
}

// IndexToOccupancy maps index onto the subset of mask selected by its low
// bits, taking mask squares in ascending order.
func IndexToOccupancy(index, bits int, mask Bitboard) Bitboard {
	var occ Bitboard
	for i := 0; i < bits; i++ {
		sq := mask.PopLSB()
		if index&(1<<i) != 0 {
			occ |= SquareBB(sq)
		}
	}
	return occ
}

type direction struct{ df, dr int }

var (
	bishopDirections = [4]direction{{1, 1}, {-1, 1}, {1, -1}, {-1, -1}}
	rookDirections   = [4]direction{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}
)

// rayAttacks walks each direction to the board edge, stopping after the
// first occupied square.
func rayAttacks(sq Square, occupied Bitboard, dirs *[4]direction) Bitboard {
	var attacks Bitboard
	for _, d := range dirs {
		for f, r := sq.File()+d.df, sq.Rank()+d.dr; f >= 0 && f <= 7 && r >= 0 && r <= 7; f, r = f+d.df, r+d.dr {
			s := SquareBB(NewSquare(f, r))
			attacks |= s
			if occupied&s != 0 {
				break
			}
		}
	}
	return attacks
}

// bishopAttacksSlow computes bishop attacks by ray casting.
func bishopAttacksSlow(sq Square, occupied Bitboard) Bitboard {
	return rayAttacks(sq, occupied, &bishopDirections)
}

// rookAttacksSlow computes rook attacks by ray casting.
func rookAttacksSlow(sq Square, occupied Bitboard) Bitboard {
	return rayAttacks(sq, occupied, &rookDirections)
}

// getBishopAttacks returns bishop attacks using magic bitboards.
func getBishopAttacks(sq Square, occupied Bitboard) Bitboard {
	m := &bishopMagics[sq]
	idx := ((uint64(occupied) & uint64(m.Mask)) * m.Magic) >> m.Shift
	return bishopTable[m.Offset+uint32(idx)]
}

// getRookAttacks returns rook attacks using magic bitboards.
func getRookAttacks(sq Square, occupied Bitboard) Bitboard {
	m := &rookMagics[sq]
	idx := ((uint64(occupied) & uint64(m.Mask)) * m.Magic) >> m.Shift
	return rookTable[m.Offset+uint32(idx)]
}

// TableError reports a slider lookup that disagrees with ray casting.
type TableError struct {
	Piece     PieceType
	Square    Square
	Occupancy Bitboard
	Got       Bitboard
	Want      Bitboard
}

func (e *TableError) Error() string {
	return fmt.Sprintf("%s attacks from %s with occupancy %#016x: got %#016x, want %#016x",
		e.Piece, e.Square, uint64(e.Occupancy), uint64(e.Got), uint64(e.Want))
}

// CheckSliderTables compares magic lookups against ray casting for samples
// occupancies per square drawn from random. It returns the first mismatch.
func CheckSliderTables(samples int, random func() uint64) error {
	for sq := A8; sq <= H1; sq++ {
		for i := 0; i < samples; i++ {
			occ := Bitboard(random())
			if got, want := getBishopAttacks(sq, occ), bishopAttacksSlow(sq, occ); got != want {
				return &TableError{Piece: Bishop, Square: sq, Occupancy: occ, Got: got, Want: want}
			}
			if got, want := getRookAttacks(sq, occ), rookAttacksSlow(sq, occ); got != want {
				return &TableError{Piece: Rook, Square: sq, Occupancy: occ, Got: got, Want: want}
			}
		}
	}
	return nil
}
