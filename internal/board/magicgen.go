package board

// MagicRNG is the xorshift32 generator used to search for magic numbers.
type MagicRNG struct {
	state uint32
}

// NewMagicRNG returns a generator with the conventional seed 1804289383.
func NewMagicRNG() *MagicRNG {
	return &MagicRNG{state: 1804289383}
}

func (r *MagicRNG) next32() uint32 {
	x := r.state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	r.state = x
	return x
}

// next64 assembles a 64-bit value from four 16-bit slices.
func (r *MagicRNG) next64() uint64 {
	n1 := uint64(r.next32()) & 0xFFFF
	n2 := uint64(r.next32()) & 0xFFFF
	n3 := uint64(r.next32()) & 0xFFFF
	n4 := uint64(r.next32()) & 0xFFFF
	return n1 | n2<<16 | n3<<32 | n4<<48
}

// candidate returns a sparse random number; sparse multipliers make good magics.
func (r *MagicRNG) candidate() uint64 {
	return r.next64() & r.next64() & r.next64()
}

// FindMagic searches for a collision-free magic multiplier for a bishop
// (bishop=true) or rook on sq. It gives up after maxTries candidates.
func FindMagic(sq Square, bishop bool, rng *MagicRNG, maxTries int) (uint64, bool) {
	maskFn, slowFn := rookMask, rookAttacksSlow
	if bishop {
		maskFn, slowFn = bishopMask, bishopAttacksSlow
	}

	mask := maskFn(sq)
	bits := mask.PopCount()
	n := 1 << bits

	occupancies := make([]Bitboard, n)
	attacks := make([]Bitboard, n)
	for i := 0; i < n; i++ {
		occupancies[i] = IndexToOccupancy(i, bits, mask)
		attacks[i] = slowFn(sq, occupancies[i])
	}

	used := make([]Bitboard, n)
	for try := 0; try < maxTries; try++ {
		magic := rng.candidate()
		if Bitboard((uint64(mask)*magic)&0xFF00000000000000).PopCount() < 6 {
			continue
		}

		clear(used)
		ok := true
		for i := 0; i < n && ok; i++ {
			idx := (uint64(occupancies[i]) * magic) >> (64 - bits)
			switch used[idx] {
			case 0:
				used[idx] = attacks[i]
			case attacks[i]:
			default:
				ok = false
			}
		}
		if ok {
			return magic, true
		}
	}
	return 0, false
}
