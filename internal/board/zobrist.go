package board

// Zobrist keys, generated once from a fixed seed so hashes are
// reproducible across runs.
var (
	zobristPiece      [2][6][64]uint64 // [Color][PieceType][Square]
	zobristEnPassant  [8]uint64        // One per file
	zobristCastling   [16]uint64       // Indexed by the whole rights mask
	zobristSideToMove uint64           // XOR when black to move
)

func init() {
	initZobrist()
}

// xorshift64* generator
type prng struct {
	state uint64
}

func (p *prng) next() uint64 {
	p.state ^= p.state >> 12
	p.state ^= p.state << 25
	p.state ^= p.state >> 27
	return p.state * 0x2545F4914F6CDD1D
}

func initZobrist() {
	rng := &prng{state: 0x98F107A2BEEF1234}

	for c := White; c <= Black; c++ {
		for _, pt := range PieceTypes {
			for sq := A8; sq <= H1; sq++ {
				zobristPiece[c][pt][sq] = rng.next()
			}
		}
	}
	for file := 0; file < 8; file++ {
		zobristEnPassant[file] = rng.next()
	}
	for i := range zobristCastling {
		zobristCastling[i] = rng.next()
	}
	zobristSideToMove = rng.next()
}

// enPassantKey returns the key for an en passant square, or 0 for NoSquare.
func enPassantKey(sq Square) uint64 {
	if sq == NoSquare {
		return 0
	}
	return zobristEnPassant[sq.File()]
}

// ComputeHash computes the Zobrist hash from scratch.
func (p *Position) ComputeHash() uint64 {
	var hash uint64

	for c := White; c <= Black; c++ {
		for _, pt := range PieceTypes {
			bb := p.Pieces[c][pt]
			for bb != 0 {
				hash ^= zobristPiece[c][pt][bb.PopLSB()]
			}
		}
	}

	hash ^= enPassantKey(p.EnPassant)
	hash ^= zobristCastling[p.CastlingRights]
	if p.SideToMove == Black {
		hash ^= zobristSideToMove
	}
	return hash
}
