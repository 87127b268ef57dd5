package board

import "fmt"

// Move packs a chess move into the low 24 bits of a uint32:
//
//	bits 0-5:   source square
//	bits 6-11:  target square
//	bits 12-14: moving piece type
//	bit  15:    side to move
//	bits 16-19: promotion piece type (0 = none)
//	bit  20:    capture
//	bit  21:    double pawn push
//	bit  22:    en passant
//	bit  23:    castling
//
// A move only has meaning together with the position it was generated from.
type Move uint32

// MoveFlag holds the flag bits of a Move.
type MoveFlag uint32

// Move flags
const (
	FlagQuiet      MoveFlag = 0
	FlagCapture    MoveFlag = 1 << 20
	FlagDoublePush MoveFlag = 1 << 21
	FlagEnPassant  MoveFlag = 1 << 22
	FlagCastling   MoveFlag = 1 << 23
)

// NoMove represents an invalid or null move.
const NoMove Move = 0

// NewMove packs a move. promo is NoPieceType (or Pawn) when the move is not a promotion.
func NewMove(from, to Square, piece PieceType, side Color, promo PieceType, flags MoveFlag) Move {
	m := Move(from) | Move(to)<<6 | Move(piece)<<12 | Move(side)<<15 | Move(flags)
	if promo != NoPieceType && promo != Pawn {
		m |= Move(promo) << 16
	}
	return m
}

// From returns the origin square.
func (m Move) From() Square {
	return Square(m & 0x3F)
}

// To returns the destination square.
func (m Move) To() Square {
	return Square((m >> 6) & 0x3F)
}

// Piece returns the type of the moving piece.
func (m Move) Piece() PieceType {
	return PieceType((m >> 12) & 0x7)
}

// Side returns the color of the moving piece.
func (m Move) Side() Color {
	return Color((m >> 15) & 0x1)
}

// Promotion returns the promotion piece type, or NoPieceType.
func (m Move) Promotion() PieceType {
	promo := PieceType((m >> 16) & 0xF)
	if promo == 0 {
		return NoPieceType
	}
	return promo
}

// IsPromotion returns true if this is a promotion move.
func (m Move) IsPromotion() bool {
	return m&(0xF<<16) != 0
}

// IsCapture returns true if this move captures a piece (including en passant).
func (m Move) IsCapture() bool {
	return MoveFlag(m)&FlagCapture != 0
}

// IsDoublePush returns true for a two-square pawn advance.
func (m Move) IsDoublePush() bool {
	return MoveFlag(m)&FlagDoublePush != 0
}

// IsEnPassant returns true if this is an en passant capture.
func (m Move) IsEnPassant() bool {
	return MoveFlag(m)&FlagEnPassant != 0
}

// IsCastling returns true if this is a castling move.
func (m Move) IsCastling() bool {
	return MoveFlag(m)&FlagCastling != 0
}

// IsQuiet returns true if this is neither a capture nor a promotion.
func (m Move) IsQuiet() bool {
	return !m.IsCapture() && !m.IsPromotion()
}

// String returns the UCI format of the move (e.g., "e2e4", "e7e8q").
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}

	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += string(m.Promotion().Char())
	}
	return s
}

// ParseMove parses a UCI format move string by matching it against the
// moves generated for pos. Only the source, target and promotion letter
// are compared; legality is left to MakeMove.
func ParseMove(s string, pos *Position) (Move, error) {
	if len(s) < 4 || len(s) > 5 {
		return NoMove, fmt.Errorf("invalid move string: %s", s)
	}

	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NoMove, err
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, err
	}

	promo := NoPieceType
	if len(s) == 5 {
		switch s[4] {
		case 'n':
			promo = Knight
		case 'b':
			promo = Bishop
		case 'r':
			promo = Rook
		case 'q':
			promo = Queen
		default:
			return NoMove, fmt.Errorf("invalid promotion piece: %c", s[4])
		}
	}

	var ml MoveList
	pos.GenerateMoves(&ml)
	for _, m := range ml.Slice() {
		if m.From() == from && m.To() == to && m.Promotion() == promo {
			return m, nil
		}
	}
	return NoMove, fmt.Errorf("move %s not available in position", s)
}

// MoveList is a fixed-size list of moves to avoid allocations.
type MoveList struct {
	moves [256]Move
	count int
}

// Add adds a move to the list.
func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

// Len returns the number of moves in the list.
func (ml *MoveList) Len() int {
	return ml.count
}

// Get returns the move at index i.
func (ml *MoveList) Get(i int) Move {
	return ml.moves[i]
}

// Swap swaps two moves in the list.
func (ml *MoveList) Swap(i, j int) {
	ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i]
}

// Clear clears the list.
func (ml *MoveList) Clear() {
	ml.count = 0
}

// Contains returns true if the list contains the move.
func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

// Slice returns the moves as a slice backed by the list.
func (ml *MoveList) Slice() []Move {
	return ml.moves[:ml.count]
}
