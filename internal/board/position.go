package board

import (
	"fmt"
	"strings"
)

// CastlingRights represents the available castling options.
type CastlingRights uint8

const (
	WhiteKingSideCastle  CastlingRights = 1 << iota // K
	WhiteQueenSideCastle                            // Q
	BlackKingSideCastle                             // k
	BlackQueenSideCastle                            // q
	NoCastling           CastlingRights = 0
	AllCastling          CastlingRights = WhiteKingSideCastle | WhiteQueenSideCastle | BlackKingSideCastle | BlackQueenSideCastle
)

// castlingMask is ANDed into the rights for both the source and the target
// square of every move. Moving or capturing on a king or rook home square
// drops the matching rights; every other square keeps them all.
var castlingMask = [64]CastlingRights{
	A8: AllCastling &^ BlackQueenSideCastle,
	E8: AllCastling &^ (BlackKingSideCastle | BlackQueenSideCastle),
	H8: AllCastling &^ BlackKingSideCastle,
	A1: AllCastling &^ WhiteQueenSideCastle,
	E1: AllCastling &^ (WhiteKingSideCastle | WhiteQueenSideCastle),
	H1: AllCastling &^ WhiteKingSideCastle,
}

func init() {
	for sq := range castlingMask {
		if castlingMask[sq] == NoCastling {
			castlingMask[sq] = AllCastling
		}
	}
}

// String returns the FEN castling rights string.
func (cr CastlingRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	s := ""
	if cr&WhiteKingSideCastle != 0 {
		s += "K"
	}
	if cr&WhiteQueenSideCastle != 0 {
		s += "Q"
	}
	if cr&BlackKingSideCastle != 0 {
		s += "k"
	}
	if cr&BlackQueenSideCastle != 0 {
		s += "q"
	}
	return s
}

// CanCastle returns true if the given side can castle in the given direction.
func (cr CastlingRights) CanCastle(c Color, kingSide bool) bool {
	if c == White {
		if kingSide {
			return cr&WhiteKingSideCastle != 0
		}
		return cr&WhiteQueenSideCastle != 0
	}
	if kingSide {
		return cr&BlackKingSideCastle != 0
	}
	return cr&BlackQueenSideCastle != 0
}

// Position represents a complete chess position. It holds only fixed-size
// arrays and scalars, so assigning a Position copies it.
type Position struct {
	// Piece bitboards: [Color][PieceType]
	Pieces [2][6]Bitboard

	// Occupancy bitboards, always recomputed from Pieces
	Occupied    [2]Bitboard
	AllOccupied Bitboard

	SideToMove     Color
	CastlingRights CastlingRights
	EnPassant      Square // Target square for en passant, NoSquare if none
	HalfMoveClock  int    // Moves since last pawn move or capture (for 50-move rule)
	FullMoveNumber int    // Full move counter, starts at 1

	// Zobrist hash, maintained incrementally
	Hash uint64
}

// NewPosition returns the starting position.
func NewPosition() Position {
	pos, err := ParseFEN(StartFEN)
	if err != nil {
		panic(err)
	}
	return pos
}

// PieceAt returns the piece at the given square, or NoPiece if empty.
func (p *Position) PieceAt(sq Square) Piece {
	bb := SquareBB(sq)
	if p.AllOccupied&bb == 0 {
		return NoPiece
	}

	c := White
	if p.Occupied[Black]&bb != 0 {
		c = Black
	}
	for _, pt := range PieceTypes {
		if p.Pieces[c][pt]&bb != 0 {
			return NewPiece(pt, c)
		}
	}
	return NoPiece
}

// IsEmpty returns true if the square is empty.
func (p *Position) IsEmpty(sq Square) bool {
	return p.AllOccupied&SquareBB(sq) == 0
}

// KingSquare returns the square of the king of color c, or NoSquare.
func (p *Position) KingSquare(c Color) Square {
	return p.Pieces[c][King].LSB()
}

// InCheck returns true if the side to move is in check.
func (p *Position) InCheck() bool {
	ksq := p.KingSquare(p.SideToMove)
	return ksq != NoSquare && p.IsSquareAttacked(ksq, p.SideToMove.Other())
}

// setPiece places a piece on a square (does not update hash or occupancy).
func (p *Position) setPiece(piece Piece, sq Square) {
	if piece == NoPiece {
		return
	}
	p.Pieces[piece.Color()][piece.Type()] |= SquareBB(sq)
}

// updateOccupied recalculates occupancy bitboards from piece bitboards.
func (p *Position) updateOccupied() {
	p.Occupied[White] = Empty
	p.Occupied[Black] = Empty

	for _, pt := range PieceTypes {
		p.Occupied[White] |= p.Pieces[White][pt]
		p.Occupied[Black] |= p.Pieces[Black][pt]
	}

	p.AllOccupied = p.Occupied[White] | p.Occupied[Black]
}

// String returns a visual representation of the position.
func (p *Position) String() string {
	var sb strings.Builder
	sb.WriteString("\n")
	for row := 0; row < 8; row++ {
		fmt.Fprintf(&sb, "%d  ", 8-row)
		for file := 0; file < 8; file++ {
			piece := p.PieceAt(Square(row*8 + file))
			if piece == NoPiece {
				sb.WriteString(". ")
			} else {
				sb.WriteString(piece.String() + " ")
			}
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n   a b c d e f g h\n\n")
	fmt.Fprintf(&sb, "Side to move: %s\n", p.SideToMove)
	fmt.Fprintf(&sb, "Castling: %s\n", p.CastlingRights)
	fmt.Fprintf(&sb, "En passant: %s\n", p.EnPassant)
	fmt.Fprintf(&sb, "Half-move clock: %d\n", p.HalfMoveClock)
	fmt.Fprintf(&sb, "Full move: %d\n", p.FullMoveNumber)
	fmt.Fprintf(&sb, "Hash: %016x\n", p.Hash)
	return sb.String()
}

// Validate checks the structural sanity of the position.
func (p *Position) Validate() error {
	if p.Pieces[White][King].PopCount() != 1 {
		return fmt.Errorf("white must have exactly one king")
	}
	if p.Pieces[Black][King].PopCount() != 1 {
		return fmt.Errorf("black must have exactly one king")
	}
	if (p.Pieces[White][Pawn]|p.Pieces[Black][Pawn])&(Rank1|Rank8) != 0 {
		return fmt.Errorf("pawns cannot be on rank 1 or 8")
	}
	if p.IsSquareAttacked(p.KingSquare(p.SideToMove.Other()), p.SideToMove) {
		return fmt.Errorf("side not to move is in check")
	}
	return nil
}

// IsInsufficientMaterial reports positions where neither side can mate:
// bare kings, or a single minor piece against a bare king.
func (p *Position) IsInsufficientMaterial() bool {
	for c := White; c <= Black; c++ {
		if p.Pieces[c][Pawn]|p.Pieces[c][Rook]|p.Pieces[c][Queen] != 0 {
			return false
		}
	}
	minors := p.Pieces[White][Knight] | p.Pieces[White][Bishop] |
		p.Pieces[Black][Knight] | p.Pieces[Black][Bishop]
	return minors.PopCount() <= 1
}
