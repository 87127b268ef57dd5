package board

import "strings"

// Color is the side a piece belongs to.
type Color uint8

const (
	White Color = iota
	Black
	NoColor Color = 2
)

// Other returns the opposite color.
func (c Color) Other() Color {
	return c ^ 1
}

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	}
	return "none"
}

// PieceType is a colorless piece kind. The order matches the bitboard
// indices of a Position.
type PieceType uint8

const (
	Pawn PieceType = iota
	Knight
	Bishop
	Rook
	Queen
	King
	NoPieceType PieceType = 6
)

// PieceTypes lists the six piece types in generation order.
var PieceTypes = [6]PieceType{Pawn, Knight, Bishop, Rook, Queen, King}

var pieceTypeNames = [...]string{"pawn", "knight", "bishop", "rook", "queen", "king", "none"}

func (pt PieceType) String() string {
	if pt > NoPieceType {
		return "none"
	}
	return pieceTypeNames[pt]
}

// Char returns the lowercase letter used in FEN and UCI promotion suffixes.
func (pt PieceType) Char() byte {
	if pt >= NoPieceType {
		return ' '
	}
	return "pnbrqk"[pt]
}

// Letter returns the SAN letter for the piece type, empty for pawns.
func (pt PieceType) Letter() string {
	if pt == Pawn || pt >= NoPieceType {
		return ""
	}
	return string("PNBRQK"[pt])
}

// Piece is a colored piece, encoded as type + 6*color.
type Piece uint8

const (
	WhitePawn Piece = iota
	WhiteKnight
	WhiteBishop
	WhiteRook
	WhiteQueen
	WhiteKing
	BlackPawn
	BlackKnight
	BlackBishop
	BlackRook
	BlackQueen
	BlackKing
	NoPiece
)

const pieceChars = "PNBRQKpnbrqk"

// NewPiece combines a type and a color.
func NewPiece(pt PieceType, c Color) Piece {
	if pt >= NoPieceType || c >= NoColor {
		return NoPiece
	}
	return Piece(pt) + Piece(c)*6
}

// Type returns the colorless kind of p.
func (p Piece) Type() PieceType {
	if p >= NoPiece {
		return NoPieceType
	}
	return PieceType(p % 6)
}

func (p Piece) Color() Color {
	if p >= NoPiece {
		return NoColor
	}
	return Color(p / 6)
}

// String returns the FEN letter, uppercase for white.
func (p Piece) String() string {
	if p >= NoPiece {
		return " "
	}
	return pieceChars[p : p+1]
}

// PieceFromChar parses a FEN piece letter, returning NoPiece if c is not one.
func PieceFromChar(c byte) Piece {
	i := strings.IndexByte(pieceChars, c)
	if i < 0 {
		return NoPiece
	}
	return Piece(i)
}
