package board

import (
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the FEN string for the starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// FENError describes the FEN field that could not be parsed.
type FENError struct {
	Field  string
	Value  string
	Reason string
}

func (e *FENError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid FEN %s %q: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid FEN %s %q", e.Field, e.Value)
}

// ParseFEN parses a FEN string. The half-move clock and full-move number
// are optional.
func ParseFEN(fen string) (Position, error) {
	parts := strings.Fields(fen)
	if len(parts) < 4 || len(parts) > 6 {
		return Position{}, &FENError{Field: "record", Value: fen,
			Reason: fmt.Sprintf("need 4 to 6 fields, got %d", len(parts))}
	}

	pos := Position{
		EnPassant:      NoSquare,
		FullMoveNumber: 1,
	}

	if err := parsePiecePlacement(&pos, parts[0]); err != nil {
		return Position{}, err
	}

	switch parts[1] {
	case "w":
		pos.SideToMove = White
	case "b":
		pos.SideToMove = Black
	default:
		return Position{}, &FENError{Field: "side to move", Value: parts[1]}
	}

	if err := parseCastlingRights(&pos, parts[2]); err != nil {
		return Position{}, err
	}

	if parts[3] != "-" {
		sq, err := ParseSquare(parts[3])
		if err != nil || (sq.Rank() != 2 && sq.Rank() != 5) {
			return Position{}, &FENError{Field: "en passant square", Value: parts[3]}
		}
		pos.EnPassant = sq
	}

	if len(parts) > 4 {
		hmc, err := strconv.Atoi(parts[4])
		if err != nil || hmc < 0 {
			return Position{}, &FENError{Field: "half-move clock", Value: parts[4]}
		}
		pos.HalfMoveClock = hmc
	}

	if len(parts) > 5 {
		fmn, err := strconv.Atoi(parts[5])
		if err != nil || fmn < 0 {
			return Position{}, &FENError{Field: "full-move number", Value: parts[5]}
		}
		// Some puzzle sources write 0; the count starts at 1.
		pos.FullMoveNumber = max(fmn, 1)
	}

	pos.updateOccupied()
	pos.dropStaleCastlingRights()
	if err := pos.Validate(); err != nil {
		return Position{}, &FENError{Field: "position", Value: parts[0], Reason: err.Error()}
	}
	pos.Hash = pos.ComputeHash()

	return pos, nil
}

// parsePiecePlacement parses the piece placement section of a FEN string.
func parsePiecePlacement(pos *Position, placement string) error {
	rows := strings.Split(placement, "/")
	if len(rows) != 8 {
		return &FENError{Field: "piece placement", Value: placement,
			Reason: fmt.Sprintf("need 8 ranks, got %d", len(rows))}
	}

	// FEN lists the 8th rank first, which is row 0 here.
	for row, rowStr := range rows {
		file := 0
		for _, c := range rowStr {
			if file > 7 {
				return &FENError{Field: "piece placement", Value: rowStr, Reason: "too many squares"}
			}

			if c >= '1' && c <= '8' {
				file += int(c - '0')
				continue
			}

			piece := PieceFromChar(byte(c))
			if piece == NoPiece {
				return &FENError{Field: "piece placement", Value: rowStr,
					Reason: fmt.Sprintf("invalid piece character %c", c)}
			}
			pos.setPiece(piece, Square(row*8+file))
			file++
		}

		if file != 8 {
			return &FENError{Field: "piece placement", Value: rowStr,
				Reason: fmt.Sprintf("rank covers %d squares", file)}
		}
	}

	return nil
}

// parseCastlingRights parses the castling rights section of a FEN string.
func parseCastlingRights(pos *Position, castling string) error {
	if castling == "-" {
		pos.CastlingRights = NoCastling
		return nil
	}

	for _, c := range castling {
		switch c {
		case 'K':
			pos.CastlingRights |= WhiteKingSideCastle
		case 'Q':
			pos.CastlingRights |= WhiteQueenSideCastle
		case 'k':
			pos.CastlingRights |= BlackKingSideCastle
		case 'q':
			pos.CastlingRights |= BlackQueenSideCastle
		default:
			return &FENError{Field: "castling rights", Value: castling}
		}
	}

	return nil
}

// dropStaleCastlingRights clears rights whose king or rook is not on its
// home square.
func (p *Position) dropStaleCastlingRights() {
	home := []struct {
		right      CastlingRights
		c          Color
		king, rook Square
	}{
		{WhiteKingSideCastle, White, E1, H1},
		{WhiteQueenSideCastle, White, E1, A1},
		{BlackKingSideCastle, Black, E8, H8},
		{BlackQueenSideCastle, Black, E8, A8},
	}
	for _, h := range home {
		if !p.Pieces[h.c][King].IsSet(h.king) || !p.Pieces[h.c][Rook].IsSet(h.rook) {
			p.CastlingRights &^= h.right
		}
	}
}

// FEN returns the FEN representation of the position.
func (p *Position) FEN() string {
	var sb strings.Builder

	for row := 0; row < 8; row++ {
		empty := 0
		for file := 0; file < 8; file++ {
			piece := p.PieceAt(Square(row*8 + file))
			if piece == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteString(piece.String())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if row < 7 {
			sb.WriteByte('/')
		}
	}

	sb.WriteByte(' ')
	if p.SideToMove == White {
		sb.WriteByte('w')
	} else {
		sb.WriteByte('b')
	}

	sb.WriteByte(' ')
	sb.WriteString(p.CastlingRights.String())
	sb.WriteByte(' ')
	sb.WriteString(p.EnPassant.String())
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.HalfMoveClock))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.FullMoveNumber))

	return sb.String()
}
