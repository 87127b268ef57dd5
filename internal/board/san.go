package board

import (
	"fmt"
	"strings"
)

// SAN converts a legal move to Standard Algebraic Notation.
func (m Move) SAN(pos *Position) string {
	if m == NoMove {
		return "-"
	}

	from, to := m.From(), m.To()
	pt := m.Piece()

	var sb strings.Builder
	switch {
	case m.IsCastling():
		if to.File() > from.File() {
			sb.WriteString("O-O")
		} else {
			sb.WriteString("O-O-O")
		}
	default:
		sb.WriteString(pt.Letter())
		if pt != Pawn {
			sb.WriteString(disambiguation(pos, m))
		}
		if m.IsCapture() {
			if pt == Pawn {
				sb.WriteByte('a' + byte(from.File()))
			}
			sb.WriteByte('x')
		}
		sb.WriteString(to.String())
		if m.IsPromotion() {
			sb.WriteByte('=')
			sb.WriteString(m.Promotion().Letter())
		}
	}

	if child, ok := pos.MakeMove(m, false); ok {
		if child.IsCheckmate() {
			sb.WriteByte('#')
		} else if child.InCheck() {
			sb.WriteByte('+')
		}
	}

	return sb.String()
}

// disambiguation returns the origin file, rank, or square needed when
// another piece of the same type can legally reach the same target.
func disambiguation(pos *Position, m Move) string {
	from := m.From()
	var sameFile, sameRank, ambiguous bool

	for _, other := range pos.LegalMoves() {
		if other.To() != m.To() || other.From() == from || other.Piece() != m.Piece() {
			continue
		}
		ambiguous = true
		if other.From().File() == from.File() {
			sameFile = true
		}
		if other.From().Rank() == from.Rank() {
			sameRank = true
		}
	}

	switch {
	case !ambiguous:
		return ""
	case !sameFile:
		return string(rune('a' + from.File()))
	case !sameRank:
		return string(rune('1' + from.Rank()))
	default:
		return from.String()
	}
}

// ParseSAN parses a SAN string into the matching legal move.
func ParseSAN(s string, pos *Position) (Move, error) {
	orig := s
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, "+#!?")

	legal := pos.LegalMoves()

	if s == "O-O" || s == "0-0" || s == "O-O-O" || s == "0-0-0" {
		queenSide := len(s) == 5
		for _, m := range legal {
			if m.IsCastling() && (m.To().File() == 2) == queenSide {
				return m, nil
			}
		}
		return NoMove, fmt.Errorf("illegal castling move: %s", orig)
	}

	promo := NoPieceType
	if idx := strings.Index(s, "="); idx >= 0 && idx+1 < len(s) {
		promo = pieceTypeFromLetter(s[idx+1])
		s = s[:idx]
	}

	isCapture := strings.Contains(s, "x")
	s = strings.ReplaceAll(s, "x", "")

	pt := Pawn
	if len(s) > 0 && s[0] >= 'A' && s[0] <= 'Z' {
		pt = pieceTypeFromLetter(s[0])
		s = s[1:]
	}

	if len(s) < 2 {
		return NoMove, fmt.Errorf("invalid SAN: %s", orig)
	}
	dest, err := ParseSquare(s[len(s)-2:])
	if err != nil {
		return NoMove, fmt.Errorf("invalid SAN %s: %w", orig, err)
	}
	s = s[:len(s)-2]

	fileHint, rankHint := -1, -1
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'h':
			fileHint = int(c - 'a')
		case c >= '1' && c <= '8':
			rankHint = int(c - '1')
		}
	}

	for _, m := range legal {
		if m.To() != dest || m.Piece() != pt || m.Promotion() != promo {
			continue
		}
		if fileHint >= 0 && m.From().File() != fileHint {
			continue
		}
		if rankHint >= 0 && m.From().Rank() != rankHint {
			continue
		}
		if isCapture && !m.IsCapture() {
			continue
		}
		return m, nil
	}

	return NoMove, fmt.Errorf("no legal move matches %s", orig)
}

func pieceTypeFromLetter(c byte) PieceType {
	switch c {
	case 'N':
		return Knight
	case 'B':
		return Bishop
	case 'R':
		return Rook
	case 'Q':
		return Queen
	case 'K':
		return King
	default:
		return NoPieceType
	}
}

// MovesToSAN converts a line of moves played from pos into SAN.
func MovesToSAN(pos *Position, moves []Move) []string {
	result := make([]string, 0, len(moves))
	cur := *pos

	for _, m := range moves {
		next, ok := cur.MakeMove(m, false)
		if !ok {
			break
		}
		result = append(result, m.SAN(&cur))
		cur = next
	}

	return result
}
