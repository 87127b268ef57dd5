package board

// MakeMove returns the position that results from playing m, leaving p
// untouched. The boolean is false when the move leaves the mover's king
// attacked, or when capturesOnly is set and m is not a capture; the
// returned Position must be ignored in both cases.
func (p *Position) MakeMove(m Move, capturesOnly bool) (Position, bool) {
	if capturesOnly && !m.IsCapture() {
		return Position{}, false
	}

	child := *p
	us := p.SideToMove
	them := us.Other()
	from, to := m.From(), m.To()
	pt := m.Piece()

	fromTo := SquareBB(from) | SquareBB(to)
	child.Pieces[us][pt] ^= fromTo
	child.Hash ^= zobristPiece[us][pt][from] ^ zobristPiece[us][pt][to]
	child.HalfMoveClock++

	if m.IsCapture() && !m.IsEnPassant() {
		for _, victim := range PieceTypes {
			if child.Pieces[them][victim].IsSet(to) {
				child.Pieces[them][victim] = child.Pieces[them][victim].Clear(to)
				child.Hash ^= zobristPiece[them][victim][to]
				break
			}
		}
		child.HalfMoveClock = 0
	}

	if pt == Pawn {
		child.HalfMoveClock = 0
	}

	if promo := m.Promotion(); promo != NoPieceType {
		child.Pieces[us][Pawn] = child.Pieces[us][Pawn].Clear(to)
		child.Pieces[us][promo] = child.Pieces[us][promo].Set(to)
		child.Hash ^= zobristPiece[us][Pawn][to] ^ zobristPiece[us][promo][to]
	}

	if m.IsEnPassant() {
		// The captured pawn sits behind the target square.
		victimSq := to + 8
		if us == Black {
			victimSq = to - 8
		}
		child.Pieces[them][Pawn] = child.Pieces[them][Pawn].Clear(victimSq)
		child.Hash ^= zobristPiece[them][Pawn][victimSq]
	}

	child.Hash ^= enPassantKey(child.EnPassant)
	child.EnPassant = NoSquare
	if m.IsDoublePush() {
		child.EnPassant = to + 8
		if us == Black {
			child.EnPassant = to - 8
		}
		child.Hash ^= enPassantKey(child.EnPassant)
	}

	if m.IsCastling() {
		rookFrom, rookTo := castlingRookSquares(to)
		child.Pieces[us][Rook] ^= SquareBB(rookFrom) | SquareBB(rookTo)
		child.Hash ^= zobristPiece[us][Rook][rookFrom] ^ zobristPiece[us][Rook][rookTo]
	}

	child.Hash ^= zobristCastling[child.CastlingRights]
	child.CastlingRights &= castlingMask[from]
	child.CastlingRights &= castlingMask[to]
	child.Hash ^= zobristCastling[child.CastlingRights]

	child.updateOccupied()

	child.SideToMove = them
	child.Hash ^= zobristSideToMove
	if us == Black {
		child.FullMoveNumber++
	}

	ksq := child.KingSquare(us)
	if ksq == NoSquare || child.IsSquareAttacked(ksq, them) {
		return Position{}, false
	}
	return child, true
}

// castlingRookSquares returns the rook's source and destination for the
// castling move landing the king on kingTo.
func castlingRookSquares(kingTo Square) (Square, Square) {
	switch kingTo {
	case G1:
		return H1, F1
	case C1:
		return A1, D1
	case G8:
		return H8, F8
	default:
		return A8, D8
	}
}

// MakeNullMove returns the position with the turn passed: side flipped and
// en passant cleared, no piece moved.
func (p *Position) MakeNullMove() Position {
	child := *p
	child.Hash ^= enPassantKey(child.EnPassant)
	child.EnPassant = NoSquare
	child.SideToMove = p.SideToMove.Other()
	child.Hash ^= zobristSideToMove
	return child
}

// LegalMoves returns the legal moves of the position in generation order.
func (p *Position) LegalMoves() []Move {
	var ml MoveList
	p.GenerateMoves(&ml)
	legal := make([]Move, 0, ml.Len())
	for _, m := range ml.Slice() {
		if _, ok := p.MakeMove(m, false); ok {
			legal = append(legal, m)
		}
	}
	return legal
}

// HasLegalMoves returns true if the side to move has at least one legal move.
func (p *Position) HasLegalMoves() bool {
	var ml MoveList
	p.GenerateMoves(&ml)
	for _, m := range ml.Slice() {
		if _, ok := p.MakeMove(m, false); ok {
			return true
		}
	}
	return false
}

// IsCheckmate returns true if the side to move is checkmated.
func (p *Position) IsCheckmate() bool {
	return p.InCheck() && !p.HasLegalMoves()
}

// IsStalemate returns true if the side to move has no legal moves but is not in check.
func (p *Position) IsStalemate() bool {
	return !p.InCheck() && !p.HasLegalMoves()
}
