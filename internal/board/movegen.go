package board

// GenerateMoves fills ml with every pseudo-legal move for the side to move.
// Moves may leave the mover's king in check; MakeMove rejects those.
// The order is deterministic: pawns, knights, bishops, rooks, queens,
// king, castling.
func (p *Position) GenerateMoves(ml *MoveList) {
	ml.Clear()
	us := p.SideToMove
	occupied := p.AllOccupied
	targets := ^p.Occupied[us]

	p.generatePawnMoves(ml, us)

	for _, pt := range [...]PieceType{Knight, Bishop, Rook, Queen, King} {
		pieces := p.Pieces[us][pt]
		for pieces != 0 {
			from := pieces.PopLSB()
			var attacks Bitboard
			switch pt {
			case Knight:
				attacks = KnightAttacks(from)
			case Bishop:
				attacks = BishopAttacks(from, occupied)
			case Rook:
				attacks = RookAttacks(from, occupied)
			case Queen:
				attacks = QueenAttacks(from, occupied)
			case King:
				attacks = KingAttacks(from)
			}
			p.addPieceMoves(ml, from, attacks&targets, pt, us)
		}
	}

	p.generateCastlingMoves(ml, us)
}

// addPieceMoves adds one move per target, flagging captures.
func (p *Position) addPieceMoves(ml *MoveList, from Square, targets Bitboard, pt PieceType, us Color) {
	enemies := p.Occupied[us.Other()]
	for targets != 0 {
		to := targets.PopLSB()
		flags := FlagQuiet
		if enemies.IsSet(to) {
			flags = FlagCapture
		}
		ml.Add(NewMove(from, to, pt, us, NoPieceType, flags))
	}
}

// generatePawnMoves generates all pawn moves.
func (p *Position) generatePawnMoves(ml *MoveList, us Color) {
	pawns := p.Pieces[us][Pawn]
	enemies := p.Occupied[us.Other()]
	empty := ^p.AllOccupied

	// back is the offset from a target square to the source of a single push;
	// leftBack and rightBack do the same for the two capture directions.
	var push1, push2, attackL, attackR Bitboard
	var promotionRank Bitboard
	var back, leftBack, rightBack int

	if us == White {
		push1 = pawns.North() & empty
		push2 = (push1 & Rank3).North() & empty
		attackL = pawns.NorthWest() & enemies
		attackR = pawns.NorthEast() & enemies
		promotionRank = Rank8
		back, leftBack, rightBack = 8, 9, 7
	} else {
		push1 = pawns.South() & empty
		push2 = (push1 & Rank6).South() & empty
		attackL = pawns.SouthWest() & enemies
		attackR = pawns.SouthEast() & enemies
		promotionRank = Rank1
		back, leftBack, rightBack = -8, -7, -9
	}

	addPawn := func(targets Bitboard, offset int, flags MoveFlag) {
		for targets != 0 {
			to := targets.PopLSB()
			from := Square(int(to) + offset)
			if promotionRank.IsSet(to) {
				for _, promo := range [...]PieceType{Queen, Rook, Bishop, Knight} {
					ml.Add(NewMove(from, to, Pawn, us, promo, flags))
				}
				continue
			}
			ml.Add(NewMove(from, to, Pawn, us, NoPieceType, flags))
		}
	}

	addPawn(push1, back, FlagQuiet)
	addPawn(push2, 2*back, FlagDoublePush)
	addPawn(attackL, leftBack, FlagCapture)
	addPawn(attackR, rightBack, FlagCapture)

	if p.EnPassant != NoSquare {
		// Our pawns that could capture onto the ep square are exactly the
		// squares an enemy pawn there would attack.
		attackers := PawnAttacks(p.EnPassant, us.Other()) & pawns
		for attackers != 0 {
			from := attackers.PopLSB()
			ml.Add(NewMove(from, p.EnPassant, Pawn, us, NoPieceType, FlagCapture|FlagEnPassant))
		}
	}
}

// generateCastlingMoves adds castling moves whose path is empty and whose
// king and pass-through squares are not attacked. The landing square is
// checked by MakeMove like any other king move.
func (p *Position) generateCastlingMoves(ml *MoveList, us Color) {
	them := us.Other()
	occ := p.AllOccupied

	if us == White {
		if p.CastlingRights&WhiteKingSideCastle != 0 &&
			occ&(SquareBB(F1)|SquareBB(G1)) == 0 &&
			!p.IsSquareAttacked(E1, them) && !p.IsSquareAttacked(F1, them) {
			ml.Add(NewMove(E1, G1, King, White, NoPieceType, FlagCastling))
		}
		if p.CastlingRights&WhiteQueenSideCastle != 0 &&
			occ&(SquareBB(D1)|SquareBB(C1)|SquareBB(B1)) == 0 &&
			!p.IsSquareAttacked(E1, them) && !p.IsSquareAttacked(D1, them) {
			ml.Add(NewMove(E1, C1, King, White, NoPieceType, FlagCastling))
		}
		return
	}

	if p.CastlingRights&BlackKingSideCastle != 0 &&
		occ&(SquareBB(F8)|SquareBB(G8)) == 0 &&
		!p.IsSquareAttacked(E8, them) && !p.IsSquareAttacked(F8, them) {
		ml.Add(NewMove(E8, G8, King, Black, NoPieceType, FlagCastling))
	}
	if p.CastlingRights&BlackQueenSideCastle != 0 &&
		occ&(SquareBB(D8)|SquareBB(C8)|SquareBB(B8)) == 0 &&
		!p.IsSquareAttacked(E8, them) && !p.IsSquareAttacked(D8, them) {
		ml.Add(NewMove(E8, C8, King, Black, NoPieceType, FlagCastling))
	}
}
