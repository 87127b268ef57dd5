package eval

// Piece-square tables from White's point of view, a8 first.
var pieceSquareTables = [6][64]int{
	// Pawn
	{
		0, 0, 0, 0, 0, 0, 0, 0,
		30, 30, 30, 40, 40, 30, 30, 30,
		20, 20, 20, 30, 30, 30, 20, 20,
		10, 10, 10, 20, 20, 10, 10, 10,
		5, 5, 10, 20, 20, 5, 5, 5,
		0, 0, 0, 5, 5, 0, 0, 0,
		0, 0, 0, -10, -10, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0,
	},
	// Knight
	{
		-5, 0, 0, 0, 0, 0, 0, -5,
		-5, 0, 0, 10, 10, 0, 0, -5,
		-5, 5, 20, 20, 20, 20, 5, -5,
		-5, 10, 20, 30, 30, 20, 10, -5,
		-5, 10, 20, 30, 30, 20, 10, -5,
		-5, 5, 20, 10, 10, 20, 5, -5,
		-5, 0, 0, 0, 0, 0, 0, -5,
		-5, -10, 0, 0, 0, 0, -10, -5,
	},
	// Bishop
	{
		0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 10, 10, 0, 0, 0,
		0, 0, 10, 20, 20, 10, 0, 0,
		0, 0, 10, 20, 20, 10, 0, 0,
		0, 10, 0, 0, 0, 0, 10, 0,
		0, 30, 0, 0, 0, 0, 30, 0,
		0, 0, -10, 0, 0, -10, 0, 0,
	},
	// Rook
	{
		50, 50, 50, 50, 50, 50, 50, 50,
		50, 50, 50, 50, 50, 50, 50, 50,
		0, 0, 10, 20, 20, 10, 0, 0,
		0, 0, 10, 20, 20, 10, 0, 0,
		0, 0, 10, 20, 20, 10, 0, 0,
		0, 0, 10, 20, 20, 10, 0, 0,
		0, 0, 10, 20, 20, 10, 0, 0,
		0, 0, 0, 20, 20, 0, 0, 0,
	},
	// Queen
	{
		-20, -10, -10, -5, -5, -10, -10, -20,
		-10, 0, 0, 0, 0, 0, 0, -10,
		-10, 0, 5, 5, 5, 5, 0, -10,
		-5, 0, 5, 5, 5, 5, 0, -5,
		0, 0, 5, 5, 5, 5, 0, -5,
		-10, 5, 5, 5, 5, 5, 0, -10,
		-10, 0, 5, 0, 0, 0, 0, -10,
		-20, -10, -10, -5, -5, -10, -10, -20,
	},
	// King
	{
		0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 5, 5, 5, 5, 0, 0,
		0, 5, 5, 10, 10, 5, 5, 0,
		0, 5, 10, 20, 20, 10, 5, 0,
		0, 5, 10, 20, 20, 10, 5, 0,
		0, 0, 5, 10, 10, 5, 0, 0,
		0, 5, 5, -5, -5, 0, 5, 0,
		0, 0, 5, 0, -15, 0, 10, 0,
	},
}
