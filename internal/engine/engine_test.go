package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hailam/blackbit/internal/board"
)

func mustFEN(t *testing.T, fen string) board.Position {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	return pos
}

func newTestBot() *Bot {
	return NewBot(Options{TTSizeMB: 4})
}

func TestSearchBasic(t *testing.T) {
	pos := board.NewPosition()
	res, err := newTestBot().Search(context.Background(), pos, Limits{Depth: 4}, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Move == board.NoMove {
		t.Fatal("Search returned NoMove for starting position")
	}
	if res.Depth != 4 {
		t.Errorf("depth = %d, want 4", res.Depth)
	}
	if _, ok := pos.MakeMove(res.Move, false); !ok {
		t.Errorf("best move %s is illegal", res.Move)
	}
	t.Logf("Best move: %s score %d nodes %d", res.Move, res.Score, res.Nodes)
}

func TestSearchFindsMateInOne(t *testing.T) {
	pos := mustFEN(t, "6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1")
	res, err := newTestBot().Search(context.Background(), pos, Limits{Depth: 5}, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Move.String() != "a1a8" {
		t.Errorf("best move = %s, want a1a8", res.Move)
	}
	if res.Score != MateScore-1 {
		t.Errorf("score = %d, want %d", res.Score, MateScore-1)
	}
	if res.Depth != 2 {
		t.Errorf("depth = %d, want search to stop at 2 after finding mate", res.Depth)
	}
}

func TestSearchFindsMateInTwo(t *testing.T) {
	pos := mustFEN(t, "7k/8/R7/1R6/8/8/8/4K3 w - - 0 1")
	res, err := newTestBot().Search(context.Background(), pos, Limits{Depth: 8}, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	n, ok := MateIn(res.Score)
	if !ok || n < 1 {
		t.Fatalf("score = %d, want a winning mate score", res.Score)
	}
	if res.Depth >= 8 {
		t.Errorf("search did not stop early after finding mate (depth %d)", res.Depth)
	}
	if plies := MateScore - res.Score; len(res.PV) != plies {
		t.Errorf("PV %s has %d moves, want %d", FormatPV(res.PV), len(res.PV), plies)
	}

	// The PV must be playable and end in checkmate
	cur := pos
	for _, m := range res.PV {
		next, ok := cur.MakeMove(m, false)
		if !ok {
			t.Fatalf("PV move %s is illegal in %s", m, cur.FEN())
		}
		cur = next
	}
	if !cur.IsCheckmate() {
		t.Errorf("PV %s does not end in checkmate", FormatPV(res.PV))
	}
}

func TestSearchTerminalRoot(t *testing.T) {
	tests := []struct {
		name  string
		fen   string
		score int
	}{
		{"stalemate", "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", 0},
		{"checkmate", "R6k/6pp/8/8/8/8/8/K7 b - - 0 1", -MateScore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			res, err := newTestBot().Search(context.Background(), mustFEN(t, tt.fen), Limits{Depth: 3}, func(Result) bool {
				calls++
				return true
			})
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if res.Move != board.NoMove {
				t.Errorf("move = %s, want NoMove", res.Move)
			}
			if res.Score != tt.score {
				t.Errorf("score = %d, want %d", res.Score, tt.score)
			}
			if calls != 1 {
				t.Errorf("onDepth called %d times, want 1", calls)
			}
		})
	}
}

func TestSearchDeterministic(t *testing.T) {
	pos := mustFEN(t, "r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3")
	limits := Limits{Depth: 5}

	a, err := newTestBot().Search(context.Background(), pos, limits, nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := newTestBot().Search(context.Background(), pos, limits, nil)
	if err != nil {
		t.Fatal(err)
	}

	if a.Move != b.Move || a.Score != b.Score || a.Nodes != b.Nodes {
		t.Errorf("searches differ: %s %d %d vs %s %d %d", a.Move, a.Score, a.Nodes, b.Move, b.Score, b.Nodes)
	}
}

func TestSearchCapturesHangingQueen(t *testing.T) {
	pos := mustFEN(t, "4k3/8/8/3q4/8/8/3R4/4K3 w - - 0 1")
	res, err := newTestBot().Search(context.Background(), pos, Limits{Depth: 3}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := res.Move.String(); got != "d2d5" {
		t.Errorf("best move = %s, want d2d5", got)
	}
}

func TestSearchNodeLimit(t *testing.T) {
	const limit = 3000
	res, err := newTestBot().Search(context.Background(), board.NewPosition(), Limits{Nodes: limit}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Move == board.NoMove {
		t.Fatal("no move after node-limited search")
	}
	if res.Nodes > limit+nodeCheckMask+1 {
		t.Errorf("nodes = %d, want at most %d", res.Nodes, limit+nodeCheckMask+1)
	}
}

func TestSearchMoveTime(t *testing.T) {
	start := time.Now()
	res, err := newTestBot().Search(context.Background(), board.NewPosition(), Limits{MoveTime: 100 * time.Millisecond}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Move == board.NoMove {
		t.Fatal("no move after timed search")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("search took %v with a 100ms budget", elapsed)
	}
}

func TestSearchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pos := board.NewPosition()
	res, err := newTestBot().Search(ctx, pos, Limits{}, nil)
	if err != nil {
		t.Fatalf("cancelled search returned error: %v", err)
	}
	if _, ok := pos.MakeMove(res.Move, false); !ok {
		t.Errorf("cancelled search returned unusable move %s", res.Move)
	}
}

func TestSearchOnDepthStops(t *testing.T) {
	var depths []int
	res, err := newTestBot().Search(context.Background(), board.NewPosition(), Limits{Depth: 10}, func(r Result) bool {
		depths = append(depths, r.Depth)
		return r.Depth < 2
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Depth != 2 {
		t.Errorf("depth = %d, want 2", res.Depth)
	}
	if len(depths) != 2 || depths[0] != 1 || depths[1] != 2 {
		t.Errorf("reported depths = %v, want [1 2]", depths)
	}
}

func TestSearchBusy(t *testing.T) {
	bot := newTestBot()
	pos := board.NewPosition()

	var nested error
	_, err := bot.Search(context.Background(), pos, Limits{Depth: 1}, func(Result) bool {
		_, nested = bot.Search(context.Background(), pos, Limits{Depth: 1}, nil)
		return true
	})
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(nested, ErrBusy) {
		t.Errorf("nested search error = %v, want ErrBusy", nested)
	}

	// The Bot is usable again afterwards
	if _, err := bot.Search(context.Background(), pos, Limits{Depth: 1}, nil); err != nil {
		t.Errorf("search after busy: %v", err)
	}
}

func TestStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	want := 1
	for r := range newTestBot().Stream(ctx, board.NewPosition(), Limits{Depth: 4}) {
		if r.Depth != want {
			t.Errorf("streamed depth %d, want %d", r.Depth, want)
		}
		want++
	}
	if want != 5 {
		t.Errorf("received %d results, want 4", want-1)
	}
}

func TestRepetitionHistory(t *testing.T) {
	bot := newTestBot()
	pos := board.NewPosition()
	bot.SetHistory([]uint64{42, pos.Hash})
	bot.reset(context.Background(), &pos, Limits{})

	if !bot.isRepetition(pos.Hash) {
		t.Error("hash from game history not detected as repetition")
	}
	if bot.isRepetition(7) {
		t.Error("unknown hash reported as repetition")
	}
}

func TestTranspositionTable(t *testing.T) {
	tt := NewTranspositionTable(1)
	m := board.NewMove(board.E2, board.E4, board.Pawn, board.White, board.NoPieceType, board.FlagDoublePush)

	if _, ok := tt.Probe(12345); ok {
		t.Fatal("probe hit on empty table")
	}

	tt.Store(12345, 5, 40, TTExact, m, 0)
	e, ok := tt.Probe(12345)
	if !ok {
		t.Fatal("probe missed after store")
	}
	if e.BestMove != m || e.Score != 40 || e.Depth != 5 {
		t.Errorf("entry = %+v", e)
	}

	// Same slot, different key
	if _, ok := tt.Probe(12345 + tt.Size()); ok {
		t.Error("probe hit with a different key")
	}

	// Always overwrite
	tt.Store(12345+tt.Size(), 1, -7, TTUpperBound, board.NoMove, 0)
	if _, ok := tt.Probe(12345); ok {
		t.Error("old entry survived an overwrite")
	}

	tt.Clear()
	if tt.HashFull() != 0 {
		t.Errorf("HashFull after Clear = %d", tt.HashFull())
	}
}

func TestProbeScoreBounds(t *testing.T) {
	tt := NewTranspositionTable(1)
	tt.Store(1, 4, 100, TTLowerBound, board.NoMove, 0)
	tt.Store(2, 4, -100, TTUpperBound, board.NoMove, 0)
	tt.Store(3, 4, 25, TTExact, board.NoMove, 0)

	tests := []struct {
		hash              uint64
		depth, alpha, beta int
		want              int
		ok                bool
	}{
		{1, 4, 0, 50, 50, true},
		{1, 4, 0, 200, 0, false},
		{1, 5, 0, 50, 0, false},
		{2, 3, -50, 0, -50, true},
		{2, 3, -150, 0, 0, false},
		{3, 4, -1000, 1000, 25, true},
	}
	for _, tc := range tests {
		got, ok := tt.ProbeScore(tc.hash, tc.depth, tc.alpha, tc.beta, 0)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("ProbeScore(%d, %d, %d, %d) = %d, %v, want %d, %v",
				tc.hash, tc.depth, tc.alpha, tc.beta, got, ok, tc.want, tc.ok)
		}
	}
}

func TestMateScoreAdjustment(t *testing.T) {
	tt := NewTranspositionTable(1)

	// Mate found 5 plies from the root, stored at ply 2
	tt.Store(9, 3, MateScore-5, TTExact, board.NoMove, 2)
	got, ok := tt.ProbeScore(9, 3, -Infinity, Infinity, 4)
	if !ok {
		t.Fatal("ProbeScore missed")
	}
	if got != MateScore-7 {
		t.Errorf("mate score at ply 4 = %d, want %d", got, MateScore-7)
	}

	for _, score := range []int{0, 250, -250, MateScore - 10, -MateScore + 10} {
		if back := AdjustScoreFromTT(AdjustScoreToTT(score, 6), 6); back != score {
			t.Errorf("round trip of %d = %d", score, back)
		}
	}
}

func TestAllocateTime(t *testing.T) {
	clock := Clock{Time: [2]time.Duration{60 * time.Second, 60 * time.Second}}
	opt, maximum := AllocateTime(clock, board.White, 20)
	if opt != 60*time.Second/45 {
		t.Errorf("optimum = %v, want %v", opt, 60*time.Second/45)
	}
	if maximum != 5*opt {
		t.Errorf("maximum = %v, want %v", maximum, 5*opt)
	}

	low := Clock{Time: [2]time.Duration{100 * time.Millisecond, time.Minute}}
	opt, maximum = AllocateTime(low, board.White, 0)
	if opt != 10*time.Millisecond || maximum != 50*time.Millisecond {
		t.Errorf("low clock = %v/%v, want 10ms/50ms", opt, maximum)
	}

	nearFlag := Clock{Time: [2]time.Duration{20 * time.Millisecond, time.Minute}}
	opt, maximum = AllocateTime(nearFlag, board.White, 60)
	if maximum != 20*time.Millisecond || opt != 10*time.Millisecond {
		t.Errorf("near flag = %v/%v, want 10ms/20ms", opt, maximum)
	}

	withInc := Clock{
		Time:      [2]time.Duration{time.Minute, 10 * time.Second},
		Inc:       [2]time.Duration{0, time.Second},
		MovesToGo: 10,
	}
	opt, _ = AllocateTime(withInc, board.Black, 40)
	if want := time.Second + 900*time.Millisecond; opt != want {
		t.Errorf("optimum with increment = %v, want %v", opt, want)
	}
}

func TestScoreToString(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{123, "1.23"},
		{-5, "-0.05"},
		{0, "0.00"},
		{MateScore - 3, "Mate in 2"},
		{-MateScore + 2, "Mated in 1"},
	}
	for _, tt := range tests {
		if got := ScoreToString(tt.score); got != tt.want {
			t.Errorf("ScoreToString(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}
