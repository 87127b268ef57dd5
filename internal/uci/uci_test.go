package uci

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hailam/blackbit/internal/board"
	"github.com/hailam/blackbit/internal/book"
	"github.com/hailam/blackbit/internal/engine"
	"github.com/hailam/blackbit/internal/storage"
	"github.com/hailam/blackbit/internal/tablebase"
)

func run(t *testing.T, u *UCI, commands ...string) string {
	t.Helper()
	var out bytes.Buffer
	in := strings.NewReader(strings.Join(commands, "\n") + "\n")
	if err := u.Run(context.Background(), in, &out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out.String()
}

func bestMove(t *testing.T, out string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if rest, ok := strings.CutPrefix(line, "bestmove "); ok {
			return rest
		}
	}
	t.Fatalf("no bestmove in output:\n%s", out)
	return ""
}

func TestHandshake(t *testing.T) {
	out := run(t, New(Options{}), "uci", "isready")
	for _, want := range []string{"id name Blackbit", "option name Hash type spin", "uciok", "readyok"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPositionMoves(t *testing.T) {
	u := New(Options{})
	run(t, u, "position startpos moves g1f3 g8f6")

	want := "rnbqkb1r/pppppppp/5n2/8/8/5N2/PPPPPPPP/RNBQKB1R w KQkq - 2 2"
	if got := u.position.FEN(); got != want {
		t.Errorf("FEN = %s, want %s", got, want)
	}
	if len(u.positionHashes) != 3 {
		t.Errorf("history has %d positions, want 3", len(u.positionHashes))
	}
}

func TestPositionFEN(t *testing.T) {
	u := New(Options{})
	fen := "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1"
	run(t, u, "position fen "+fen+" moves e2e4")

	if got := u.position.FEN(); !strings.HasPrefix(got, "4k3/8/8/8/4P3/8/8/4K3 b") {
		t.Errorf("FEN = %s", got)
	}
}

func TestPositionErrors(t *testing.T) {
	u := New(Options{})
	out := run(t, u,
		"position startpos moves e2e4",
		"position fen not a fen",
		"position startpos moves e2e5",
	)
	if !strings.Contains(out, "Invalid FEN") {
		t.Errorf("missing FEN error:\n%s", out)
	}
	if !strings.Contains(out, "Invalid move: e2e5") {
		t.Errorf("missing move error:\n%s", out)
	}
	// The bad move leaves the position at its last good state
	if u.position.FEN() != board.StartFEN {
		t.Errorf("position = %s, want start", u.position.FEN())
	}
}

func TestGoDepth(t *testing.T) {
	out := run(t, New(Options{}), "position startpos", "go depth 3")

	for _, want := range []string{"info depth 1 ", "info depth 3 ", "score cp ", " pv "} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	pos := board.NewPosition()
	if _, err := board.ParseMove(bestMove(t, out), &pos); err != nil {
		t.Errorf("bestmove is not a legal move: %v", err)
	}
}

func TestGoMate(t *testing.T) {
	out := run(t, New(Options{}), "position fen 6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1", "go depth 5")
	if !strings.Contains(out, "score mate 1") {
		t.Errorf("missing mate score:\n%s", out)
	}
	if got := bestMove(t, out); got != "a1a8" {
		t.Errorf("bestmove = %s, want a1a8", got)
	}
}

func TestGoNoLegalMoves(t *testing.T) {
	out := run(t, New(Options{}), "position fen 7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", "go depth 3")
	if got := bestMove(t, out); got != "0000" {
		t.Errorf("bestmove = %s, want 0000", got)
	}
}

func TestGoInfiniteStop(t *testing.T) {
	u := New(Options{})
	var out bytes.Buffer
	in, w := io.Pipe()
	defer w.Close()

	done := make(chan error, 1)
	go func() { done <- u.Run(context.Background(), in, &out) }()

	io.WriteString(w, "position startpos\n")
	io.WriteString(w, "go infinite\n")
	time.Sleep(50 * time.Millisecond)
	io.WriteString(w, "stop\n")
	io.WriteString(w, "quit\n")

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("stop did not end the search")
	}
	if !strings.Contains(out.String(), "bestmove ") {
		t.Errorf("no bestmove after stop:\n%s", out.String())
	}
}

// syncBuffer lets a test read output while Run is still writing.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestGoInfiniteHoldsBestMoveUntilStop(t *testing.T) {
	u := New(Options{})
	var out syncBuffer
	in, w := io.Pipe()
	defer w.Close()

	done := make(chan error, 1)
	go func() { done <- u.Run(context.Background(), in, &out) }()

	// Mate in one ends the search almost at once.
	io.WriteString(w, "position fen 6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1\n")
	io.WriteString(w, "go infinite\n")
	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(out.String(), "score mate 1") && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)
	if strings.Contains(out.String(), "bestmove") {
		t.Fatalf("bestmove sent before stop:\n%s", out.String())
	}

	io.WriteString(w, "stop\n")
	io.WriteString(w, "quit\n")
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("stop did not end the search")
	}
	if got := bestMove(t, out.String()); got != "a1a8" {
		t.Errorf("bestmove = %s, want a1a8", got)
	}
}

func TestGoInfiniteEndOfInput(t *testing.T) {
	out := run(t, New(Options{}), "position startpos", "go infinite")
	if bestMove(t, out) == "0000" {
		t.Errorf("no move after end of input:\n%s", out)
	}
}

func TestBookMove(t *testing.T) {
	b := book.NewMemory()
	pos := board.NewPosition()
	m, _ := board.ParseMove("g1f3", &pos)
	if err := b.Learn(&pos, m, 1); err != nil {
		t.Fatal(err)
	}

	u := New(Options{Book: b})
	out := run(t, u, "position startpos", "go depth 3")
	if got := bestMove(t, out); got != "g1f3" {
		t.Errorf("bestmove = %s, want book move g1f3", got)
	}

	// Disabled book falls through to search
	out = run(t, u, "setoption name OwnBook value false", "position startpos", "go depth 1")
	if strings.Contains(out, "book move") {
		t.Errorf("book used while disabled:\n%s", out)
	}
}

type stubProber struct {
	move string
}

func (s stubProber) Probe(context.Context, *board.Position) (tablebase.ProbeResult, error) {
	return tablebase.ProbeResult{WDL: tablebase.WDLWin}, nil
}

func (s stubProber) ProbeRoot(_ context.Context, pos *board.Position) (tablebase.RootResult, error) {
	m, err := board.ParseMove(s.move, pos)
	if err != nil {
		return tablebase.RootResult{}, err
	}
	return tablebase.RootResult{Move: m, WDL: tablebase.WDLWin, DTZ: 3}, nil
}

func (stubProber) MaxPieces() int  { return 5 }
func (stubProber) Available() bool { return true }

func TestTablebaseMove(t *testing.T) {
	u := New(Options{Tablebase: stubProber{move: "d1d7"}})
	out := run(t, u, "position fen 4k3/8/8/8/8/8/8/3QK3 w - - 0 1", "go depth 5")
	if got := bestMove(t, out); got != "d1d7" {
		t.Errorf("bestmove = %s, want tablebase move d1d7", got)
	}

	// Too many pieces for the prober: search decides
	out = run(t, u, "position startpos", "go depth 1")
	if strings.Contains(out, "tablebase") {
		t.Errorf("tablebase used for the starting position:\n%s", out)
	}
}

func TestAnalysisSaved(t *testing.T) {
	store, err := storage.Open(storage.Options{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	run(t, New(Options{Store: store}), "position startpos", "go depth 2")

	pos := board.NewPosition()
	a, err := store.GetAnalysis(pos.Hash)
	if err != nil {
		t.Fatalf("GetAnalysis: %v", err)
	}
	if a.Depth != 2 || a.BestMove == "" || a.FEN != board.StartFEN {
		t.Errorf("analysis = %+v", a)
	}
}

func TestPerftCommand(t *testing.T) {
	out := run(t, New(Options{}), "position startpos", "perft 2")
	if !strings.Contains(out, "Nodes: 400") {
		t.Errorf("perft 2 output:\n%s", out)
	}
	if !strings.Contains(out, "e2e4: 20") {
		t.Errorf("divide line missing:\n%s", out)
	}
}

func TestSetOptionHash(t *testing.T) {
	out := run(t, New(Options{}), "setoption name Hash value 2", "setoption name Hash value x", "setoption name Clear Hash")
	if !strings.Contains(out, "Invalid hash size: x") {
		t.Errorf("missing hash error:\n%s", out)
	}
}

func TestParseGoOptions(t *testing.T) {
	opts := ParseGoOptions(strings.Fields("wtime 60000 btime 30000 winc 1000 binc 500 movestogo 20 depth 8 nodes 5000"))
	want := GoOptions{
		Depth:     8,
		Nodes:     5000,
		WTime:     time.Minute,
		BTime:     30 * time.Second,
		WInc:      time.Second,
		BInc:      500 * time.Millisecond,
		MovesToGo: 20,
	}
	if opts != want {
		t.Errorf("ParseGoOptions = %+v, want %+v", opts, want)
	}

	limits := opts.Limits()
	if limits.Clock.Time[board.Black] != 30*time.Second || limits.Depth != 8 {
		t.Errorf("Limits = %+v", limits)
	}
	if inf := ParseGoOptions([]string{"infinite", "depth", "3"}).Limits(); inf != (engine.Limits{}) {
		t.Errorf("infinite limits = %+v, want zero", inf)
	}
}

func TestFormatInfo(t *testing.T) {
	e4 := board.NewMove(board.E2, board.E4, board.Pawn, board.White, board.NoPieceType, board.FlagDoublePush)
	got := FormatInfo(engine.Result{Depth: 3, Score: 35, Nodes: 1000, Time: time.Second, PV: []board.Move{e4}, HashFull: 12})
	want := "info depth 3 score cp 35 nodes 1000 time 1000 nps 1000 hashfull 12 pv e2e4"
	if got != want {
		t.Errorf("FormatInfo = %q, want %q", got, want)
	}

	got = FormatInfo(engine.Result{Depth: 4, Score: -engine.MateScore + 2})
	if !strings.Contains(got, "score mate -1") {
		t.Errorf("mated score rendered as %q", got)
	}
}
