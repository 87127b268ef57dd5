package book

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/hailam/blackbit/internal/board"
	"github.com/hailam/blackbit/internal/storage"
)

func mustMove(t *testing.T, pos *board.Position, s string) board.Move {
	t.Helper()
	m, err := board.ParseMove(s, pos)
	if err != nil {
		t.Fatalf("ParseMove(%q): %v", s, err)
	}
	return m
}

func TestBookMiss(t *testing.T) {
	pos := board.NewPosition()
	move, err := NewMemory().Probe(&pos)
	if !errors.Is(err, ErrNoEntry) {
		t.Errorf("Probe on empty book = %v, want ErrNoEntry", err)
	}
	if move != board.NoMove {
		t.Errorf("Expected NoMove on miss, got %s", move)
	}
}

func TestLearnAndProbe(t *testing.T) {
	b := NewMemory()
	pos := board.NewPosition()
	e4 := mustMove(t, &pos, "e2e4")

	if err := b.Learn(&pos, e4, 5); err != nil {
		t.Fatalf("Learn: %v", err)
	}
	move, err := b.Probe(&pos)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if move != e4 {
		t.Errorf("Probe = %s, want e2e4", move)
	}
	if !move.IsDoublePush() {
		t.Error("book move lost its generated flags")
	}
}

func TestLearnAccumulates(t *testing.T) {
	b := NewMemory()
	pos := board.NewPosition()

	for _, tc := range []struct {
		move   string
		weight uint32
	}{{"d2d4", 2}, {"e2e4", 1}, {"e2e4", 4}, {"g1f3", 1}} {
		if err := b.Learn(&pos, mustMove(t, &pos, tc.move), tc.weight); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := b.ProbeAll(&pos)
	if err != nil {
		t.Fatal(err)
	}
	want := []struct {
		move   string
		weight uint32
	}{{"e2e4", 5}, {"d2d4", 2}, {"g1f3", 1}}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, w := range want {
		if entries[i].Move.String() != w.move || entries[i].Weight != w.weight {
			t.Errorf("entry %d = %s/%d, want %s/%d", i, entries[i].Move, entries[i].Weight, w.move, w.weight)
		}
	}
}

func TestLearnIllegal(t *testing.T) {
	pos, err := board.ParseFEN("4k3/8/8/8/8/8/4r3/4K3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	// f2 is covered by the rook
	m := board.NewMove(board.E1, board.F2, board.King, board.White, board.NoPieceType, board.FlagQuiet)
	if err := NewMemory().Learn(&pos, m, 1); err == nil {
		t.Error("Learn accepted a move into check")
	}
}

func TestWeightedChoice(t *testing.T) {
	b := NewMemory()
	pos := board.NewPosition()
	if err := b.Learn(&pos, mustMove(t, &pos, "e2e4"), 3); err != nil {
		t.Fatal(err)
	}
	if err := b.Learn(&pos, mustMove(t, &pos, "d2d4"), 1); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		r    uint64
		want string
	}{{0, "e2e4"}, {2, "e2e4"}, {3, "d2d4"}}
	for _, tc := range tests {
		b.pick = func(n uint64) uint64 {
			if n != 4 {
				t.Errorf("total weight = %d, want 4", n)
			}
			return tc.r
		}
		m, err := b.Probe(&pos)
		if err != nil {
			t.Fatal(err)
		}
		if m.String() != tc.want {
			t.Errorf("pick %d chose %s, want %s", tc.r, m, tc.want)
		}
	}
}

func TestProbeSkipsForeignMoves(t *testing.T) {
	store, err := storage.Open(storage.Options{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	pos := board.NewPosition()
	// A move that cannot be played from the starting position
	if err := store.PutBookEntries(pos.Hash, []storage.BookEntry{{Move: "e4e5", Weight: 10}, {Move: "c2c4", Weight: 1}}); err != nil {
		t.Fatal(err)
	}

	m, err := New(store).Probe(&pos)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if m.String() != "c2c4" {
		t.Errorf("Probe = %s, want c2c4", m)
	}
}

func TestImport(t *testing.T) {
	pos := board.NewPosition()
	e2e4 := uint16(4 | (3 << 3) | (4 << 6) | (1 << 9))

	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, pos.Hash)
	binary.Write(&buf, binary.BigEndian, e2e4)
	binary.Write(&buf, binary.BigEndian, uint16(100))
	binary.Write(&buf, binary.BigEndian, uint32(0))

	b := NewMemory()
	n, err := b.Import(&buf)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if n != 1 {
		t.Errorf("imported %d entries, want 1", n)
	}

	move, err := b.Probe(&pos)
	if err != nil {
		t.Fatal(err)
	}
	if move.From() != board.E2 || move.To() != board.E4 {
		t.Errorf("Expected e2e4, got %s", move)
	}
}

func TestImportTruncated(t *testing.T) {
	if _, err := NewMemory().Import(bytes.NewReader(make([]byte, 10))); err == nil {
		t.Error("Import accepted a truncated entry")
	}
}

func TestMoveEncoding(t *testing.T) {
	tests := []struct {
		fen  string
		move string
	}{
		{board.StartFEN, "e2e4"},
		{"rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1", "g8f6"},
		{"r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", "e1g1"},
		{"r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", "e1c1"},
		{"r3k2r/8/8/8/8/8/8/R3K2R b KQkq - 0 1", "e8g8"},
		{"4k3/1P6/8/8/8/8/8/4K3 w - - 0 1", "b7b8n"},
		{"4k3/1P6/8/8/8/8/8/4K3 w - - 0 1", "b7b8q"},
	}
	for _, tc := range tests {
		pos, err := board.ParseFEN(tc.fen)
		if err != nil {
			t.Fatal(err)
		}
		m := mustMove(t, &pos, tc.move)
		if got := decodeMove(EncodeMove(m)); got != tc.move {
			t.Errorf("decodeMove(EncodeMove(%s)) = %s", tc.move, got)
		}
	}
}
