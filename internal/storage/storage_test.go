package storage

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"
)

func openMemory(t *testing.T) *Storage {
	t.Helper()
	s, err := Open(Options{InMemory: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAnalysis(t *testing.T) {
	s := openMemory(t)
	const hash = 0xDEADBEEF

	if _, err := s.GetAnalysis(hash); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetAnalysis on empty store = %v, want ErrNotFound", err)
	}

	a := Analysis{FEN: "startpos", Depth: 6, Score: 25, BestMove: "e2e4", PV: []string{"e2e4", "e7e5"}}
	if err := s.PutAnalysis(hash, a); err != nil {
		t.Fatalf("PutAnalysis: %v", err)
	}

	got, err := s.GetAnalysis(hash)
	if err != nil {
		t.Fatalf("GetAnalysis: %v", err)
	}
	if got.Depth != 6 || got.BestMove != "e2e4" || len(got.PV) != 2 || got.UpdatedAt.IsZero() {
		t.Errorf("GetAnalysis = %+v", got)
	}

	t.Run("ShallowerIgnored", func(t *testing.T) {
		if err := s.PutAnalysis(hash, Analysis{Depth: 3, BestMove: "d2d4"}); err != nil {
			t.Fatal(err)
		}
		got, _ := s.GetAnalysis(hash)
		if got.BestMove != "e2e4" {
			t.Errorf("best move = %s, want deeper result e2e4 kept", got.BestMove)
		}
	})

	t.Run("DeeperReplaces", func(t *testing.T) {
		if err := s.PutAnalysis(hash, Analysis{Depth: 9, BestMove: "g1f3"}); err != nil {
			t.Fatal(err)
		}
		got, _ := s.GetAnalysis(hash)
		if got.BestMove != "g1f3" || got.Depth != 9 {
			t.Errorf("got %s at depth %d, want g1f3 at 9", got.BestMove, got.Depth)
		}
	})
}

func TestPerftCache(t *testing.T) {
	s := openMemory(t)
	fen := "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

	if _, err := s.GetPerft(fen, 4); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetPerft on empty store = %v, want ErrNotFound", err)
	}
	if err := s.PutPerft(PerftRecord{FEN: fen, Depth: 4, Nodes: 197281, Duration: time.Second}); err != nil {
		t.Fatal(err)
	}

	rec, err := s.GetPerft(fen, 4)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Nodes != 197281 {
		t.Errorf("nodes = %d, want 197281", rec.Nodes)
	}
	if _, err := s.GetPerft(fen, 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("depth 5 lookup = %v, want ErrNotFound", err)
	}
}

func TestBookEntries(t *testing.T) {
	s := openMemory(t)

	if err := s.PutBookEntries(1, []BookEntry{{Move: "e2e4", Weight: 3}}); err != nil {
		t.Fatal(err)
	}
	err := s.UpdateBookEntries(1, func(entries []BookEntry) []BookEntry {
		return append(entries, BookEntry{Move: "d2d4", Weight: 1})
	})
	if err != nil {
		t.Fatal(err)
	}
	err = s.UpdateBookEntries(2, func(entries []BookEntry) []BookEntry {
		if entries != nil {
			t.Errorf("unknown position passed %v", entries)
		}
		return []BookEntry{{Move: "c7c5", Weight: 1}}
	})
	if err != nil {
		t.Fatal(err)
	}

	entries, err := s.GetBookEntries(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Move != "e2e4" || entries[1].Move != "d2d4" {
		t.Errorf("entries = %+v", entries)
	}

	n, err := s.CountBookPositions()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("CountBookPositions = %d, want 2", n)
	}
}

func TestMatchStats(t *testing.T) {
	s := openMemory(t)

	stats, err := s.LoadStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.GamesPlayed != 0 || stats.WhiteScore() != 0 {
		t.Errorf("empty stats = %+v", stats)
	}

	results := []GameResult{
		{Winner: "white", Termination: "checkmate", Plies: 41},
		{Winner: "", Termination: "stalemate", Plies: 80},
		{Winner: "black", Termination: "checkmate", Plies: 62},
		{Winner: "white", Termination: "checkmate", Plies: 33},
	}
	for _, r := range results {
		if err := s.RecordGame(r); err != nil {
			t.Fatal(err)
		}
	}

	stats, err = s.LoadStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.GamesPlayed != 4 || stats.WhiteWins != 2 || stats.BlackWins != 1 || stats.Draws != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.ByTermination["checkmate"] != 3 {
		t.Errorf("checkmates = %d, want 3", stats.ByTermination["checkmate"])
	}
	if got := stats.WhiteScore(); got != 62.5 {
		t.Errorf("WhiteScore = %.2f, want 62.50", got)
	}
}

func TestConcurrentWriters(t *testing.T) {
	s := openMemory(t)
	const writers = 50
	const hash = 42

	var wg sync.WaitGroup
	errs := make(chan error, 2*writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.RecordGame(GameResult{Winner: "white", Termination: "checkmate", Plies: 10})
			errs <- s.UpdateBookEntries(hash, func(entries []BookEntry) []BookEntry {
				if len(entries) == 0 {
					return []BookEntry{{Move: "e2e4", Weight: 1}}
				}
				entries[0].Weight++
				return entries
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent write: %v", err)
		}
	}

	stats, err := s.LoadStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.GamesPlayed != writers || stats.TotalPlies != 10*writers {
		t.Errorf("stored %d games (%d plies), want %d", stats.GamesPlayed, stats.TotalPlies, writers)
	}

	entries, err := s.GetBookEntries(hash)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Weight != writers {
		t.Errorf("book entries = %+v, want e2e4 with weight %d", entries, writers)
	}
}

func TestPersistence(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(Options{Dir: dir})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.PutBookEntries(7, []BookEntry{{Move: "g1f3", Weight: 2}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(Options{Dir: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	entries, err := s.GetBookEntries(7)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Move != "g1f3" {
		t.Errorf("entries after reopen = %+v", entries)
	}
}

func TestDataPaths(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG layout only applies on Linux")
	}
	base := t.TempDir()
	t.Setenv("XDG_DATA_HOME", base)

	dataDir, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir failed: %v", err)
	}
	if want := filepath.Join(base, appName); dataDir != want {
		t.Errorf("DataDir = %s, want %s", dataDir, want)
	}

	dbDir, err := DatabaseDir()
	if err != nil {
		t.Fatalf("DatabaseDir failed: %v", err)
	}
	if _, err := os.Stat(dbDir); err != nil {
		t.Errorf("database directory was not created: %v", err)
	}
}
