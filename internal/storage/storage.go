package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("storage: not found")

// Key prefixes
const (
	prefixAnalysis = "a/"
	prefixPerft    = "p/"
	prefixBook     = "b/"
	keyStats       = "stats"
)

// Options configures Open.
type Options struct {
	Dir      string // Database directory, DatabaseDir() when empty
	InMemory bool   // Keep everything in memory (tests, throwaway runs)
	Logger   zerolog.Logger
}

// Analysis is a stored search result for a position.
type Analysis struct {
	FEN       string    `json:"fen"`
	Depth     int       `json:"depth"`
	Score     int       `json:"score"`
	BestMove  string    `json:"best_move"`
	PV        []string  `json:"pv"`
	Nodes     uint64    `json:"nodes"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PerftRecord is a cached perft total.
type PerftRecord struct {
	FEN      string        `json:"fen"`
	Depth    int           `json:"depth"`
	Nodes    uint64        `json:"nodes"`
	Duration time.Duration `json:"duration"`
}

// BookEntry is one candidate move of a learned book position.
type BookEntry struct {
	Move   string `json:"move"`
	Weight uint32 `json:"weight"`
}

// GameResult is the outcome of one finished game.
type GameResult struct {
	Winner      string // "white", "black" or "" for a draw
	Termination string
	Plies       int
	Duration    time.Duration
}

// MatchStats accumulates results over many games.
type MatchStats struct {
	GamesPlayed   int            `json:"games_played"`
	WhiteWins     int            `json:"white_wins"`
	BlackWins     int            `json:"black_wins"`
	Draws         int            `json:"draws"`
	ByTermination map[string]int `json:"by_termination"`
	TotalPlies    int            `json:"total_plies"`
	TotalPlayTime time.Duration  `json:"total_play_time"`
}

// NewMatchStats returns empty statistics.
func NewMatchStats() *MatchStats {
	return &MatchStats{ByTermination: make(map[string]int)}
}

// WhiteScore returns White's score as a percentage (0-100), draws counting half.
func (s *MatchStats) WhiteScore() float64 {
	if s.GamesPlayed == 0 {
		return 0
	}
	return (float64(s.WhiteWins) + float64(s.Draws)/2) / float64(s.GamesPlayed) * 100
}

// Storage wraps BadgerDB for persistent storage.
type Storage struct {
	db  *badger.DB
	log zerolog.Logger
	rmw sync.Mutex // Serializes read-modify-write transactions
}

// Open opens (or creates) the database.
func Open(opts Options) (*Storage, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		dir := opts.Dir
		if dir == "" {
			var err error
			if dir, err = DatabaseDir(); err != nil {
				return nil, fmt.Errorf("database dir: %w", err)
			}
		}
		bopts = badger.DefaultOptions(dir)
	}

	log := opts.Logger.With().Str("component", "storage").Logger()
	bopts.Logger = badgerLogger{log: log}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	log.Debug().Str("dir", bopts.Dir).Bool("in_memory", opts.InMemory).Msg("database opened")
	return &Storage{db: db, log: log}, nil
}

// Close closes the database.
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func analysisKey(hash uint64) []byte {
	return fmt.Appendf(nil, "%s%016x", prefixAnalysis, hash)
}

func perftKey(fen string, depth int) []byte {
	return fmt.Appendf(nil, "%s%d/%s", prefixPerft, depth, fen)
}

func bookKey(hash uint64) []byte {
	return fmt.Appendf(nil, "%s%016x", prefixBook, hash)
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

// maxConflictRetries bounds how often a read-modify-write is replayed after
// another writer committed the same key first.
const maxConflictRetries = 64

// update runs fn in a read-write transaction, replaying it while badger
// reports a conflict. fn must derive everything it writes from txn.
func (s *Storage) update(fn func(txn *badger.Txn) error) error {
	s.rmw.Lock()
	defer s.rmw.Unlock()

	var err error
	for range maxConflictRetries {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// PutAnalysis stores a search result for the position hash. An existing
// result from a deeper search is kept.
func (s *Storage) PutAnalysis(hash uint64, a Analysis) error {
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = time.Now()
	}
	key := analysisKey(hash)

	return s.update(func(txn *badger.Txn) error {
		var old Analysis
		err := getJSON(txn, key, &old)
		switch {
		case err == nil && old.Depth > a.Depth:
			return nil
		case err != nil && !errors.Is(err, ErrNotFound):
			return err
		}
		return setJSON(txn, key, a)
	})
}

// GetAnalysis loads the search result for the position hash.
func (s *Storage) GetAnalysis(hash uint64) (Analysis, error) {
	var a Analysis
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, analysisKey(hash), &a)
	})
	return a, err
}

// PutPerft caches a perft total.
func (s *Storage) PutPerft(rec PerftRecord) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, perftKey(rec.FEN, rec.Depth), rec)
	})
}

// GetPerft loads a cached perft total.
func (s *Storage) GetPerft(fen string, depth int) (PerftRecord, error) {
	var rec PerftRecord
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, perftKey(fen, depth), &rec)
	})
	return rec, err
}

// PutBookEntries replaces the book moves of a position.
func (s *Storage) PutBookEntries(hash uint64, entries []BookEntry) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, bookKey(hash), entries)
	})
}

// UpdateBookEntries applies fn to the book moves of a position inside one
// transaction. fn receives nil when the position is unknown.
func (s *Storage) UpdateBookEntries(hash uint64, fn func([]BookEntry) []BookEntry) error {
	key := bookKey(hash)
	return s.update(func(txn *badger.Txn) error {
		var entries []BookEntry
		if err := getJSON(txn, key, &entries); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		return setJSON(txn, key, fn(entries))
	})
}

// GetBookEntries loads the book moves of a position.
func (s *Storage) GetBookEntries(hash uint64) ([]BookEntry, error) {
	var entries []BookEntry
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, bookKey(hash), &entries)
	})
	return entries, err
}

// CountBookPositions returns the number of positions in the book.
func (s *Storage) CountBookPositions() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixBook)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// LoadStats loads match statistics, returns empty stats if not found.
func (s *Storage) LoadStats() (*MatchStats, error) {
	stats := NewMatchStats()
	err := s.db.View(func(txn *badger.Txn) error {
		err := getJSON(txn, []byte(keyStats), stats)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	})
	return stats, err
}

// RecordGame adds a finished game to the match statistics.
func (s *Storage) RecordGame(result GameResult) error {
	return s.update(func(txn *badger.Txn) error {
		stats := NewMatchStats()
		if err := getJSON(txn, []byte(keyStats), stats); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		if stats.ByTermination == nil {
			stats.ByTermination = make(map[string]int)
		}

		stats.GamesPlayed++
		stats.TotalPlies += result.Plies
		stats.TotalPlayTime += result.Duration
		stats.ByTermination[result.Termination]++

		switch result.Winner {
		case "white":
			stats.WhiteWins++
		case "black":
			stats.BlackWins++
		default:
			stats.Draws++
		}
		return setJSON(txn, []byte(keyStats), stats)
	})
}

// badgerLogger routes badger's log output through zerolog.
type badgerLogger struct {
	log zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.log.Error().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.log.Warn().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.log.Debug().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.log.Trace().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
