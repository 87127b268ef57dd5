// Package book implements a learned opening book keyed by position hash.
package book

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"lukechampine.com/frand"

	"github.com/hailam/blackbit/internal/board"
	"github.com/hailam/blackbit/internal/storage"
)

// ErrNoEntry is returned when the book has no usable move for a position.
var ErrNoEntry = errors.New("book: no entry for position")

// Store persists book entries. *storage.Storage implements it.
type Store interface {
	GetBookEntries(hash uint64) ([]storage.BookEntry, error)
	UpdateBookEntries(hash uint64, fn func([]storage.BookEntry) []storage.BookEntry) error
}

// Entry is a legal book move with its weight.
type Entry struct {
	Move   board.Move
	Weight uint32
}

// Book represents an opening book.
type Book struct {
	store Store
	pick  func(n uint64) uint64
}

// New creates a book on top of store.
func New(store Store) *Book {
	return &Book{store: store, pick: frand.Uint64n}
}

// NewMemory creates a book that lives only in memory.
func NewMemory() *Book {
	return New(&memoryStore{entries: make(map[uint64][]storage.BookEntry)})
}

// Learn adds weight to move m in pos, creating the entry if needed.
func (b *Book) Learn(pos *board.Position, m board.Move, weight uint32) error {
	if _, ok := pos.MakeMove(m, false); !ok {
		return fmt.Errorf("learn %s: illegal move", m)
	}
	return b.add(pos.Hash, m.String(), weight)
}

func (b *Book) add(hash uint64, move string, weight uint32) error {
	return b.store.UpdateBookEntries(hash, func(entries []storage.BookEntry) []storage.BookEntry {
		for i := range entries {
			if entries[i].Move == move {
				entries[i].Weight += weight
				return sortEntries(entries)
			}
		}
		return sortEntries(append(entries, storage.BookEntry{Move: move, Weight: weight}))
	})
}

func sortEntries(entries []storage.BookEntry) []storage.BookEntry {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Weight > entries[j].Weight
	})
	return entries
}

// ProbeAll returns the legal book moves for the position, sorted by weight.
// Stored moves that do not fit the position (hash collisions) are skipped.
func (b *Book) ProbeAll(pos *board.Position) ([]Entry, error) {
	stored, err := b.store.GetBookEntries(pos.Hash)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoEntry
	}
	if err != nil {
		return nil, fmt.Errorf("probe book: %w", err)
	}

	var result []Entry
	for _, e := range stored {
		m, err := board.ParseMove(e.Move, pos)
		if err != nil {
			continue
		}
		if _, ok := pos.MakeMove(m, false); !ok {
			continue
		}
		result = append(result, Entry{Move: m, Weight: e.Weight})
	}
	if len(result) == 0 {
		return nil, ErrNoEntry
	}
	return result, nil
}

// Probe picks a book move by weighted random selection.
func (b *Book) Probe(pos *board.Position) (board.Move, error) {
	entries, err := b.ProbeAll(pos)
	if err != nil {
		return board.NoMove, err
	}

	var totalWeight uint64
	for _, e := range entries {
		totalWeight += uint64(e.Weight)
	}
	if totalWeight == 0 {
		return entries[0].Move, nil
	}

	r := b.pick(totalWeight)
	var cumulative uint64
	for _, e := range entries {
		cumulative += uint64(e.Weight)
		if r < cumulative {
			return e.Move, nil
		}
	}
	return entries[0].Move, nil
}

// Import reads 16-byte binary entries: 8 bytes position hash, 2 bytes move,
// 2 bytes weight, 4 bytes ignored, all big-endian. The move uses the
// Polyglot encoding. Hashes must be this package's position hashes.
func (b *Book) Import(r io.Reader) (int, error) {
	var entry [16]byte
	n := 0

	for {
		_, err := io.ReadFull(r, entry[:])
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, fmt.Errorf("read entry %d: %w", n, err)
		}

		key := binary.BigEndian.Uint64(entry[0:8])
		move := decodeMove(binary.BigEndian.Uint16(entry[8:10]))
		weight := binary.BigEndian.Uint16(entry[10:12])

		if err := b.add(key, move, uint32(weight)); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// decodeMove converts the packed book encoding to UCI notation.
// Bits: 0-5 to square, 6-11 from square (file + rank*8, a1 = 0),
// 12-14 promotion (0=none, 1=knight, 2=bishop, 3=rook, 4=queen).
func decodeMove(data uint16) string {
	toFile := data & 7
	toRank := (data >> 3) & 7
	fromFile := (data >> 6) & 7
	fromRank := (data >> 9) & 7
	promo := (data >> 12) & 7

	from := board.NewSquare(int(fromFile), int(fromRank))
	to := board.NewSquare(int(toFile), int(toRank))

	// Castling is encoded as king captures rook
	switch {
	case from == board.E1 && to == board.H1:
		to = board.G1
	case from == board.E1 && to == board.A1:
		to = board.C1
	case from == board.E8 && to == board.H8:
		to = board.G8
	case from == board.E8 && to == board.A8:
		to = board.C8
	}

	s := from.String() + to.String()
	if promo > 0 && promo <= 4 {
		s += string("nbrq"[promo-1])
	}
	return s
}

// EncodeMove is the inverse of the Import move encoding.
func EncodeMove(m board.Move) uint16 {
	from, to := m.From(), m.To()
	if m.IsCastling() {
		switch to {
		case board.G1:
			to = board.H1
		case board.C1:
			to = board.A1
		case board.G8:
			to = board.H8
		case board.C8:
			to = board.A8
		}
	}

	data := uint16(to.File()) | uint16(to.Rank())<<3 | uint16(from.File())<<6 | uint16(from.Rank())<<9
	switch m.Promotion() {
	case board.Knight:
		data |= 1 << 12
	case board.Bishop:
		data |= 2 << 12
	case board.Rook:
		data |= 3 << 12
	case board.Queen:
		data |= 4 << 12
	}
	return data
}

type memoryStore struct {
	mu      sync.Mutex
	entries map[uint64][]storage.BookEntry
}

func (s *memoryStore) GetBookEntries(hash uint64) ([]storage.BookEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, ok := s.entries[hash]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]storage.BookEntry(nil), entries...), nil
}

func (s *memoryStore) UpdateBookEntries(hash uint64, fn func([]storage.BookEntry) []storage.BookEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[hash] = fn(append([]storage.BookEntry(nil), s.entries[hash]...))
	return nil
}
