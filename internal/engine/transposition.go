package engine

import (
	"github.com/hailam/blackbit/internal/board"
)

// TTFlag indicates the type of bound stored in the transposition table.
type TTFlag uint8

const (
	TTExact      TTFlag = iota // Exact score
	TTLowerBound               // Failed high (beta cutoff)
	TTUpperBound               // Failed low
)

// TTEntry represents an entry in the transposition table.
type TTEntry struct {
	Key      uint64     // Full Zobrist hash, verified on probe
	BestMove board.Move // Best move found
	Score    int16      // Score (bounded by flag), mate scores stored relative to the node
	Depth    int8       // Search depth
	Flag     TTFlag     // Type of bound
}

// TranspositionTable is a fixed-size hash table of search results. Every
// store overwrites its slot. It is owned by one Bot and not safe for
// concurrent use.
type TranspositionTable struct {
	entries []TTEntry
	size    uint64

	hits   uint64
	probes uint64
}

const ttEntrySize = 16

// NewTranspositionTable creates a transposition table with the given size in MB.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	if sizeMB < 1 {
		sizeMB = 1
	}
	numEntries := uint64(sizeMB) * 1024 * 1024 / ttEntrySize
	return &TranspositionTable{
		entries: make([]TTEntry, numEntries),
		size:    numEntries,
	}
}

// Probe looks up a position. The entry is only returned if its key matches.
func (tt *TranspositionTable) Probe(hash uint64) (TTEntry, bool) {
	tt.probes++
	entry := tt.entries[hash%tt.size]
	if entry.Key == hash && entry.Depth > 0 {
		tt.hits++
		return entry, true
	}
	return TTEntry{}, false
}

// ProbeScore returns a usable score for a node searched to depth with the
// window (alpha, beta), or false when the entry is missing, too shallow, or
// its bound does not decide the window.
func (tt *TranspositionTable) ProbeScore(hash uint64, depth, alpha, beta, ply int) (int, bool) {
	entry, ok := tt.Probe(hash)
	if !ok || int(entry.Depth) < depth {
		return 0, false
	}

	score := AdjustScoreFromTT(int(entry.Score), ply)
	switch entry.Flag {
	case TTExact:
		return score, true
	case TTUpperBound:
		if score <= alpha {
			return alpha, true
		}
	case TTLowerBound:
		if score >= beta {
			return beta, true
		}
	}
	return 0, false
}

// Store saves a search result, replacing whatever the slot held.
func (tt *TranspositionTable) Store(hash uint64, depth, score int, flag TTFlag, bestMove board.Move, ply int) {
	tt.entries[hash%tt.size] = TTEntry{
		Key:      hash,
		BestMove: bestMove,
		Score:    int16(AdjustScoreToTT(score, ply)),
		Depth:    int8(min(depth, 127)),
		Flag:     flag,
	}
}

// Clear empties the table.
func (tt *TranspositionTable) Clear() {
	clear(tt.entries)
	tt.hits = 0
	tt.probes = 0
}

// HashFull returns the permille (parts per thousand) of the table that is used.
func (tt *TranspositionTable) HashFull() int {
	sampleSize := 1000
	if uint64(sampleSize) > tt.size {
		sampleSize = int(tt.size)
	}

	used := 0
	for i := 0; i < sampleSize; i++ {
		if tt.entries[i].Depth > 0 {
			used++
		}
	}
	return used * 1000 / sampleSize
}

// HitRate returns the cache hit rate as a percentage.
func (tt *TranspositionTable) HitRate() float64 {
	if tt.probes == 0 {
		return 0
	}
	return float64(tt.hits) / float64(tt.probes) * 100
}

// Size returns the number of entries in the table.
func (tt *TranspositionTable) Size() uint64 {
	return tt.size
}

// AdjustScoreFromTT converts a stored mate score back to distance from the root.
func AdjustScoreFromTT(score int, ply int) int {
	if score > MateScore-MaxPly {
		return score - ply
	}
	if score < -MateScore+MaxPly {
		return score + ply
	}
	return score
}

// AdjustScoreToTT stores mate scores as distance from the current node.
func AdjustScoreToTT(score int, ply int) int {
	if score > MateScore-MaxPly {
		return score + ply
	}
	if score < -MateScore+MaxPly {
		return score - ply
	}
	return score
}
