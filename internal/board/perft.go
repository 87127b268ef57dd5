package board

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Perft counts the leaf nodes of the legal move tree to the given depth.
func Perft(p *Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}

	var ml MoveList
	p.GenerateMoves(&ml)

	var nodes uint64
	for _, m := range ml.Slice() {
		child, ok := p.MakeMove(m, false)
		if !ok {
			continue
		}
		if depth == 1 {
			nodes++
			continue
		}
		nodes += Perft(&child, depth-1)
	}
	return nodes
}

// DivideEntry is the perft count below one root move.
type DivideEntry struct {
	Move  Move
	Nodes uint64
}

// Divide returns the perft count under each legal root move, in
// generation order.
func Divide(p *Position, depth int) []DivideEntry {
	if depth < 1 {
		return nil
	}

	legal := p.LegalMoves()
	entries := make([]DivideEntry, 0, len(legal))
	for _, m := range legal {
		child, _ := p.MakeMove(m, false)
		entries = append(entries, DivideEntry{Move: m, Nodes: Perft(&child, depth-1)})
	}
	return entries
}

// PerftParallel splits the root moves across at most workers goroutines.
// Each goroutine works on its own copies of the position. It returns
// ctx.Err() if the context is cancelled before all subtrees are counted.
func PerftParallel(ctx context.Context, p *Position, depth, workers int) (uint64, error) {
	if depth < 2 {
		return Perft(p, depth), nil
	}

	root := *p
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	var total atomic.Uint64
	for _, m := range root.LegalMoves() {
		child, _ := root.MakeMove(m, false)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			total.Add(Perft(&child, depth-1))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}
	return total.Load(), nil
}
