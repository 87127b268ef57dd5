package tablebase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hailam/blackbit/internal/board"
)

// DefaultLichessURL is the public Lichess tablebase endpoint.
const DefaultLichessURL = "https://tablebase.lichess.ovh/standard"

// LichessOptions configures a LichessProber.
type LichessOptions struct {
	BaseURL string        // Endpoint, DefaultLichessURL when empty
	Timeout time.Duration // Per-request timeout, 5s when zero
	Logger  zerolog.Logger
}

// LichessProber uses the Lichess tablebase API for online lookups.
// It requires network access and is rate limited by the server.
type LichessProber struct {
	client    *http.Client
	baseURL   string
	maxPieces int
	log       zerolog.Logger
}

// NewLichessProber creates a new Lichess-based tablebase prober.
func NewLichessProber(opts LichessOptions) *LichessProber {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultLichessURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	return &LichessProber{
		client:    &http.Client{Timeout: opts.Timeout},
		baseURL:   opts.BaseURL,
		maxPieces: 7, // Lichess serves up to 7-piece tablebases
		log:       opts.Logger.With().Str("component", "tablebase").Logger(),
	}
}

// NewCachedLichessProber creates a cached Lichess prober with default cache size.
func NewCachedLichessProber(opts LichessOptions) *CachedProber {
	return NewCachedProber(NewLichessProber(opts), 100000)
}

// Lichess API response structure. Move categories are given from the
// opponent's view after the move.
type lichessResponse struct {
	Category string `json:"category"`
	DTZ      int    `json:"dtz"`
	Moves    []struct {
		UCI      string `json:"uci"`
		Category string `json:"category"`
		DTZ      int    `json:"dtz"`
	} `json:"moves"`
}

func (lp *LichessProber) fetch(ctx context.Context, pos *board.Position) (*lichessResponse, error) {
	if CountPieces(pos) > lp.maxPieces {
		return nil, ErrUnavailable
	}

	// Lichess accepts underscores in place of spaces
	fen := strings.ReplaceAll(pos.FEN(), " ", "_")
	url := fmt.Sprintf("%s?fen=%s", lp.baseURL, fen)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := lp.client.Do(req)
	if err != nil {
		lp.log.Debug().Err(err).Msg("tablebase request failed")
		return nil, fmt.Errorf("tablebase request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tablebase request: %s: %w", resp.Status, ErrUnavailable)
	}

	var result lichessResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode tablebase response: %w", err)
	}
	if result.Category == "" || result.Category == "unknown" {
		return nil, ErrUnavailable
	}
	return &result, nil
}

func (lp *LichessProber) Probe(ctx context.Context, pos *board.Position) (ProbeResult, error) {
	result, err := lp.fetch(ctx, pos)
	if err != nil {
		return ProbeResult{}, err
	}
	return ProbeResult{WDL: categoryToWDL(result.Category), DTZ: result.DTZ}, nil
}

func (lp *LichessProber) ProbeRoot(ctx context.Context, pos *board.Position) (RootResult, error) {
	result, err := lp.fetch(ctx, pos)
	if err != nil {
		return RootResult{}, err
	}
	if len(result.Moves) == 0 {
		return RootResult{}, ErrUnavailable
	}

	// Moves are sorted best first
	best := result.Moves[0]
	move, err := board.ParseMove(best.UCI, pos)
	if err != nil {
		return RootResult{}, fmt.Errorf("tablebase move %q: %w", best.UCI, err)
	}

	return RootResult{
		Move: move,
		WDL:  -categoryToWDL(best.Category),
		DTZ:  best.DTZ,
	}, nil
}

func (lp *LichessProber) MaxPieces() int {
	return lp.maxPieces
}

func (lp *LichessProber) Available() bool {
	return true // Always available if network is up
}

func categoryToWDL(category string) WDL {
	switch category {
	case "win":
		return WDLWin
	case "cursed-win", "maybe-win":
		return WDLCursedWin
	case "blessed-loss", "maybe-loss":
		return WDLBlessedLoss
	case "loss":
		return WDLLoss
	default:
		return WDLDraw
	}
}
