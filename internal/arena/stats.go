package arena

import (
	"math"
)

// Statistics of a match from engine A's view.
type Statistics struct {
	WinningFraction float64
	EloDifference   float64
	LOS             float64 // Likelihood of superiority
}

// ComputeStatistics follows the usual match statistics formulas.
func ComputeStatistics(wins, losses, draws int) Statistics {
	games := wins + losses + draws
	if games == 0 {
		return Statistics{WinningFraction: 0.5, LOS: 0.5}
	}

	fraction := (float64(wins) + 0.5*float64(draws)) / float64(games)
	stats := Statistics{WinningFraction: fraction, LOS: 0.5}

	switch fraction {
	case 0:
		stats.EloDifference = math.Inf(-1)
	case 1:
		stats.EloDifference = math.Inf(1)
	default:
		stats.EloDifference = -math.Log(1/fraction-1) * 400 / math.Ln10
	}
	if wins+losses > 0 {
		stats.LOS = 0.5 + 0.5*math.Erf(float64(wins-losses)/math.Sqrt(2*float64(wins+losses)))
	}
	return stats
}

// score records one game from engine A's view.
func (s *Summary) score(g Game) {
	switch {
	case g.Outcome == Draw:
		s.Draws++
	case (g.Outcome == WhiteWins) == g.EngineAIsWhite:
		s.WinsA++
	default:
		s.LossesA++
	}
	s.Stats = ComputeStatistics(s.WinsA, s.LossesA, s.Draws)
}
