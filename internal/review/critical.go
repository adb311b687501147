package review

import "sort"

// SelectCritical returns the tracked side's k worst moves, ordered by
// centipawn loss descending and then by ply ascending. An empty tracked side
// considers both sides' moves.
func SelectCritical(moves []MoveEvaluation, tracked Side, k int) []CriticalMoment {
	if k <= 0 {
		return []CriticalMoment{}
	}
	candidates := make([]MoveEvaluation, 0, len(moves))
	for _, mv := range moves {
		if tracked != "" && mv.Move.Side != tracked {
			continue
		}
		candidates = append(candidates, mv)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].CPLoss != candidates[j].CPLoss {
			return candidates[i].CPLoss > candidates[j].CPLoss
		}
		return candidates[i].Move.Ply < candidates[j].Move.Ply
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	out := make([]CriticalMoment, 0, len(candidates))
	for _, mv := range candidates {
		out = append(out, CriticalMoment{
			MoveNum:        mv.Move.MoveNumber(),
			Ply:            mv.Move.Ply,
			Player:         mv.Move.Side,
			Move:           mv.Move.SAN,
			UCI:            mv.Move.UCI,
			CPLoss:         mv.CPLoss,
			PositionBefore: mv.Move.Before.FEN,
			EvalBefore:     mv.EvalBefore,
			EvalAfter:      mv.EvalAfter,
		})
	}
	return out
}
