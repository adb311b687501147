package review

// BuildStats reduces per-move results into per-side counts and averages.
func BuildStats(moves []MoveEvaluation) Stats {
	var sums [2]int
	var stats [2]SideStats
	for _, mv := range moves {
		idx := 0
		if mv.Move.Side == Black {
			idx = 1
		}
		sums[idx] += mv.CPLoss
		stats[idx].Moves++
		switch mv.Severity {
		case SeverityBlunder:
			stats[idx].Blunders++
		case SeverityMistake:
			stats[idx].Mistakes++
		case SeverityInaccuracy:
			stats[idx].Inaccuracies++
		}
	}
	for i := range stats {
		stats[i].AverageCPLoss = roundedMean(sums[i], stats[i].Moves)
	}
	return Stats{White: stats[0], Black: stats[1]}
}

// roundedMean rounds half up; losses are never negative.
func roundedMean(sum, n int) int {
	if n == 0 {
		return 0
	}
	return (2*sum + n) / (2 * n)
}
