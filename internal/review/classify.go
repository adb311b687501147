package review

// Classify buckets a centipawn loss into a severity tier.
func (t Thresholds) Classify(cpLoss int) Severity {
	switch {
	case cpLoss >= t.Blunder:
		return SeverityBlunder
	case cpLoss >= t.Mistake:
		return SeverityMistake
	case cpLoss >= t.Inaccuracy:
		return SeverityInaccuracy
	default:
		return SeverityNone
	}
}

// classifyMove applies the thresholds, forcing a blunder when the move walked
// into a forced mate.
func classifyMove(t Thresholds, cpLoss int, matedAfter bool) Severity {
	if matedAfter {
		return SeverityBlunder
	}
	return t.Classify(cpLoss)
}
