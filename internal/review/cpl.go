package review

// Normalize turns a raw centipawn score at or beyond the mate threshold into
// a forced-mate evaluation for the side the sign favours.
func Normalize(e Evaluation, mateThreshold int) Evaluation {
	if e.IsMate() || mateThreshold <= 0 {
		return e
	}
	switch {
	case e.Centipawns >= mateThreshold:
		return MateFor(White, 0)
	case e.Centipawns <= -mateThreshold:
		return MateFor(Black, 0)
	default:
		return e
	}
}

// CentipawnLoss computes how much the mover's evaluation worsened across the
// move. The boolean reports a transition into a forced mate against the mover,
// which is always classified as a blunder. Mate scores never enter ordinary
// arithmetic: transitions involving them are charged at most s.MatePenalty.
func CentipawnLoss(mover Side, before, after Evaluation, s Settings) (int, bool, error) {
	before = Normalize(before, s.MateThreshold)
	after = Normalize(after, s.MateThreshold)
	opponent := mover.Opponent()

	switch {
	case before.Mating == opponent:
		if after.Mating != opponent {
			return 0, false, &AssertionFailure{Invariant: "mover escaped a forced mate against it"}
		}
		return 0, false, nil
	case after.Mating == opponent:
		return s.MatePenalty, true, nil
	case before.Mating == mover:
		if after.Mating == mover {
			return 0, false, nil
		}
		return clamp(s.MatePenalty-after.ForSide(mover), 0, s.MatePenalty), false, nil
	case after.Mating == mover:
		return 0, false, nil
	default:
		loss := before.ForSide(mover) - after.ForSide(mover)
		if loss < 0 {
			loss = 0
		}
		return loss, false, nil
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
