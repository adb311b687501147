package review

import (
	"errors"
	"testing"
)

func TestCentipawnLoss(t *testing.T) {
	s := DefaultSettings()
	cases := []struct {
		name   string
		mover  Side
		before Evaluation
		after  Evaluation
		want   int
		mated  bool
	}{
		{"black swing 20 to -250", Black, Centipawns(-20), Centipawns(250), 270, false},
		{"white improves", White, Centipawns(-30), Centipawns(10), 0, false},
		{"white loses 80", White, Centipawns(100), Centipawns(20), 80, false},
		{"walks into mate", White, Centipawns(30), MateFor(Black, 3), s.MatePenalty, true},
		{"finds mate", White, Centipawns(30), MateFor(White, 4), 0, false},
		{"keeps mate", Black, MateFor(Black, 5), MateFor(Black, 4), 0, false},
		{"loses mate but stays winning", White, MateFor(White, 2), Centipawns(700), 300, false},
		{"loses mate into losing", White, MateFor(White, 2), Centipawns(-400), s.MatePenalty, false},
		{"mate flips", White, MateFor(White, 2), MateFor(Black, 1), s.MatePenalty, true},
		{"still mated", White, MateFor(Black, 3), MateFor(Black, 2), 0, false},
		{"raw score over threshold is mate", White, Centipawns(40), Centipawns(-20000), s.MatePenalty, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, mated, err := CentipawnLoss(tc.mover, tc.before, tc.after, s)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want || mated != tc.mated {
				t.Fatalf("got loss=%d mated=%v, want loss=%d mated=%v", got, mated, tc.want, tc.mated)
			}
			if got < 0 {
				t.Fatalf("negative loss %d", got)
			}
		})
	}
}

func TestCentipawnLossEscapeFromMateIsAssertion(t *testing.T) {
	_, _, err := CentipawnLoss(White, MateFor(Black, 2), Centipawns(50), DefaultSettings())
	var af *AssertionFailure
	if !errors.As(err, &af) {
		t.Fatalf("expected AssertionFailure, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	th := DefaultThresholds()
	cases := map[int]Severity{
		0:   SeverityNone,
		49:  SeverityNone,
		50:  SeverityInaccuracy,
		149: SeverityInaccuracy,
		150: SeverityMistake,
		249: SeverityMistake,
		250: SeverityBlunder,
		270: SeverityBlunder,
	}
	for loss, want := range cases {
		if got := th.Classify(loss); got != want {
			t.Fatalf("Classify(%d) = %s, want %s", loss, got, want)
		}
		if again := th.Classify(loss); again != want {
			t.Fatalf("Classify(%d) not stable: %s", loss, again)
		}
	}
}

func TestClassifyIsMonotonic(t *testing.T) {
	th := Thresholds{Inaccuracy: 20, Mistake: 75, Blunder: 300}
	prev := SeverityNone
	for loss := 0; loss <= 1000; loss++ {
		sev := th.Classify(loss)
		if sev.Rank() < prev.Rank() {
			t.Fatalf("severity dropped at %d: %s after %s", loss, sev, prev)
		}
		prev = sev
	}
}

func TestClassifyMoveForcesBlunderOnMate(t *testing.T) {
	if got := classifyMove(DefaultThresholds(), 10, true); got != SeverityBlunder {
		t.Fatalf("expected blunder, got %s", got)
	}
}

func TestSettingsValidate(t *testing.T) {
	if err := DefaultSettings().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	bad := DefaultSettings()
	bad.Thresholds = Thresholds{Inaccuracy: 100, Mistake: 100, Blunder: 300}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for non-increasing thresholds")
	}
	bad = DefaultSettings()
	bad.Depth = 0
	bad.CriticalCount = -1
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for zero depth")
	}
}
