package reviewpresenter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/park285/cheese-review/internal/msgcat"
	"github.com/park285/cheese-review/internal/review"
	reviewsvc "github.com/park285/cheese-review/internal/service/review"
	"github.com/park285/cheese-review/pkg/reviewdto"
)

func sampleReport() *reviewsvc.Report {
	blunder := review.MoveEvaluation{
		Move:       review.Move{Ply: 6, Side: review.Black, SAN: "Nd4", UCI: "c6d4"},
		EvalBefore: review.Centipawns(20),
		EvalAfter:  review.Centipawns(290),
		CPLoss:     270,
		Severity:   review.SeverityBlunder,
	}
	return &reviewsvc.Report{
		ReviewUUID: "u-1",
		Input: review.GameInput{
			ID:    "https://www.chess.com/game/live/42",
			White: review.Player{Name: "Alice", Rating: 1500},
			Black: review.Player{Name: "Bob"},
		},
		Evaluation: &review.GameEvaluation{
			TrackedSide: review.Black,
			PerMove:     []review.MoveEvaluation{blunder},
			CriticalMoments: []review.CriticalMoment{{
				MoveNum: 3, Ply: 6, Player: review.Black, Move: "Nd4", UCI: "c6d4", CPLoss: 270,
				PositionBefore: "fen", EvalBefore: review.Centipawns(20), EvalAfter: review.MateFor(review.White, 3),
			}},
			Stats: review.Stats{Black: review.SideStats{AverageCPLoss: 90, Blunders: 1, Moves: 3}},
		},
		EnginePreset: "standard",
		Depth:        12,
		ReviewID:     7,
	}
}

func TestReportTextAndImages(t *testing.T) {
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat: %v", err)
	}
	dto := ToDTOReport(sampleReport(), false)
	if dto.CriticalMoments[0].Severity != "blunder" || dto.Moves != nil {
		t.Fatalf("dto = %+v", dto)
	}

	var written []string
	p := NewPresenter(nil, func(name string, png []byte) error {
		written = append(written, name)
		return nil
	})
	if err := p.Images(dto, map[int][]byte{6: {1, 2, 3}}); err != nil {
		t.Fatalf("Images: %v", err)
	}
	if len(written) != 1 || written[0] != "42-ply006.png" || dto.CriticalMoments[0].Image != "42-ply006.png" {
		t.Fatalf("written = %v", written)
	}

	text, err := NewFormatter(cat).Report(dto)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	for _, want := range []string{
		"Alice (White) vs Bob (Black)",
		"tracking black",
		"move 3... Nd4 (black) lost 270 cp [blunder]",
		"eval +0.20 -> #3",
		"Black  avg cp loss 90 | blunders 1",
		"Saved as review #7",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in:\n%s", want, text)
		}
	}
}

func TestBatchJSONAndErrors(t *testing.T) {
	list := []reviewsvc.BatchReport{
		{Index: 0, Report: sampleReport()},
		{Index: 1, Err: &review.MalformedGameError{Ply: 3, Move: "Kxh5", Reason: "illegal move"}},
		{Index: 2, Err: fmt.Errorf("evaluate: %w", &review.EngineTimeoutError{FEN: "x"})},
	}
	b := ToDTOBatch("run", list, true)
	if b.Succeeded != 1 || b.Failed != 2 {
		t.Fatalf("batch = %+v", b)
	}
	if b.Games[1].Error.Code != "malformed_game" || b.Games[2].Error.Code != "engine_timeout" || !b.Games[2].Error.Retryable {
		t.Fatalf("errors = %+v %+v", b.Games[1].Error, b.Games[2].Error)
	}
	if len(b.Games[0].Report.Moves) != 1 {
		t.Fatalf("moves missing")
	}

	var out string
	p := NewPresenter(func(s string) error { out = s; return nil }, nil)
	if err := p.JSON(b); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var back reviewdto.BatchReport
	if err := json.Unmarshal([]byte(out), &back); err != nil || back.Failed != 2 {
		t.Fatalf("json = %s, %v", out, err)
	}

	cat, _ := msgcat.New("")
	text, err := NewFormatter(cat).Batch(b)
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if !strings.Contains(text, "Reviewed 3 games: 1 succeeded, 2 failed") || !strings.Contains(text, "Game 2 failed") {
		t.Fatalf("text:\n%s", text)
	}
}

func TestToDTOErrorDefault(t *testing.T) {
	if got := ToDTOError(errors.New("boom")); got.Code != "internal" || got.Retryable {
		t.Fatalf("got %+v", got)
	}
}

func TestFormatScore(t *testing.T) {
	cases := map[string]reviewdto.Score{
		"+0.35": {CP: 35},
		"-1.20": {CP: -120},
		"#2":    {Mating: "white", MateIn: 2},
		"#-4":   {Mating: "black", MateIn: 4},
	}
	for want, s := range cases {
		if got := FormatScore(s); got != want {
			t.Fatalf("FormatScore(%+v) = %q, want %q", s, got, want)
		}
	}
}
