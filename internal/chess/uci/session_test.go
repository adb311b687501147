package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestParseInfo(t *testing.T) {
	cases := []struct {
		line    string
		ok      bool
		multipv int
		want    Score
	}{
		{"info depth 12 seldepth 18 multipv 1 score cp 35 nodes 1000 pv e2e4 e7e5", true, 1, Score{CP: 35, Depth: 12}},
		{"info depth 9 multipv 2 score cp -12 pv d2d4", true, 2, Score{CP: -12, Depth: 9}},
		{"info depth 20 score mate 3 pv h5f7", true, 1, Score{Mate: true, MateIn: 3, Depth: 20}},
		{"info depth 20 score mate -2 pv g8h8", true, 1, Score{Mate: true, MateIn: -2, Depth: 20}},
		{"info depth 5 score cp 40 lowerbound pv e2e4", false, 0, Score{}},
		{"info currmove e2e4 currmovenumber 1", false, 0, Score{}},
		{"info string NNUE evaluation using nn.nnue", false, 0, Score{}},
	}
	for _, tc := range cases {
		multipv, got, ok := parseInfo(tc.line)
		if ok != tc.ok {
			t.Fatalf("%q: ok = %v, want %v", tc.line, ok, tc.ok)
		}
		if !ok {
			continue
		}
		if multipv != tc.multipv || got.CP != tc.want.CP || got.Mate != tc.want.Mate || got.MateIn != tc.want.MateIn || got.Depth != tc.want.Depth {
			t.Fatalf("%q: got multipv=%d %+v, want multipv=%d %+v", tc.line, multipv, got, tc.multipv, tc.want)
		}
	}
}

func TestBuildGoTokens(t *testing.T) {
	got, err := buildGoTokens(Limits{Depth: 12})
	if err != nil || strings.Join(got, " ") != "go depth 12" {
		t.Fatalf("got %v, %v", got, err)
	}
	for _, depth := range []int{0, -3} {
		if _, err := buildGoTokens(Limits{Depth: depth}); err == nil {
			t.Fatalf("depth %d: expected error", depth)
		}
	}
}

func TestComputeSearchTimeoutFollowsDepth(t *testing.T) {
	cases := []struct {
		depth int
		want  time.Duration
	}{
		{1, 6 * time.Second},
		{30, 9 * time.Second},
		{200, 20 * time.Second},
	}
	for _, tc := range cases {
		if got := computeSearchTimeout(Limits{Depth: tc.depth}); got != tc.want {
			t.Fatalf("depth %d: timeout = %s, want %s", tc.depth, got, tc.want)
		}
	}
}

func TestBuildPositionCommand(t *testing.T) {
	fen := "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1"
	if got := buildPositionCommand(fen); got != "position fen "+fen+"\n" {
		t.Fatalf("got %q", got)
	}
	if got := buildPositionCommand(" "); got != "position startpos\n" {
		t.Fatalf("got %q", got)
	}
}

func TestOptionsKey(t *testing.T) {
	if (Options{HashMB: 64}).Key() != (Options{Threads: 1, HashMB: 64}).Key() {
		t.Fatalf("zero threads should key like one thread")
	}
	if (Options{Threads: 2, HashMB: 64}).Key() == (Options{Threads: 1, HashMB: 64}).Key() {
		t.Fatalf("different thread counts share a key")
	}
}

// fakeEngine answers UCI commands on a pipe pair. respond maps a "go" command
// to the lines printed in reply; returning nil stays silent.
type fakeEngine struct {
	respond func(position, goCmd string) []string
}

func (f fakeEngine) run(in io.Reader, out io.WriteCloser) {
	defer out.Close()
	sc := bufio.NewScanner(in)
	var position string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "uci":
			fmt.Fprintln(out, "id name fake")
			fmt.Fprintln(out, "uciok")
		case line == "isready":
			fmt.Fprintln(out, "readyok")
		case line == "quit":
			return
		case strings.HasPrefix(line, "position "):
			position = line
		case strings.HasPrefix(line, "go"):
			for _, l := range f.respond(position, line) {
				fmt.Fprintln(out, l)
			}
		}
	}
}

func startFake(t *testing.T, engine fakeEngine) *Session {
	t.Helper()
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	go engine.run(inR, outW)
	s := newSession(inW, outR, zap.NewNop())
	t.Cleanup(func() { _ = s.Close(); _ = inR.Close() })
	if err := s.initialize(context.Background(), Options{HashMB: 16}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return s
}

func TestSessionEvaluate(t *testing.T) {
	s := startFake(t, fakeEngine{respond: func(position, goCmd string) []string {
		if goCmd != "go depth 10" {
			return []string{"bestmove (none)"}
		}
		return []string{
			"info depth 9 multipv 1 score cp 20 pv e2e4",
			"info depth 10 multipv 2 score cp -5 pv d2d4",
			"info depth 10 multipv 1 score cp 31 pv e2e4 e7e5",
			"bestmove e2e4 ponder e7e5",
		}
	}})
	if err := s.NewGame(context.Background()); err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	got, err := s.Evaluate(context.Background(), "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", Limits{Depth: 10})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got.CP != 31 || got.BestMove != "e2e4" || got.Depth != 10 {
		t.Fatalf("score = %+v", got)
	}
}

func TestSessionEvaluateTimeoutBreaksSession(t *testing.T) {
	s := startFake(t, fakeEngine{respond: func(string, string) []string { return nil }})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := s.Evaluate(ctx, "startpos", Limits{Depth: 10})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if !s.Broken() {
		t.Fatalf("session should be broken after an abandoned search")
	}
	if _, err := s.Evaluate(context.Background(), "startpos", Limits{Depth: 10}); !errors.Is(err, ErrSessionBroken) {
		t.Fatalf("expected ErrSessionBroken, got %v", err)
	}
}

func TestSessionEvaluateProcessExit(t *testing.T) {
	s := startFake(t, fakeEngine{respond: func(string, string) []string { return nil }})
	// closing stdin makes the fake exit and close its output.
	_ = s.stdin.Close()
	_, err := s.Evaluate(context.Background(), "startpos", Limits{Depth: 1})
	if !errors.Is(err, ErrProcessExited) {
		t.Fatalf("expected ErrProcessExited, got %v", err)
	}
}
