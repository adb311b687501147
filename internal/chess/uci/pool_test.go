package uci

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

const scriptedEngine = `#!/bin/sh
while IFS= read -r line; do
  case "$line" in
    uci) echo "id name scripted"; echo "uciok" ;;
    isready) echo "readyok" ;;
    go*) echo "info depth 1 score cp 12 pv e2e4"; echo "bestmove e2e4" ;;
    quit) exit 0 ;;
  esac
done
`

func newScriptedPool(t *testing.T, capacity int) *Pool {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	bin := filepath.Join(t.TempDir(), "engine.sh")
	if err := os.WriteFile(bin, []byte(scriptedEngine), 0o755); err != nil {
		t.Fatalf("write engine: %v", err)
	}
	p, err := NewPool(PoolConfig{BinaryPath: bin, Capacity: capacity})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

var testOptions = Options{Threads: 1, HashMB: 16}

func TestPoolReusesWarmSession(t *testing.T) {
	p := newScriptedPool(t, 1)
	ctx := context.Background()
	s1, err := p.Acquire(ctx, testOptions)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := s1.Evaluate(ctx, "startpos", Limits{Depth: 1}); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	p.Release(s1, nil)
	s2, err := p.Acquire(ctx, testOptions)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer p.Release(s2, nil)
	if s2 != s1 {
		t.Fatalf("expected the warm session back")
	}
	if n := p.Running(testOptions); n != 1 {
		t.Fatalf("running = %d, want 1", n)
	}
}

func TestPoolWaitsAtCapacity(t *testing.T) {
	p := newScriptedPool(t, 1)
	s1, err := p.Acquire(context.Background(), testOptions)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer p.Release(s1, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := p.Acquire(ctx, testOptions); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline while at capacity, got %v", err)
	}
}

func TestPoolReleaseWithErrorFreesSlot(t *testing.T) {
	p := newScriptedPool(t, 1)
	ctx := context.Background()
	s1, err := p.Acquire(ctx, testOptions)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	p.Release(s1, errors.New("search abandoned"))
	if n := p.Running(testOptions); n != 0 {
		t.Fatalf("running = %d after failed release, want 0", n)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	s2, err := p.Acquire(waitCtx, testOptions)
	if err != nil {
		t.Fatalf("Acquire after failure: %v", err)
	}
	defer p.Release(s2, nil)
	if s2 == s1 {
		t.Fatalf("failed session handed out again")
	}
}

func TestPoolClose(t *testing.T) {
	p := newScriptedPool(t, 2)
	s, err := p.Acquire(context.Background(), testOptions)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	p.Release(s, nil)
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if n := p.Running(testOptions); n != 0 {
		t.Fatalf("running = %d after close", n)
	}
	if _, err := p.Acquire(context.Background(), testOptions); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("expected ErrPoolClosed, got %v", err)
	}
}
