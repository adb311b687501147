package review

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEvaluationTimeout is returned by an Evaluator when a search did not
	// finish in time. The analyzer restarts the engine and retries once.
	ErrEvaluationTimeout = errors.New("engine evaluation timed out")
	// ErrEngineCrashed is returned by an Evaluator when its process died.
	ErrEngineCrashed = errors.New("engine process crashed")
	ErrNoEvaluator   = errors.New("no evaluator configured")
)

// MalformedGameError reports a move list that cannot be replayed.
type MalformedGameError struct {
	Ply    int
	Move   string
	Reason string
	Err    error
}

func (e *MalformedGameError) Error() string {
	msg := "malformed game"
	if e.Ply > 0 {
		msg = fmt.Sprintf("%s: ply %d (%q)", msg, e.Ply, e.Move)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedGameError) Unwrap() error { return e.Err }

// EngineTimeoutError means a position stayed unevaluated after one retry.
// Ply is the number of moves played to reach FEN; 0 is the initial position.
type EngineTimeoutError struct {
	Ply     int
	FEN     string
	Timeout time.Duration
	Err     error
}

func (e *EngineTimeoutError) Error() string {
	return fmt.Sprintf("engine timeout after retry at ply %d (budget %s, fen %q): %v", e.Ply, e.Timeout, e.FEN, e.Err)
}

func (e *EngineTimeoutError) Unwrap() error { return e.Err }

// EngineProcessError means the engine could not be started or kept alive.
type EngineProcessError struct {
	Op  string
	Err error
}

func (e *EngineProcessError) Error() string {
	return fmt.Sprintf("engine process %s: %v", e.Op, e.Err)
}

func (e *EngineProcessError) Unwrap() error { return e.Err }

// AssertionFailure is an internal invariant violation. It is always surfaced.
type AssertionFailure struct {
	Invariant string
	Ply       int
}

func (e *AssertionFailure) Error() string {
	if e.Ply > 0 {
		return fmt.Sprintf("assertion failed at ply %d: %s", e.Ply, e.Invariant)
	}
	return "assertion failed: " + e.Invariant
}
