package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultReadyTimeout  = 4 * time.Second
	newGameRetryAttempts = 3
	newGameRetryDelay    = 150 * time.Millisecond
)

var (
	// ErrProcessExited means the engine closed its output stream.
	ErrProcessExited = errors.New("engine process exited")
	// ErrSessionBroken means an earlier search was abandoned mid-output and the
	// session can no longer be trusted.
	ErrSessionBroken = errors.New("engine session broken")
	ErrNoScore       = errors.New("engine reported no score")
)

type Options struct {
	Threads int
	HashMB  int
}

// Limits bounds a search. Only a fixed depth is sent to the engine.
type Limits struct {
	Depth int
}

// Score is relative to the side to move. When Mate is true, MateIn is the
// signed distance to mate: positive means the side to move mates.
type Score struct {
	CP       int
	Mate     bool
	MateIn   int
	Depth    int
	BestMove string
	PV       []string
}

type Session struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	lines  chan string
	done   chan struct{}
	quit   chan struct{}
	logger *zap.Logger
	once   sync.Once

	mu      sync.Mutex
	search  sync.Mutex
	readErr error
	broken  bool
}

// NewSession starts the engine binary and completes the UCI handshake. ctx
// bounds the handshake only; the process outlives it.
func NewSession(ctx context.Context, binaryPath string, opt Options, logger *zap.Logger) (*Session, error) {
	if err := validateOptions(opt); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cmd := exec.Command(binaryPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdoutPipe.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	s := newSession(stdin, stdoutPipe, logger)
	s.cmd = cmd

	if err := s.initialize(ctx, opt); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func newSession(stdin io.WriteCloser, stdout io.Reader, logger *zap.Logger) *Session {
	s := &Session{
		stdin:  stdin,
		lines:  make(chan string, 64),
		done:   make(chan struct{}),
		quit:   make(chan struct{}),
		logger: logger,
	}
	go s.pump(bufio.NewReader(stdout))
	return s
}

// pump is the only reader of the engine's stdout.
func (s *Session) pump(r *bufio.Reader) {
	defer close(s.done)
	for {
		line, err := r.ReadString('\n')
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			select {
			case s.lines <- trimmed:
			case <-s.quit:
				return
			}
		}
		if err != nil {
			s.mu.Lock()
			if errors.Is(err, io.EOF) {
				err = ErrProcessExited
			}
			s.readErr = err
			s.mu.Unlock()
			return
		}
	}
}

// Evaluate searches fen with the given limits and returns the final score of
// the principal variation. If ctx ends first the session is marked broken
// and must be released with an error.
func (s *Session) Evaluate(ctx context.Context, fen string, limits Limits) (Score, error) {
	s.search.Lock()
	defer s.search.Unlock()

	if s.Broken() {
		return Score{}, ErrSessionBroken
	}

	positionCmd := buildPositionCommand(fen)
	if err := s.send(positionCmd); err != nil {
		return Score{}, fmt.Errorf("send position: %w", err)
	}
	goTokens, err := buildGoTokens(limits)
	if err != nil {
		return Score{}, err
	}
	goCmd := strings.Join(goTokens, " ")
	if err := s.send(goCmd + "\n"); err != nil {
		return Score{}, fmt.Errorf("send go: %w", err)
	}

	searchCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, computeSearchTimeout(limits))
		defer cancel()
	}

	var (
		score    Score
		hasScore bool
	)
	for {
		line, err := s.readLine(searchCtx)
		if err != nil {
			s.markBroken()
			s.logger.Debug("uci_read_failed",
				zap.String("position", strings.TrimSpace(positionCmd)),
				zap.String("go", goCmd),
				zap.Error(err),
			)
			return Score{}, fmt.Errorf("read line: %w", err)
		}

		switch {
		case strings.HasPrefix(line, "info "):
			if multipv, sc, ok := parseInfo(line); ok && multipv == 1 {
				score = sc
				hasScore = true
			}
		case strings.HasPrefix(line, "bestmove"):
			parts := strings.Fields(line)
			if len(parts) >= 2 {
				score.BestMove = parts[1]
			}
			if !hasScore {
				return Score{}, ErrNoScore
			}
			return score, nil
		}
	}
}

func (s *Session) Broken() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.broken
}

func (s *Session) markBroken() {
	s.mu.Lock()
	s.broken = true
	s.mu.Unlock()
}

func buildPositionCommand(fen string) string {
	fen = strings.TrimSpace(fen)
	if fen == "" || fen == "startpos" {
		return "position startpos\n"
	}
	return "position fen " + fen + "\n"
}

func validateOptions(opt Options) error {
	if opt.Threads < 0 {
		return fmt.Errorf("threads must be >= 0: %d", opt.Threads)
	}
	if opt.HashMB <= 0 {
		return fmt.Errorf("hash size must be > 0: %d", opt.HashMB)
	}
	return nil
}

func buildGoTokens(l Limits) ([]string, error) {
	if l.Depth <= 0 {
		return nil, fmt.Errorf("search depth must be > 0: %d", l.Depth)
	}
	return []string{"go", "depth", strconv.Itoa(l.Depth)}, nil
}

// computeSearchTimeout bounds a search when the caller set no deadline:
// 300ms per ply, clamped to 6-20s.
func computeSearchTimeout(l Limits) time.Duration {
	base := time.Duration(l.Depth) * 300 * time.Millisecond
	return min(max(base, 6*time.Second), 20*time.Second)
}

// parseInfo extracts the multipv index and score from an info line. Lines
// without a score (currmove, hashfull, strings) are skipped, as are bound
// scores.
func parseInfo(line string) (int, Score, bool) {
	parts := strings.Fields(line)
	var (
		multipv = 1
		score   Score
		set     bool
	)
	for i := 1; i < len(parts); i++ {
		switch parts[i] {
		case "string":
			return 0, Score{}, false
		case "depth":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					score.Depth = v
				}
				i++
			}
		case "multipv":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					multipv = v
				}
				i++
			}
		case "score":
			if i+2 >= len(parts) {
				return 0, Score{}, false
			}
			v, err := strconv.Atoi(parts[i+2])
			if err != nil {
				return 0, Score{}, false
			}
			switch parts[i+1] {
			case "cp":
				score.CP = v
				set = true
			case "mate":
				score.Mate = true
				score.MateIn = v
				set = true
			}
			i += 2
			if i+1 < len(parts) && (parts[i+1] == "lowerbound" || parts[i+1] == "upperbound") {
				return 0, Score{}, false
			}
		case "pv":
			score.PV = append([]string(nil), parts[i+1:]...)
			i = len(parts)
		}
	}
	if !set {
		return 0, Score{}, false
	}
	return multipv, score, true
}

func (s *Session) EnsureReady(ctx context.Context) error {
	readyCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(readyCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

func (s *Session) NewGame(ctx context.Context) error {
	if err := s.send("ucinewgame\n"); err != nil {
		return fmt.Errorf("send ucinewgame: %w", err)
	}

	for attempt := 1; attempt <= newGameRetryAttempts; attempt++ {
		err := s.EnsureReady(ctx)
		if err == nil {
			return nil
		}
		if attempt == newGameRetryAttempts || errors.Is(err, ErrProcessExited) {
			return err
		}
		s.logger.Debug("uci_ready_retry", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(newGameRetryDelay):
		}
	}
	return nil
}

func (s *Session) Close() error {
	s.once.Do(func() { close(s.quit) })
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdin != nil {
		s.stdin.Close()
	}

	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}

	if s.cmd != nil {
		err := s.cmd.Wait()
		s.cmd = nil
		return err
	}
	return nil
}

func (s *Session) initialize(ctx context.Context, opt Options) error {
	initCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("uci\n"); err != nil {
		return fmt.Errorf("send uci: %w", err)
	}
	if err := s.awaitToken(initCtx, "uciok"); err != nil {
		return fmt.Errorf("wait uciok: %w", err)
	}

	if err := s.applyOptions(opt); err != nil {
		return err
	}

	if err := s.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(initCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

func (s *Session) applyOptions(opt Options) error {
	threadCount := opt.Threads
	if threadCount <= 0 {
		threadCount = 1
	}
	cmds := []string{
		fmt.Sprintf("setoption name Threads value %d\n", threadCount),
		fmt.Sprintf("setoption name Hash value %d\n", opt.HashMB),
	}
	for _, cmd := range cmds {
		if err := s.send(cmd); err != nil {
			return fmt.Errorf("apply options: %w", err)
		}
	}
	return nil
}

func (s *Session) send(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.stdin, msg); err != nil {
		return fmt.Errorf("%w: %v", ErrProcessExited, err)
	}
	return nil
}

func (s *Session) awaitToken(ctx context.Context, token string) error {
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return err
		}
		if strings.Contains(line, token) {
			return nil
		}
	}
}

func (s *Session) readLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line := <-s.lines:
		return line, nil
	case <-s.done:
		// drain whatever the engine printed before exiting.
		select {
		case line := <-s.lines:
			return line, nil
		default:
		}
		s.mu.Lock()
		err := s.readErr
		s.mu.Unlock()
		if err == nil {
			err = ErrProcessExited
		}
		return "", err
	}
}
