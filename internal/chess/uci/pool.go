package uci

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

var ErrPoolClosed = errors.New("engine pool closed")

type PoolConfig struct {
	BinaryPath string
	// Capacity caps running engine processes per engine configuration.
	// Zero picks a value from the CPU count.
	Capacity int
	Logger   *zap.Logger
}

// Pool keeps warm engine processes, grouped by Options. A review takes one
// with Acquire and hands it back with Release once its positions are scored.
type Pool struct {
	binaryPath string
	capacity   int
	logger     *zap.Logger

	mu     sync.Mutex
	closed bool
	groups map[string]*engineGroup
	owners map[*Session]*engineGroup
}

// engineGroup holds one slot token per running process. Sessions not owned
// by a review wait in warm.
type engineGroup struct {
	opt   Options
	slots chan struct{}
	warm  chan *Session
}

func NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.BinaryPath == "" {
		return nil, fmt.Errorf("binary path required")
	}
	if _, err := os.Stat(cfg.BinaryPath); err != nil {
		return nil, fmt.Errorf("stockfish binary check: %w", err)
	}
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = defaultCapacity()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		binaryPath: cfg.BinaryPath,
		capacity:   capacity,
		logger:     logger,
		groups:     make(map[string]*engineGroup),
		owners:     make(map[*Session]*engineGroup),
	}, nil
}

// Acquire prefers a warm session for opt, starts a process when the group
// has a free slot and otherwise waits for a Release or for ctx.
func (p *Pool) Acquire(ctx context.Context, opt Options) (*Session, error) {
	if err := validateOptions(opt); err != nil {
		return nil, err
	}
	g, err := p.group(opt)
	if err != nil {
		return nil, err
	}
	for {
		select {
		case s := <-g.warm:
			if p.revive(ctx, g, s) {
				return s, nil
			}
			continue
		default:
		}

		select {
		case s := <-g.warm:
			if p.revive(ctx, g, s) {
				return s, nil
			}
		case g.slots <- struct{}{}:
			s, err := NewSession(ctx, p.binaryPath, opt, p.logger)
			if err != nil {
				<-g.slots
				return nil, err
			}
			p.own(s, g)
			return s, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Release hands a session back. A failed or broken session is killed and
// its slot freed so the next Acquire starts a fresh process.
func (p *Pool) Release(s *Session, err error) {
	if s == nil {
		return
	}
	if err == nil && s.Broken() {
		err = ErrSessionBroken
	}

	p.mu.Lock()
	g, ok := p.owners[s]
	delete(p.owners, s)
	closed := p.closed
	p.mu.Unlock()

	switch {
	case !ok:
		_ = s.Close()
	case err != nil || closed:
		p.logger.Debug("uci_session_retired", zap.String("options", g.opt.Key()), zap.Error(err))
		g.retire(s)
	default:
		select {
		case g.warm <- s:
		default:
			g.retire(s)
		}
	}
}

// Running reports how many processes hold a slot for opt, warm or owned.
func (p *Pool) Running(opt Options) int {
	p.mu.Lock()
	g, ok := p.groups[opt.Key()]
	p.mu.Unlock()
	if !ok {
		return 0
	}
	return len(g.slots)
}

// Close kills warm sessions. Sessions still owned are killed on Release.
func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	groups := make([]*engineGroup, 0, len(p.groups))
	for _, g := range p.groups {
		groups = append(groups, g)
	}
	p.mu.Unlock()

	var errs []error
	for _, g := range groups {
		errs = append(errs, g.drain()...)
	}
	return errors.Join(errs...)
}

func (p *Pool) group(opt Options) (*engineGroup, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPoolClosed
	}
	key := opt.Key()
	g, ok := p.groups[key]
	if !ok {
		g = &engineGroup{
			opt:   opt,
			slots: make(chan struct{}, p.capacity),
			warm:  make(chan *Session, p.capacity),
		}
		p.groups[key] = g
	}
	return g, nil
}

func (p *Pool) own(s *Session, g *engineGroup) {
	p.mu.Lock()
	p.owners[s] = g
	p.mu.Unlock()
}

// revive pings a warm session and retires it when the engine stopped answering.
func (p *Pool) revive(ctx context.Context, g *engineGroup, s *Session) bool {
	if err := s.EnsureReady(ctx); err != nil {
		p.logger.Debug("uci_session_stale", zap.String("options", g.opt.Key()), zap.Error(err))
		g.retire(s)
		return false
	}
	p.own(s, g)
	return true
}

func (g *engineGroup) retire(s *Session) {
	_ = s.Close()
	<-g.slots
}

func (g *engineGroup) drain() []error {
	var errs []error
	for {
		select {
		case s := <-g.warm:
			// a killed engine reports its signal as an exit error.
			var exitErr *exec.ExitError
			if err := s.Close(); err != nil && !errors.As(err, &exitErr) {
				errs = append(errs, err)
			}
			<-g.slots
		default:
			return errs
		}
	}
}

// Key identifies an engine configuration. Sessions with equal keys are
// interchangeable and produce the same evaluations at a given depth.
func (opt Options) Key() string {
	threads := opt.Threads
	if threads <= 0 {
		threads = 1
	}
	return fmt.Sprintf("thr=%d|hash=%d", threads, opt.HashMB)
}

func defaultCapacity() int {
	return min(max(runtime.NumCPU(), 2), 4)
}
