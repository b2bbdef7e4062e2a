package object

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"lyng/internal/picache"
	"lyng/internal/token"
	"lyng/internal/util"
)

type ImportSymbol struct {
	Name  string
	Alias string
}

// ImportProvider resolves `import` statements. PrepareImport runs at compile
// time and only validates; PerformImport runs when the import statement
// executes and links the module's public records into the scope.
type ImportProvider interface {
	PrepareImport(ctx context.Context, pos token.Pos, module string, symbols []ImportSymbol) error
	PerformImport(ctx context.Context, into *Scope, module string, symbols []ImportSymbol) error
}

// Machine owns everything one runtime instance shares between its scopes:
// configuration, the execution token, the frame pool and cache statistics.
type Machine struct {
	Config  util.Configuration
	Out     io.Writer
	Imports ImportProvider
	Globals *Scope
	Stats   *picache.Stats

	// token is held by the goroutine currently evaluating code of this
	// machine; suspension points give it up while they wait.
	token chan struct{}
	pool  *ScopePool

	extensionCount atomic.Int64
	frames         atomic.Uint64
}

func NewMachine(cfg util.Configuration) *Machine {
	m := &Machine{
		Config: cfg,
		Out:    os.Stdout,
		Stats:  &picache.Stats{},
		token:  make(chan struct{}, 1),
	}
	if cfg.ScopePoolEnabled {
		m.pool = NewScopePool(cfg.ScopePoolSize)
	}
	m.Globals = NewRootScope(m)
	return m
}

// Pool returns the frame pool, nil when pooling is disabled.
func (m *Machine) Pool() *ScopePool { return m.pool }

// FramesCreated counts call frames handed out, pooled or not.
func (m *Machine) FramesCreated() uint64 { return m.frames.Load() }

// Acquire takes the execution token, waiting for other tasks to yield it.
func (m *Machine) Acquire(ctx context.Context) error {
	select {
	case m.token <- struct{}{}:
		return nil
	case <-ctx.Done():
		return &CancelledSignal{Cause: ctx.Err()}
	}
}

func (m *Machine) Release() {
	select {
	case <-m.token:
	default:
		slog.Warn("execution token released while not held")
	}
}

// Suspend gives up the token while wait blocks, then takes it back.
func (m *Machine) Suspend(ctx context.Context, wait func() error) error {
	m.Release()
	werr := wait()
	if err := m.Acquire(ctx); err != nil {
		return err
	}
	return werr
}

func (m *Machine) newFrame(kind ScopeKind, parent, caller *Scope, poolable bool) *Scope {
	m.frames.Add(1)
	var f *Scope
	if poolable && m.pool != nil {
		f = m.pool.get(m)
	} else {
		f = newScope(m)
	}
	f.kind = kind
	f.parent = parent
	if parent != nil {
		f.thisObj = parent.thisObj
		f.currentClass = parent.currentClass
		f.module = parent.module
	}
	f.ctx = caller.ctx
	f.depth = caller.depth + 1
	return f
}

func (m *Machine) releaseFrame(f *Scope) {
	if f.pooled && !f.retained && m.pool != nil {
		m.pool.put(f)
	}
}

func (m *Machine) checkCall(caller *Scope) error {
	if caller.depth >= m.Config.MaxCallDepth && m.Config.MaxCallDepth > 0 {
		return caller.Raise(IllegalStateExceptionClass, "call depth limit of %d exceeded", m.Config.MaxCallDepth)
	}
	return CheckCancelled(caller)
}

// CheckCancelled returns a CancelledSignal once the context of s is done.
func CheckCancelled(s *Scope) error {
	if err := s.ctx.Err(); err != nil {
		return &CancelledSignal{Cause: err}
	}
	return nil
}

// ScopePool recycles call frames of functions that never capture them.
type ScopePool struct {
	mu     sync.Mutex
	free   []*Scope
	max    int
	reused atomic.Uint64
}

func NewScopePool(max int) *ScopePool {
	if max <= 0 {
		max = 256
	}
	return &ScopePool{max: max}
}

// Reused counts frames served from the pool.
func (p *ScopePool) Reused() uint64 { return p.reused.Load() }

func (p *ScopePool) get(m *Machine) *Scope {
	p.mu.Lock()
	n := len(p.free)
	if n == 0 {
		p.mu.Unlock()
		f := newScope(m)
		f.pooled = true
		return f
	}
	f := p.free[n-1]
	p.free = p.free[:n-1]
	p.mu.Unlock()
	p.reused.Add(1)
	f.machine = m
	return f
}

func (p *ScopePool) put(f *Scope) {
	f.reset()
	p.mu.Lock()
	if len(p.free) < p.max {
		p.free = append(p.free, f)
	}
	p.mu.Unlock()
}
