// Package modules loads, compiles and runs Lyng modules. Every module is
// compiled and executed at most once per Manager, however many importers
// ask for it and from however many goroutines.
package modules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"lyng/internal/compiler"
	"lyng/internal/object"
	"lyng/internal/token"
	"lyng/internal/util/future"
)

var errNoSymbol = errors.New("no such symbol")

// ImportError reports an import that can't be satisfied.
type ImportError struct {
	Module string
	Symbol string
	Err    error
}

func (e *ImportError) Error() string {
	switch {
	case errors.Is(e.Err, ErrDenied) && e.Symbol != "":
		return fmt.Sprintf("import of %s from %s is denied", e.Symbol, e.Module)
	case errors.Is(e.Err, ErrDenied):
		return fmt.Sprintf("import of module %s is denied", e.Module)
	case errors.Is(e.Err, ErrNotFound):
		return fmt.Sprintf("module %s not found", e.Module)
	case errors.Is(e.Err, errNoSymbol):
		return fmt.Sprintf("module %s has no symbol %s", e.Module, e.Symbol)
	}
	return fmt.Sprintf("can't import %s: %v", e.Module, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

type state uint8

const (
	stateCompiling state = iota
	stateCompiled
	stateRunning
	stateDone
)

type entry struct {
	name  string
	unit  *compiler.Unit
	scope *object.Scope
	// names are the top-level names of the module, in declaration order.
	names []string
	state state
	// compiled is closed once unit, scope, names and err are set.
	compiled chan struct{}
	err      error
	done     *future.Future[*object.Scope]
}

type Option func(*Manager)

func WithSecurity(sm SecurityManager) Option {
	return func(m *Manager) { m.security = sm }
}

// WithSources appends providers searched after host and memory modules.
func WithSources(p ...SourceProvider) Option {
	return func(m *Manager) { m.sources = append(m.sources, p...) }
}

func WithHostModules(hm ...*HostModule) Option {
	return func(m *Manager) {
		for _, h := range hm {
			m.host[h.Name] = h
		}
	}
}

// WithCompilerOptions applies opts to every module the manager compiles.
func WithCompilerOptions(opts ...compiler.Option) Option {
	return func(m *Manager) { m.compileOpts = append(m.compileOpts, opts...) }
}

// Manager is the module registry of one machine. It implements
// object.ImportProvider.
type Manager struct {
	machine     *object.Machine
	security    SecurityManager
	memory      *MemoryProvider
	sources     []SourceProvider
	host        map[string]*HostModule
	compileOpts []compiler.Option

	mu      sync.Mutex
	entries map[string]*entry
	// waits has an edge a -> b for each run of module a blocked on module b;
	// compiles has one for each compilation of a that needs b compiled.
	waits    waitGraph
	compiles waitGraph
	batch    []string
}

// NewManager creates a registry for machine and installs it as the
// machine's import provider.
func NewManager(machine *object.Machine, opts ...Option) *Manager {
	m := &Manager{
		machine:  machine,
		security: AllowAll,
		memory:   NewMemoryProvider(),
		host:     map[string]*HostModule{},
		entries:  map[string]*entry{},
		waits:    waitGraph{},
		compiles: waitGraph{},
	}
	for _, opt := range opts {
		opt(m)
	}
	machine.Imports = m
	return m
}

// Memory returns the in-memory provider, searched before other sources.
func (m *Manager) Memory() *MemoryProvider { return m.memory }

// Module returns the scope of a loaded module.
func (m *Manager) Module(name string) (*object.Scope, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[name]
	if !ok || e.scope == nil {
		return nil, false
	}
	return e.scope, true
}

// Loaded lists the names of the modules in the registry.
func (m *Manager) Loaded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.entries))
	for n := range m.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// PrepareImport loads and compiles module and checks that the requested
// symbols exist. It never runs module code.
func (m *Manager) PrepareImport(ctx context.Context, _ token.Pos, module string, symbols []object.ImportSymbol) error {
	if err := m.checkSecurity(module, symbols); err != nil {
		return err
	}
	importer := compilingModule(ctx)
	m.mu.Lock()
	m.compiles.add(importer, module)
	m.mu.Unlock()
	defer m.removeWait(m.compiles, importer, module)

	e, err := m.load(ctx, module)
	if err != nil {
		return err
	}
	m.mu.Lock()
	compiling := e.state == stateCompiling
	cycle := compiling && m.compiles.cyclic(importer, module)
	m.mu.Unlock()
	if cycle {
		// module is being compiled further up this import chain; its names
		// are checked when the import runs.
		return nil
	}
	if compiling {
		select {
		case <-e.compiled:
		case <-ctx.Done():
			return &object.CancelledSignal{Cause: ctx.Err()}
		}
	}
	if e.err != nil {
		return e.err
	}
	for _, sym := range symbols {
		if !e.declares(sym.Name) {
			return &ImportError{Module: module, Symbol: sym.Name, Err: errNoSymbol}
		}
	}
	return nil
}

// PerformImport runs module if nobody has yet and links its public records
// into the importing scope.
func (m *Manager) PerformImport(ctx context.Context, into *object.Scope, module string, symbols []object.ImportSymbol) error {
	if err := m.checkSecurity(module, symbols); err != nil {
		return into.Raise(object.ImportExceptionClass, "%s", err.Error())
	}
	e, err := m.load(ctx, module)
	if err != nil {
		return importFailure(into, err)
	}
	if err := m.awaitCompiled(ctx, e); err != nil {
		return err
	}
	if e.err != nil {
		return importFailure(into, e.err)
	}
	if err := m.run(ctx, into.Module(), e); err != nil {
		return err
	}
	return m.link(into, e, symbols)
}

func (m *Manager) checkSecurity(module string, symbols []object.ImportSymbol) error {
	if !m.security.CanImportModule(module) {
		return &ImportError{Module: module, Err: ErrDenied}
	}
	for _, sym := range symbols {
		if !m.security.CanImportSymbol(module, sym.Name) {
			return &ImportError{Module: module, Symbol: sym.Name, Err: ErrDenied}
		}
	}
	return nil
}

func importFailure(s *object.Scope, err error) error {
	var se *object.SyntaxError
	var ee *object.ExecutionError
	if errors.As(err, &se) || errors.As(err, &ee) {
		return err
	}
	return s.Raise(object.ImportExceptionClass, "%s", err.Error())
}

func (e *entry) declares(name string) bool {
	for _, n := range e.names {
		if n == name {
			return true
		}
	}
	return false
}

// load returns the registry entry of name, compiling the module on first
// use. A load cancelled through ctx leaves no entry behind.
func (m *Manager) load(ctx context.Context, name string) (*entry, error) {
	m.mu.Lock()
	if e, ok := m.entries[name]; ok {
		m.mu.Unlock()
		return e, nil
	}
	e := &entry{name: name, compiled: make(chan struct{}), done: future.Pending[*object.Scope]()}
	m.entries[name] = e
	m.mu.Unlock()

	start := time.Now()
	err := m.compile(ctx, e)
	if err != nil && ctx.Err() != nil {
		m.forget(e)
		e.err = err
		close(e.compiled)
		return nil, err
	}
	m.mu.Lock()
	e.err = err
	if e.state == stateCompiling {
		e.state = stateCompiled
	}
	m.mu.Unlock()
	close(e.compiled)

	if err != nil {
		slog.Debug("module failed to compile", slog.String("module", name), slog.String("error", err.Error()))
		return e, nil
	}
	slog.Debug("module compiled", slog.String("module", name), slog.Duration("elapsed", time.Since(start)))
	return e, nil
}

func (m *Manager) forget(e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries[e.name] == e {
		delete(m.entries, e.name)
	}
}

func (m *Manager) compile(ctx context.Context, e *entry) error {
	if h, ok := m.host[e.name]; ok {
		scope := m.machine.Globals.NewModuleScope(e.name)
		if err := h.Install(scope); err != nil {
			return &ImportError{Module: e.name, Err: err}
		}
		e.scope = scope
		for _, rec := range scope.Records() {
			e.names = append(e.names, rec.Name)
		}
		m.mu.Lock()
		e.state = stateDone
		m.mu.Unlock()
		e.done.Complete(scope, nil)
		return nil
	}

	src, err := m.find(ctx, e.name)
	if err != nil {
		return err
	}
	opts := append(append([]compiler.Option{}, m.compileOpts...), compiler.WithContext(withCompiling(ctx, e.name)))
	unit, err := compiler.Compile(src, m, opts...)
	if err != nil {
		return err
	}
	if unit.Package != "" && unit.Package != e.name {
		return &ImportError{Module: e.name, Err: fmt.Errorf("source declares package %s", unit.Package)}
	}
	e.unit = unit
	e.names = unit.DeclaredNames()
	e.scope = m.machine.Globals.NewModuleScope(e.name)
	for _, d := range unit.Declared {
		e.scope.Predeclare(d.Name, d.Visibility)
	}
	return nil
}

func (m *Manager) find(ctx context.Context, name string) (*token.Source, error) {
	providers := append([]SourceProvider{m.memory}, m.sources...)
	for _, p := range providers {
		src, err := p.Load(ctx, name)
		if err == nil {
			return src, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, &ImportError{Module: name, Err: err}
		}
	}
	return nil, &ImportError{Module: name, Err: ErrNotFound}
}

func (m *Manager) awaitCompiled(ctx context.Context, e *entry) error {
	select {
	case <-e.compiled:
		return nil
	default:
	}
	return m.machine.Suspend(ctx, func() error {
		select {
		case <-e.compiled:
			return nil
		case <-ctx.Done():
			return &object.CancelledSignal{Cause: ctx.Err()}
		}
	})
}

// run executes e on behalf of importer, or waits for the run already in
// progress. A wait that would close a cycle returns at once: the importer
// links the predeclared records and sees their values once they are set.
func (m *Manager) run(ctx context.Context, importer string, e *entry) error {
	m.mu.Lock()
	switch e.state {
	case stateDone:
		m.mu.Unlock()
		_, err := e.done.Await()
		return err
	case stateRunning:
		if m.waits.cyclic(importer, e.name) {
			m.mu.Unlock()
			slog.Debug("import cycle", slog.String("importer", importer), slog.String("module", e.name))
			return nil
		}
		m.waits.add(importer, e.name)
		m.mu.Unlock()
		defer m.removeWait(m.waits, importer, e.name)
		return m.machine.Suspend(ctx, func() error {
			_, err := e.done.AwaitContext(ctx)
			if ctx.Err() != nil {
				return &object.CancelledSignal{Cause: ctx.Err()}
			}
			return err
		})
	}
	e.state = stateRunning
	m.waits.add(importer, e.name)
	m.mu.Unlock()
	defer m.removeWait(m.waits, importer, e.name)

	start := time.Now()
	e.scope.SetContext(ctx)
	_, err := e.unit.Execute(e.scope)
	var cs *object.CancelledSignal
	if errors.As(err, &cs) {
		m.forget(e)
	}
	m.mu.Lock()
	e.state = stateDone
	m.mu.Unlock()
	if err != nil {
		e.done.Complete(nil, err)
		slog.Debug("module failed", slog.String("module", e.name), slog.String("error", err.Error()))
		return err
	}
	e.done.Complete(e.scope, nil)
	slog.Debug("module executed", slog.String("module", e.name), slog.Duration("elapsed", time.Since(start)))
	return nil
}

// waitGraph counts the edges a -> b of imports in progress.
type waitGraph map[string]map[string]int

// cyclic reports whether from waiting on to would close a cycle. Callers
// hold m.mu.
func (g waitGraph) cyclic(from, to string) bool {
	seen := map[string]bool{}
	stack := []string{to}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == from {
			return true
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		for next := range g[n] {
			stack = append(stack, next)
		}
	}
	return false
}

func (g waitGraph) add(from, to string) {
	if g[from] == nil {
		g[from] = map[string]int{}
	}
	g[from][to]++
}

func (m *Manager) removeWait(g waitGraph, from, to string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g[from][to]--; g[from][to] <= 0 {
		delete(g[from], to)
	}
	if len(g[from]) == 0 {
		delete(g, from)
	}
}

type compilingKey struct{}

// withCompiling tags ctx with the module whose compilation it serves, so
// nested imports know their importer.
func withCompiling(ctx context.Context, module string) context.Context {
	return context.WithValue(ctx, compilingKey{}, module)
}

func compilingModule(ctx context.Context) string {
	name, _ := ctx.Value(compilingKey{}).(string)
	return name
}

// link installs the public records of e into the importing scope. Without
// an explicit symbol list every public, importable name is linked.
func (m *Manager) link(into *object.Scope, e *entry, symbols []object.ImportSymbol) error {
	if len(symbols) == 0 {
		for _, name := range e.names {
			rec := e.scope.Local(name)
			if rec == nil || rec.Visibility != object.Public || !m.security.CanImportSymbol(e.name, name) {
				continue
			}
			if err := into.Link(name, rec); err != nil {
				return linkFailure(into, err)
			}
		}
		return nil
	}
	for _, sym := range symbols {
		rec := e.scope.Local(sym.Name)
		if rec == nil {
			return into.Raise(object.ImportExceptionClass, "module %s has no symbol %s", e.name, sym.Name)
		}
		if rec.Visibility != object.Public {
			return into.Raise(object.ImportExceptionClass, "%s is %s in module %s", sym.Name, rec.Visibility, e.name)
		}
		alias := sym.Alias
		if alias == "" {
			alias = sym.Name
		}
		if err := into.Link(alias, rec); err != nil {
			return linkFailure(into, err)
		}
	}
	return nil
}

func linkFailure(s *object.Scope, err error) error {
	var ee *object.ExecutionError
	if errors.As(err, &ee) {
		return s.Raise(object.ImportExceptionClass, "%s", ee.Message())
	}
	return s.Raise(object.ImportExceptionClass, "%s", err.Error())
}
