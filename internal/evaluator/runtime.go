// Package evaluator is the embedding API of Lyng: it wires a machine, its
// standard library and its module registry together.
package evaluator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"lyng/internal/compiler"
	"lyng/internal/modules"
	"lyng/internal/object"
	"lyng/internal/picache"
	"lyng/internal/stdlib"
	"lyng/internal/token"
	"lyng/internal/util"
)

type Option func(*Runtime)

// WithOutput redirects print and println.
func WithOutput(w io.Writer) Option {
	return func(rt *Runtime) { rt.out = w }
}

// WithArgs binds the script arguments as ARGV.
func WithArgs(args []string) Option {
	return func(rt *Runtime) { rt.args = args }
}

// WithModuleSources registers in-memory modules.
func WithModuleSources(sources map[string]string) Option {
	return func(rt *Runtime) { rt.sources = sources }
}

// WithoutFilesystem keeps imports from reading module files.
func WithoutFilesystem() Option {
	return func(rt *Runtime) { rt.noFS = true }
}

// Runtime is one independent Lyng instance. Code of a runtime runs one task
// at a time; separate runtimes share nothing.
type Runtime struct {
	Config util.Configuration

	machine *object.Machine
	modules *modules.Manager
	out     io.Writer
	args    []string
	sources map[string]string
	noFS    bool
}

func New(cfg util.Configuration, opts ...Option) *Runtime {
	rt := &Runtime{Config: cfg}
	for _, opt := range opts {
		opt(rt)
	}
	rt.machine = object.NewMachine(cfg)
	if rt.out != nil {
		rt.machine.Out = rt.out
	}
	stdlib.Install(rt.machine.Globals)
	argv := make([]object.Obj, len(rt.args))
	for i, a := range rt.args {
		argv[i] = object.NewString(a)
	}
	rt.machine.Globals.Bind("ARGV", object.NewList(argv))

	mopts := []modules.Option{
		modules.WithSecurity(modules.SecurityFromConfig(cfg)),
		modules.WithHostModules(stdlib.HostModules()...),
		modules.WithCompilerOptions(compiler.WithCache(rt.cacheConfig(), rt.machine.Stats)),
	}
	if !rt.noFS {
		mopts = append(mopts, modules.WithSources(modules.NewFSProvider(cfg)))
	}
	rt.modules = modules.NewManager(rt.machine, mopts...)
	for name, code := range rt.sources {
		rt.modules.Memory().Add(name, code)
	}
	slog.Debug("runtime created",
		slog.Bool("pic", cfg.PICEnabled),
		slog.Bool("pool", cfg.ScopePoolEnabled),
		slog.String("root", cfg.RootPath))
	return rt
}

func (rt *Runtime) cacheConfig() picache.Config {
	return picache.Config{
		Enabled:         rt.Config.PICEnabled,
		InitialCapacity: rt.Config.PICInitialCapacity,
		MaxCapacity:     rt.Config.PICMaxCapacity,
	}
}

func (rt *Runtime) Machine() *object.Machine  { return rt.machine }
func (rt *Runtime) Modules() *modules.Manager { return rt.modules }

// CacheStats aggregates the inline cache counters of everything compiled by
// this runtime.
func (rt *Runtime) CacheStats() *picache.Stats { return rt.machine.Stats }

// NewRootScope returns a fresh script scope below the runtime globals.
func (rt *Runtime) NewRootScope() *object.Scope {
	return rt.machine.Globals.NewModuleScope("")
}

// Compile compiles source without running it. Imports are resolved and
// checked, but imported modules run only when the unit executes.
func (rt *Runtime) Compile(source, fileName string) (*compiler.Unit, error) {
	return rt.CompileContext(context.Background(), token.NewSource(fileName, source))
}

func (rt *Runtime) CompileContext(ctx context.Context, src *token.Source) (*compiler.Unit, error) {
	return compiler.Compile(src, rt.modules,
		compiler.WithCache(rt.cacheConfig(), rt.machine.Stats),
		compiler.WithContext(ctx))
}

// Execute runs unit in scope, or in a fresh root scope when scope is nil.
// Declarations of the unit stay visible in scope afterwards.
func (rt *Runtime) Execute(ctx context.Context, unit *compiler.Unit, scope *object.Scope) (object.Obj, error) {
	if scope == nil {
		scope = rt.NewRootScope()
	}
	if err := rt.machine.Acquire(ctx); err != nil {
		return nil, err
	}
	defer rt.machine.Release()
	scope.SetContext(ctx)
	return unit.Execute(scope)
}

// Eval compiles and runs code in a fresh root scope.
func (rt *Runtime) Eval(ctx context.Context, code string) (object.Obj, error) {
	return rt.EvalIn(ctx, code, nil)
}

// EvalIn compiles and runs code in scope.
func (rt *Runtime) EvalIn(ctx context.Context, code string, scope *object.Scope) (object.Obj, error) {
	unit, err := rt.CompileContext(ctx, token.NewSource("<eval>", code))
	if err != nil {
		return nil, err
	}
	return rt.Execute(ctx, unit, scope)
}

// RunFile compiles and runs the script at path.
func (rt *Runtime) RunFile(ctx context.Context, path string) (object.Obj, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	unit, err := rt.CompileContext(ctx, token.NewSource(path, string(data)))
	if err != nil {
		return nil, err
	}
	return rt.Execute(ctx, unit, nil)
}
