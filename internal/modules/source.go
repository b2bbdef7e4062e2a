package modules

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"lyng/internal/object"
	"lyng/internal/token"
	"lyng/internal/util"
)

const FileExtension = ".lyng"

var (
	ErrNotFound = errors.New("module not found")
	ErrDenied   = errors.New("module import denied")
)

// SourceProvider finds the source text of a module. Load returns an error
// wrapping ErrNotFound when the provider does not know the module.
type SourceProvider interface {
	Load(ctx context.Context, name string) (*token.Source, error)
}

// MemoryProvider serves modules registered in memory, as used by tests,
// batches and embedders.
type MemoryProvider struct {
	mu      sync.RWMutex
	sources map[string]string
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{sources: map[string]string{}}
}

func (p *MemoryProvider) Add(name, code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sources[name] = code
}

func (p *MemoryProvider) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.sources))
	for n := range p.sources {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (p *MemoryProvider) Load(_ context.Context, name string) (*token.Source, error) {
	p.mu.RLock()
	code, ok := p.sources[name]
	p.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return token.NewSource(name+FileExtension, code), nil
}

// FSProvider resolves `a.b.c` to `a/b/c.lyng` below each root in turn.
type FSProvider struct {
	Roots []string
}

// NewFSProvider searches the project root first and then the lib directory
// of the Lyng home, when one is configured.
func NewFSProvider(cfg util.Configuration) *FSProvider {
	var roots []string
	if cfg.RootPath != "" {
		roots = append(roots, cfg.RootPath)
	}
	if cfg.LyngHome != "" {
		roots = append(roots, filepath.Join(cfg.LyngHome, "lib"))
	}
	return &FSProvider{Roots: roots}
}

func (p *FSProvider) Load(ctx context.Context, name string) (*token.Source, error) {
	parts := util.SplitModuleName(name)
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: empty module name", ErrNotFound)
	}
	rel := filepath.Join(parts...) + FileExtension
	for _, root := range p.Roots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(root, rel)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read module %s: %w", name, err)
		}
		return token.NewSource(path, string(data)), nil
	}
	return nil, fmt.Errorf("%w: %s (searched %s)", ErrNotFound, name, strings.Join(p.Roots, ", "))
}

// HostModule is a module implemented in Go. Install fills the module scope
// with its public records.
type HostModule struct {
	Name    string
	Install func(s *object.Scope) error
}
