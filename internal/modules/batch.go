package modules

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// AddBatch registers sources as in-memory modules and compiles them. The
// modules run when RunAll is called.
func (m *Manager) AddBatch(ctx context.Context, sources map[string]string) error {
	names := make([]string, 0, len(sources))
	for name, code := range sources {
		m.memory.Add(name, code)
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		e, err := m.load(ctx, name)
		if err != nil {
			return err
		}
		if e.err != nil {
			return e.err
		}
	}
	m.mu.Lock()
	m.batch = append(m.batch, names...)
	m.mu.Unlock()
	return nil
}

// RunAll executes every batch module, each in its own task. Modules importing
// each other are run once; the first failure cancels the others.
func (m *Manager) RunAll(ctx context.Context) error {
	m.mu.Lock()
	batch := m.batch
	m.batch = nil
	m.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range batch {
		name := name
		g.Go(func() error {
			e, err := m.load(gctx, name)
			if err != nil {
				return err
			}
			if err := m.machine.Acquire(gctx); err != nil {
				return err
			}
			defer m.machine.Release()
			if err := m.awaitCompiled(gctx, e); err != nil {
				return err
			}
			if e.err != nil {
				return e.err
			}
			return m.run(gctx, "", e)
		})
	}
	return g.Wait()
}
