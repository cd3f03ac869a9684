package manager

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// gateWarmer blocks each Warmup until release is closed (or ctx ends).
type gateWarmer struct {
	mu      sync.Mutex
	calls   []string
	release chan struct{}
	err     error
}

func newGateWarmer() *gateWarmer { return &gateWarmer{release: make(chan struct{})} }

func (g *gateWarmer) Warmup(ctx context.Context, model string) error {
	g.mu.Lock()
	g.calls = append(g.calls, model)
	g.mu.Unlock()
	select {
	case <-g.release:
		return g.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gateWarmer) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

// memMemory is an in-memory ModelMemory that counts writes.
type memMemory struct {
	mu        sync.Mutex
	name      string
	remembers int
	forgets   int
	failWith  error
}

func (m *memMemory) Recall(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name, m.failWith
}

func (m *memMemory) Remember(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remembers++
	if m.failWith != nil {
		return m.failWith
	}
	m.name = name
	return nil
}

func (m *memMemory) Forget(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forgets++
	m.name = ""
	return m.failWith
}

func (m *memMemory) counts() (string, int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name, m.remembers, m.forgets
}

var errWarmup = errors.New("connection refused")

// fastManager returns a manager with millisecond timings and a fixed window.
func fastManager(t *testing.T, cfg ManagerConfig, window time.Duration) *Manager {
	t.Helper()
	if cfg.TickInterval == 0 {
		cfg.TickInterval = 2 * time.Millisecond
	}
	if cfg.UnloadDelay == 0 {
		cfg.UnloadDelay = 20 * time.Millisecond
	}
	m := NewWithConfig(cfg)
	m.visualDuration = func() time.Duration { return window }
	t.Cleanup(func() { _ = m.Close() })
	return m
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitIdle(t *testing.T, m *Manager) Snapshot {
	t.Helper()
	waitFor(t, "idle", func() bool { return m.Snapshot().State == StateIdle })
	return m.Snapshot()
}
