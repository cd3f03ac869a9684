package manager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Manager is the process-wide lifecycle state holder.
type Manager struct {
	mu       sync.RWMutex
	state    State
	active   string
	progress int
	lastErr  string
	// gen increments on every accepted transition so stale goroutines can
	// recognize they have been superseded.
	gen    uint64
	closed bool

	warmer    Warmer
	memory    ModelMemory
	publisher EventPublisher
	log       zerolog.Logger
	policy    WarmupPolicy

	tick           time.Duration
	minVisual      time.Duration
	maxVisual      time.Duration
	warmupTimeout  time.Duration
	unloadDelay    time.Duration
	persistTimeout time.Duration
	visualDuration func() time.Duration

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New returns a manager with default timings.
func New(w Warmer, mem ModelMemory) *Manager {
	return NewWithConfig(ManagerConfig{Warmer: w, Memory: mem})
}

// Init restores the remembered active model, treating it as already warm.
// It is a no-op when nothing is remembered or a transition already started.
func (m *Manager) Init(ctx context.Context) error {
	if m.memory == nil {
		return nil
	}
	name, err := m.memory.Recall(ctx)
	if err != nil {
		return fmt.Errorf("recall active model: %w", err)
	}
	if name == "" {
		return nil
	}
	m.mu.Lock()
	if m.state != StateIdle || m.active != "" {
		m.mu.Unlock()
		return nil
	}
	m.active = name
	m.progress = 100
	m.mu.Unlock()
	lifecycleProgress.Set(100)
	m.emit(EventRestored, name, nil)
	return nil
}

// Snapshot returns a read-only view of the lifecycle state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{ActiveModel: m.active, State: m.state, Progress: m.progress, LastError: m.lastErr}
}

// Status is an alias of Snapshot that reads naturally at call sites.
func (m *Manager) Status() Snapshot { return m.Snapshot() }

// Ready reports whether a model is idle and active.
func (m *Manager) Ready() bool { return m.Snapshot().Ready() }

// Policy returns the configured warmup policy.
func (m *Manager) Policy() WarmupPolicy { return m.policy }

// Close abandons any in-flight transition and waits for its goroutines.
// Abandoned transitions perform no terminal side effects.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()
	m.cancel()
	m.wg.Wait()
	return nil
}

// persist runs a memory write detached from any request, bounded by persistTimeout.
// Failures are logged and swallowed.
func (m *Manager) persist(op string, model string, fn func(context.Context) error) {
	if m.memory == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(m.baseCtx), m.persistTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		m.log.Warn().Err(err).Str("op", op).Str("model", model).Msg("persist active model failed")
	}
}
