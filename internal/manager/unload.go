package manager

import (
	"context"
	"time"
)

// RequestUnload starts unloading the active model and reports whether an
// unload was started. It is a no-op while a transition is running or when
// nothing is loaded.
func (m *Manager) RequestUnload() bool {
	m.mu.Lock()
	if m.closed || m.state != StateIdle || m.active == "" {
		m.mu.Unlock()
		return false
	}
	m.gen++
	gen := m.gen
	model := m.active
	m.state = StateUnloading
	m.progress = 0
	m.lastErr = ""
	m.wg.Add(1)
	m.mu.Unlock()

	lifecycleProgress.Set(0)
	m.emit(EventUnloadStart, model, nil)
	go m.runUnload(gen, model)
	return true
}

func (m *Manager) runUnload(gen uint64, model string) {
	defer m.wg.Done()
	timer := time.NewTimer(m.unloadDelay)
	defer timer.Stop()
	select {
	case <-m.baseCtx.Done():
		return
	case <-timer.C:
	}

	m.persist("forget", model, func(ctx context.Context) error {
		return m.memory.Forget(ctx)
	})

	m.mu.Lock()
	if m.gen != gen || m.closed {
		m.mu.Unlock()
		return
	}
	m.state = StateIdle
	m.active = ""
	m.progress = 0
	m.mu.Unlock()
	lifecycleTransitions.WithLabelValues("unload", "ok").Inc()
	m.emit(EventUnloadDone, model, nil)
}
