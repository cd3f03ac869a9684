package manager

import (
	"context"
	"sync"
	"time"
)

// loadOp is one in-flight load. The progress estimator and the warmup call
// report into it independently; whichever arrives second completes the latch
// and runs the terminal transition, so its side effects happen exactly once.
type loadOp struct {
	gen          uint64
	model        string
	prevModel    string
	prevProgress int
	stop         chan struct{}

	mu      sync.Mutex
	warmed  bool
	elapsed bool
	done    bool
	warmErr error
}

func (op *loadOp) isWarmed() bool {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.warmed
}

// arriveWarmup records the warmup result. It returns true when the caller
// must run the terminal transition. Under strict policy a failed warmup
// completes the latch on its own.
func (op *loadOp) arriveWarmup(err error, strict bool) bool {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.done {
		return false
	}
	op.warmed = true
	op.warmErr = err
	if op.elapsed || (strict && err != nil) {
		op.done = true
		return true
	}
	return false
}

// arriveEstimator records that the visual duration has run out.
func (op *loadOp) arriveEstimator() bool {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.done {
		return false
	}
	op.elapsed = true
	if op.warmed {
		op.done = true
		return true
	}
	return false
}

// estimateProgress maps elapsed time over the visual window to 0..100,
// capped at 99 until the warmup has finished.
func estimateProgress(elapsed, window time.Duration, warmed bool) int {
	p := 100
	if window > 0 && elapsed < window {
		p = int(elapsed * 100 / window)
	}
	if !warmed && p > 99 {
		p = 99
	}
	return p
}

// RequestLoad starts loading name and reports whether a load was started.
// Re-selecting the active idle model is a no-op, as is any request made
// while a load or unload is already running.
func (m *Manager) RequestLoad(name string) bool {
	if name == "" {
		return false
	}
	m.mu.Lock()
	if m.closed || m.state != StateIdle || m.active == name {
		m.mu.Unlock()
		return false
	}
	m.gen++
	op := &loadOp{
		gen:          m.gen,
		model:        name,
		prevModel:    m.active,
		prevProgress: m.progress,
		stop:         make(chan struct{}),
	}
	m.state = StateLoading
	m.progress = 0
	m.lastErr = ""
	window := m.visualDuration()
	m.wg.Add(2)
	m.mu.Unlock()

	lifecycleProgress.Set(0)
	m.emit(EventLoadStart, name, map[string]any{"window_ms": window.Milliseconds()})
	go m.runEstimator(op, window)
	go m.runWarmup(op)
	return true
}

func (m *Manager) runEstimator(op *loadOp, window time.Duration) {
	defer m.wg.Done()
	start := time.Now()
	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()
	for {
		select {
		case <-m.baseCtx.Done():
			return
		case <-op.stop:
			return
		case <-ticker.C:
		}
		elapsed := time.Since(start)
		m.advance(op.gen, estimateProgress(elapsed, window, op.isWarmed()))
		if elapsed >= window {
			if op.arriveEstimator() {
				m.finishLoad(op)
			}
			// Once the window has run out the displayed progress is pinned
			// at 99 until the warmup arrives and finishes the load.
			return
		}
	}
}

func (m *Manager) runWarmup(op *loadOp) {
	defer m.wg.Done()
	var err error
	if m.warmer != nil {
		ctx, cancel := context.WithTimeout(m.baseCtx, m.warmupTimeout)
		start := time.Now()
		err = m.warmer.Warmup(ctx, op.model)
		warmupDuration.Observe(time.Since(start).Seconds())
		cancel()
	}
	if m.baseCtx.Err() != nil {
		return
	}
	if err != nil {
		m.emit(EventWarmupError, op.model, map[string]any{"error": err.Error(), "policy": string(m.policy)})
	} else {
		m.emit(EventWarmupDone, op.model, nil)
	}
	if op.arriveWarmup(err, m.policy == WarmupStrict) {
		m.finishLoad(op)
	}
}

// advance raises progress for the current load; it never lowers it.
func (m *Manager) advance(gen uint64, p int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen || m.state != StateLoading || p <= m.progress {
		return
	}
	m.progress = p
	lifecycleProgress.Set(float64(p))
}

// finishLoad is the terminal transition, reached exactly once per loadOp.
func (m *Manager) finishLoad(op *loadOp) {
	close(op.stop)
	op.mu.Lock()
	warmErr := op.warmErr
	op.mu.Unlock()

	if warmErr != nil && m.policy == WarmupStrict {
		m.mu.Lock()
		if m.gen != op.gen || m.closed {
			m.mu.Unlock()
			return
		}
		m.state = StateIdle
		m.active = op.prevModel
		m.progress = op.prevProgress
		m.lastErr = "warmup failed: " + warmErr.Error()
		m.mu.Unlock()
		lifecycleProgress.Set(float64(op.prevProgress))
		lifecycleTransitions.WithLabelValues("load", "failed").Inc()
		m.emit(EventLoadFailed, op.model, map[string]any{"error": warmErr.Error()})
		return
	}

	// Remember before leaving StateLoading so a following unload cannot
	// have its Forget overtaken by this write.
	m.persist("remember", op.model, func(ctx context.Context) error {
		return m.memory.Remember(ctx, op.model)
	})

	m.mu.Lock()
	if m.gen != op.gen || m.closed {
		m.mu.Unlock()
		return
	}
	m.state = StateIdle
	m.active = op.model
	m.progress = 100
	if warmErr != nil {
		m.lastErr = "warmup failed: " + warmErr.Error()
	}
	m.mu.Unlock()
	lifecycleProgress.Set(100)
	outcome := "ok"
	if warmErr != nil {
		outcome = "warmup_failed"
	}
	lifecycleTransitions.WithLabelValues("load", outcome).Inc()
	m.emit(EventLoadReady, op.model, nil)
}
