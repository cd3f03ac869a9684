package manager

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultTickInterval   = 150 * time.Millisecond
	defaultMinVisual      = 3 * time.Second
	defaultMaxVisual      = 8 * time.Second
	defaultWarmupTimeout  = 60 * time.Second
	defaultUnloadDelay    = 800 * time.Millisecond
	defaultPersistTimeout = 5 * time.Second
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	// Warmer is called once per load. Nil skips the warmup entirely.
	Warmer Warmer
	// Memory persists the active model name. Nil keeps state in memory only.
	Memory ModelMemory
	// Publisher receives lifecycle events. Nil drops them.
	Publisher EventPublisher
	Logger    *zerolog.Logger

	// TickInterval is the progress estimator period.
	TickInterval time.Duration
	// MinVisual and MaxVisual bound the randomized duration over which
	// the estimator walks progress from 0 to 100.
	MinVisual time.Duration
	MaxVisual time.Duration
	// WarmupTimeout bounds the warmup call.
	WarmupTimeout time.Duration
	// UnloadDelay is how long an unload stays in StateUnloading.
	UnloadDelay time.Duration
	// PersistTimeout bounds each Remember/Forget call.
	PersistTimeout time.Duration
	WarmupPolicy   WarmupPolicy
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		state:     StateIdle,
		warmer:    cfg.Warmer,
		memory:    cfg.Memory,
		publisher: cfg.Publisher,
		policy:    cfg.WarmupPolicy,
		baseCtx:   ctx,
		cancel:    cancel,
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	if cfg.Logger != nil {
		m.log = *cfg.Logger
	} else {
		m.log = zerolog.Nop()
	}
	if m.policy == "" {
		m.policy = WarmupBestEffort
	}
	m.tick = orDefault(cfg.TickInterval, defaultTickInterval)
	m.minVisual = orDefault(cfg.MinVisual, defaultMinVisual)
	m.maxVisual = orDefault(cfg.MaxVisual, defaultMaxVisual)
	if m.maxVisual < m.minVisual {
		m.maxVisual = m.minVisual
	}
	m.warmupTimeout = orDefault(cfg.WarmupTimeout, defaultWarmupTimeout)
	m.unloadDelay = orDefault(cfg.UnloadDelay, defaultUnloadDelay)
	m.persistTimeout = orDefault(cfg.PersistTimeout, defaultPersistTimeout)
	m.visualDuration = m.randomVisual
	return m
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// randomVisual picks a duration uniformly in [minVisual, maxVisual].
func (m *Manager) randomVisual() time.Duration {
	span := m.maxVisual - m.minVisual
	if span <= 0 {
		return m.minVisual
	}
	return m.minVisual + rand.N(span+1)
}
