package manager

import (
	"context"
	"fmt"
	"strings"
)

// State is the lifecycle status reported to clients.
type State string

const (
	StateIdle      State = "idle"
	StateLoading   State = "loading"
	StateUnloading State = "unloading"
)

// Snapshot is a read-only copy of the lifecycle state.
type Snapshot struct {
	// ActiveModel is empty when nothing is loaded.
	ActiveModel string
	State       State
	Progress    int
	// LastError describes the most recent failed warmup, if any.
	LastError string
}

// Ready reports whether a model is resident and no transition is running.
func (s Snapshot) Ready() bool {
	return s.State == StateIdle && s.ActiveModel != ""
}

// Warmer forces the backend to bring a model into memory.
type Warmer interface {
	Warmup(ctx context.Context, model string) error
}

// ModelMemory remembers the active model across restarts.
type ModelMemory interface {
	Recall(ctx context.Context) (string, error)
	Remember(ctx context.Context, name string) error
	Forget(ctx context.Context) error
}

// WarmupPolicy decides what a failed warmup does to a load.
type WarmupPolicy string

const (
	// WarmupBestEffort marks the model active even when the warmup call
	// fails or times out, so the progress UI never gets stuck. The failure
	// is still reported through Snapshot.LastError.
	WarmupBestEffort WarmupPolicy = "best_effort"
	// WarmupStrict aborts the load on warmup failure and restores the
	// previously active model.
	WarmupStrict WarmupPolicy = "strict"
)

// ParseWarmupPolicy accepts "best_effort" (or "") and "strict".
func ParseWarmupPolicy(s string) (WarmupPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "best_effort", "best-effort", "besteffort":
		return WarmupBestEffort, nil
	case "strict":
		return WarmupStrict, nil
	default:
		return "", fmt.Errorf("unknown warmup policy %q", s)
	}
}
