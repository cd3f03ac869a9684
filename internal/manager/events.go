package manager

import "time"

// Event is one lifecycle transition as seen by observers.
type Event struct {
	Name  string
	Model string
	At    time.Time
	// Fields carries event-specific detail such as the warmup error.
	Fields map[string]any
}

// Lifecycle event names, in the order a load or unload emits them.
const (
	EventLoadStart   = "load_start"
	EventWarmupDone  = "warmup_done"
	EventWarmupError = "warmup_error"
	EventLoadReady   = "load_ready"
	EventLoadFailed  = "load_failed"
	EventUnloadStart = "unload_start"
	EventUnloadDone  = "unload_done"
	EventRestored    = "restored"
)

// EventPublisher observes lifecycle transitions. Publish is called outside
// the manager lock but on the transition's goroutine, so it must not block.
type EventPublisher interface {
	Publish(Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// emit logs the transition at debug level and hands it to the publisher.
func (m *Manager) emit(name, model string, fields map[string]any) {
	ev := m.log.Debug().Str("event", name).Str("model", model)
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg("lifecycle")
	m.publisher.Publish(Event{Name: name, Model: model, At: time.Now(), Fields: fields})
}
