package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/rental-core/internal/domain/event"
)

// EventLog publicador que guarda los eventos en memoria. Err, si se fija, se devuelve en cada Publish.
type EventLog struct {
	mu     sync.Mutex
	events []event.Envelope
	Err    error
}

func (l *EventLog) Publish(_ context.Context, _ string, e any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return l.Err
	}
	if env, ok := e.(event.Envelope); ok {
		l.events = append(l.events, env)
	}
	return nil
}

// Events copia de lo publicado.
func (l *EventLog) Events() []event.Envelope {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]event.Envelope(nil), l.events...)
}

// OfType eventos de un tipo.
func (l *EventLog) OfType(eventType string) []event.Envelope {
	var out []event.Envelope
	for _, e := range l.Events() {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}
